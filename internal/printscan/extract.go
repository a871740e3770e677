package printscan

import (
	"strings"
	"unicode/utf8"
)

// maxModelLength bounds the model string taken from a description.
const maxModelLength = 100

// vendorFragment maps a case-insensitive description fragment to the
// canonical manufacturer name.
type vendorFragment struct {
	fragment string
	name     string
}

// vendorFragments is searched in order; the first fragment found wins.
var vendorFragments = []vendorFragment{
	{"HP", "HP"},
	{"Hewlett-Packard", "HP"},
	{"Hewlett Packard", "HP"},
	{"Brother", "Brother"},
	{"Canon", "Canon"},
	{"Epson", "Epson"},
	{"Ricoh", "Ricoh"},
	{"Xerox", "Xerox"},
	{"Lexmark", "Lexmark"},
	{"Kyocera", "Kyocera"},
	{"Samsung", "Samsung"},
	{"Konica", "Konica Minolta"},
	{"Sharp", "Sharp"},
	{"OKI", "OKI"},
	{"Dell", "Dell"},
}

// firmwarePrefixes are tried in order against the system description.
// "V" also matches words such as "Vista 2"; that is accepted.
var firmwarePrefixes = []string{"FW:", "firmware ", "Firmware:", "V"}

// extractManufacturer searches the device description, then the system
// description, for a known vendor fragment.
func extractManufacturer(deviceDescr, sysDescr string) *string {
	for _, descr := range []string{deviceDescr, sysDescr} {
		if descr == "" {
			continue
		}
		lower := strings.ToLower(descr)
		for _, v := range vendorFragments {
			if strings.Contains(lower, strings.ToLower(v.fragment)) {
				name := v.name
				return &name
			}
		}
	}
	return nil
}

// extractModel takes the first line (split on CR, LF or ';') of the device
// description, falling back to the system description.
func extractModel(deviceDescr, sysDescr string) *string {
	src := deviceDescr
	if strings.TrimSpace(src) == "" {
		src = sysDescr
	}
	if i := strings.IndexAny(src, "\r\n;"); i >= 0 {
		src = src[:i]
	}
	model := truncateRunes(strings.TrimSpace(src), maxModelLength)
	if model == "" {
		return nil
	}
	return &model
}

// extractFirmware returns the run of digits and dots that follows the first
// firmware prefix found in sysDescr.
func extractFirmware(sysDescr string) *string {
	for _, prefix := range firmwarePrefixes {
		i := strings.Index(sysDescr, prefix)
		if i < 0 {
			continue
		}
		rest := sysDescr[i+len(prefix):]
		end := 0
		for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
			end++
		}
		if end > 0 {
			fw := rest[:end]
			return &fw
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
