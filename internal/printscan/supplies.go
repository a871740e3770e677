package printscan

import (
	"context"
	"math"
	"strings"

	"github.com/HerbHall/assetscout/pkg/models"
)

// supplyLevelSomeRemaining is the Printer-MIB sentinel for "some supply
// remains, amount unknown".
const supplyLevelSomeRemaining = -3

type supplyColor int

const (
	colorBlack supplyColor = iota
	colorCyan
	colorMagenta
	colorYellow
)

// supplyColorRules classify a lowercased supply description. First match
// wins.
var supplyColorRules = []struct {
	keyword string
	color   supplyColor
}{
	{"black", colorBlack},
	{"bk", colorBlack},
	{"cyan", colorCyan},
	{"c ", colorCyan},
	{"magenta", colorMagenta},
	{"m ", colorMagenta},
	{"yellow", colorYellow},
	{"y ", colorYellow},
}

// supplyLevels maps a toner colour to its percentage. A key with a nil value
// means the supply exists but its level is unknown.
type supplyLevels map[supplyColor]*int

// set records the first reading for a colour and ignores later slots.
func (l supplyLevels) set(c supplyColor, pct *int) {
	if _, ok := l[c]; ok {
		return
	}
	l[c] = pct
}

// apply copies the levels into the toner fields of rec.
func (l supplyLevels) apply(rec *models.PrinterRecord) {
	rec.TonerBlack = l[colorBlack]
	rec.TonerCyan = l[colorCyan]
	rec.TonerMagenta = l[colorMagenta]
	rec.TonerYellow = l[colorYellow]
}

func classifySupply(descr string) (supplyColor, bool) {
	lower := strings.ToLower(descr)
	for _, r := range supplyColorRules {
		if strings.Contains(lower, r.keyword) {
			return r.color, true
		}
	}
	return 0, false
}

// supplyPercent converts a marker-supply level and max capacity to a
// percentage in [0,100]. nil means unknown.
func supplyPercent(maxCap Value, maxOK bool, level Value, levelOK bool) *int {
	if !levelOK {
		return nil
	}
	lvl, ok := level.Int64()
	if !ok || lvl == supplyLevelSomeRemaining {
		return nil
	}
	if !maxOK {
		return nil
	}
	m, ok := maxCap.Int64()
	if !ok || m <= 0 {
		return nil
	}

	pct := int(math.Round(float64(lvl) * 100 / float64(m)))
	pct = max(0, min(100, pct))
	return &pct
}

// readSupplies walks marker-supply slots 1..8 and stops at the first slot
// without a description.
func (s *Scanner) readSupplies(ctx context.Context, target string) supplyLevels {
	levels := make(supplyLevels)
	for slot := 1; slot <= maxSupplySlots; slot++ {
		descr, ok := s.get(ctx, target, supplyDescrOID(slot))
		if !ok {
			break
		}
		color, ok := classifySupply(descr.String())
		if !ok {
			continue
		}
		maxCap, maxOK := s.get(ctx, target, supplyMaxOID(slot))
		level, levelOK := s.get(ctx, target, supplyLevelOID(slot))
		levels.set(color, supplyPercent(maxCap, maxOK, level, levelOK))
	}
	return levels
}
