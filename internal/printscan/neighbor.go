package printscan

import (
	"bufio"
	"context"
	"net/netip"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// MACResolver maps an IP address to a hardware address. An empty string
// means the address could not be resolved.
type MACResolver interface {
	ResolveMAC(ctx context.Context, ip netip.Addr) string
}

// NeighborTable returns the OS neighbor (ARP) cache as IP -> MAC.
type NeighborTable func(ctx context.Context) map[string]string

// NeighborResolver sends one ICMP echo to the target so the OS populates
// its neighbor cache, then looks the address up in that cache.
type NeighborResolver struct {
	pingTimeout time.Duration
	table       NeighborTable
	logger      *zap.Logger
}

// NewNeighborResolver creates a resolver that reads the platform's neighbor
// cache.
func NewNeighborResolver(pingTimeout time.Duration, logger *zap.Logger) *NeighborResolver {
	r := &NeighborResolver{pingTimeout: pingTimeout, logger: logger}
	r.table = r.readSystemTable
	return r
}

func (r *NeighborResolver) ResolveMAC(ctx context.Context, ip netip.Addr) string {
	if ctx.Err() != nil {
		return ""
	}
	r.ping(ctx, ip.String())
	if ctx.Err() != nil {
		return ""
	}
	return r.table(ctx)[ip.String()]
}

// ping sends a single echo request; the reply itself is irrelevant.
func (r *NeighborResolver) ping(ctx context.Context, ip string) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		r.logger.Debug("failed to create pinger", zap.String("ip", ip), zap.Error(err))
		return
	}
	pinger.Count = 1
	pinger.Timeout = r.pingTimeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	if err := pinger.RunWithContext(ctx); err != nil {
		r.logger.Debug("ping failed", zap.String("ip", ip), zap.Error(err))
	}
}

func (r *NeighborResolver) readSystemTable(ctx context.Context) map[string]string {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/net/arp")
		if err != nil {
			r.logger.Debug("failed to read /proc/net/arp", zap.Error(err))
			return map[string]string{}
		}
		return ParseNeighborTable(string(data), "linux")
	case "windows", "darwin", "freebsd", "openbsd", "netbsd":
		out, err := exec.CommandContext(ctx, "arp", "-a").Output()
		if err != nil {
			r.logger.Debug("failed to run arp -a", zap.Error(err))
			return map[string]string{}
		}
		platform := runtime.GOOS
		if platform != "windows" {
			platform = "darwin"
		}
		return ParseNeighborTable(string(out), platform)
	default:
		r.logger.Debug("neighbor cache not supported on this platform",
			zap.String("os", runtime.GOOS))
		return map[string]string{}
	}
}

// ParseNeighborTable parses platform-specific neighbor cache output into
// IP -> upper-case colon-separated MAC. Incomplete and broadcast entries
// are skipped.
func ParseNeighborTable(output, platform string) map[string]string {
	switch platform {
	case "linux":
		return parseProcNetARP(output)
	case "windows":
		return parseWindowsARP(output)
	case "darwin":
		return parseBSDARP(output)
	default:
		return map[string]string{}
	}
}

// parseProcNetARP reads /proc/net/arp:
// IP address HW type Flags HW address Mask Device
func parseProcNetARP(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if mac := normalizeMAC(fields[3]); mac != "" {
			table[fields[0]] = mac
		}
	}
	return table
}

// parseWindowsARP reads `arp -a` on Windows:
// 192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
func parseWindowsARP(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		if _, err := netip.ParseAddr(fields[0]); err != nil {
			continue
		}
		if mac := normalizeMAC(fields[1]); mac != "" {
			table[fields[0]] = mac
		}
	}
	return table
}

// parseBSDARP reads `arp -a` on macOS and the BSDs:
// host (192.168.1.1) at 0:1b:2c:3d:4e:5f on en0 ifscope [ethernet]
func parseBSDARP(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		open := strings.Index(line, "(")
		closeIdx := strings.Index(line, ")")
		if open < 0 || closeIdx <= open {
			continue
		}
		ip := line[open+1 : closeIdx]

		at := strings.Index(line[closeIdx:], " at ")
		if at < 0 {
			continue
		}
		fields := strings.Fields(line[closeIdx+at+4:])
		if len(fields) == 0 {
			continue
		}
		if mac := normalizeMAC(fields[0]); mac != "" {
			table[ip] = mac
		}
	}
	return table
}

// normalizeMAC converts aa-bb-.. or 0:1b:.. forms to AA:BB:... Returns ""
// for incomplete, all-zero and broadcast addresses.
func normalizeMAC(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != 6 {
		return ""
	}
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 || strings.Trim(p, "0123456789abcdefABCDEF") != "" {
			return ""
		}
		if len(p) == 1 {
			p = "0" + p
		}
		parts[i] = strings.ToUpper(p)
	}
	mac := strings.Join(parts, ":")
	if mac == "00:00:00:00:00:00" || mac == "FF:FF:FF:FF:FF:FF" {
		return ""
	}
	return mac
}
