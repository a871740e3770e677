package printscan

import (
	"net"
	"net/netip"
	"testing"
)

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("ParseAddr(%q): %v", s, err)
	}
	return a
}

func TestExpandHosts(t *testing.T) {
	tests := []struct {
		name          string
		addr          string
		ones          int
		wantLen       int
		wantFirst     string
		wantLast      string
		wantTruncated bool
	}{
		{"slash 24", "192.168.1.50", 24, 253, "192.168.1.1", "192.168.1.254", false},
		{"slash 24 own first host", "192.168.1.1", 24, 253, "192.168.1.2", "192.168.1.254", false},
		{"slash 30", "10.0.0.1", 30, 1, "10.0.0.2", "10.0.0.2", false},
		{"slash 29", "192.168.50.9", 29, 5, "192.168.50.10", "192.168.50.14", false},
		{"slash 23 truncated", "172.16.1.20", 23, 254, "172.16.0.1", "172.16.0.254", true},
		{"slash 16 truncated own outside window", "10.20.30.40", 16, 254, "10.20.0.1", "10.20.0.254", true},
		{"slash 22 own inside window", "10.0.0.7", 22, 253, "10.0.0.1", "10.0.0.254", true},
		{"slash 31", "10.0.0.0", 31, 0, "", "", false},
		{"slash 32", "10.0.0.9", 32, 0, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn := Subnet{Address: mustAddr(t, tt.addr), Mask: net.CIDRMask(tt.ones, 32)}
			hosts, truncated := ExpandHosts(sn)

			if len(hosts) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(hosts), tt.wantLen)
			}
			if truncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}
			if tt.wantLen == 0 {
				return
			}
			if got := hosts[0].String(); got != tt.wantFirst {
				t.Errorf("first = %s, want %s", got, tt.wantFirst)
			}
			if got := hosts[len(hosts)-1].String(); got != tt.wantLast {
				t.Errorf("last = %s, want %s", got, tt.wantLast)
			}
		})
	}
}

func TestExpandHosts_Invariants(t *testing.T) {
	for ones := 8; ones <= 30; ones++ {
		self := mustAddr(t, "10.77.3.129")
		sn := Subnet{Address: self, Mask: net.CIDRMask(ones, 32)}
		prefix := sn.Prefix()
		network := prefix.Addr()
		broadcast := uint32ToAddr(addrToUint32(network) | ^uint32(0)>>ones)

		hosts, _ := ExpandHosts(sn)
		if len(hosts) > MaxHostsPerSubnet {
			t.Errorf("/%d: %d hosts exceeds cap", ones, len(hosts))
		}
		for i, h := range hosts {
			if h == network || h == broadcast || h == self {
				t.Errorf("/%d: forbidden address %s in range", ones, h)
			}
			if !prefix.Contains(h) {
				t.Errorf("/%d: %s outside %s", ones, h, prefix)
			}
			if i > 0 && !hosts[i-1].Less(h) {
				t.Errorf("/%d: hosts not ascending at %d", ones, i)
			}
		}
	}
}

func TestExpandHosts_LimitOverride(t *testing.T) {
	sn := Subnet{Address: mustAddr(t, "192.168.1.200"), Mask: net.CIDRMask(24, 32)}
	hosts, truncated := expandHosts(sn, 10)
	if len(hosts) != 10 || !truncated {
		t.Fatalf("got %d hosts truncated=%v, want 10 true", len(hosts), truncated)
	}
}

func TestExpandHosts_RejectsIPv6(t *testing.T) {
	sn := Subnet{Address: mustAddr(t, "fe80::1"), Mask: net.CIDRMask(64, 128)}
	if hosts, _ := ExpandHosts(sn); len(hosts) != 0 {
		t.Errorf("expected no hosts for IPv6, got %d", len(hosts))
	}
}
