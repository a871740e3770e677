package printscan

import (
	"encoding/binary"
	"net/netip"
)

// MaxHostsPerSubnet caps the candidate list of a single subnet. Larger
// networks are truncated to their first MaxHostsPerSubnet hosts.
const MaxHostsPerSubnet = 254

// ExpandHosts returns the usable host addresses of s in ascending order:
// every address strictly between the network and broadcast addresses,
// truncated to MaxHostsPerSubnet, without the scanner's own address.
// truncated reports whether the cap cut the range short.
func ExpandHosts(s Subnet) (hosts []netip.Addr, truncated bool) {
	return expandHosts(s, MaxHostsPerSubnet)
}

func expandHosts(s Subnet, limit int) ([]netip.Addr, bool) {
	if !s.Address.Is4() || len(s.Mask) != 4 {
		return nil, false
	}

	self := addrToUint32(s.Address)
	mask := binary.BigEndian.Uint32(s.Mask)
	network := self & mask
	broadcast := self | ^mask
	if broadcast-network < 2 {
		// /31 and /32 have no host range.
		return nil, false
	}

	count := uint64(broadcast - network - 1)
	truncated := false
	if limit > 0 && count > uint64(limit) {
		count = uint64(limit)
		truncated = true
	}

	hosts := make([]netip.Addr, 0, count)
	for i := uint64(1); i <= count; i++ {
		n := network + uint32(i)
		if n == self {
			continue
		}
		hosts = append(hosts, uint32ToAddr(n))
	}
	return hosts, truncated
}

func addrToUint32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToAddr(n uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return netip.AddrFrom4(b)
}
