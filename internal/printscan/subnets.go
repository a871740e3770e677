package printscan

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Subnet is one locally attached IPv4 subnet: the scanner's own address on
// it and the subnet mask.
type Subnet struct {
	Address   netip.Addr
	Mask      net.IPMask
	Interface string
}

// Prefix returns the network prefix, e.g. 192.168.1.0/24.
func (s Subnet) Prefix() netip.Prefix {
	ones, _ := s.Mask.Size()
	return netip.PrefixFrom(s.Address, ones).Masked()
}

func (s Subnet) String() string {
	return s.Prefix().String()
}

// Adapter is a network interface as seen by the subnet enumerator.
type Adapter struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// AdapterSource lists the host's network adapters.
type AdapterSource interface {
	Adapters() ([]Adapter, error)
}

// SystemAdapters reads the live adapter table via net.Interfaces.
type SystemAdapters struct{}

func (SystemAdapters) Adapters() ([]Adapter, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	adapters := make([]Adapter, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		adapters = append(adapters, Adapter{
			Name:  iface.Name,
			Flags: iface.Flags,
			Addrs: addrs,
		})
	}
	return adapters, nil
}

// tunnelPrefixes are interface name prefixes used by VPN and tunnel drivers.
var tunnelPrefixes = []string{
	"tun", "utun", "wg", "ppp", "gre", "gretap", "ipip", "sit",
	"ip6tnl", "teredo", "isatap", "zt", "tailscale",
}

// isTunnel reports whether an adapter is a point-to-point or tunnel link.
func isTunnel(a Adapter) bool {
	if a.Flags&net.FlagPointToPoint != 0 {
		return true
	}
	name := strings.ToLower(a.Name)
	for _, p := range tunnelPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// isOperational reports whether an adapter is administratively up and has
// a running link.
func isOperational(a Adapter) bool {
	return a.Flags&net.FlagUp != 0 && a.Flags&net.FlagRunning != 0
}

// EnumerateSubnets returns the IPv4 subnets attached to operational,
// non-loopback, non-tunnel adapters. A (network, mask) pair reachable
// through several adapters is reported once. An empty result with a nil
// error is a valid outcome; the error is only set when the adapter table
// cannot be read.
func EnumerateSubnets(src AdapterSource) ([]Subnet, error) {
	adapters, err := src.Adapters()
	if err != nil {
		return nil, err
	}

	var subnets []Subnet
	seen := make(map[string]struct{})
	for _, a := range adapters {
		if !isOperational(a) || a.Flags&net.FlagLoopback != 0 || isTunnel(a) {
			continue
		}
		for _, addr := range a.Addrs {
			sn, ok := subnetFromAddr(addr)
			if !ok {
				continue
			}
			sn.Interface = a.Name
			key := sn.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			subnets = append(subnets, sn)
		}
	}
	return subnets, nil
}

// subnetFromAddr extracts an IPv4 unicast address and mask from an adapter
// address. Addresses without a mask (*net.IPAddr) are skipped.
func subnetFromAddr(addr net.Addr) (Subnet, bool) {
	ipNet, ok := addr.(*net.IPNet)
	if !ok || ipNet.Mask == nil {
		return Subnet{}, false
	}

	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return Subnet{}, false
	}
	ip, ok := netip.AddrFromSlice(ip4)
	if !ok || ip.IsLoopback() || ip.IsMulticast() || ip.IsUnspecified() {
		return Subnet{}, false
	}

	mask := ipNet.Mask
	ones, bits := mask.Size()
	switch {
	case bits == 32:
	case bits == 128 && ones >= 96:
		// IPv4 address carried with a 16-byte mask.
		mask = net.CIDRMask(ones-96, 32)
	default:
		return Subnet{}, false
	}

	return Subnet{Address: ip, Mask: mask}, true
}
