package printscan

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"
)

// agent is the OID table of a simulated SNMP agent.
type agent map[string]Value

// fakeSNMP simulates SNMP agents keyed by target IP. Targets without an
// agent never answer. Every call is recorded.
type fakeSNMP struct {
	mu        sync.Mutex
	agents    map[string]agent
	blocking  map[string]bool
	panicking map[string]bool
	delay     time.Duration

	calls       map[string][]string
	inFlight    int
	maxInFlight int
	completed   int
	// startedAfter records, per target, how many calls had completed when
	// the target's first call started.
	startedAfter map[string]int
}

func newFakeSNMP() *fakeSNMP {
	return &fakeSNMP{
		agents:       make(map[string]agent),
		blocking:     make(map[string]bool),
		panicking:    make(map[string]bool),
		calls:        make(map[string][]string),
		startedAfter: make(map[string]int),
	}
}

func (f *fakeSNMP) Get(ctx context.Context, target, oid string) (Value, bool) {
	f.mu.Lock()
	if _, seen := f.startedAfter[target]; !seen {
		f.startedAfter[target] = f.completed
	}
	f.calls[target] = append(f.calls[target], oid)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	a, hasAgent := f.agents[target]
	block := f.blocking[target]
	boom := f.panicking[target]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.completed++
		f.mu.Unlock()
	}()

	if boom {
		panic("malformed response from " + target)
	}
	if block {
		<-ctx.Done()
		return Value{}, false
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Value{}, false
		}
	}
	if !hasAgent {
		return Value{}, false
	}
	v, ok := a[oid]
	return v, ok
}

func (f *fakeSNMP) callsFor(target string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[target]...)
}

func (f *fakeSNMP) calledOID(target, oid string) bool {
	for _, c := range f.callsFor(target) {
		if c == oid {
			return true
		}
	}
	return false
}

// staticAdapters is a fixed adapter table.
type staticAdapters struct {
	adapters []Adapter
	err      error
}

func (s staticAdapters) Adapters() ([]Adapter, error) {
	return s.adapters, s.err
}

// fakeMAC resolves from a fixed table.
type fakeMAC map[string]string

func (f fakeMAC) ResolveMAC(_ context.Context, ip netip.Addr) string {
	return f[ip.String()]
}

const upRunning = net.FlagUp | net.FlagRunning | net.FlagBroadcast

// ifaceAddr parses "192.168.1.9/24" keeping the host part of the address.
func ifaceAddr(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		t.Fatalf("ParseCIDR(%q): %v", cidr, err)
	}
	return &net.IPNet{IP: ip.To4(), Mask: ipNet.Mask}
}

func adapter(t *testing.T, name, cidr string) Adapter {
	t.Helper()
	return Adapter{Name: name, Flags: upRunning, Addrs: []net.Addr{ifaceAddr(t, cidr)}}
}

// hpPrinter is a complete HP LaserJet agent with black and cyan toner.
func hpPrinter() agent {
	return agent{
		OIDSysDescr:       StringValue("Hewlett-Packard LaserJet 4050 FW:2.73.1 ready"),
		OIDPageCount:      CounterValue(1200),
		OIDSerialNumber:   StringValue("SN1"),
		OIDDeviceType:     OIDValue("." + OIDHRPrinter),
		OIDDeviceDescr:    StringValue("HP LaserJet 4050 Series;SN1"),
		supplyDescrOID(1): StringValue("Black Cartridge HP C4127X"),
		supplyMaxOID(1):   IntValue(100),
		supplyLevelOID(1): IntValue(30),
		supplyDescrOID(2): StringValue("Cyan Toner"),
		supplyMaxOID(2):   IntValue(200),
		supplyLevelOID(2): IntValue(120),
		OIDStatus:         IntValue(3),
		OIDErrorState:     StringValue("\x00"),
	}
}
