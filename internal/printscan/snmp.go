package printscan

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// ValueKind tags the SNMP value types the printer probe understands.
type ValueKind int

const (
	KindInteger ValueKind = iota + 1
	KindCounter
	KindOctetString
	KindObjectIdentifier
)

// Value is a present SNMP varbind value. Exception types (noSuchObject,
// noSuchInstance, endOfMibView) and transport failures never produce a
// Value; they are reported as absent by SNMPClient.Get.
type Value struct {
	Kind ValueKind
	Int  int64
	Str  string
}

// IntValue builds an INTEGER value.
func IntValue(n int64) Value { return Value{Kind: KindInteger, Int: n} }

// CounterValue builds a Counter32/Gauge32/Counter64 value.
func CounterValue(n int64) Value { return Value{Kind: KindCounter, Int: n} }

// StringValue builds an OCTET STRING value.
func StringValue(s string) Value { return Value{Kind: KindOctetString, Str: s} }

// OIDValue builds an OBJECT IDENTIFIER value.
func OIDValue(oid string) Value { return Value{Kind: KindObjectIdentifier, Str: oid} }

// Int64 returns the numeric value for integer and counter kinds.
func (v Value) Int64() (int64, bool) {
	switch v.Kind {
	case KindInteger, KindCounter:
		return v.Int, true
	default:
		return 0, false
	}
}

// String renders the value as text. Octet strings are returned verbatim
// with trailing NULs removed.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger, KindCounter:
		return strconv.FormatInt(v.Int, 10)
	case KindOctetString:
		return strings.TrimRight(v.Str, "\x00")
	default:
		return v.Str
	}
}

// SNMPClient performs a single SNMP v2c GET. The boolean is false when the
// value is absent for any reason: timeout, transport error, malformed PDU
// or an SNMP exception type.
type SNMPClient interface {
	Get(ctx context.Context, target, oid string) (Value, bool)
}

// GoSNMPClient implements SNMPClient with gosnmp. Each Get opens its own
// UDP socket to target:161 with community "public".
type GoSNMPClient struct {
	timeout time.Duration
}

// NewGoSNMPClient creates a client whose GETs give up after timeout unless
// the context deadline is sooner.
func NewGoSNMPClient(timeout time.Duration) *GoSNMPClient {
	if timeout <= 0 {
		timeout = DefaultConfig().OIDTimeout
	}
	return &GoSNMPClient{timeout: timeout}
}

func (c *GoSNMPClient) Get(ctx context.Context, target, oid string) (v Value, ok bool) {
	// gosnmp can panic on truncated packets from misbehaving agents.
	defer func() {
		if r := recover(); r != nil {
			v, ok = Value{}, false
		}
	}()

	if ctx.Err() != nil {
		return Value{}, false
	}

	timeout := c.timeout
	if deadline, has := ctx.Deadline(); has {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		return Value{}, false
	}

	g := &gosnmp.GoSNMP{
		Target:    target,
		Port:      Port,
		Community: Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := g.Connect(); err != nil {
		return Value{}, false
	}
	defer func() { _ = g.Conn.Close() }()

	result, err := g.Get([]string{oid})
	if err != nil || result == nil || len(result.Variables) == 0 {
		return Value{}, false
	}
	return valueFromPDU(result.Variables[0])
}

// valueFromPDU converts a gosnmp varbind into a Value.
func valueFromPDU(pdu gosnmp.SnmpPDU) (Value, bool) {
	switch pdu.Type {
	case gosnmp.Integer:
		n, ok := pdu.Value.(int)
		if !ok {
			return Value{}, false
		}
		return IntValue(int64(n)), true
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Counter64, gosnmp.Uinteger32:
		n := gosnmp.ToBigInt(pdu.Value)
		if !n.IsInt64() {
			return Value{}, false
		}
		return CounterValue(n.Int64()), true
	case gosnmp.OctetString:
		switch s := pdu.Value.(type) {
		case []byte:
			return StringValue(string(s)), true
		case string:
			return StringValue(s), true
		}
		return Value{}, false
	case gosnmp.ObjectIdentifier:
		s, ok := pdu.Value.(string)
		if !ok {
			return Value{}, false
		}
		return OIDValue(s), true
	case gosnmp.IPAddress:
		s, ok := pdu.Value.(string)
		if !ok {
			return Value{}, false
		}
		return StringValue(s), true
	default:
		// NoSuchObject, NoSuchInstance, EndOfMibView, Null and anything
		// the probe does not interpret.
		return Value{}, false
	}
}
