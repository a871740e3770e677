package printscan

import "time"

// SNMP transport constants. The printer probe has no configuration surface
// for these.
const (
	Community = "public"
	Port      = 161
)

// Config holds tuning for the printer scanner.
type Config struct {
	BatchSize   int           `mapstructure:"batch_size"`
	OIDTimeout  time.Duration `mapstructure:"oid_timeout"`
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
	// MaxHosts can lower the per-subnet host cap but never raise it above
	// MaxHostsPerSubnet.
	MaxHosts int `mapstructure:"max_hosts"`
}

// DefaultConfig returns sensible defaults for printer scanning.
func DefaultConfig() Config {
	return Config{
		BatchSize:   20,
		OIDTimeout:  3 * time.Second,
		PingTimeout: 3 * time.Second,
		ScanTimeout: 5 * time.Minute,
		MaxHosts:    MaxHostsPerSubnet,
	}
}

// withDefaults fills zero or negative fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.OIDTimeout <= 0 {
		c.OIDTimeout = d.OIDTimeout
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = d.ScanTimeout
	}
	if c.MaxHosts <= 0 || c.MaxHosts > MaxHostsPerSubnet {
		c.MaxHosts = d.MaxHosts
	}
	return c
}
