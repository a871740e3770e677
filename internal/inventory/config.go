package inventory

import "time"

// Config holds the inventory module's scheduling settings.
type Config struct {
	// ScanInterval is the period between scheduled printer scans. Zero
	// disables the scheduler.
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	ScanOnStart  bool          `mapstructure:"scan_on_start"`
	// QuietStart and QuietEnd ("HH:MM", local time) bound a window in which
	// scheduled scans are skipped. Overnight windows are allowed.
	QuietStart string `mapstructure:"quiet_start"`
	QuietEnd   string `mapstructure:"quiet_end"`
}

// DefaultConfig returns the default inventory settings.
func DefaultConfig() Config {
	return Config{
		ScanInterval: time.Hour,
		ScanOnStart:  true,
	}
}
