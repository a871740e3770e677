package models

import "time"

// PrinterStatus is the coarse operational state reported for a printer.
type PrinterStatus string

const (
	PrinterStatusIdle      PrinterStatus = "Idle"
	PrinterStatusPrinting  PrinterStatus = "Printing"
	PrinterStatusWarmingUp PrinterStatus = "Warming Up"
	PrinterStatusError     PrinterStatus = "Error"
	PrinterStatusOnline    PrinterStatus = "Online"
)

// Valid reports whether s is one of the known printer states.
func (s PrinterStatus) Valid() bool {
	switch s {
	case PrinterStatusIdle, PrinterStatusPrinting, PrinterStatusWarmingUp,
		PrinterStatusError, PrinterStatusOnline:
		return true
	default:
		return false
	}
}

// PrinterRecord is one network printer found by an SNMP discovery scan.
// Optional attributes are pointers: nil means the device did not report
// the value, which is distinct from a zero value.
type PrinterRecord struct {
	IPAddress       string        `json:"ip_address" example:"192.168.1.10"`
	MACAddress      *string       `json:"mac_address" example:"00:1A:2B:3C:4D:5E"`
	Manufacturer    *string       `json:"manufacturer" example:"HP"`
	Model           *string       `json:"model" example:"HP LaserJet 4050 Series"`
	SerialNumber    *string       `json:"serial_number" example:"CNBJ123456"`
	FirmwareVersion *string       `json:"firmware_version" example:"2.73.1"`
	PageCount       *int64        `json:"page_count" example:"1200"`
	TonerBlack      *int          `json:"toner_black" example:"30"`
	TonerCyan       *int          `json:"toner_cyan" example:"60"`
	TonerMagenta    *int          `json:"toner_magenta"`
	TonerYellow     *int          `json:"toner_yellow"`
	Status          PrinterStatus `json:"status" example:"Idle"`
}

// Printer is a persisted printer inventory entry. It carries the most
// recent PrinterRecord observed for the device plus tracking metadata.
type Printer struct {
	ID string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PrinterRecord
	FirstSeen  time.Time `json:"first_seen" example:"2026-01-10T08:00:00Z"`
	LastSeen   time.Time `json:"last_seen" example:"2026-01-15T10:30:00Z"`
	LastScanID string    `json:"last_scan_id,omitempty"`
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
