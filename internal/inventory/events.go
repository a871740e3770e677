package inventory

import "github.com/HerbHall/assetscout/pkg/models"

// Event topics published by the inventory module.
const (
	TopicScanStarted       = "inventory.scan.started"
	TopicScanCompleted     = "inventory.scan.completed"
	TopicPrinterDiscovered = "inventory.printer.discovered"
	TopicPrinterUpdated    = "inventory.printer.updated"
)

// ScanEvent is the payload for scan lifecycle topics.
type ScanEvent struct {
	Scan *models.ScanRun `json:"scan"`
}

// PrinterEvent is the payload for printer topics.
type PrinterEvent struct {
	ScanID  string          `json:"scan_id"`
	Printer *models.Printer `json:"printer"`
}
