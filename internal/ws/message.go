package ws

import (
	"time"

	"github.com/HerbHall/assetscout/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageScanStarted      MessageType = "scan.started"
	MessageScanPrinterFound MessageType = "scan.printer_found"
	MessageScanCompleted    MessageType = "scan.completed"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	ScanID    string      `json:"scan_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// ScanStartedData is the payload for scan.started messages.
type ScanStartedData struct {
	Trigger   string `json:"trigger"`
	StartedAt string `json:"started_at"`
}

// PrinterFoundData is the payload for scan.printer_found messages. New is
// false when the printer was already in the inventory.
type PrinterFoundData struct {
	Printer *models.Printer `json:"printer"`
	New     bool            `json:"new"`
}

// ScanCompletedData is the payload for scan.completed messages.
type ScanCompletedData struct {
	Status           models.ScanStatus `json:"status"`
	Printers         int               `json:"printers"`
	HostsProbed      int               `json:"hosts_probed"`
	DeadlineExceeded bool              `json:"deadline_exceeded"`
	EndedAt          string            `json:"ended_at"`
}
