package models

// ScanStatus is the lifecycle state of a printer discovery run.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusPartial   ScanStatus = "partial"
	ScanStatusCancelled ScanStatus = "cancelled"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanRun records one printer discovery run as persisted by the inventory.
type ScanRun struct {
	ID               string     `json:"id" example:"a1b2c3d4-e5f6-7890-abcd-ef1234567890"`
	Trigger          string     `json:"trigger" example:"manual"`
	Status           ScanStatus `json:"status" example:"completed"`
	StartedAt        string     `json:"started_at" example:"2026-01-15T10:30:00Z"`
	EndedAt          string     `json:"ended_at,omitempty" example:"2026-01-15T10:32:15Z"`
	Subnets          []string   `json:"subnets"`
	HostsProbed      int        `json:"hosts_probed" example:"254"`
	Printers         int        `json:"printers" example:"3"`
	Truncated        bool       `json:"truncated"`
	DeadlineExceeded bool       `json:"deadline_exceeded"`
	Error            string     `json:"error,omitempty"`
}
