// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/HerbHall/assetscout/internal/store"
	"github.com/HerbHall/assetscout/pkg/models"
)

// NewPrinterRecord returns an idle printer at 192.168.1.10 with no
// optional attributes. Override fields with the With* options.
func NewPrinterRecord(opts ...func(*models.PrinterRecord)) models.PrinterRecord {
	rec := models.PrinterRecord{
		IPAddress: "192.168.1.10",
		Status:    models.PrinterStatusIdle,
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// WithIP sets the printer address.
func WithIP(ip string) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.IPAddress = ip }
}

// WithMAC sets the printer hardware address.
func WithMAC(mac string) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.MACAddress = models.String(mac) }
}

// WithSerial sets the printer serial number.
func WithSerial(serial string) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.SerialNumber = models.String(serial) }
}

// WithIdentity sets manufacturer and model.
func WithIdentity(manufacturer, model string) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) {
		r.Manufacturer = models.String(manufacturer)
		r.Model = models.String(model)
	}
}

// WithPageCount sets the lifetime page counter.
func WithPageCount(n int64) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.PageCount = models.Int64(n) }
}

// WithTonerBlack sets the black toner level.
func WithTonerBlack(pct int) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.TonerBlack = models.Int(pct) }
}

// WithStatus sets the printer status.
func WithStatus(s models.PrinterStatus) func(*models.PrinterRecord) {
	return func(r *models.PrinterRecord) { r.Status = s }
}

// NewStore opens an in-memory database that is closed when t ends.
func NewStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
