package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/HerbHall/assetscout/internal/problem"
	"github.com/HerbHall/assetscout/pkg/models"
	"go.uber.org/zap"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// PrinterList is the response for GET /printers.
type PrinterList struct {
	Printers []models.Printer `json:"printers"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// handleStartScan starts a background printer scan and returns its record.
func (m *Module) handleStartScan(w http.ResponseWriter, r *http.Request) {
	scan, err := m.StartScan(TriggerManual)
	if errors.Is(err, ErrScanInProgress) {
		problem.Write(w, r, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		m.logger.Error("failed to start scan", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, "failed to start scan")
		return
	}
	writeJSON(w, http.StatusAccepted, scan)
}

func (m *Module) handleListScans(w http.ResponseWriter, r *http.Request) {
	opts := ListOptions{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
		Status: r.URL.Query().Get("status"),
	}
	scans, err := m.store.ListScans(r.Context(), opts)
	if err != nil {
		m.logger.Error("failed to list scans", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, "failed to list scans")
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (m *Module) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := m.store.GetScan(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		problem.Write(w, r, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		m.logger.Error("failed to get scan", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, "failed to load scan")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// handleListPrinters returns a page of the printer inventory, optionally
// filtered by ?status=.
func (m *Module) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "unknown printer status")
		return
	}
	opts := ListOptions{
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
		Status: status,
	}
	printers, total, err := m.store.ListPrinters(r.Context(), opts)
	if err != nil {
		m.logger.Error("failed to list printers", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, "failed to list printers")
		return
	}
	opts = opts.normalized()
	writeJSON(w, http.StatusOK, PrinterList{
		Printers: printers,
		Total:    total,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

func (m *Module) handleGetPrinter(w http.ResponseWriter, r *http.Request) {
	p, err := m.store.GetPrinter(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		problem.Write(w, r, http.StatusNotFound, "printer not found")
		return
	}
	if err != nil {
		m.logger.Error("failed to get printer", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, "failed to load printer")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
