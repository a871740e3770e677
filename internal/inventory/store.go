package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/assetscout/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested scan or printer does not exist.
var ErrNotFound = errors.New("not found")

// Store provides database operations for the inventory module.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListOptions controls pagination and filtering for list queries.
type ListOptions struct {
	Limit  int
	Offset int
	// Status filters printers by status or scans by scan status.
	Status string
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 || o.Limit > 500 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// CreateScan inserts a new scan record in the running state.
func (s *Store) CreateScan(ctx context.Context, scan *models.ScanRun) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.Status == "" {
		scan.Status = models.ScanStatusRunning
	}
	if scan.StartedAt == "" {
		scan.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if scan.Trigger == "" {
		scan.Trigger = "manual"
	}
	subnets, err := encodeSubnets(scan.Subnets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory_scans (id, trigger_source, status, started_at, subnets)
		VALUES (?, ?, ?, ?, ?)`,
		scan.ID, scan.Trigger, string(scan.Status), scan.StartedAt, subnets,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// CompleteScan records the final outcome of a scan.
func (s *Store) CompleteScan(ctx context.Context, scan *models.ScanRun) error {
	if scan.EndedAt == "" {
		scan.EndedAt = time.Now().UTC().Format(time.RFC3339)
	}
	subnets, err := encodeSubnets(scan.Subnets)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_scans SET
			status = ?, ended_at = ?, subnets = ?, hosts_probed = ?, printers = ?,
			truncated = ?, deadline_exceeded = ?, error_msg = ?
		WHERE id = ?`,
		string(scan.Status), scan.EndedAt, subnets, scan.HostsProbed, scan.Printers,
		scan.Truncated, scan.DeadlineExceeded, scan.Error,
		scan.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	return expectRow(res)
}

// FailScan marks a scan as failed with the given error.
func (s *Store) FailScan(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_scans SET status = ?, ended_at = ?, error_msg = ?
		WHERE id = ?`,
		string(models.ScanStatusFailed), time.Now().UTC().Format(time.RFC3339), msg, id,
	)
	if err != nil {
		return fmt.Errorf("fail scan: %w", err)
	}
	return expectRow(res)
}

// GetScan returns a scan by ID.
func (s *Store) GetScan(ctx context.Context, id string) (*models.ScanRun, error) {
	scan, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT `+scanColumns+` FROM inventory_scans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return scan, nil
}

// ListScans returns scans, newest first.
func (s *Store) ListScans(ctx context.Context, opts ListOptions) ([]models.ScanRun, error) {
	opts = opts.normalized()
	query := `SELECT ` + scanColumns + ` FROM inventory_scans`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := make([]models.ScanRun, 0)
	for rows.Next() {
		scan, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, *scan)
	}
	return scans, rows.Err()
}

// UpsertPrinter stores rec as observed by scan scanID. An existing entry is
// matched by serial number, then MAC address, then IP address. An IP match
// is rejected when both sides report different serial numbers, since the
// address has moved to another device.
func (s *Store) UpsertPrinter(ctx context.Context, rec *models.PrinterRecord, scanID string) (*models.Printer, bool, error) {
	now := time.Now().UTC()

	existing, err := s.matchPrinter(ctx, rec)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE inventory_printers SET
				ip_address = ?,
				mac_address = COALESCE(?, mac_address),
				manufacturer = COALESCE(?, manufacturer),
				model = COALESCE(?, model),
				serial_number = COALESCE(?, serial_number),
				firmware_version = COALESCE(?, firmware_version),
				page_count = ?, toner_black = ?, toner_cyan = ?, toner_magenta = ?, toner_yellow = ?,
				status = ?, last_seen = ?, last_scan_id = ?
			WHERE id = ?`,
			rec.IPAddress, rec.MACAddress, rec.Manufacturer, rec.Model, rec.SerialNumber, rec.FirmwareVersion,
			rec.PageCount, rec.TonerBlack, rec.TonerCyan, rec.TonerMagenta, rec.TonerYellow,
			string(rec.Status), now, scanID,
			existing.ID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update printer: %w", err)
		}
		p, err := s.GetPrinter(ctx, existing.ID)
		return p, false, err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory_printers (
			id, ip_address, mac_address, manufacturer, model, serial_number, firmware_version,
			page_count, toner_black, toner_cyan, toner_magenta, toner_yellow,
			status, first_seen, last_seen, last_scan_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.IPAddress, rec.MACAddress, rec.Manufacturer, rec.Model, rec.SerialNumber, rec.FirmwareVersion,
		rec.PageCount, rec.TonerBlack, rec.TonerCyan, rec.TonerMagenta, rec.TonerYellow,
		string(rec.Status), now, now, scanID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert printer: %w", err)
	}
	p, err := s.GetPrinter(ctx, id)
	return p, true, err
}

func (s *Store) matchPrinter(ctx context.Context, rec *models.PrinterRecord) (*models.Printer, error) {
	if rec.SerialNumber != nil {
		p, err := s.findPrinter(ctx, "serial_number", *rec.SerialNumber)
		if p != nil || err != nil {
			return p, err
		}
	}
	if rec.MACAddress != nil {
		p, err := s.findPrinter(ctx, "mac_address", *rec.MACAddress)
		if p != nil || err != nil {
			return p, err
		}
	}
	p, err := s.findPrinter(ctx, "ip_address", rec.IPAddress)
	if p == nil || err != nil {
		return nil, err
	}
	if p.SerialNumber != nil && rec.SerialNumber != nil && *p.SerialNumber != *rec.SerialNumber {
		return nil, nil
	}
	return p, nil
}

// findPrinter returns the most recently seen printer whose column equals
// value, or nil when none matches. column is never caller-supplied.
func (s *Store) findPrinter(ctx context.Context, column, value string) (*models.Printer, error) {
	p, err := scanPrinter(s.db.QueryRowContext(ctx, `
		SELECT `+printerColumns+` FROM inventory_printers
		WHERE `+column+` = ? ORDER BY last_seen DESC LIMIT 1`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find printer by %s: %w", column, err)
	}
	return p, nil
}

// GetPrinter returns a printer by ID.
func (s *Store) GetPrinter(ctx context.Context, id string) (*models.Printer, error) {
	p, err := scanPrinter(s.db.QueryRowContext(ctx, `
		SELECT `+printerColumns+` FROM inventory_printers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get printer: %w", err)
	}
	return p, nil
}

// ListPrinters returns printers ordered by IP address.
func (s *Store) ListPrinters(ctx context.Context, opts ListOptions) ([]models.Printer, int, error) {
	opts = opts.normalized()
	where := ""
	var args []any
	if opts.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, opts.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_printers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count printers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+printerColumns+` FROM inventory_printers`+where+
		` ORDER BY ip_address, id LIMIT ? OFFSET ?`, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list printers: %w", err)
	}
	defer rows.Close()

	printers := make([]models.Printer, 0)
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan printer row: %w", err)
		}
		printers = append(printers, *p)
	}
	return printers, total, rows.Err()
}

const scanColumns = `id, trigger_source, status, started_at, ended_at, subnets,
	hosts_probed, printers, truncated, deadline_exceeded, error_msg`

const printerColumns = `id, ip_address, mac_address, manufacturer, model, serial_number,
	firmware_version, page_count, toner_black, toner_cyan, toner_magenta, toner_yellow,
	status, first_seen, last_seen, last_scan_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.ScanRun, error) {
	var (
		scan    models.ScanRun
		status  string
		endedAt sql.NullString
		subnets string
	)
	err := row.Scan(&scan.ID, &scan.Trigger, &status, &scan.StartedAt, &endedAt, &subnets,
		&scan.HostsProbed, &scan.Printers, &scan.Truncated, &scan.DeadlineExceeded, &scan.Error)
	if err != nil {
		return nil, err
	}
	scan.Status = models.ScanStatus(status)
	scan.EndedAt = endedAt.String
	if err := json.Unmarshal([]byte(subnets), &scan.Subnets); err != nil {
		return nil, fmt.Errorf("decode subnets: %w", err)
	}
	if scan.Subnets == nil {
		scan.Subnets = []string{}
	}
	return &scan, nil
}

func scanPrinter(row rowScanner) (*models.Printer, error) {
	var (
		p      models.Printer
		status string
	)
	err := row.Scan(&p.ID, &p.IPAddress, &p.MACAddress, &p.Manufacturer, &p.Model, &p.SerialNumber,
		&p.FirmwareVersion, &p.PageCount, &p.TonerBlack, &p.TonerCyan, &p.TonerMagenta, &p.TonerYellow,
		&status, &p.FirstSeen, &p.LastSeen, &p.LastScanID)
	if err != nil {
		return nil, err
	}
	p.Status = models.PrinterStatus(status)
	return &p, nil
}

func encodeSubnets(subnets []string) (string, error) {
	if subnets == nil {
		return "[]", nil
	}
	b, err := json.Marshal(subnets)
	if err != nil {
		return "", fmt.Errorf("encode subnets: %w", err)
	}
	return string(b), nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// parseStatusFilter validates a printer status query value.
func parseStatusFilter(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	for _, s := range []models.PrinterStatus{
		models.PrinterStatusIdle, models.PrinterStatusPrinting, models.PrinterStatusWarmingUp,
		models.PrinterStatusError, models.PrinterStatusOnline,
	} {
		if strings.EqualFold(raw, string(s)) {
			return string(s), true
		}
	}
	return "", false
}
