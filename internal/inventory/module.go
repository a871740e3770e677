// Package inventory persists printer discovery results, schedules recurring
// scans and serves the printer inventory over HTTP.
package inventory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/assetscout/internal/printscan"
	"github.com/HerbHall/assetscout/pkg/models"
	"github.com/HerbHall/assetscout/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("a printer scan is already in progress")

// Trigger sources recorded on scan runs.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
)

// PrinterScanner runs one discovery pass.
type PrinterScanner interface {
	Run(ctx context.Context) (*printscan.ScanReport, error)
}

// ScannerFactory builds a scanner for one run. onPrinter is invoked for
// every printer as soon as its batch completes.
type ScannerFactory func(cfg printscan.Config, logger *zap.Logger, onPrinter func(models.PrinterRecord)) PrinterScanner

// DefaultScannerFactory builds a printscan.Scanner on the host's adapters.
func DefaultScannerFactory(cfg printscan.Config, logger *zap.Logger, onPrinter func(models.PrinterRecord)) PrinterScanner {
	return printscan.New(cfg, logger, printscan.WithPrinterObserver(onPrinter))
}

// Option configures a Module.
type Option func(*Module)

// WithScanConfig sets the printer scanner tuning used for every run.
func WithScanConfig(cfg printscan.Config) Option {
	return func(m *Module) { m.scanCfg = cfg }
}

// WithScannerFactory replaces the scanner used for each run.
func WithScannerFactory(f ScannerFactory) Option {
	return func(m *Module) { m.newScanner = f }
}

// Module implements the printer inventory plugin.
type Module struct {
	logger     *zap.Logger
	cfg        Config
	scanCfg    printscan.Config
	store      *Store
	bus        plugin.EventBus
	newScanner ScannerFactory
	scheduler  *Scheduler

	running    atomic.Bool
	lastScanID atomic.Value // string
	wg         sync.WaitGroup
	scanCtx    context.Context
	scanCancel context.CancelFunc
}

// New creates a new inventory module.
func New(opts ...Option) *Module {
	m := &Module{
		scanCfg:    printscan.DefaultConfig(),
		newScanner: DefaultScannerFactory,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "inventory",
		Version:     "0.1.0",
		Description: "Printer inventory from SNMP discovery scans",
		Roles:       []string{"discovery", "inventory"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.bus = deps.Bus

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if deps.Config.IsSet("scan_interval") {
			m.cfg.ScanInterval = deps.Config.GetDuration("scan_interval")
		}
		if deps.Config.IsSet("scan_on_start") {
			m.cfg.ScanOnStart = deps.Config.GetBool("scan_on_start")
		}
		m.cfg.QuietStart = deps.Config.GetString("quiet_start")
		m.cfg.QuietEnd = deps.Config.GetString("quiet_end")
	}

	if err := deps.Store.Migrate(ctx, "inventory", migrations()); err != nil {
		return err
	}
	m.store = NewStore(deps.Store.DB())

	// Scheduling contexts exist from Init so RunScan works without Start.
	m.scanCtx, m.scanCancel = context.WithCancel(context.Background())

	m.logger.Info("inventory module initialized",
		zap.Duration("scan_interval", m.cfg.ScanInterval),
		zap.Bool("scan_on_start", m.cfg.ScanOnStart),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if m.cfg.ScanOnStart {
		if _, err := m.StartScan(TriggerStartup); err != nil {
			m.logger.Warn("startup scan not started", zap.Error(err))
		}
	}

	if m.cfg.ScanInterval > 0 {
		m.scheduler = NewScheduler(m.cfg, m, m.logger.Named("scheduler"))
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.scheduler.Run(m.scanCtx)
		}()
	}

	m.logger.Info("inventory module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("inventory module stopping, cancelling active scan")
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.scanCancel != nil {
		m.scanCancel()
	}
	m.wg.Wait()
	m.logger.Info("inventory module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/scans", Handler: m.handleStartScan},
		{Method: "GET", Path: "/scans", Handler: m.handleListScans},
		{Method: "GET", Path: "/scans/{id}", Handler: m.handleGetScan},
		{Method: "GET", Path: "/printers", Handler: m.handleListPrinters},
		{Method: "GET", Path: "/printers/{id}", Handler: m.handleGetPrinter},
	}
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	details := map[string]string{
		"scan_running":  strconv.FormatBool(m.running.Load()),
		"scan_interval": m.cfg.ScanInterval.String(),
	}
	if id, _ := m.lastScanID.Load().(string); id != "" {
		details["last_scan_id"] = id
	}
	return plugin.HealthStatus{Status: "ok", Details: details}
}

// Store exposes the module's inventory store.
func (m *Module) Store() *Store { return m.store }

// Running reports whether a scan is in progress.
func (m *Module) Running() bool { return m.running.Load() }

// RunScan performs a scan synchronously and returns the finished record.
func (m *Module) RunScan(ctx context.Context, trigger string) (*models.ScanRun, error) {
	scan, err := m.beginScan(ctx, trigger)
	if err != nil {
		return nil, err
	}
	return m.executeScan(ctx, scan), nil
}

// StartScan launches a scan in the background and returns its initial
// record. The scan is cancelled when the module stops.
func (m *Module) StartScan(trigger string) (*models.ScanRun, error) {
	scan, err := m.beginScan(m.scanCtx, trigger)
	if err != nil {
		return nil, err
	}
	initial := *scan
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.executeScan(m.scanCtx, scan)
	}()
	return &initial, nil
}

// beginScan claims the single scan slot and records the new run.
func (m *Module) beginScan(ctx context.Context, trigger string) (*models.ScanRun, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	scan := &models.ScanRun{
		Trigger:   trigger,
		Status:    models.ScanStatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Subnets:   []string{},
	}
	if err := m.store.CreateScan(context.WithoutCancel(ctx), scan); err != nil {
		m.running.Store(false)
		return nil, err
	}
	m.lastScanID.Store(scan.ID)
	return scan, nil
}

// executeScan runs the scanner for an already recorded scan, persisting
// each printer as it is reported, then finalizes the record.
func (m *Module) executeScan(ctx context.Context, scan *models.ScanRun) *models.ScanRun {
	defer m.running.Store(false)

	// Persistence outlives cancellation so a stopped scan still records
	// what it found.
	persistCtx := context.WithoutCancel(ctx)

	m.logger.Info("printer scan started",
		zap.String("scan_id", scan.ID),
		zap.String("trigger", scan.Trigger),
	)
	m.publishEvent(persistCtx, TopicScanStarted, ScanEvent{Scan: copyScan(scan)})

	onPrinter := func(rec models.PrinterRecord) {
		p, created, err := m.store.UpsertPrinter(persistCtx, &rec, scan.ID)
		if err != nil {
			m.logger.Error("failed to persist printer",
				zap.String("scan_id", scan.ID),
				zap.String("ip", rec.IPAddress),
				zap.Error(err),
			)
			return
		}
		topic := TopicPrinterUpdated
		if created {
			topic = TopicPrinterDiscovered
		}
		m.publishEvent(persistCtx, topic, PrinterEvent{ScanID: scan.ID, Printer: p})
	}

	scanner := m.newScanner(m.scanCfg, m.logger.Named("printscan"), onPrinter)
	report, err := scanner.Run(ctx)
	if report != nil {
		scan.Subnets = report.Subnets
		scan.HostsProbed = report.HostsProbed
		scan.Printers = len(report.Printers)
		scan.Truncated = report.Truncated
		scan.DeadlineExceeded = report.DeadlineExceeded
	}

	switch {
	case err == nil && scan.DeadlineExceeded:
		scan.Status = models.ScanStatusPartial
	case err == nil:
		scan.Status = models.ScanStatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		scan.Status = models.ScanStatusCancelled
		scan.Error = err.Error()
	default:
		scan.Status = models.ScanStatusFailed
		scan.Error = err.Error()
	}

	if scan.Status == models.ScanStatusFailed {
		if ferr := m.store.FailScan(persistCtx, scan.ID, err); ferr != nil {
			m.logger.Error("failed to record scan failure", zap.String("scan_id", scan.ID), zap.Error(ferr))
		}
		scan.EndedAt = time.Now().UTC().Format(time.RFC3339)
	} else if cerr := m.store.CompleteScan(persistCtx, scan); cerr != nil {
		m.logger.Error("failed to record scan result", zap.String("scan_id", scan.ID), zap.Error(cerr))
	}

	m.logger.Info("printer scan finished",
		zap.String("scan_id", scan.ID),
		zap.String("status", string(scan.Status)),
		zap.Int("printers", scan.Printers),
		zap.Int("hosts_probed", scan.HostsProbed),
	)
	m.publishEvent(persistCtx, TopicScanCompleted, ScanEvent{Scan: copyScan(scan)})
	return scan
}

// publishEvent delivers an event synchronously on the scan goroutine, so
// subscribers see scan.started, each printer and scan.completed in order.
func (m *Module) publishEvent(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "inventory",
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func copyScan(s *models.ScanRun) *models.ScanRun {
	c := *s
	c.Subnets = append([]string{}, s.Subnets...)
	return &c
}
