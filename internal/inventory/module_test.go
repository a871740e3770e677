package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/assetscout/internal/config"
	"github.com/HerbHall/assetscout/internal/event"
	"github.com/HerbHall/assetscout/internal/printscan"
	"github.com/HerbHall/assetscout/internal/testutil"
	"github.com/HerbHall/assetscout/pkg/models"
	"github.com/HerbHall/assetscout/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// stubScanner reports a fixed set of printers. When block is non-nil, Run
// waits for it to close or for ctx to end before reporting.
type stubScanner struct {
	records  []models.PrinterRecord
	deadline bool
	err      error
	block    chan struct{}
}

func (s *stubScanner) factory() ScannerFactory {
	return func(_ printscan.Config, _ *zap.Logger, onPrinter func(models.PrinterRecord)) PrinterScanner {
		return &stubRun{stub: s, onPrinter: onPrinter}
	}
}

type stubRun struct {
	stub      *stubScanner
	onPrinter func(models.PrinterRecord)
}

func (r *stubRun) Run(ctx context.Context) (*printscan.ScanReport, error) {
	report := &printscan.ScanReport{
		Printers: []models.PrinterRecord{},
		Subnets:  []string{"192.168.1.0/24"},
	}
	if r.stub.block != nil {
		select {
		case <-r.stub.block:
		case <-ctx.Done():
			return report, ctx.Err()
		}
	}
	for _, rec := range r.stub.records {
		r.onPrinter(rec)
		report.Printers = append(report.Printers, rec)
	}
	report.HostsProbed = 254
	report.DeadlineExceeded = r.stub.deadline
	return report, r.stub.err
}

// topicRecorder counts events per topic.
type topicRecorder struct {
	mu     sync.Mutex
	counts map[string]int
	events []plugin.Event
}

func (r *topicRecorder) handle(_ context.Context, e plugin.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[e.Topic]++
	r.events = append(r.events, e)
}

func (r *topicRecorder) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[topic]
}

func (r *topicRecorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}

type testEnv struct {
	module *Module
	bus    *event.Bus
	events *topicRecorder
}

func testDeps(t *testing.T, bus plugin.EventBus) plugin.Dependencies {
	t.Helper()
	db := testutil.NewStore(t)

	v := viper.New()
	v.Set("scan_on_start", false)
	v.Set("scan_interval", "0s")

	if bus == nil {
		bus = event.NewBus(zap.NewNop())
	}
	return plugin.Dependencies{
		Config: config.New(v),
		Logger: zap.NewNop(),
		Store:  db,
		Bus:    bus,
	}
}

func newTestModule(t *testing.T, stub *stubScanner) *testEnv {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	rec := &topicRecorder{}
	bus.SubscribeAll(rec.handle)

	m := New(WithScannerFactory(stub.factory()))
	if err := m.Init(context.Background(), testDeps(t, bus)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return &testEnv{module: m, bus: bus, events: rec}
}

func twoPrinters() []models.PrinterRecord {
	return []models.PrinterRecord{
		testutil.NewPrinterRecord(
			testutil.WithSerial("CNBJ123456"),
			testutil.WithIdentity("HP", "HP LaserJet 4050 Series"),
		),
		testutil.NewPrinterRecord(
			testutil.WithIP("192.168.1.20"),
			testutil.WithStatus(models.PrinterStatusOnline),
		),
	}
}

func TestRunScan_PersistsAndPublishes(t *testing.T) {
	env := newTestModule(t, &stubScanner{records: twoPrinters()})
	ctx := context.Background()

	scan, err := env.module.RunScan(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if scan.Status != models.ScanStatusCompleted {
		t.Errorf("status = %q, want completed", scan.Status)
	}
	if scan.Printers != 2 || scan.HostsProbed != 254 {
		t.Errorf("printers=%d hosts=%d", scan.Printers, scan.HostsProbed)
	}

	stored, err := env.module.Store().GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Status != models.ScanStatusCompleted || stored.Printers != 2 {
		t.Errorf("stored scan = %+v", stored)
	}
	if len(stored.Subnets) != 1 || stored.Subnets[0] != "192.168.1.0/24" {
		t.Errorf("stored subnets = %v", stored.Subnets)
	}

	printers, total, err := env.module.Store().ListPrinters(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListPrinters: %v", err)
	}
	if total != 2 || printers[0].LastScanID != scan.ID {
		t.Errorf("total=%d printers=%+v", total, printers)
	}

	if n := env.events.count(TopicScanStarted); n != 1 {
		t.Errorf("scan.started = %d, want 1", n)
	}
	if n := env.events.count(TopicPrinterDiscovered); n != 2 {
		t.Errorf("printer.discovered = %d, want 2", n)
	}
	if n := env.events.count(TopicScanCompleted); n != 1 {
		t.Errorf("scan.completed = %d, want 1", n)
	}
	if env.module.Running() {
		t.Error("Running() should be false after RunScan returns")
	}
}

func TestRunScan_RepeatScanUpdates(t *testing.T) {
	env := newTestModule(t, &stubScanner{records: twoPrinters()})
	ctx := context.Background()

	if _, err := env.module.RunScan(ctx, TriggerManual); err != nil {
		t.Fatalf("first RunScan: %v", err)
	}
	if _, err := env.module.RunScan(ctx, TriggerScheduled); err != nil {
		t.Fatalf("second RunScan: %v", err)
	}

	_, total, err := env.module.Store().ListPrinters(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListPrinters: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 (no duplicates)", total)
	}

	if n := env.events.count(TopicPrinterUpdated); n != 2 {
		t.Errorf("printer.updated = %d, want 2", n)
	}
	if n := env.events.count(TopicPrinterDiscovered); n != 2 {
		t.Errorf("printer.discovered = %d, want 2", n)
	}
}

func TestRunScan_EventsDeliveredInOrder(t *testing.T) {
	env := newTestModule(t, &stubScanner{records: twoPrinters()})

	// Subscribers run before RunScan returns; no draining is needed.
	if _, err := env.module.RunScan(context.Background(), TriggerManual); err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	want := []string{TopicScanStarted, TopicPrinterDiscovered, TopicPrinterDiscovered, TopicScanCompleted}
	got := env.events.topics()
	if len(got) != len(want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunScan_DeadlineMarksPartial(t *testing.T) {
	env := newTestModule(t, &stubScanner{records: twoPrinters()[:1], deadline: true})

	scan, err := env.module.RunScan(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if scan.Status != models.ScanStatusPartial || !scan.DeadlineExceeded {
		t.Errorf("scan = %+v, want partial with deadline flag", scan)
	}
}

func TestRunScan_CallerCancellation(t *testing.T) {
	env := newTestModule(t, &stubScanner{records: twoPrinters(), block: make(chan struct{})})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	scan, err := env.module.RunScan(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if scan.Status != models.ScanStatusCancelled {
		t.Errorf("status = %q, want cancelled", scan.Status)
	}

	stored, err := env.module.Store().GetScan(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Status != models.ScanStatusCancelled || stored.Error == "" {
		t.Errorf("stored = %+v, want cancelled with error text", stored)
	}
}

func TestRunScan_ScannerErrorFails(t *testing.T) {
	env := newTestModule(t, &stubScanner{err: errors.New("no usable adapters")})

	scan, err := env.module.RunScan(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	stored, err := env.module.Store().GetScan(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Status != models.ScanStatusFailed || stored.Error != "no usable adapters" {
		t.Errorf("stored = %+v, want failed", stored)
	}
}

func TestStartScan_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	env := newTestModule(t, &stubScanner{records: twoPrinters(), block: block})

	scan, err := env.module.StartScan(TriggerManual)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if scan.Status != models.ScanStatusRunning {
		t.Errorf("initial status = %q, want running", scan.Status)
	}
	if !env.module.Running() {
		t.Error("Running() should be true while scan is blocked")
	}

	if _, err := env.module.StartScan(TriggerManual); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("second StartScan err = %v, want ErrScanInProgress", err)
	}
	if _, err := env.module.RunScan(context.Background(), TriggerManual); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("RunScan err = %v, want ErrScanInProgress", err)
	}

	close(block)
	env.module.wg.Wait()

	if env.module.Running() {
		t.Error("Running() should be false after the scan finished")
	}
	stored, err := env.module.Store().GetScan(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Status != models.ScanStatusCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}

	if _, err := env.module.StartScan(TriggerManual); err != nil {
		t.Errorf("StartScan after completion: %v", err)
	}
}

func TestStop_CancelsActiveScan(t *testing.T) {
	env := newTestModule(t, &stubScanner{block: make(chan struct{})})

	scan, err := env.module.StartScan(TriggerManual)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if err := env.module.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	stored, err := env.module.Store().GetScan(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Status != models.ScanStatusCancelled {
		t.Errorf("status = %q, want cancelled", stored.Status)
	}
}

func TestHealth(t *testing.T) {
	env := newTestModule(t, &stubScanner{})
	if _, err := env.module.RunScan(context.Background(), TriggerManual); err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	h := env.module.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok", h.Status)
	}
	if h.Details["scan_running"] != "false" {
		t.Errorf("scan_running = %q", h.Details["scan_running"])
	}
	if h.Details["last_scan_id"] == "" {
		t.Error("last_scan_id should be reported after a scan")
	}
}

func TestInit_ReadsConfig(t *testing.T) {
	deps := testDeps(t, nil)
	v := viper.New()
	v.Set("scan_interval", "15m")
	v.Set("quiet_start", "22:00")
	v.Set("quiet_end", "06:00")
	deps.Config = config.New(v)

	m := New()
	if err := m.Init(context.Background(), deps); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if m.cfg.ScanInterval != 15*time.Minute {
		t.Errorf("ScanInterval = %v, want 15m", m.cfg.ScanInterval)
	}
	if !m.cfg.ScanOnStart {
		t.Error("ScanOnStart should keep its default when unset")
	}
	if m.cfg.QuietStart != "22:00" || m.cfg.QuietEnd != "06:00" {
		t.Errorf("quiet window = %q-%q", m.cfg.QuietStart, m.cfg.QuietEnd)
	}
}
