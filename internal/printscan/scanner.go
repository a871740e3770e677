// Package printscan discovers network printers on the host's locally
// attached IPv4 subnets using SNMP v2c.
//
// A scan enumerates subnets from the live adapter table, expands each into
// at most 254 candidate hosts, and probes them in fixed-size concurrent
// batches. Each host gets a cheap liveness check (sysDescr) and a printer
// classification check before the full attribute extraction runs. The whole
// scan is bounded by Config.ScanTimeout; hitting it yields a partial result,
// not an error.
package printscan

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/assetscout/pkg/models"
)

// ScanReport is the result envelope of a scan.
type ScanReport struct {
	Printers    []models.PrinterRecord `json:"printers"`
	Subnets     []string               `json:"subnets"`
	HostsProbed int                    `json:"hosts_probed"`
	// Truncated is set when a subnet had more hosts than the per-subnet
	// cap and only the first hosts were probed.
	Truncated bool `json:"truncated"`
	// DeadlineExceeded is set when the scan ceiling expired and Printers
	// holds only what completed batches produced.
	DeadlineExceeded bool          `json:"deadline_exceeded"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithSNMPClient replaces the gosnmp transport.
func WithSNMPClient(c SNMPClient) Option {
	return func(s *Scanner) { s.snmp = c }
}

// WithAdapterSource replaces the live adapter table.
func WithAdapterSource(src AdapterSource) Option {
	return func(s *Scanner) { s.adapters = src }
}

// WithMACResolver replaces the ICMP + neighbor cache MAC lookup.
func WithMACResolver(r MACResolver) Option {
	return func(s *Scanner) { s.mac = r }
}

// WithPrinterObserver registers fn to be called, on the scan goroutine,
// for each printer once its batch has been merged into the report.
func WithPrinterObserver(fn func(models.PrinterRecord)) Option {
	return func(s *Scanner) { s.onPrinter = fn }
}

// Scanner discovers SNMP printers on local subnets. A Scanner holds no
// per-scan state and may run several scans concurrently.
type Scanner struct {
	cfg       Config
	snmp      SNMPClient
	adapters  AdapterSource
	mac       MACResolver
	onPrinter func(models.PrinterRecord)
	logger    *zap.Logger
}

// New creates a Scanner. Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	s := &Scanner{
		cfg:      cfg,
		adapters: SystemAdapters{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snmp == nil {
		s.snmp = NewGoSNMPClient(cfg.OIDTimeout)
	}
	if s.mac == nil {
		s.mac = NewNeighborResolver(cfg.PingTimeout, logger)
	}
	return s
}

// Scan runs a scan and returns only the printer records.
func (s *Scanner) Scan(ctx context.Context) ([]models.PrinterRecord, error) {
	report, err := s.Run(ctx)
	return report.Printers, err
}

// Run scans every local subnet and always returns a non-nil report. The
// error is non-nil only when ctx itself was cancelled or hit its own
// deadline; the report then holds whatever was found before that. Expiry
// of the scan ceiling, network failures and recovered panics all produce
// a partial report with a nil error.
func (s *Scanner) Run(ctx context.Context) (report *ScanReport, err error) {
	start := time.Now()
	report = &ScanReport{
		Printers:  []models.PrinterRecord{},
		Subnets:   []string{},
		StartedAt: start.UTC(),
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	outcome := outcomeCompleted
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("printer scan aborted by panic, returning partial results",
				zap.Any("panic", r),
				zap.Int("printers", len(report.Printers)),
			)
			outcome = outcomeRecovered
		}

		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
			outcome = outcomeCancelled
			s.logger.Info("printer scan cancelled",
				zap.Int("printers", len(report.Printers)),
				zap.Error(err),
			)
		case scanCtx.Err() != nil:
			report.DeadlineExceeded = true
			outcome = outcomeDeadline
			s.logger.Warn("printer scan deadline exceeded, returning partial results",
				zap.Duration("timeout", s.cfg.ScanTimeout),
				zap.Int("printers", len(report.Printers)),
				zap.Int("hosts_probed", report.HostsProbed),
			)
		}

		report.Duration = time.Since(start)
		scansTotal.WithLabelValues(outcome).Inc()
		scanDuration.Observe(report.Duration.Seconds())
	}()

	s.scan(scanCtx, report)
	return report, nil
}

func (s *Scanner) scan(ctx context.Context, report *ScanReport) {
	subnets, err := EnumerateSubnets(s.adapters)
	if err != nil {
		s.logger.Warn("failed to enumerate network adapters", zap.Error(err))
	}
	if len(subnets) == 0 {
		s.logger.Info("no qualifying IPv4 subnets, nothing to scan")
		return
	}

	for _, sn := range subnets {
		report.Subnets = append(report.Subnets, sn.String())
	}

	for _, sn := range subnets {
		if ctx.Err() != nil {
			return
		}

		hosts, truncated := expandHosts(sn, s.cfg.MaxHosts)
		if truncated {
			report.Truncated = true
			s.logger.Warn("subnet larger than host cap, scanning first hosts only",
				zap.String("subnet", sn.String()),
				zap.Int("max_hosts", s.cfg.MaxHosts),
			)
		}

		s.logger.Info("scanning subnet for printers",
			zap.String("subnet", sn.String()),
			zap.String("interface", sn.Interface),
			zap.Int("hosts", len(hosts)),
			zap.Int("batch_size", s.cfg.BatchSize),
		)

		s.scanBatches(ctx, hosts, report)
	}

	s.logger.Info("printer scan finished",
		zap.Int("subnets", len(subnets)),
		zap.Int("hosts_probed", report.HostsProbed),
		zap.Int("printers", len(report.Printers)),
	)
}
