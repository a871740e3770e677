package printscan

import (
	"context"
	"net/netip"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/assetscout/pkg/models"
)

// scanBatches queries hosts in consecutive batches of cfg.BatchSize. All
// hosts of a batch are queried concurrently and the next batch starts only
// after every query of the current one has returned. Each joined batch is
// merged into report on the calling goroutine before the printer observer
// runs, so a panicking observer cannot lose records already found.
func (s *Scanner) scanBatches(ctx context.Context, hosts []netip.Addr, report *ScanReport) {
	for start := 0; start < len(hosts); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}
		end := min(start+s.cfg.BatchSize, len(hosts))
		batch := hosts[start:end]

		slots := make([]*models.PrinterRecord, len(batch))
		var g errgroup.Group
		for i, ip := range batch {
			g.Go(func() error {
				slots[i] = s.safeProbe(ctx, ip)
				return nil
			})
		}
		_ = g.Wait()

		report.HostsProbed += len(batch)
		hostsProbedTotal.Add(float64(len(batch)))

		var found []models.PrinterRecord
		for _, rec := range slots {
			if rec != nil {
				found = append(found, *rec)
			}
		}
		report.Printers = append(report.Printers, found...)
		printersFoundTotal.Add(float64(len(found)))

		if s.onPrinter != nil {
			for _, rec := range found {
				s.onPrinter(rec)
			}
		}
	}
}

// safeProbe isolates one host: a panic drops the host, and a record whose
// probe was cut short by cancellation is discarded as incomplete.
func (s *Scanner) safeProbe(ctx context.Context, ip netip.Addr) (rec *models.PrinterRecord) {
	result := probeAborted
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while probing host",
				zap.String("ip", ip.String()),
				zap.Any("panic", r),
			)
			rec, result = nil, probePanic
		}
		probeResultsTotal.WithLabelValues(result).Inc()
	}()

	rec, result = s.probeHost(ctx, ip)
	if ctx.Err() != nil {
		if rec != nil {
			s.logger.Debug("discarding interrupted probe", zap.String("ip", ip.String()))
		}
		result = probeAborted
		return nil
	}
	return rec
}
