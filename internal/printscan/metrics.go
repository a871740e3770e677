package printscan

import "github.com/prometheus/client_golang/prometheus"

// Prometheus scan metrics.
var (
	hostsProbedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetscout_printscan_hosts_probed_total",
			Help: "Total number of hosts probed for a printer SNMP agent.",
		},
	)
	printersFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assetscout_printscan_printers_found_total",
			Help: "Total number of printer records produced by scans.",
		},
	)
	probeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetscout_printscan_probe_results_total",
			Help: "Per-host probe outcomes.",
		},
		[]string{"result"},
	)
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetscout_printscan_scans_total",
			Help: "Completed printer scans by outcome.",
		},
		[]string{"outcome"},
	)
	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assetscout_printscan_scan_duration_seconds",
			Help:    "Wall-clock duration of printer scans.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
)

// Probe result labels.
const (
	probeNoAgent    = "no_agent"
	probeNotPrinter = "not_printer"
	probePrinter    = "printer"
	probePanic      = "panic"
	probeAborted    = "aborted"
)

// Scan outcome labels.
const (
	outcomeCompleted = "completed"
	outcomeDeadline  = "deadline"
	outcomeCancelled = "cancelled"
	outcomeRecovered = "recovered"
)

func init() {
	prometheus.MustRegister(hostsProbedTotal)
	prometheus.MustRegister(printersFoundTotal)
	prometheus.MustRegister(probeResultsTotal)
	prometheus.MustRegister(scansTotal)
	prometheus.MustRegister(scanDuration)
}
