// Package metrics exposes session counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/rd03d/pkg/rd03d"
)

const namespace = "rd03d"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

var (
	framesDesc = prometheus.NewDesc(
		namespace+"_frames_total",
		"Frames cut out of the byte stream.",
		[]string{"class"}, nil)
	framingErrorsDesc = prometheus.NewDesc(
		namespace+"_framing_errors_total",
		"Discard events of the frame synchronizer.",
		[]string{"reason"}, nil)
	discardedDesc = prometheus.NewDesc(
		namespace+"_discarded_bytes_total",
		"Bytes dropped by the frame synchronizer.",
		nil, nil)
	strayDesc = prometheus.NewDesc(
		namespace+"_stray_frames_total",
		"Command frames received with no command pending.",
		nil, nil)
	reportsDesc = prometheus.NewDesc(
		namespace+"_reports_total",
		"Target reports decoded.",
		nil, nil)
	targetsDesc = prometheus.NewDesc(
		namespace+"_targets_present",
		"Targets present in the latest report.",
		nil, nil)
)

// Collector reads session state at scrape time and records command
// results through the session's CommandHook.
type Collector struct {
	session  *rd03d.Session
	commands *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewCollector creates a Collector for session and installs its hook.
// The hook must be installed before the session is used.
func NewCollector(session *rd03d.Session) *Collector {
	c := &Collector{
		session: session,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command exchanges by command and result.",
		}, []string{"command", "result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from sending a command to its ack.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
	session.CommandHook = c.ObserveCommand
	return c
}

// Register registers c on reg.
func (c *Collector) Register(reg prometheus.Registerer) *Collector {
	reg.MustRegister(c)
	return c
}

// ObserveCommand records the outcome of one exchange.
func (c *Collector) ObserveCommand(kind rd03d.CommandKind, err error, elapsed time.Duration) {
	c.commands.WithLabelValues(kind.String(), Result(err)).Inc()
	if err == nil {
		c.latency.Observe(elapsed.Seconds())
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- framesDesc
	ch <- framingErrorsDesc
	ch <- discardedDesc
	ch <- strayDesc
	ch <- reportsDesc
	ch <- targetsDesc
	c.commands.Describe(ch)
	c.latency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.session.Stats()
	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	counter(framesDesc, stats.Sync.CommandFrames, rd03d.FrameCommand.String())
	counter(framesDesc, stats.Sync.ReportFrames, rd03d.FrameReport.String())
	counter(framingErrorsDesc, stats.Sync.Resyncs, "resync")
	counter(framingErrorsDesc, stats.Sync.BadTails, "bad_tail")
	counter(framingErrorsDesc, stats.Sync.BadLengths, "bad_length")
	counter(framingErrorsDesc, stats.Sync.Overruns, "overrun")
	counter(discardedDesc, stats.Sync.DiscardedBytes)
	counter(strayDesc, stats.StrayFrames)
	counter(reportsDesc, stats.Reports)
	ch <- prometheus.MustNewConstMetric(targetsDesc, prometheus.GaugeValue,
		float64(c.session.PollTargets().Count()))
	c.commands.Collect(ch)
	c.latency.Collect(ch)
}

// Result names the outcome of a command for the result label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, rd03d.ErrTimeout):
		return "timeout"
	case errors.Is(err, rd03d.ErrAckMismatch):
		return "ack_error"
	case errors.Is(err, rd03d.ErrMode):
		return "mode"
	default:
		return "error"
	}
}
