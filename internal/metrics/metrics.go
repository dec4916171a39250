// Package metrics provides Prometheus metrics for the init loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pidone"

var (
	reapedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "reaped_total",
		Help:      "Children collected by wait, by termination kind",
	}, []string{"termination"})

	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "signals_total",
		Help:      "Signals handled by the init loop",
	}, []string{"signal"})

	orphanTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orphan",
		Name:      "transitions_total",
		Help:      "Orphan state transitions, by destination stage",
	}, []string{"stage"})

	orphansTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "orphan",
		Name:      "tracked",
		Help:      "Orphans currently tracked, by stage",
	}, []string{"stage"})

	commandSpawnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "command",
		Name:      "spawns_total",
		Help:      "Processes started per command, restarts included",
	}, []string{"command"})

	commandRekeysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "command",
		Name:      "rekeys_total",
		Help:      "Times a command was re-keyed to a daemonized child",
	}, []string{"command"})

	commandDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "command",
		Name:      "dropped_total",
		Help:      "Commands no longer supervised, by reason code",
	}, []string{"command", "code"})

	commandsSupervised = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "command",
		Name:      "supervised",
		Help:      "Commands with a live process",
	})
)

// RecordReaped counts one reaped child.
func RecordReaped(termination string) {
	reapedTotal.WithLabelValues(termination).Inc()
}

// RecordSignal counts one handled signal.
func RecordSignal(signal string) {
	signalsTotal.WithLabelValues(signal).Inc()
}

// RecordOrphanTransition counts one orphan moving into stage.
func RecordOrphanTransition(stage string) {
	orphanTransitionsTotal.WithLabelValues(stage).Inc()
}

// SetOrphans sets the tracked-orphan gauge for every stage in stages.
// Stages absent from counts are set to zero.
func SetOrphans(stages []string, counts map[string]int) {
	for _, stage := range stages {
		orphansTracked.WithLabelValues(stage).Set(float64(counts[stage]))
	}
}

// RecordSpawn counts one started process of command.
func RecordSpawn(command string) {
	commandSpawnsTotal.WithLabelValues(command).Inc()
}

// RecordRekey counts one re-key of command.
func RecordRekey(command string) {
	commandRekeysTotal.WithLabelValues(command).Inc()
}

// RecordDrop counts command leaving supervision for reason code.
func RecordDrop(command, code string) {
	commandDropsTotal.WithLabelValues(command, code).Inc()
}

// SetSupervised sets the number of commands with a live process.
func SetSupervised(n int) {
	commandsSupervised.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
