// Package telemetry centralizes Prometheus metrics for the meeting
// intelligence core: one struct of promauto-registered vectors plus
// small Record*/Set* helpers, no bespoke registry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric the gateway, credential pool, context
// engine, and orchestration graph emit.
type Metrics struct {
	// ActiveMeetings tracks meetings with a live RealtimeWorker.
	ActiveMeetings prometheus.Gauge

	// CredentialPoolLoad tracks meetings assigned per credential index.
	CredentialPoolLoad *prometheus.GaugeVec

	// CredentialAllocations counts Allocate calls by outcome.
	// Labels: outcome (assigned|exhausted)
	CredentialAllocations *prometheus.CounterVec

	// HITLInterrupts counts orchestration runs interrupted for
	// human-in-the-loop confirmation, by tool name.
	HITLInterrupts *prometheus.CounterVec

	// HITLResolutions counts how HITL interrupts were resolved.
	// Labels: action (confirm|cancel|edit)
	HITLResolutions *prometheus.CounterVec

	// L1Updates counts context-engine L1 summarization runs by trigger
	// reason.
	L1Updates *prometheus.CounterVec

	// L1UpdateDuration measures recursive summarization latency.
	L1UpdateDuration prometheus.Histogram

	// ToolExecutions counts orchestration tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutions *prometheus.CounterVec
}

// NewMetrics registers and returns every metric. Call once at process
// startup, before serving /metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ActiveMeetings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "meetcore_active_meetings",
			Help: "Number of meetings with a live RealtimeWorker",
		}),
		CredentialPoolLoad: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meetcore_credential_pool_load",
				Help: "Meetings currently assigned to each STT credential index",
			},
			[]string{"credential_index"},
		),
		CredentialAllocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcore_credential_allocations_total",
				Help: "Credential pool allocation attempts by outcome",
			},
			[]string{"outcome"},
		),
		HITLInterrupts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcore_hitl_interrupts_total",
				Help: "Orchestration runs interrupted for human-in-the-loop confirmation",
			},
			[]string{"tool_name"},
		),
		HITLResolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcore_hitl_resolutions_total",
				Help: "HITL interrupts resolved by action",
			},
			[]string{"action"},
		),
		L1Updates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcore_l1_updates_total",
				Help: "ContextManager L1 summarization runs by trigger reason",
			},
			[]string{"reason"},
		),
		L1UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetcore_l1_update_duration_seconds",
			Help:    "Duration of recursive L1 summarization",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		ToolExecutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcore_tool_executions_total",
				Help: "Orchestration tool invocations by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
	}
}

func (m *Metrics) RecordCredentialAllocation(assigned bool) {
	if assigned {
		m.CredentialAllocations.WithLabelValues("assigned").Inc()
		return
	}
	m.CredentialAllocations.WithLabelValues("exhausted").Inc()
}

func (m *Metrics) RecordHITLInterrupt(toolName string) {
	m.HITLInterrupts.WithLabelValues(toolName).Inc()
}

func (m *Metrics) RecordHITLResolution(action string) {
	m.HITLResolutions.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordL1Update(reason string, durationSeconds float64) {
	m.L1Updates.WithLabelValues(reason).Inc()
	m.L1UpdateDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordToolExecution(toolName, status string) {
	m.ToolExecutions.WithLabelValues(toolName, status).Inc()
}
