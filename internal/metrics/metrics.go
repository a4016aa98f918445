package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records orchestration activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessions         *prometheus.CounterVec
	remoteCalls      *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	inferenceSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolflow_sessions_total",
			Help: "Orchestration sessions by terminal state.",
		}, []string{"state"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolflow_remote_calls_total",
			Help: "Inference calls by model and outcome.",
		}, []string{"model", "outcome"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolflow_tool_invocations_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		inferenceSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolflow_inference_seconds",
			Help:    "Latency of inference calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.remoteCalls, m.toolInvocations, m.inferenceSeconds)
	}
	return m
}

func (m *Metrics) SessionFinished(state string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(state).Inc()
}

func (m *Metrics) RemoteCall(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(model, outcome(err)).Inc()
	m.inferenceSeconds.WithLabelValues(model).Observe(d.Seconds())
}

// ToolInvoked records one tool execution. failed covers unknown tools and
// captured tool errors alike.
func (m *Metrics) ToolInvoked(tool string, failed bool) {
	if m == nil {
		return
	}
	o := "ok"
	if failed {
		o = "error"
	}
	m.toolInvocations.WithLabelValues(tool, o).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
