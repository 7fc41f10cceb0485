package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every bluegreen collector. It is separate from the default
// registry so the textfile output only carries cutover metrics.
var Registry = prometheus.NewRegistry()

var (
	ServicesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bluegreen_services_started_total",
			Help: "Total number of ECS services started",
		},
	)

	HealthPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluegreen_health_polls_total",
			Help: "Total number of health gate polls by result",
		},
		[]string{"result"},
	)

	RulesRewritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bluegreen_rules_rewritten_total",
			Help: "Total number of listener rules pointed at a new target group",
		},
	)

	RuleRewriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bluegreen_rule_rewrite_failures_total",
			Help: "Total number of failed listener rule rewrites",
		},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bluegreen_operation_duration_seconds",
			Help:    "Duration of cutover operations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"operation"},
	)

	ProductionColor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bluegreen_production_color",
			Help: "Color currently serving production traffic (1 = live)",
		},
		[]string{"color"},
	)
)

// Health poll results
const (
	PollHealthy   = "healthy"
	PollUnhealthy = "unhealthy"
	PollError     = "error"
)

func init() {
	Registry.MustRegister(
		ServicesStarted,
		HealthPolls,
		RulesRewritten,
		RuleRewriteFailures,
		OperationDuration,
		ProductionColor,
	)
}

// SetProductionColor marks live as the only live color.
func SetProductionColor(live string, colors ...string) {
	for _, c := range colors {
		v := 0.0
		if c == live {
			v = 1
		}
		ProductionColor.WithLabelValues(c).Set(v)
	}
}

// Timer helps measure operation durations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveOperation records the elapsed time under operation
func (t *Timer) ObserveOperation(operation string) {
	OperationDuration.WithLabelValues(operation).Observe(t.Duration().Seconds())
}

// WriteTextfile writes the registry in the text exposition format to path,
// for the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
