package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	RemindersSent        prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "staybook_bot_messages_processed_total",
			Help: "Total number of messages handled",
		}),
		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "staybook_bot_commands_processed_total",
			Help: "Commands handled, by command",
		}, []string{"command"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "staybook_bot_errors_total",
			Help: "Panics recovered while handling updates",
		}),
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "staybook_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "staybook_bot_reminders_sent_total",
			Help: "Check-in reminders delivered to hosts",
		}),
	}
}
