package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Stages recorded under EventsTotal.
const (
	StageEnqueued  = "enqueued"
	StageRejected  = "rejected"
	StageDebounced = "debounced"
	StageWritten   = "written"
	StageRequeued  = "requeued"
	StageDropped   = "dropped"
	StageLost      = "lost"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_events_total",
			Help: "Tracking events lifecycle counter by queue and stage",
		},
		[]string{"queue", "stage"}, // Stage*
	)

	CommitRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_commit_retries_total",
			Help: "Transactions rolled back on lock contention and retried",
		},
		[]string{"queue"},
	)

	ProgressUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_progress_upserts_total",
			Help: "Progress snapshot upserts by result",
		},
		[]string{"result"}, // ok|unchanged|failed|skipped
	)

	QueuePopErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_queue_pop_errors_total",
			Help: "Queue pop failures other than timeouts",
		},
		[]string{"queue"},
	)
)

// MustRegister registers all collectors. Registering twice on the same
// registerer (serve + worker in one process) is not an error.
func MustRegister(r prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		EventsTotal,
		CommitRetriesTotal,
		ProgressUpsertsTotal,
		QueuePopErrorsTotal,
	} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}
