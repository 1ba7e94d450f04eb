package execstream

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pagination activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	pagesFetched       prometheus.Counter
	eventsLoaded       prometheus.Counter
	fetchErrors        prometheus.Counter
	executionsFinished prometheus.Counter
}

// NewMetrics creates and registers the stream metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webui",
			Subsystem: "execstream",
			Name:      "pages_fetched_total",
			Help:      "Pagination windows fetched across all executions.",
		}),
		eventsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webui",
			Subsystem: "execstream",
			Name:      "events_loaded_total",
			Help:      "Execution events appended to the event store.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webui",
			Subsystem: "execstream",
			Name:      "fetch_errors_total",
			Help:      "Page fetches that failed and halted polling for their execution.",
		}),
		executionsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webui",
			Subsystem: "execstream",
			Name:      "executions_finished_total",
			Help:      "Executions whose terminal event was observed.",
		}),
	}
	reg.MustRegister(m.pagesFetched, m.eventsLoaded, m.fetchErrors, m.executionsFinished)
	return m
}

func (m *Metrics) pageFetched(events int) {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
	m.eventsLoaded.Add(float64(events))
}

func (m *Metrics) fetchFailed() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

func (m *Metrics) executionFinished() {
	if m == nil {
		return
	}
	m.executionsFinished.Inc()
}
