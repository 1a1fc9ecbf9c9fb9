package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// Metrics holds the Prometheus instruments of the workflow engine.
type Metrics struct {
	StageTransitions   *prometheus.CounterVec
	CustodyTransitions *prometheus.CounterVec
	Rejections         *prometheus.CounterVec
	CasesCancelled     prometheus.Counter
}

// New registers the metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on the given registerer; tests pass
// a fresh registry to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visaflow_stage_transitions_total",
			Help: "Accepted stage updates by stage number and completion flag",
		}, []string{"stage", "completed"}),
		CustodyTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visaflow_custody_transitions_total",
			Help: "Accepted custody transitions by target status",
		}, []string{"target"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visaflow_transition_rejections_total",
			Help: "Rejected updates by transition error code",
		}, []string{"code"}),
		CasesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "visaflow_cases_cancelled_total",
			Help: "Total number of cancelled cases",
		}),
	}
}

// ObserveStageUpdate records the outcome of one stage update attempt.
func (m *Metrics) ObserveStageUpdate(stage residence.StageNumber, completed bool, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.observeRejection(err)
		return
	}
	m.StageTransitions.WithLabelValues(strconv.Itoa(int(stage)), strconv.FormatBool(completed)).Inc()
}

// ObserveCustodyUpdate records the outcome of one custody update attempt.
func (m *Metrics) ObserveCustodyUpdate(target residence.CustodyStatus, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.observeRejection(err)
		return
	}
	m.CustodyTransitions.WithLabelValues(target.String()).Inc()
}

// ObserveCancellation records one case cancellation.
func (m *Metrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.CasesCancelled.Inc()
}

func (m *Metrics) observeRejection(err error) {
	var terr *residence.TransitionError
	if errors.As(err, &terr) {
		m.Rejections.WithLabelValues(string(terr.Code)).Inc()
	}
}
