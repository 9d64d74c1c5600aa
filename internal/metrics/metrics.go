// Package metrics holds the Prometheus collectors for study activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReviewsTotal counts answered cards by rating label.
	ReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revisa_reviews_total",
		Help: "Total card reviews by rating",
	}, []string{"rating"})

	// PersistFailures counts failed scheduling writes by failure class (network, other).
	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revisa_persist_failures_total",
		Help: "Total failed card persistence attempts by class",
	}, []string{"class"})

	// SessionsStarted counts started sessions by mode (review, study) and whether they resumed.
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revisa_sessions_started_total",
		Help: "Total study sessions started by mode",
	}, []string{"mode", "resumed"})

	// UndoTotal counts undo attempts by result (ok, empty, failed).
	UndoTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revisa_undo_total",
		Help: "Total undo attempts by result",
	}, []string{"result"})

	// DueCards is the number of due cards seen by the last due query.
	DueCards = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "revisa_due_cards",
		Help: "Cards due for review as of the last query",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
