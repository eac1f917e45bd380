// Package metrics registers the Prometheus instruments for the report and
// share workflows. HTTP-level metrics live in internal/middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the report and share workflows.
type Metrics struct {
	ReportsUploaded prometheus.Counter
	ReportsDeleted  prometheus.Counter
	SharesCreated   prometheus.Counter
	SharesRevoked   prometheus.Counter
}

// New creates a Metrics instance registered on reg. The server passes
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry()
// so parallel tests don't collide on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthwallet_reports_uploaded_total",
			Help: "Total number of report files uploaded",
		}),
		ReportsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthwallet_reports_deleted_total",
			Help: "Total number of reports deleted by their owners",
		}),
		SharesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthwallet_shares_created_total",
			Help: "Total number of report shares granted",
		}),
		SharesRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthwallet_shares_revoked_total",
			Help: "Total number of report shares revoked by viewers",
		}),
	}
}
