// Package metrics holds the prometheus collectors shared by the bot and the
// expiration scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medkit",
		Name:      "commands_total",
		Help:      "Handled user messages by verb and outcome.",
	}, []string{"verb", "outcome"})

	DialogsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medkit",
		Name:      "dialogs_total",
		Help:      "Add dialogs by terminal state.",
	}, []string{"state"})

	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medkit",
		Name:      "scans_total",
		Help:      "Expiration scans by outcome.",
	}, []string{"outcome"})

	DigestRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "medkit",
		Name:      "digest_records",
		Help:      "Number of records listed in a dispatched digest.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medkit",
		Name:      "deliveries_total",
		Help:      "Digest deliveries by result.",
	}, []string{"result"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "medkit",
		Name:      "subscribers",
		Help:      "Registered digest recipients.",
	})
)

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
	OutcomeEmpty      = "empty"
)
