package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PackagesCreated counts successful create-and-send submissions.
	PackagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signbridge_packages_created_total",
		Help: "Signing packages created and sent to the provider.",
	})

	// PackagesCanceled counts successful package cancellations.
	PackagesCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signbridge_packages_canceled_total",
		Help: "Signing packages canceled at the provider.",
	})

	// WebhookEvents counts inbound completion webhook deliveries by outcome:
	// processed, noop, unauthorized, bad_request, error.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signbridge_webhook_events_total",
		Help: "Inbound completion webhook deliveries by outcome.",
	}, []string{"outcome"})

	// LegacyCalls counts calls to the legacy gateway by outcome:
	// ok, empty, error.
	LegacyCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signbridge_legacy_calls_total",
		Help: "Legacy gateway calls by outcome.",
	}, []string{"outcome"})
)
