package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedsAttached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messaging_feeds_attached",
			Help: "Number of currently attached conversation feeds",
		},
	)

	eventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_events_delivered_total",
			Help: "Message events delivered to attached feeds",
		},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_events_dropped_total",
			Help: "Change events dropped before delivery",
		},
		[]string{"reason"}, // overflow, duplicate, resolve_failed, foreign
	)
)
