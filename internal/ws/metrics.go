package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messaging_ws_connections_active",
		Help: "Open messaging WebSocket connections",
	})

	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_ws_frames_received_total",
		Help: "Client frames received by type",
	}, []string{"type"})

	framesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_ws_frames_rejected_total",
		Help: "Frames rejected or dropped by reason",
	}, []string{"reason"})
)
