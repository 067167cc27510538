package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flytant_ws_connections",
			Help: "Currently open WebSocket connections",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytant_messages_sent_total",
			Help: "Messages persisted and broadcast",
		},
	)

	InboxPings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytant_inbox_pings_total",
			Help: "Out-of-room inbox pings delivered",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytant_send_failures_total",
			Help: "Failed sends",
		},
		[]string{"reason"}, // "validation" or "persistence"
	)

	HistoryQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytant_history_queries_total",
			Help: "Room history fetches",
		},
	)
)
