// Package metrics provides Prometheus instrumentation for the chat server:
// connection and presence gauges, routing counters and latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of open WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatbox_connections",
		Help: "Current number of open WebSocket connections",
	})

	// OnlineUsers tracks the number of users with at least one live connection.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatbox_online_users",
		Help: "Current number of online users",
	})

	// PresenceTransitions counts announced presence edges by state.
	PresenceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbox_presence_transitions_total",
		Help: "Presence transitions announced",
	}, []string{"state"}) // online | offline

	// MessagesTotal counts routed messages by outcome.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbox_messages_total",
		Help: "Chat messages processed by the router",
	}, []string{"outcome"}) // delivered | stored | rejected | failed

	// RouteLatency records time from route start to sender echo.
	RouteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatbox_route_latency_seconds",
		Help:    "Message routing latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// TypingNotifications counts typing indicator relays by kind.
	TypingNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbox_typing_notifications_total",
		Help: "Typing notifications relayed to recipients",
	}, []string{"kind"}) // typing | stopped

	// DroppedEvents counts events not enqueued because a connection was slow or closed.
	DroppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatbox_dropped_events_total",
		Help: "Outbound events dropped for slow or closed connections",
	})

	// HeartbeatTimeouts counts connections closed for missing pongs.
	HeartbeatTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatbox_heartbeat_timeouts_total",
		Help: "Connections closed after a heartbeat timeout",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		OnlineUsers,
		PresenceTransitions,
		MessagesTotal,
		RouteLatency,
		TypingNotifications,
		DroppedEvents,
		HeartbeatTimeouts,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
