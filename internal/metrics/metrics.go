package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Messaging metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_messages_sent_total",
			Help: "Total chat messages persisted",
		},
		[]string{"type"}, // text, image, file, system
	)

	RoomBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_room_broadcasts_total",
			Help: "Total room-scoped broadcast fanouts",
		},
		[]string{"event"},
	)

	GlobalBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_global_broadcasts_total",
			Help: "Total global broadcast fanouts",
		},
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_dropped_frames_total",
			Help: "Frames dropped because a client send buffer was full",
		},
	)

	// Presence metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_connections_active",
			Help: "Currently registered live connections",
		},
	)

	// Dispatch metrics
	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_dispatch_outcomes_total",
			Help: "Notification dispatch outcomes by channel",
		},
		[]string{"channel"}, // live, push, none
	)

	PushTokenFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_push_token_failures_total",
			Help: "Per-token push delivery failures",
		},
	)

	// Membership metrics
	JoinRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_join_requests_total",
			Help: "Join request transitions",
		},
		[]string{"outcome"}, // pending, approved, denied, direct
	)
)
