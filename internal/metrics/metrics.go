// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securitybot_events_total",
			Help: "Events processed by the engine, by kind.",
		},
		[]string{"kind"},
	)

	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securitybot_detections_total",
			Help: "Triggered detections, by category.",
		},
		[]string{"category"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securitybot_actions_total",
			Help: "Enforcement actions decided, by action.",
		},
		[]string{"action"},
	)

	InvalidEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "securitybot_invalid_events_total",
			Help: "Events rejected before detection for missing required fields.",
		},
	)

	RaidsDeclaredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "securitybot_raids_declared_total",
			Help: "Raid declarations, counted once per declaration.",
		},
	)

	LockdownsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "securitybot_lockdowns_total",
			Help: "Guild lockdowns started.",
		},
	)
)
