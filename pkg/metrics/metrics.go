// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for the native
// messaging host. Metrics are registered on the default registry and
// exposed by the diagnostics server when it is enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all biovault metrics
	Namespace = "biovault"

	// Label names
	LabelCommand = "command"
	LabelStatus  = "status"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// FramesTotal counts frames read from the channel, by outcome.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Total number of frames read from the native messaging channel",
		},
		[]string{LabelStatus},
	)

	// CommandsTotal counts dispatched commands by tag and outcome.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Total number of dispatched commands by tag and outcome",
		},
		[]string{LabelCommand, LabelStatus},
	)

	// HandshakesTotal counts setupEncryption handshakes served.
	HandshakesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "handshakes_total",
			Help:      "Total number of encryption handshakes served",
		},
	)

	// PresenceChecksTotal counts presence verifications by outcome.
	PresenceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "presence_checks_total",
			Help:      "Total number of user-presence verifications by outcome",
		},
		[]string{LabelStatus},
	)

	// UnlockDuration tracks end-to-end duration of unlock requests,
	// presence prompt included.
	UnlockDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "unlock_duration_seconds",
			Help:      "Duration of unlock requests in seconds, including the presence prompt",
			Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// RecordCommand increments the command counter for the given tag.
func RecordCommand(command string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	CommandsTotal.WithLabelValues(command, status).Inc()
}

// RecordFrame increments the frame counter.
func RecordFrame(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	FramesTotal.WithLabelValues(status).Inc()
}

// RecordPresenceCheck increments the presence check counter.
func RecordPresenceCheck(ok bool) {
	status := StatusError
	if ok {
		status = StatusSuccess
	}
	PresenceChecksTotal.WithLabelValues(status).Inc()
}
