// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK           = "ok"
	outcomeNoHandler    = "no_handler"
	outcomeHandlerError = "handler_error"
)

var (
	registerOnce sync.Once

	invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "dispatch",
			Name:      "invocations_total",
			Help:      "Backend invocations by outcome.",
		},
		[]string{"outcome"},
	)
	liveTransfers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridge",
			Subsystem: "registry",
			Name:      "live_transfers",
			Help:      "Transferred buffers not yet released by the caller.",
		},
	)
	transferredBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "registry",
			Name:      "transferred_bytes_total",
			Help:      "Bytes handed to the caller as transferred buffers.",
		},
	)
	releases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "registry",
			Name:      "releases_total",
			Help:      "Release calls, split by whether an allocation was reclaimed.",
		},
		[]string{"reclaimed"},
	)
)

// RegisterMetrics registers the bridge collectors with the default
// prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(invocations, liveTransfers, transferredBytes, releases)
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNoHandler):
		return outcomeNoHandler
	default:
		return outcomeHandlerError
	}
}

func recordInvocation(err error) {
	invocations.WithLabelValues(outcomeOf(err)).Inc()
}

func recordTransfer(b TransferBuffer) {
	if b.IsEmpty() {
		return
	}
	liveTransfers.Inc()
	transferredBytes.Add(float64(b.Len))
}

func recordRelease(reclaimed bool) {
	if reclaimed {
		liveTransfers.Dec()
	}
	releases.WithLabelValues(strconv.FormatBool(reclaimed)).Inc()
}
