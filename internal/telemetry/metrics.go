/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "departure_board"

var (
	// RefreshTotal counts refresh cycles by outcome (success, failure, skipped).
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Board refresh cycles by outcome.",
	}, []string{"outcome"})

	// RefreshDuration observes how long the fetch and format half of a cycle takes.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time spent fetching and formatting one board snapshot.",
		Buckets:   prometheus.DefBuckets,
	})

	// BoardRows reports the rows on display.
	BoardRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "board_rows",
		Help:      "Rows currently displayed.",
	})

	// ActiveTickers reports rows whose stops text is scrolling.
	ActiveTickers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tickers",
		Help:      "Rows with a running stops ticker.",
	})

	// TickerFramesTotal counts rendered ticker frames.
	TickerFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticker_frames_total",
		Help:      "Ticker frames pushed to the display.",
	})

	// CallingPointErrorsTotal counts failed calling point lookups.
	CallingPointErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calling_point_errors_total",
		Help:      "Calling point lookups that degraded a row to N/A.",
	})

	// UpstreamRequestsTotal counts Darwin requests by operation and result.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Requests made to the departure data source.",
	}, []string{"operation", "result"})

	// UpstreamRequestDuration observes Darwin round trips.
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Departure data source round trip time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// CacheLookupsTotal counts calling point cache lookups by result (hit, miss, bypass).
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Calling point cache lookups.",
	}, []string{"result"})

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests, websockets included.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "In-flight HTTP requests.",
	})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
