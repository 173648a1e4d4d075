// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	registerOnce sync.Once

	radioFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldgate",
			Subsystem: "radio",
			Name:      "frames_total",
			Help:      "Radio frames received, by message type.",
		},
		[]string{"type"},
	)
	radioFramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldgate",
			Subsystem: "radio",
			Name:      "frames_dropped_total",
			Help:      "Radio frames dropped before reaching the cloud.",
		},
		[]string{"reason"},
	)
	radioTransmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldgate",
			Subsystem: "radio",
			Name:      "transmit_total",
			Help:      "Radio transmit outcomes.",
		},
		[]string{"result"},
	)
	telemetryPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldgate",
			Subsystem: "telemetry",
			Name:      "publish_total",
			Help:      "Telemetry documents published to the cloud.",
		},
		[]string{"result"},
	)
	commandRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldgate",
			Subsystem: "command",
			Name:      "requests_total",
			Help:      "Cloud command invocations by status code.",
		},
		[]string{"command", "status"},
	)
	pendingSends = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fieldgate",
			Name:      "pending_sends",
			Help:      "Outbound messages awaiting a transmit outcome.",
		},
	)
)

// RegisterMetrics registers the gateway collectors with the default registry
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(radioFrames, radioFramesDropped, radioTransmits,
			telemetryPublishes, commandRequests, pendingSends)
	})
}

// RecordFrame counts a received radio frame by message type
func RecordFrame(msgType string) {
	RegisterMetrics()
	radioFrames.WithLabelValues(msgType).Inc()
}

// RecordFrameDropped counts a frame dropped before publish
func RecordFrameDropped(reason string) {
	RegisterMetrics()
	radioFramesDropped.WithLabelValues(reason).Inc()
}

// RecordTransmit counts a radio transmit outcome
func RecordTransmit(success bool) {
	RegisterMetrics()
	radioTransmits.WithLabelValues(resultLabel(success)).Inc()
}

// RecordPublish counts a telemetry publish outcome
func RecordPublish(success bool) {
	RegisterMetrics()
	telemetryPublishes.WithLabelValues(resultLabel(success)).Inc()
}

// RecordCommand counts a cloud command invocation by status code
func RecordCommand(command string, status int) {
	RegisterMetrics()
	commandRequests.WithLabelValues(command, strconv.Itoa(status)).Inc()
}

// SetPendingSends sets the number of sends awaiting an outcome
func SetPendingSends(n int) {
	RegisterMetrics()
	pendingSends.Set(float64(n))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ServeMetrics exposes /metrics on addr until ctx is cancelled
func ServeMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	RegisterMetrics()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
