// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/fieldgate/internal/cloud"
	"github.com/Thermoquad/fieldgate/internal/config"
	"github.com/Thermoquad/fieldgate/internal/gateway"
	"github.com/Thermoquad/fieldgate/internal/observability"
	"github.com/Thermoquad/fieldgate/internal/radio"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the field gateway",
	Long: `Load the settings file, connect to the cloud, arm the radio and forward
traffic until interrupted.

On first run, when the settings file does not exist, a template is written and
the gateway exits so the operator can fill in the cloud connection string.

A Restart command from the cloud reloads the settings and reconnects after the
configured RestartDelay.`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// restarter cancels the running gateway after a delay and flags that it
// should be started again.
type restarter struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	requested bool
	timer     *time.Timer
}

func (r *restarter) ScheduleRestart(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		r.requested = true
		cancel := r.cancel
		r.mu.Unlock()
		cancel()
	})
}

func (r *restarter) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	return r.requested
}

func runGateway(cmd *cobra.Command, args []string) error {
	logger := observability.InitLogger("fieldgate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		restart, err := runOnce(ctx, logger)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
		logger.Info().Msg("restarting gateway")
	}
}

func runOnce(parent context.Context, logger zerolog.Logger) (bool, error) {
	cfg, err := config.LoadOrCreate(configPath)
	if errors.Is(err, config.ErrTemplateCreated) {
		logger.Warn().Str("path", configPath).Msg("settings file not found, template written; edit it and start again")
		return false, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("settings load failed")
		return false, err
	}

	endpoint, err := config.ParseConnectionString(cfg.CloudConnectionString)
	if err != nil {
		return false, err
	}
	link, err := linkOptions(cfg)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	r := &restarter{cancel: cancel}

	if cfg.MetricsAddress != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, cfg.MetricsAddress, logger); err != nil {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	gw := gateway.New(cfg, gateway.Options{
		CloudDialer: func(ctx context.Context) (cloud.Client, error) {
			logger.Info().
				Str("endpoint", endpoint.Endpoint).
				Str("device_id", endpoint.DeviceID).
				Msg("connecting to cloud")
			return cloud.Dial(ctx, cfg.CloudTransportType, endpoint, logger)
		},
		RadioOpener: func(ctx context.Context, settings radio.Settings, callbacks radio.Callbacks) (gateway.Radio, error) {
			conn, info, err := radio.OpenLink(ctx, link)
			if err != nil {
				return nil, err
			}
			logger.Info().Str("link", info).Msg("radio bridge connected")

			b := radio.NewBridge(conn, callbacks, logger)
			if err := b.Initialize(settings); err != nil {
				b.Close()
				return nil, err
			}
			return b, nil
		},
		Restarter: r,
		Logger:    logger,
	})

	runErr := gw.Run(ctx)
	restart := r.stop()
	if runErr != nil {
		return false, runErr
	}
	return restart && parent.Err() == nil, nil
}
