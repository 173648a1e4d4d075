// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/fieldgate/internal/radio"
	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

var rawLogStatsInterval time.Duration

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display received radio frames in human-readable format",
	Long: `Configure the radio bridge from the settings file and continuously decode
and display the sensor frames it receives.

Nothing is forwarded to the cloud. A statistics summary is printed every
--stats-interval (0 disables it) and once more on exit.

Supports both serial and WebSocket bridge links.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().DurationVar(&rawLogStatsInterval, "stats-interval", 30*time.Second, "Interval between statistics summaries")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Fieldgate - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	var mu sync.Mutex
	stats := rfframe.NewStatistics()

	b := radio.NewBridge(conn, radio.Callbacks{
		Received: func(data []byte) {
			f, err := rfframe.Decode(data)

			mu.Lock()
			stats.Update(f, err)
			mu.Unlock()

			if err != nil {
				fmt.Printf("[ERROR] %v (%s)\n", err, rfframe.FormatHex(data))
				return
			}
			fmt.Print(rfframe.FormatFrame(f))
		},
	}, zerolog.New(os.Stderr).With().Timestamp().Logger())
	defer b.Close()

	if err := b.Initialize(radio.SettingsFromConfig(cfg)); err != nil {
		return err
	}

	printStats := func() {
		mu.Lock()
		defer mu.Unlock()
		stats.CalculateRates()
		fmt.Print(stats.String())
	}

	var tick <-chan time.Time
	if rawLogStatsInterval > 0 {
		ticker := time.NewTicker(rawLogStatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			printStats()
			return nil
		case <-b.Done():
			printStats()
			fmt.Println("Connection closed")
			return nil
		case <-tick:
			printStats()
		}
	}
}
