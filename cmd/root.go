// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/fieldgate/internal/config"
)

var (
	configPath string

	// Radio bridge link overrides
	linkName        string
	baudRate        int
	linkUsername    string
	linkNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldgate",
	Short: "nRF24L01 to cloud field gateway",
	Long: `Fieldgate - A field gateway bridging nRF24L01 sensor devices to a cloud
telemetry and command channel.

Sensor readings received over the radio are published as JSON telemetry; cloud
commands (Restart, Bond, Send, Push) are translated into radio frames.

The transceiver is reached through a radio bridge on a serial port or a
WebSocket relay:
  Serial:    --link /dev/ttyUSB0 [--baud 115200]
  WebSocket: --link ws://host/path [--username user]

For WebSocket authentication, the password is read from the
FIELDGATE_LINK_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Settings file")

	rootCmd.PersistentFlags().StringVarP(&linkName, "link", "l", "", "Radio bridge serial device or ws:// URL (overrides RadioLink)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only, overrides RadioBaudRate)")
	rootCmd.PersistentFlags().StringVar(&linkUsername, "username", "", "Username for HTTP Basic auth (WebSocket link only)")
	rootCmd.PersistentFlags().BoolVar(&linkNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
