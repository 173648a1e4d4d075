// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/fieldgate/pkg/bridge"
)

var (
	linkCheckTimeout int
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Test the bridge link by waiting for a valid bridge packet",
	Long: `Wait for a valid radio bridge packet on the link until timeout.

This command connects to a serial port or WebSocket and waits for any valid
bridge packet. It ignores invalid bytes and waits for a complete, valid packet
(passing CRC check).

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error`,
	RunE: runLinkCheck,
}

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Settings error: %v\n", err)
		os.Exit(2)
	}

	timeout := time.Duration(linkCheckTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Fieldgate - Link Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", linkCheckTimeout)
	fmt.Printf("Waiting for valid bridge packet...\n\n")

	decoder := bridge.NewDecoder()
	buf := make([]byte, 128)

	packetChan := make(chan *bridge.Packet, 1)
	errChan := make(chan error, 1)

	go func() {
		invalidBytes := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				packet, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					invalidBytes++
					continue
				}
				if packet != nil {
					if invalidBytes > 0 {
						fmt.Printf("(skipped %d invalid bytes before sync)\n", invalidBytes)
					}
					packetChan <- packet
					return
				}
			}
		}
	}()

	select {
	case packet := <-packetChan:
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  Type: %s (0x%02X)\n", bridge.FormatMessageType(packet.Type()), packet.Type())
		fmt.Printf("  Length: %d bytes\n", packet.Length())
		fmt.Printf("  CRC: 0x%04X\n", packet.CRC())
		for _, v := range bridge.ValidatePacket(packet) {
			fmt.Printf("  Warning: %s\n", v.Message)
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", linkCheckTimeout)
		os.Exit(1)
	}

	return nil
}
