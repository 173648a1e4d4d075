// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Encode or decode radio frames offline",
}

var frameEncodeCmd = &cobra.Command{
	Use:   "encode <type> <address> [payload]",
	Short: "Build a radio frame and print it as hex",
	Long: `Build a radio frame from a message type, a hex device address and a
payload, and print the frame in hex.

Type is one of echo, csv or binary (or its numeric value). For csv and echo
the payload is taken as text; for binary it is parsed as hex.

Example:
  fieldgate frame encode csv AB-CD-EF "t 21.5,h 40"`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runFrameEncode,
}

var frameDecodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a hex radio frame",
	Args:  cobra.ExactArgs(1),
	RunE:  runFrameDecode,
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.AddCommand(frameEncodeCmd)
	frameCmd.AddCommand(frameDecodeCmd)
}

func parseMessageType(s string) (rfframe.MessageType, error) {
	switch strings.ToLower(s) {
	case "echo", "0":
		return rfframe.MsgEcho, nil
	case "csv", "1":
		return rfframe.MsgDeviceIDPlusCSVSensorReadings, nil
	case "binary", "2":
		return rfframe.MsgDeviceIDPlusBinaryPayload, nil
	}
	return 0, fmt.Errorf("unknown message type %q", s)
}

func runFrameEncode(cmd *cobra.Command, args []string) error {
	msgType, err := parseMessageType(args[0])
	if err != nil {
		return err
	}
	address, err := rfframe.ParseHex(args[1])
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}

	var payload []byte
	if len(args) == 3 {
		if msgType == rfframe.MsgDeviceIDPlusBinaryPayload {
			payload, err = rfframe.ParseHex(args[2])
			if err != nil {
				return fmt.Errorf("payload: %w", err)
			}
		} else {
			payload = []byte(args[2])
		}
	}

	data, err := rfframe.EncodeFrame(msgType, address, payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rfframe.FormatHex(data))
	return nil
}

func runFrameDecode(cmd *cobra.Command, args []string) error {
	data, err := rfframe.ParseHex(args[0])
	if err != nil {
		return err
	}
	f, err := rfframe.Decode(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rfframe.FormatFrame(f))
	return nil
}
