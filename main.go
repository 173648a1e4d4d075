// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Fieldgate - nRF24L01 Sensor Field Gateway
//
// Bridges battery powered nRF24L01 sensor nodes to a cloud messaging
// endpoint: sensor readings go up as telemetry, cloud commands come down as
// radio transmissions.

package main

import (
	"os"

	"github.com/Thermoquad/fieldgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
