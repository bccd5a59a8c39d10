// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics
//
// Mantactl - Manta50 ESC Configuration Tool
//
// Configure and monitor Manta50 motor controllers over DroneCAN, via an
// SLCAN serial adapter or a CAN-over-WebSocket bridge.

package main

import (
	"os"

	"github.com/calder-avionics/mantactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
