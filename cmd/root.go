// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName   string
	baudRate   int
	canBitrate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Bus identity
	selfNodeID uint8
)

var rootCmd = &cobra.Command{
	Use:   "mantactl",
	Short: "Manta50 ESC Configuration Tool",
	Long: `Mantactl - configure and monitor Manta50 motor controllers over DroneCAN.

The Manta50 exposes its configuration through the standard param.GetSet
service, and answers each request as a broadcast debug log line. Mantactl
drives that exchange: it fetches the full parameter set, edits individual
values, and decodes the controller's diagnostic messages.

Connection modes:
  Serial (SLCAN adapter): --port /dev/ttyACM0 [--baud 115200] [--can-bitrate 1000000]
  WebSocket bridge:       --url ws://host/can [--username user]

For WebSocket authentication, the password is read from the MANTACTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the SLCAN adapter")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&canBitrate, "can-bitrate", 1000000, "CAN bus bitrate in bits/sec (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Bus identity
	rootCmd.PersistentFlags().Uint8Var(&selfNodeID, "node-id", 126, "Node ID this tool claims on the bus")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
