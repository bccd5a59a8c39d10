// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
	"github.com/calder-avionics/mantactl/pkg/manta"
)

var (
	setTarget  uint8
	setTimeout time.Duration
)

var setCmd = &cobra.Command{
	Use:   "set NAME VALUE",
	Short: "Write one parameter on a Manta50 controller",
	Long: `Write a single parameter and wait for the controller's echo.

NAME is a catalog parameter name (see 'mantactl params'). Integer parameters
truncate fractional input toward zero. CanSpeed additionally accepts the
bitrate labels, e.g. '500KHz->11'.

The controller echoes the written value as a broadcast log line; the command
waits for that echo to confirm the write took effect.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().Uint8VarP(&setTarget, "node", "n", 0, "Target node ID (required)")
	setCmd.Flags().DurationVar(&setTimeout, "timeout", 5*time.Second, "How long to wait for the echo")
	setCmd.MarkFlagRequired("node")
	rootCmd.AddCommand(setCmd)
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the Manta50 parameter catalog",
	Run: func(cmd *cobra.Command, args []string) {
		catalog := manta.DefaultCatalog()
		fmt.Printf("%-5s %-12s %s\n", "INDEX", "NAME", "KIND")
		for i := 0; i < catalog.Count(); i++ {
			d, _ := catalog.ByIndex(i)
			kind := "integer"
			if d.Kind == manta.Real {
				kind = "real"
			}
			fmt.Printf("%-5d %-12s %s\n", d.Index, d.Name, kind)
		}
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	// Bitrate labels are a convenience alias for the divider code.
	if name == manta.ParamCanSpeed {
		if code, ok := manta.BitrateCodeForLabel(strings.TrimSpace(value)); ok {
			value = fmt.Sprintf("%d", code)
		}
	}

	bus, connInfo, err := OpenBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	fmt.Printf("Mantactl - Parameter Write\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	controller := manta.NewController(bus, nil)
	if err := controller.SetFromText(setTarget, name, value); err != nil {
		return err
	}
	fmt.Printf("Sent %s = %s to node %d, waiting for echo...\n", name, value, setTarget)

	transfers := make(chan *dronecan.Transfer, 100)
	go receiveLoop(bus, transfers)

	deadline := time.After(setTimeout)
	for {
		select {
		case <-deadline:
			return fmt.Errorf("no echo from node %d within %s (write may still have applied)", setTarget, setTimeout)

		case t, ok := <-transfers:
			if !ok {
				return fmt.Errorf("connection closed before echo")
			}
			out, handled := handleTransfer(controller, setTarget, t)
			if !handled {
				continue
			}
			if out.Stored && out.Name == name {
				fmt.Printf("Confirmed: %s = %s\n", out.Name, out.Value)
				return nil
			}
			if out.LogLine != "" {
				fmt.Printf("[%s] %s\n", out.Level, out.LogLine)
			}
		}
	}
}
