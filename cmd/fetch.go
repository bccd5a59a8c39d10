// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
	"github.com/calder-avionics/mantactl/pkg/manta"
)

var (
	fetchTarget  uint8
	fetchTimeout time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all parameters from a Manta50 controller",
	Long: `Fetch the full parameter set from one controller and print it.

Parameters are requested one per second; the controller answers each request
as a broadcast debug log line, which is decoded and collected. The command
exits when every parameter has been received or the timeout expires.

Supports both serial SLCAN and WebSocket bridge connections.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Uint8VarP(&fetchTarget, "node", "n", 0, "Target node ID (required)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "Give up after this long")
	fetchCmd.MarkFlagRequired("node")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	bus, connInfo, err := OpenBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	fmt.Printf("Mantactl - Parameter Fetch\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Target: node %d\n\n", fetchTarget)

	controller := manta.NewController(bus, nil)
	controller.StartFetch(fetchTarget)

	transfers := make(chan *dronecan.Transfer, 100)
	go receiveLoop(bus, transfers)

	ticker := time.NewTicker(manta.FetchInterval)
	defer ticker.Stop()
	deadline := time.After(fetchTimeout)

	for {
		select {
		case <-deadline:
			printStore(controller)
			return fmt.Errorf("timed out with %d of %d parameters",
				controller.Store().Len(), controller.Catalog().Count())

		case <-ticker.C:
			if err := controller.Tick(); err != nil {
				fmt.Printf("[ERROR] %v\n", err)
			}

		case t, ok := <-transfers:
			if !ok {
				return fmt.Errorf("connection closed with %d of %d parameters",
					controller.Store().Len(), controller.Catalog().Count())
			}
			out, handled := handleTransfer(controller, fetchTarget, t)
			if !handled {
				continue
			}
			if out.Stored {
				fmt.Printf("  %-11s = %s\n", out.Name, out.Value)
			} else if out.LogLine != "" {
				fmt.Printf("[%s] %s\n", out.Level, out.LogLine)
			}
			if out.Complete {
				fmt.Println()
				printStore(controller)
				return nil
			}
		}
	}
}

// receiveLoop feeds assembled transfers into ch until the transport dies.
func receiveLoop(bus *dronecan.Bus, ch chan<- *dronecan.Transfer) {
	defer close(ch)
	consecutiveErrors := 0
	for {
		t, err := bus.Receive()
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= 10 {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		consecutiveErrors = 0
		if t != nil {
			ch <- t
		}
	}
}

// handleTransfer folds one transfer into the controller if it is a log
// message from the target node.
func handleTransfer(controller *manta.Controller, target uint8, t *dronecan.Transfer) (manta.Outcome, bool) {
	if t.Header.IsService || t.Header.DataTypeID != dronecan.TypeLogMessage {
		return manta.Outcome{}, false
	}
	if t.Header.Source != target {
		return manta.Outcome{}, false
	}
	msg, err := dronecan.ParseLogMessage(t.Payload)
	if err != nil {
		return manta.Outcome{}, false
	}
	return controller.HandleLogMessage(msg), true
}

func printStore(controller *manta.Controller) {
	snapshot := manta.Reflect(controller.Store())
	fmt.Printf("%-12s %-14s %s\n", "PARAMETER", "VALUE", "DECODED")
	for _, e := range controller.Store().Entries() {
		decoded := ""
		switch e.Name {
		case manta.ParamCanSpeed:
			decoded = snapshot.CanSpeed
		case manta.ParamCtrlWord:
			decoded = snapshot.CtrlWord.String()
		}
		fmt.Printf("%-12s %-14s %s\n", e.Name, e.Value, decoded)
	}
}
