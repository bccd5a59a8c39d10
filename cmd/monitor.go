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
	monitorDuration time.Duration
	monitorStats    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display decoded DroneCAN traffic in human-readable format",
	Long: `Continuously decode and display bus traffic as it arrives.

NodeStatus broadcasts, debug log messages (with Manta50 state and error
codes translated to names) and param.GetSet traffic are shown with
timestamps. Reassembly errors are reported inline.

Supports both serial SLCAN and WebSocket bridge connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVarP(&monitorDuration, "duration", "d", 0, "Stop after this long (0 = run until Ctrl+C)")
	monitorCmd.Flags().BoolVar(&monitorStats, "stats", true, "Print a statistics summary on exit")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	bus, connInfo, err := OpenBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	fmt.Printf("Mantactl - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := dronecan.NewStatistics()
	enums := manta.NewEnumDecoder()
	registry := dronecan.NewRegistry()

	var deadline <-chan time.Time
	if monitorDuration > 0 {
		deadline = time.After(monitorDuration)
	}

	transfers := make(chan *dronecan.Transfer, 100)
	errs := make(chan error, 100)
	go func() {
		defer close(transfers)
		consecutiveErrors := 0
		for {
			t, err := bus.Receive()
			if err != nil {
				consecutiveErrors++
				if consecutiveErrors >= 10 {
					return
				}
				select {
				case errs <- err:
				default:
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			consecutiveErrors = 0
			if t != nil {
				select {
				case transfers <- t:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-deadline:
			if monitorStats {
				fmt.Print("\n" + stats.String())
			}
			return nil

		case err := <-errs:
			stats.Update(nil, err)
			fmt.Printf("[ERROR] %v\n", err)

		case t, ok := <-transfers:
			if !ok {
				if monitorStats {
					fmt.Print("\n" + stats.String())
				}
				return fmt.Errorf("connection closed")
			}
			stats.Update(t, nil)
			printTransfer(t, enums, registry)
		}
	}
}

func printTransfer(t *dronecan.Transfer, enums *manta.EnumDecoder, registry *dronecan.Registry) {
	timestamp := t.Timestamp.Format("15:04:05.000")

	if t.Header.IsService {
		direction := "resp"
		if t.Header.IsRequest {
			direction = "req"
		}
		if t.Header.DataTypeID == dronecan.ServiceParamGetSet && t.Header.IsRequest {
			if req, err := dronecan.DecodeGetSetRequest(t.Payload); err == nil {
				fmt.Printf("[%s] %3d->%3d GetSet %s index=%d tag=%d\n",
					timestamp, t.Header.Source, t.Header.Dest, direction, req.Index, req.Value.Tag)
				return
			}
		}
		fmt.Printf("[%s] %3d->%3d service %d %s (%d bytes)\n",
			timestamp, t.Header.Source, t.Header.Dest, t.Header.DataTypeID, direction, len(t.Payload))
		return
	}

	switch t.Header.DataTypeID {
	case dronecan.TypeNodeStatus:
		status, err := dronecan.ParseNodeStatus(t.Payload)
		if err != nil {
			fmt.Printf("[%s] %3d NodeStatus decode error: %v\n", timestamp, t.Header.Source, err)
			return
		}
		// Announce each node once; the periodic broadcasts are noise.
		if registry.ObserveStatus(t.Header.Source, status) {
			fmt.Printf("[%s] %3d NodeStatus %s/%s up %ds\n",
				timestamp, t.Header.Source, status.Health, status.Mode, status.UptimeSec)
		}

	case dronecan.TypeLogMessage:
		msg, err := dronecan.ParseLogMessage(t.Payload)
		if err != nil {
			fmt.Printf("[%s] %3d LogMessage decode error: %v\n", timestamp, t.Header.Source, err)
			return
		}
		fmt.Printf("[%s] %3d %s %s: %s\n",
			timestamp, t.Header.Source, msg.Level, msg.Source, enums.Decode(msg.Text))

	default:
		fmt.Printf("[%s] %3d type %d (%d bytes)\n",
			timestamp, t.Header.Source, t.Header.DataTypeID, len(t.Payload))
	}
}
