// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Interactive TUI for configuring Manta50 controllers",
	Long: `Configure Manta50 motor controllers via an interactive terminal UI.

The panel listens for NodeStatus broadcasts to find controllers on the bus,
then fetches the full parameter set from a selected node one request per
second. Parameter values arrive as broadcast debug log lines and are decoded
into the parameter table. Individual values can be edited and written back;
writes are held briefly after the last keystroke before being sent.

Diagnostic log messages from the controller are shown with their numeric
state and error codes translated to names.

Tab switches between the node list and the parameter table. Enter on a node
starts a fetch; Enter on a parameter edits it.

Supports both serial SLCAN and WebSocket bridge connections.`,
	RunE: runPanel,
}

func init() {
	rootCmd.AddCommand(panelCmd)
}

// busManager handles bus lifecycle and reconnection
type busManager struct {
	bus      *dronecan.Bus
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (bm *busManager) getBus() *dronecan.Bus {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.bus
}

func (bm *busManager) setBus(bus *dronecan.Bus, connInfo string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.bus = bus
	bm.connInfo = connInfo
}

func runPanel(cmd *cobra.Command, args []string) error {
	bus, connInfo, err := OpenBus()
	if err != nil {
		return err
	}

	bm := &busManager{
		bus:      bus,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialPanelModel(bm, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	bm.p = p

	go bm.readerLoop()

	if _, err := p.Run(); err != nil {
		close(bm.done)
		bm.getBus().Close()
		return fmt.Errorf("TUI error: %v", err)
	}

	close(bm.done)
	bm.getBus().Close()
	return nil
}

// readerLoop handles reading from the bus with automatic reconnection
func (bm *busManager) readerLoop() {
	for {
		select {
		case <-bm.done:
			return
		default:
		}

		busLost := bm.readFromBus()

		if busLost {
			bm.p.Send(busLostMsg{})

			if !bm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// readFromBus reads transfers from the bus until the transport fails.
// Returns true if the connection was lost, false if shutdown was requested.
func (bm *busManager) readFromBus() bool {
	// Buffered channel for batching updates
	batchChan := make(chan panelDataMsg, 100)
	readerDone := make(chan struct{})

	// Reader goroutine - assembles transfers and sends to batch channel
	go func() {
		defer close(readerDone)

		// Decode errors (bad SLCAN lines, CRC failures) recover on the
		// next frame; only an unbroken run of errors means the transport
		// itself is gone.
		consecutiveErrors := 0

		for {
			select {
			case <-bm.done:
				return
			default:
			}

			bus := bm.getBus()
			if bus == nil {
				return
			}

			transfer, err := bus.Receive()
			if err != nil {
				consecutiveErrors++
				if consecutiveErrors >= 10 {
					return
				}
				select {
				case batchChan <- panelDataMsg{err: err}:
				default:
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			consecutiveErrors = 0

			if transfer == nil {
				continue // mid-transfer frame or unregistered type
			}
			select {
			case batchChan <- panelDataMsg{transfer: transfer}:
			default:
			}
		}
	}()

	// Batch sender goroutine - sends batched updates to the TUI at a fixed rate
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-bm.done:
				return
			case <-readerDone:
				return
			case <-ticker.C:
				var batch panelBatchMsg

			drainLoop:
				for {
					select {
					case msg := <-batchChan:
						batch.messages = append(batch.messages, msg)
					default:
						break drainLoop
					}
				}

				if len(batch.messages) > 0 {
					bm.p.Send(batch)
				}
			}
		}
	}()

	<-readerDone

	select {
	case <-bm.done:
		return false
	default:
		return true // Connection lost
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (bm *busManager) reconnect() bool {
	if bus := bm.getBus(); bus != nil {
		bus.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-bm.done:
			return false
		case <-time.After(backoff):
		}

		bus, connInfo, err := OpenBus()
		if err == nil {
			bm.setBus(bus, connInfo)
			bm.p.Send(busReconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
