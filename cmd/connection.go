// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Riley Calder, Calder Avionics

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/calder-avionics/mantactl/pkg/bridge"
	"github.com/calder-avionics/mantactl/pkg/dronecan"
	"github.com/calder-avionics/mantactl/pkg/slcan"
)

// OpenSerialFrameIO opens an SLCAN adapter on a serial port and configures
// it for the given CAN bitrate.
func OpenSerialFrameIO(portName string, baudRate, canBitrate int) (dronecan.FrameIO, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	conn, err := slcan.Open(port, canBitrate)
	if err != nil {
		port.Close()
		return nil, err
	}
	return conn, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("MANTACTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenFrameIO opens either a serial SLCAN or WebSocket bridge transport
// based on flags.
func OpenFrameIO() (dronecan.FrameIO, string, error) {
	if wsURL != "" {
		// WebSocket bridge mode
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := bridge.Dial(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Bridge: %s", wsURL), nil
	}

	if portName != "" {
		// Serial SLCAN mode
		conn, err := OpenSerialFrameIO(portName, baudRate, canBitrate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud, CAN %d bit/s", portName, baudRate, canBitrate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// OpenBus opens the configured transport and binds it to a DroneCAN bus.
func OpenBus() (*dronecan.Bus, string, error) {
	io, info, err := OpenFrameIO()
	if err != nil {
		return nil, "", err
	}
	return dronecan.NewBus(io, selfNodeID), info, nil
}
