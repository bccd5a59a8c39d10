// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

// Package bridge connects to a remote CAN-over-WebSocket bridge. Each
// binary WebSocket message carries one CAN frame encoded as a CBOR map
// with integer keys, so bridges written in other languages stay simple.
package bridge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
)

// wireFrame is the CBOR shape of one frame on the bridge.
type wireFrame struct {
	ID   uint32 `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// EncodeFrame serializes a frame to its bridge wire form.
func EncodeFrame(f dronecan.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	data, err := cbor.Marshal(wireFrame{ID: f.ID, Data: f.Data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge frame: %w", err)
	}
	return data, nil
}

// DecodeFrame parses a bridge wire message back into a frame.
func DecodeFrame(data []byte) (dronecan.Frame, error) {
	var w wireFrame
	if err := cbor.Unmarshal(data, &w); err != nil {
		return dronecan.Frame{}, fmt.Errorf("failed to decode bridge frame: %w", err)
	}
	f := dronecan.Frame{ID: w.ID, Data: w.Data}
	if err := f.Validate(); err != nil {
		return dronecan.Frame{}, err
	}
	return f, nil
}

// Conn is a WebSocket bridge connection implementing dronecan.FrameIO.
type Conn struct {
	ws     *websocket.Conn
	closed bool
}

// Dial connects to a bridge URL (ws:// or wss://) with optional HTTP Basic
// auth. skipSSLVerify disables TLS certificate verification for wss://.
func Dial(bridgeURL, username, password string, skipSSLVerify bool) (*Conn, error) {
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ws, resp, err := dialer.DialContext(ctx, bridgeURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &Conn{ws: ws}, nil
}

// ReadFrame blocks until the next binary message and decodes it.
// Non-binary messages are skipped.
func (c *Conn) ReadFrame() (dronecan.Frame, error) {
	if c.closed {
		return dronecan.Frame{}, fmt.Errorf("bridge connection closed")
	}

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.closed = true
			return dronecan.Frame{}, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return DecodeFrame(data)
	}
}

// WriteFrame sends one frame as a binary message.
func (c *Conn) WriteFrame(f dronecan.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Close closes the WebSocket connection.
func (c *Conn) Close() error {
	c.closed = true
	return c.ws.Close()
}
