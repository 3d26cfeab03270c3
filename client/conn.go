// client/conn.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmp/gcs/log"
)

// Conn is the websocket channel to the vehicle gateway. Inbound frames
// are JSON text messages; outbound commands are sent as text messages.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
	lg *log.Logger
}

func Dial(ctx context.Context, url string, lg *log.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	lg.Infof("connected to %s", url)
	return &Conn{ws: ws, lg: lg}, nil
}

func (c *Conn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

// ReadLoop forwards inbound frames to out until the connection is closed
// or ctx is canceled. A normal close by the peer returns nil.
func (c *Conn) ReadLoop(ctx context.Context, out chan<- []byte) error {
	defer c.lg.CatchAndReportCrash()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	for {
		ty, msg, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.lg.Info("websocket closed; exiting reader")
				return nil
			}
			var cerr *websocket.CloseError
			if errors.As(err, &cerr) {
				return fmt.Errorf("websocket closed: %w", err)
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if ty != websocket.TextMessage && ty != websocket.BinaryMessage {
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close sends a close frame and closes the underlying connection. It may
// be called more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}
