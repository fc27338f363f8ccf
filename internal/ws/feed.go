// Package ws consumes the editor host's websocket event push. The host
// broadcasts JSON frames of the form {"type": "<event name>", "data": {...}}
// to every connected client; the feed forwards the frames the relay cares
// about onto the event bus.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/bus"
	"github.com/promptkit/textbatch/pkg/event"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// frame is one host push message.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Feed is a websocket client attached to the host's event push endpoint.
type Feed struct {
	conn     *websocket.Conn
	bus      bus.Bus
	subjects map[string]bool
	logger   *zap.Logger
}

// Dial connects to the host's websocket endpoint and returns a feed that
// forwards the given subjects to the bus.
func Dial(ctx context.Context, url string, b bus.Bus, subjects []string, logger *zap.Logger) (*Feed, error) {
	if url == "" {
		return nil, fmt.Errorf("websocket URL is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host websocket: %w", err)
	}

	wanted := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		wanted[s] = true
	}

	return &Feed{
		conn:     conn,
		bus:      b,
		subjects: wanted,
		logger:   logger,
	}, nil
}

// Run pumps host frames onto the bus until the connection drops or the
// context is cancelled. It blocks; run it on its own goroutine.
func (f *Feed) Run(ctx context.Context) error {
	defer f.conn.Close()

	_ = f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go f.pingLoop(ctx, done)
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("host websocket read: %w", err)
		}

		var fr frame
		if err := json.Unmarshal(data, &fr); err != nil {
			f.logger.Warn("Dropping unparsable host frame", zap.Error(err))
			continue
		}
		if !f.subjects[fr.Type] {
			continue
		}

		ev := event.FromHostPayload(fr.Type, fr.Data)
		if err := f.bus.Publish(ctx, ev); err != nil {
			f.logger.Error("Error forwarding host event",
				zap.String("subject", fr.Type), zap.Error(err))
		}
	}
}

// pingLoop keeps the connection alive; the host drops silent clients.
func (f *Feed) pingLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// ReadMessage only notices cancellation through a closed
			// connection; close it so Run unblocks promptly.
			_ = f.conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			if err := f.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the underlying connection.
func (f *Feed) Close() error {
	return f.conn.Close()
}
