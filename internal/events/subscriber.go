package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

type subscriber struct {
	feed *Feed
	conn *ws.Conn
	send chan []byte
}

// Handler returns an HTTP handler that upgrades connections and streams
// events until the client disconnects.
func Handler(feed *Feed, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		s := &subscriber{
			feed: feed,
			conn: conn,
			send: make(chan []byte, sendBufferSize),
		}
		s.run(r.Context())
	}
}

// run registers the subscriber, starts the write pump, and blocks reading
// until the connection closes.
func (s *subscriber) run(ctx context.Context) {
	s.feed.register(s)
	defer s.feed.unregister(s)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(ctx)

	// The feed is one-way; discard anything the client sends.
	for {
		if _, _, err := s.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
