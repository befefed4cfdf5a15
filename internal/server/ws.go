package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/fitnessuom/ephit-mental-health/internal/chat"
)

// wsInbound is a client-to-server websocket message.
type wsInbound struct {
	// Type is "message" (submit a turn). A client starts over by
	// reconnecting.
	Type string `json:"type"`

	// Text is the user's message for type "message".
	Text string `json:"text"`
}

// wsOutbound is a server-to-client websocket message.
type wsOutbound struct {
	// Type is "snapshot" or "error".
	Type string `json:"type"`

	// Messages and Awaiting mirror [chat.Snapshot] for type "snapshot".
	Messages []chat.Message `json:"messages,omitempty"`
	Awaiting bool           `json:"awaiting,omitempty"`

	// Error holds the failure description for type "error".
	Error string `json:"error,omitempty"`
}

// handleChatSocket serves a stateful chat conversation over a websocket.
// Each connection owns one [chat.Session]; the server pushes a full
// transcript snapshot after every visible change, so the client renders
// state rather than patching deltas.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	if s.producer == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.metrics.ActiveChatSessions.Add(ctx, 1)
	defer s.metrics.ActiveChatSessions.Add(context.WithoutCancel(ctx), -1)

	// Latest-wins snapshot handoff: a stale snapshot is superseded by the
	// next one, so dropping it is safe.
	snapshots := make(chan chat.Snapshot, 1)
	notify := func(snap chat.Snapshot) {
		for {
			select {
			case snapshots <- snap:
				return
			default:
				select {
				case <-snapshots:
				default:
				}
			}
		}
	}
	errs := make(chan string, 4)

	session := chat.NewSession(s.producer, s.linker,
		chat.WithNotify(notify),
		chat.WithLogger(s.logger),
		chat.WithMetrics(s.metrics),
		chat.WithTurnTimeout(s.turnTimeout),
	)

	// Single writer goroutine; wsjson does not allow concurrent writes.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				out := wsOutbound{Type: "snapshot", Messages: snap.Messages, Awaiting: snap.Awaiting}
				if err := wsjson.Write(ctx, conn, out); err != nil {
					cancel()
					return
				}
			case msg := <-errs:
				if err := wsjson.Write(ctx, conn, wsOutbound{Type: "error", Error: msg}); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Push the greeting before the first user message.
	notify(chat.Snapshot{Messages: session.Messages()})

	for {
		var in wsInbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return
			}
			s.logger.DebugContext(ctx, "websocket closed", "error", err)
			return
		}

		if in.Type != "message" {
			errs <- "unknown message type: " + in.Type
			continue
		}

		// Submit blocks for the whole turn; run it off the read loop so a
		// concurrent submission is answered immediately.
		go func(text string) {
			switch err := session.Submit(ctx, text); {
			case err == nil:
			case errors.Is(err, chat.ErrTurnActive):
				errs <- "a turn is already in progress"
			case errors.Is(err, chat.ErrEmptyMessage):
				errs <- "message must not be empty"
			default:
				errs <- "submitting message failed"
			}
		}(in.Text)
	}
}
