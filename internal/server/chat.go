package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
	"github.com/fitnessuom/ephit-mental-health/internal/chat"
	"github.com/fitnessuom/ephit-mental-health/internal/gateway"
	"github.com/fitnessuom/ephit-mental-health/internal/observe"
	"github.com/fitnessuom/ephit-mental-health/internal/stream"
)

// chatRequest is the stateless chat proxy request: the client carries the
// conversation and sends it whole on every turn.
type chatRequest struct {
	Messages []gateway.Message `json:"messages"`
}

// deltaEvent is one streamed content increment.
type deltaEvent struct {
	Delta string `json:"delta"`
}

// doneEvent closes a streamed turn, carrying the videos linked from the
// final text.
type doneEvent struct {
	Done   bool            `json:"done"`
	Videos []catalog.Video `json:"videos"`
}

// handleChatStream proxies one chat turn as an event stream: the upstream
// reply is decoded, re-framed as delta events, and closed with a done event
// listing the linked videos.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.producer == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	ctx := r.Context()
	body, err := s.producer.Open(ctx, req.Messages)
	if err != nil {
		s.metrics.RecordGatewayError(ctx, "open")
		var serr *gateway.StatusError
		if errors.As(err, &serr) {
			// Pass rate-limit and billing statuses through so the client
			// can show the matching apology.
			writeError(w, serr.Code, serr.Message)
			return
		}
		s.logger.ErrorContext(ctx, "opening assistant stream failed", "error", err)
		writeError(w, http.StatusBadGateway, "assistant is unavailable")
		return
	}
	defer body.Close()
	s.metrics.RecordGatewayRequest(ctx, "ok")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	acc := chat.NewAccumulator(nil)
	dec := stream.NewDecoder()
	seenMalformed := 0
	done := false

	emit := func(frames []stream.Frame) {
		for _, f := range frames {
			if done {
				// The reply is terminal; drop anything after the
				// done frame.
				break
			}
			if f.Done {
				s.metrics.RecordFrame(ctx, observe.FrameDone)
				done = true
				continue
			}
			s.metrics.RecordFrame(ctx, observe.FrameContent)
			acc.Append(f.Content)
			writeEvent(w, deltaEvent{Delta: f.Content})
			rc.Flush()
		}
		for ; seenMalformed < dec.Malformed(); seenMalformed++ {
			s.metrics.RecordFrame(ctx, observe.FrameMalformed)
		}
	}

	buf := make([]byte, 4096)
	for !done {
		n, rerr := body.Read(buf)
		if n > 0 {
			emit(dec.Feed(buf[:n]))
		}
		if rerr == io.EOF {
			emit(dec.Finish())
			break
		}
		if rerr != nil {
			// Headers are gone; the best we can do is stop. The client
			// treats a stream that ends without a done event as errored.
			s.logger.ErrorContext(ctx, "reading assistant stream failed", "error", rerr)
			return
		}
	}

	videos := s.linker.Link(acc.Value(), s.maxLinks)
	if videos == nil {
		videos = []catalog.Video{}
	}
	writeEvent(w, doneEvent{Done: true, Videos: videos})
	fmt.Fprint(w, "data: [DONE]\n\n")
	rc.Flush()
}

// writeEvent writes one `data:` line in the event-stream framing.
func writeEvent(w io.Writer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}
