package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fitnessuom/ephit-mental-health/internal/gateway"
	"github.com/fitnessuom/ephit-mental-health/internal/observe"
	"github.com/fitnessuom/ephit-mental-health/internal/stream"
)

// Greeting is the assistant message every new session opens with.
const Greeting = "Hi, I'm ePhit Coach—your personal health coach here to help you achieve your ideal day, every day—one step at a time."

// Apology texts shown in place of an assistant answer when a turn fails.
const (
	apologyRateLimited = "Rate limit exceeded. Please wait a moment and try again."
	apologyUnavailable = "Service temporarily unavailable. Please try again later."
	apologyGeneric     = "Sorry, I encountered an error. Please try again."
)

var (
	// ErrTurnActive is returned by [Session.Submit] while a previous turn
	// is still streaming. Turns are strictly sequential per session.
	ErrTurnActive = errors.New("chat: a turn is already in progress")

	// ErrEmptyMessage is returned when a submission is blank.
	ErrEmptyMessage = errors.New("chat: message must not be empty")
)

// Producer opens a streaming completion for the conversation so far. The
// returned body carries `data:`-framed event-stream lines and is owned by
// the caller.
type Producer interface {
	Open(ctx context.Context, history []gateway.Message) (io.ReadCloser, error)
}

// Snapshot is an immutable view of a session handed to the notify callback
// after every visible change.
type Snapshot struct {
	// Messages is the full transcript, oldest first.
	Messages []Message

	// Awaiting reports whether a turn is currently in flight.
	Awaiting bool
}

// Session owns one conversation: the transcript, the single-turn-at-a-time
// gate, and the streaming loop that grows the assistant reply as frames
// arrive. All methods are safe for concurrent use.
type Session struct {
	producer    Producer
	linker      *Linker
	notify      func(Snapshot)
	logger      *slog.Logger
	metrics     *observe.Metrics
	turnTimeout time.Duration

	mu       sync.Mutex
	messages []Message
	awaiting bool
}

// SessionOption is a functional option for [NewSession].
type SessionOption func(*Session)

// WithNotify registers a callback invoked with a fresh [Snapshot] after
// every transcript change. The callback runs on the submitting goroutine
// and must not call back into the session.
func WithNotify(fn func(Snapshot)) SessionOption {
	return func(s *Session) {
		s.notify = fn
	}
}

// WithLogger sets the session's structured logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics sets the metrics instance used for turn instrumentation.
func WithMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTurnTimeout caps how long a single turn may stream before it is
// aborted, keeping whatever partial text arrived. Zero means no cap.
func WithTurnTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.turnTimeout = d
	}
}

// NewSession creates a session pre-seeded with the coach greeting.
func NewSession(producer Producer, linker *Linker, opts ...SessionOption) *Session {
	s := &Session{
		producer: producer,
		linker:   linker,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.messages = append(s.messages, newMessage(RoleAssistant, Greeting))
	return s
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Awaiting reports whether a turn is in flight.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// Submit runs one full turn: it appends the user message, streams the
// assistant reply, and returns once the turn has settled. It returns
// [ErrTurnActive] if a previous turn is still streaming and
// [ErrEmptyMessage] for blank input; streaming failures settle the turn
// with an apology message instead of surfacing an error.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return ErrTurnActive
	}
	s.awaiting = true
	s.messages = append(s.messages, newMessage(RoleUser, text))
	history := s.historyLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	start := time.Now()
	outcome := s.runTurn(ctx, history)

	s.mu.Lock()
	s.awaiting = false
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	s.metrics.RecordTurn(context.WithoutCancel(ctx), time.Since(start).Seconds(), outcome)
	return nil
}

// runTurn opens the producer stream and folds its frames into a growing
// assistant message. It returns the turn outcome label for metrics.
func (s *Session) runTurn(ctx context.Context, history []gateway.Message) string {
	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	body, err := s.producer.Open(ctx, history)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "turn aborted before streaming", "error", ctx.Err())
			return "aborted"
		}
		s.logger.ErrorContext(ctx, "opening assistant stream failed", "error", err)
		s.metrics.RecordGatewayError(context.WithoutCancel(ctx), reasonFor(err))
		s.appendAssistant(apologyFor(err))
		return "errored"
	}
	defer body.Close()
	s.metrics.RecordGatewayRequest(ctx, "ok")

	// assistantAt is the transcript index of this turn's assistant
	// message, -1 until the first content frame arrives.
	assistantAt := -1
	acc := NewAccumulator(func(full string) {
		s.mu.Lock()
		if assistantAt < 0 {
			assistantAt = len(s.messages)
			s.messages = append(s.messages, newMessage(RoleAssistant, ""))
		}
		s.messages[assistantAt].Content = full
		s.messages[assistantAt].Videos = s.linker.Link(full, DefaultMaxLinks)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(snap)
	})

	dec := stream.NewDecoder()
	seenMalformed := 0
	done := false
	consume := func(frames []stream.Frame) {
		for _, f := range frames {
			if done {
				// The reply is terminal; anything after the done
				// frame is discarded.
				break
			}
			if f.Done {
				s.metrics.RecordFrame(ctx, observe.FrameDone)
				done = true
				continue
			}
			s.metrics.RecordFrame(ctx, observe.FrameContent)
			acc.Append(f.Content)
		}
		for ; seenMalformed < dec.Malformed(); seenMalformed++ {
			s.metrics.RecordFrame(ctx, observe.FrameMalformed)
			s.logger.DebugContext(ctx, "discarded malformed stream line")
		}
	}

	buf := make([]byte, 4096)
	for !done {
		n, rerr := body.Read(buf)
		if n > 0 {
			consume(dec.Feed(buf[:n]))
		}
		if rerr == io.EOF {
			consume(dec.Finish())
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				// Torn down mid-turn: keep whatever partial text
				// arrived and go quiet.
				s.logger.InfoContext(ctx, "turn aborted mid-stream", "error", ctx.Err())
				return "aborted"
			}
			s.logger.ErrorContext(ctx, "reading assistant stream failed", "error", rerr)
			s.metrics.RecordGatewayError(context.WithoutCancel(ctx), reasonFor(rerr))
			s.failTurn(assistantAt, apologyFor(rerr))
			return "errored"
		}
	}

	s.mu.Lock()
	var linked int
	if assistantAt >= 0 {
		linked = len(s.messages[assistantAt].Videos)
	}
	s.mu.Unlock()
	if linked > 0 {
		s.metrics.LinkedVideos.Add(ctx, int64(linked))
	}
	return "settled"
}

// appendAssistant adds a complete assistant message and notifies.
func (s *Session) appendAssistant(text string) {
	s.mu.Lock()
	s.messages = append(s.messages, newMessage(RoleAssistant, text))
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// failTurn settles an errored turn with the apology text: the in-progress
// assistant message at index at is overwritten (partial text and links
// included), or a fresh one is appended when no content had arrived yet.
func (s *Session) failTurn(at int, text string) {
	s.mu.Lock()
	if at >= 0 {
		s.messages[at].Content = text
		s.messages[at].Videos = nil
	} else {
		s.messages = append(s.messages, newMessage(RoleAssistant, text))
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// historyLocked renders the transcript in the gateway wire shape. Caller
// must hold s.mu.
func (s *Session) historyLocked() []gateway.Message {
	out := make([]gateway.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, gateway.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// snapshotLocked copies the transcript for handing out. Caller must hold
// s.mu.
func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{Messages: msgs, Awaiting: s.awaiting}
}

func (s *Session) publish(snap Snapshot) {
	if s.notify != nil {
		s.notify(snap)
	}
}

// apologyFor maps a turn failure to the user-facing apology text.
func apologyFor(err error) string {
	var serr *gateway.StatusError
	if errors.As(err, &serr) {
		switch serr.Code {
		case http.StatusTooManyRequests:
			return apologyRateLimited
		case http.StatusPaymentRequired:
			return apologyUnavailable
		}
	}
	return apologyGeneric
}

// reasonFor maps a turn failure to a low-cardinality metric label.
func reasonFor(err error) string {
	var serr *gateway.StatusError
	switch {
	case errors.As(err, &serr):
		switch serr.Code {
		case http.StatusTooManyRequests:
			return "rate_limited"
		case http.StatusPaymentRequired:
			return "billing"
		default:
			return "status"
		}
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}
