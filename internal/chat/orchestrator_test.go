package chat_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fitnessuom/ephit-mental-health/internal/chat"
	"github.com/fitnessuom/ephit-mental-health/internal/gateway"
)

// scriptProducer returns a canned stream body (or error) and records the
// history of every open.
type scriptProducer struct {
	body string
	err  error

	mu     sync.Mutex
	opened [][]gateway.Message
}

func (p *scriptProducer) Open(_ context.Context, history []gateway.Message) (io.ReadCloser, error) {
	p.mu.Lock()
	p.opened = append(p.opened, history)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return io.NopCloser(strings.NewReader(p.body)), nil
}

func deltaLine(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n", content)
}

func chunkBody(deltas ...string) string {
	var b strings.Builder
	for _, d := range deltas {
		b.WriteString(deltaLine(d))
	}
	b.WriteString("data: [DONE]\n")
	return b.String()
}

func TestNewSession_OpensWithGreeting(t *testing.T) {
	t.Parallel()
	s := chat.NewSession(&scriptProducer{}, chat.NewLinker(testCatalog(t)))

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != chat.RoleAssistant {
		t.Errorf("greeting role = %q, want assistant", msgs[0].Role)
	}
	if msgs[0].Content != chat.Greeting {
		t.Errorf("greeting = %q", msgs[0].Content)
	}
	if s.Awaiting() {
		t.Error("new session should not be awaiting")
	}
}

func TestSubmit_StreamsReplyAndLinksVideos(t *testing.T) {
	t.Parallel()
	producer := &scriptProducer{body: chunkBody("Try the ", "5 min reset", " today.")}

	var snapshots []chat.Snapshot
	s := chat.NewSession(producer, chat.NewLinker(testCatalog(t)),
		chat.WithNotify(func(snap chat.Snapshot) {
			snapshots = append(snapshots, snap)
		}),
	)

	if err := s.Submit(context.Background(), "I need a quick break"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting+user+assistant", len(msgs))
	}
	if msgs[1].Role != chat.RoleUser || msgs[1].Content != "I need a quick break" {
		t.Errorf("user message = %+v", msgs[1])
	}

	reply := msgs[2]
	if reply.Role != chat.RoleAssistant {
		t.Fatalf("reply role = %q, want assistant", reply.Role)
	}
	if reply.Content != "Try the 5 min reset today." {
		t.Errorf("reply content = %q", reply.Content)
	}
	if len(reply.Videos) != 1 || reply.Videos[0].Name != "5 min reset" {
		t.Errorf("linked videos = %v, want [5 min reset]", linkedNames(reply.Videos))
	}

	// The first snapshot carries the pending user message; the last one is
	// the settled turn.
	if len(snapshots) < 2 {
		t.Fatalf("got %d snapshots, want at least 2", len(snapshots))
	}
	if !snapshots[0].Awaiting {
		t.Error("first snapshot should be awaiting")
	}
	last := snapshots[len(snapshots)-1]
	if last.Awaiting {
		t.Error("final snapshot should not be awaiting")
	}

	// Intermediate snapshots grow monotonically: every assistant content is
	// a prefix of the final text.
	for i, snap := range snapshots {
		if len(snap.Messages) < 3 {
			continue
		}
		if !strings.HasPrefix(reply.Content, snap.Messages[2].Content) {
			t.Errorf("snapshot[%d] content %q is not a prefix of %q", i, snap.Messages[2].Content, reply.Content)
		}
	}
}

func TestSubmit_SendsFullHistoryToProducer(t *testing.T) {
	t.Parallel()
	producer := &scriptProducer{body: chunkBody("ok")}
	s := chat.NewSession(producer, chat.NewLinker(testCatalog(t)))

	if err := s.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if len(producer.opened) != 1 {
		t.Fatalf("producer opened %d times, want 1", len(producer.opened))
	}
	history := producer.opened[0]
	if len(history) != 2 {
		t.Fatalf("history has %d messages, want greeting+user", len(history))
	}
	if history[0].Role != "assistant" || history[0].Content != chat.Greeting {
		t.Errorf("history[0] = %+v, want the greeting", history[0])
	}
	if history[1].Role != "user" || history[1].Content != "hello" {
		t.Errorf("history[1] = %+v, want the user message", history[1])
	}
}

func TestSubmit_ApologiesByStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rate limited",
			err:  &gateway.StatusError{Code: 429},
			want: "Rate limit exceeded. Please wait a moment and try again.",
		},
		{
			name: "billing",
			err:  &gateway.StatusError{Code: 402},
			want: "Service temporarily unavailable. Please try again later.",
		},
		{
			name: "generic",
			err:  errors.New("connection reset"),
			want: "Sorry, I encountered an error. Please try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := chat.NewSession(&scriptProducer{err: tt.err}, chat.NewLinker(testCatalog(t)))

			if err := s.Submit(context.Background(), "hi"); err != nil {
				t.Fatalf("Submit() error: %v", err)
			}

			msgs := s.Messages()
			reply := msgs[len(msgs)-1]
			if reply.Role != chat.RoleAssistant {
				t.Fatalf("last message role = %q, want assistant", reply.Role)
			}
			if reply.Content != tt.want {
				t.Errorf("apology = %q, want %q", reply.Content, tt.want)
			}
			if s.Awaiting() {
				t.Error("session should have settled")
			}
		})
	}
}

func TestSubmit_EmptyMessageRejected(t *testing.T) {
	t.Parallel()
	s := chat.NewSession(&scriptProducer{}, chat.NewLinker(testCatalog(t)))

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := s.Submit(context.Background(), text); !errors.Is(err, chat.ErrEmptyMessage) {
			t.Errorf("Submit(%q) = %v, want ErrEmptyMessage", text, err)
		}
	}
	if len(s.Messages()) != 1 {
		t.Error("rejected submissions must not grow the transcript")
	}
}

// faultyBody streams its prefix, then fails with err instead of EOF.
type faultyBody struct {
	r   io.Reader
	err error
}

func (b *faultyBody) Read(p []byte) (int, error) {
	n, rerr := b.r.Read(p)
	if rerr == io.EOF {
		return n, b.err
	}
	return n, rerr
}

func (b *faultyBody) Close() error { return nil }

// bodyProducer hands out a fixed stream body.
type bodyProducer struct{ body io.ReadCloser }

func (p *bodyProducer) Open(context.Context, []gateway.Message) (io.ReadCloser, error) {
	return p.body, nil
}

func TestSubmit_MidStreamFailureReplacesPartialWithApology(t *testing.T) {
	t.Parallel()
	producer := &bodyProducer{body: &faultyBody{
		r:   strings.NewReader(deltaLine("Try the ") + deltaLine("5 min reset")),
		err: errors.New("connection reset by peer"),
	}}
	s := chat.NewSession(producer, chat.NewLinker(testCatalog(t)))

	if err := s.Submit(context.Background(), "help"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting+user+assistant", len(msgs))
	}
	reply := msgs[2]
	if reply.Role != chat.RoleAssistant {
		t.Fatalf("reply role = %q, want assistant", reply.Role)
	}
	if want := "Sorry, I encountered an error. Please try again."; reply.Content != want {
		t.Errorf("reply = %q, want the apology %q", reply.Content, want)
	}
	if len(reply.Videos) != 0 {
		t.Errorf("failed reply still links videos: %v", linkedNames(reply.Videos))
	}
	if s.Awaiting() {
		t.Error("session should have settled")
	}
}

func TestSubmit_DoneFrameEndsReply(t *testing.T) {
	t.Parallel()
	body := deltaLine("before") +
		"data: {\"done\":true}\n" +
		deltaLine(" after")
	s := chat.NewSession(&scriptProducer{body: body}, chat.NewLinker(testCatalog(t)))

	if err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting+user+assistant", len(msgs))
	}
	if got := msgs[2].Content; got != "before" {
		t.Errorf("reply = %q, want %q (content after the done event must be dropped)", got, "before")
	}
}

// cancelProducer streams its data once, then fails with the open context's
// error.
type cancelProducer struct{ data string }

func (p *cancelProducer) Open(ctx context.Context, _ []gateway.Message) (io.ReadCloser, error) {
	return &cancelBody{ctx: ctx, data: p.data}, nil
}

type cancelBody struct {
	ctx  context.Context
	data string
	sent bool
}

func (b *cancelBody) Read(p []byte) (int, error) {
	if !b.sent && b.data != "" {
		b.sent = true
		return copy(p, b.data), nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *cancelBody) Close() error { return nil }

func TestSubmit_CancelledBeforeContentAppendsNothing(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := chat.NewSession(&cancelProducer{}, chat.NewLinker(testCatalog(t)))

	if err := s.Submit(ctx, "hi"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want greeting+user only", len(msgs))
	}
	if msgs[1].Role != chat.RoleUser {
		t.Errorf("last message role = %q, want user", msgs[1].Role)
	}
	if s.Awaiting() {
		t.Error("session should have settled")
	}
}

func TestSubmit_CancelledMidReplyKeepsPartialText(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	producer := &cancelProducer{data: deltaLine("partial answer")}
	s := chat.NewSession(producer, chat.NewLinker(testCatalog(t)))

	if err := s.Submit(ctx, "hi"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting+user+assistant", len(msgs))
	}
	if got := msgs[2].Content; got != "partial answer" {
		t.Errorf("reply = %q, want the partial text kept as-is", got)
	}
}

// blockingProducer parks the stream on a pipe until the test releases it.
type blockingProducer struct {
	pr *io.PipeReader
	pw *io.PipeWriter
}

func newBlockingProducer() *blockingProducer {
	pr, pw := io.Pipe()
	return &blockingProducer{pr: pr, pw: pw}
}

func (p *blockingProducer) Open(context.Context, []gateway.Message) (io.ReadCloser, error) {
	return p.pr, nil
}

func TestSubmit_SecondTurnWhileStreamingIsRejected(t *testing.T) {
	t.Parallel()
	producer := newBlockingProducer()
	s := chat.NewSession(producer, chat.NewLinker(testCatalog(t)))

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), "first")
	}()

	// Wait for the first turn to take the gate.
	deadline := time.After(2 * time.Second)
	for !s.Awaiting() {
		select {
		case <-deadline:
			t.Fatal("first turn never became active")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.Submit(context.Background(), "second"); !errors.Is(err, chat.ErrTurnActive) {
		t.Errorf("concurrent Submit() = %v, want ErrTurnActive", err)
	}

	producer.pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error: %v", err)
	}
	if s.Awaiting() {
		t.Error("session should have settled after the stream closed")
	}
}
