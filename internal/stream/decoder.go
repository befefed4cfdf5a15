// Package stream decodes the newline-delimited event stream produced by the
// AI gateway into discrete frames.
//
// The wire format is the familiar `data: <json-or-sentinel>` convention used
// by OpenAI-compatible chat endpoints: one event per line, blank lines and
// ":"-prefixed comment lines ignored, a literal "[DONE]" payload marking the
// producer's end of stream, and every other payload a JSON chunk carrying a
// content delta at choices[0].delta.content.
//
// A [Decoder] is an explicitly constructed instance holding all of its own
// buffer state — feed it network chunks as they arrive and it returns the
// frames completed so far, no matter where the chunk boundaries fall. Chunk
// boundaries may split lines and may even split a multi-byte UTF-8 sequence;
// both are reassembled. Malformed payloads are discarded, never fatal.
//
// A Decoder is not safe for concurrent use; each stream gets its own.
package stream

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	// dataPrefix marks a candidate event line.
	dataPrefix = "data: "

	// commentPrefix marks a keep-alive/comment line.
	commentPrefix = ":"

	// doneSentinel is the payload the producer sends when it has no more
	// events. It yields no frame; the stream still ends by closing.
	doneSentinel = "[DONE]"
)

// Frame is one decoded protocol event: a content delta or a terminal marker.
type Frame struct {
	// Content is the text delta. Empty when Done is set.
	Content string

	// Done marks an explicit termination event from the producer.
	Done bool
}

// chunkPayload is the subset of the gateway's JSON chunk shape the decoder
// cares about.
type chunkPayload struct {
	Done    bool `json:"done"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder incrementally converts a raw byte stream into [Frame] values.
// The zero value is ready to use.
type Decoder struct {
	// pending holds the trailing bytes of an incomplete UTF-8 sequence.
	pending []byte

	// line holds the current incomplete line's decoded text.
	line strings.Builder

	// malformed counts event lines whose payload failed to parse.
	malformed int
}

// NewDecoder returns a fresh Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes the next chunk of bytes from the network and returns the
// frames whose lines completed within it, in line order. Trailing partial
// lines and partial UTF-8 sequences are retained for the next call.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}

	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
		d.pending = nil
	}

	// Hold back a trailing incomplete multi-byte sequence so the rune is
	// decoded whole once its remaining bytes arrive.
	cut := completeUTF8Prefix(buf)
	if cut < len(buf) {
		d.pending = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}

	var frames []Frame
	text := string(buf)
	for {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			d.line.WriteString(text)
			break
		}
		d.line.WriteString(text[:nl])
		text = text[nl+1:]

		line := d.line.String()
		d.line.Reset()
		if f, ok := d.decodeLine(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Malformed reports how many event lines were discarded because their
// payload could not be parsed.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Finish flushes the retained partial line once the underlying stream has
// ended and returns any frame it yields. A line that never completed with a
// newline is still decoded if it forms a whole event; bytes of an incomplete
// UTF-8 sequence are dropped. The decoder is exhausted afterwards.
func (d *Decoder) Finish() []Frame {
	d.pending = nil

	line := d.line.String()
	d.line.Reset()
	if line == "" {
		return nil
	}
	if f, ok := d.decodeLine(line); ok {
		return []Frame{f}
	}
	return nil
}

// decodeLine turns one complete line into a frame. The boolean is false for
// lines that yield nothing: blanks, comments, non-event lines, the done
// sentinel, malformed payloads, and chunks without a content delta.
func (d *Decoder) decodeLine(line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
		return Frame{}, false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return Frame{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == doneSentinel {
		// Absorbed: termination is driven by the stream closing.
		return Frame{}, false
	}

	var chunk chunkPayload
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Malformed frames are dropped, not fatal.
		d.malformed++
		return Frame{}, false
	}
	if chunk.Done {
		return Frame{Done: true}, true
	}
	if len(chunk.Choices) == 0 {
		return Frame{}, false
	}
	content := chunk.Choices[0].Delta.Content
	if content == "" {
		return Frame{}, false
	}
	return Frame{Content: content}, true
}

// completeUTF8Prefix returns the length of the longest prefix of buf that
// does not end mid-way through a multi-byte UTF-8 sequence. Invalid bytes
// are counted as complete so garbage cannot stall the decoder.
func completeUTF8Prefix(buf []byte) int {
	// Only the last few bytes can belong to an unfinished sequence.
	i := len(buf)
	for back := 1; back <= utf8.UTFMax && i > 0; back++ {
		b := buf[len(buf)-back]
		if b < utf8.RuneSelf {
			break
		}
		if b&0xC0 == 0xC0 { // start byte of a multi-byte sequence
			if !utf8.Valid(buf[len(buf)-back:]) {
				i = len(buf) - back
			}
			break
		}
		// Continuation byte: keep scanning backwards for its start byte.
	}
	return i
}
