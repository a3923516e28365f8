// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// STREAMING: Capped SSE parsing shared by the OpenAI and Anthropic clients

// =============================================================================
// SIZE CAPS
// =============================================================================

// MaxEventSize is the maximum size of a single SSE event or NDJSON line
// (64KB). A legitimate delta is a few hundred bytes.
const MaxEventSize = 64 * 1024

// DefaultMaxStreamSize caps total bytes accepted from one response (50MB).
// Overridable through stream.max_buffer_mb.
const DefaultMaxStreamSize = 50 * 1024 * 1024

// ErrEventTooLarge is returned when a single event exceeds MaxEventSize.
var ErrEventTooLarge = errors.New("stream event exceeds 64KB limit")

// ErrStreamTooLarge is returned when a response exceeds the total byte cap.
var ErrStreamTooLarge = errors.New("stream exceeded total buffer limit")

// =============================================================================
// CAPPED LINE READER
// =============================================================================

// lineReader reads newline-delimited text with per-line and total byte
// caps enforced during the read, so a hostile response cannot balloon
// memory before a limit check runs.
//
// UNICODE: line-granular reads can never split a multi-byte rune, because
// UTF-8 continuation bytes are 0x80-0xBF and the delimiter is 0x0A.
type lineReader struct {
	br       *bufio.Reader
	maxLine  int
	maxTotal int64
	total    int64
}

func newLineReader(r io.Reader, maxTotal int64) *lineReader {
	if maxTotal <= 0 {
		maxTotal = DefaultMaxStreamSize
	}
	return &lineReader{
		br:       bufio.NewReaderSize(r, 16*1024),
		maxLine:  MaxEventSize,
		maxTotal: maxTotal,
	}
}

// readLine returns the next line without its trailing newline. At EOF any
// unterminated final line is returned first, then ("", io.EOF).
func (l *lineReader) readLine() (string, error) {
	var buf []byte
	for {
		frag, err := l.br.ReadSlice('\n')
		if len(frag) > 0 {
			l.total += int64(len(frag))
			if l.total > l.maxTotal {
				return "", ErrStreamTooLarge
			}
			buf = append(buf, frag...)
			if len(buf) > l.maxLine {
				return "", ErrEventTooLarge
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if len(buf) > 0 {
				// RELIABILITY: data before EOF still counts; some
				// servers close without a final newline.
				return trimLineEnd(buf), nil
			}
			return "", err
		}
		return trimLineEnd(buf), nil
	}
}

func trimLineEnd(b []byte) string {
	s := string(b)
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEEvent is one server-sent event. Event is the value of the event:
// field (empty for unnamed events); Data is the data: payload with
// multi-line data joined by newlines per the SSE spec.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEReader reads server-sent events from a response body. Events larger
// than MaxEventSize and responses larger than the total cap are rejected
// rather than buffered.
type SSEReader struct {
	lr *lineReader
}

// NewSSEReader wraps r with the given total byte cap; maxTotal <= 0 means
// DefaultMaxStreamSize.
func NewSSEReader(r io.Reader, maxTotal int64) *SSEReader {
	return &SSEReader{lr: newLineReader(r, maxTotal)}
}

// ReadEvent returns the next event, or io.EOF when the stream ends. An
// event terminated by EOF instead of a blank line is still returned.
func (s *SSEReader) ReadEvent() (SSEEvent, error) {
	var ev SSEEvent
	var data []string
	seen := false

	for {
		line, err := s.lr.readLine()
		if err != nil {
			if err == io.EOF && seen {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			return SSEEvent{}, err
		}

		if line == "" {
			if !seen {
				continue
			}
			ev.Data = strings.Join(data, "\n")
			return ev, nil
		}

		// Comment lines keep the connection alive, nothing more.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = strings.TrimPrefix(line[i+1:], " ")
		}

		switch field {
		case "event":
			ev.Event = value
			seen = true
		case "data":
			data = append(data, value)
			seen = true
			if lenAll(data) > MaxEventSize {
				return SSEEvent{}, ErrEventTooLarge
			}
		}
		// id: and retry: fields are irrelevant to a one-shot stream.
	}
}

func lenAll(ss []string) int {
	n := 0
	for _, s := range ss {
		n += len(s)
	}
	return n
}
