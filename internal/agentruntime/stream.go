package agentruntime

import (
	"context"
	"fmt"
)

// EventKind identifies the variant of a streamed agent event
type EventKind string

const (
	EventChunk   EventKind = "chunk"
	EventTrace   EventKind = "trace"
	EventUnknown EventKind = "unknown"
)

// Event is one item of an agent response stream. Bytes is set for chunks
// and Trace for diagnostic events. Name describes unknown events.
type Event struct {
	Kind  EventKind
	Bytes []byte
	Trace map[string]any
	Name  string
}

// EventSource yields stream events in delivery order. Next returns false
// once the stream is exhausted. A source is consumed exactly once.
type EventSource interface {
	Next(ctx context.Context) (Event, bool, error)
}

// Mode decides how chunk text is folded into the result
type Mode int

const (
	// ModeReplace keeps only the text of the last chunk
	ModeReplace Mode = iota
	// ModeAppend concatenates every chunk in order
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the reduced form of an agent response stream
type Result struct {
	Text   string
	Traces []map[string]any
	Chunks int
}

// Accumulate drains src and folds its chunks according to mode. Trace
// events are collected as diagnostics. Any other event fails the whole
// accumulation.
func Accumulate(ctx context.Context, src EventSource, mode Mode) (*Result, error) {
	if mode != ModeReplace && mode != ModeAppend {
		return nil, fmt.Errorf("unsupported accumulation mode %s", mode)
	}

	res := &Result{}
	for {
		ev, ok, err := src.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read agent response stream: %w", err)
		}
		if !ok {
			return res, nil
		}

		switch ev.Kind {
		case EventChunk:
			res.Chunks++
			if mode == ModeAppend {
				res.Text += string(ev.Bytes)
			} else {
				res.Text = string(ev.Bytes)
			}
		case EventTrace:
			res.Traces = append(res.Traces, ev.Trace)
		default:
			return nil, fmt.Errorf("unexpected event in agent response stream: %s", ev.Name)
		}
	}
}

// SliceSource replays a fixed list of events
type SliceSource struct {
	events []Event
	pos    int
}

// NewSliceSource creates an EventSource over events
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next returns the next event
func (s *SliceSource) Next(ctx context.Context) (Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, false, err
	}
	if s.pos >= len(s.events) {
		return Event{}, false, nil
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true, nil
}

// Chunk builds a chunk event from text
func Chunk(text string) Event {
	return Event{Kind: EventChunk, Bytes: []byte(text)}
}
