package provider

import (
	"context"
	"io"
)

// StreamChunk is one producer-side element of a TextStream: a text delta
// or a terminal error. Backends send chunks on the channel handed to
// NewTextStream and close it when the stream ends cleanly.
type StreamChunk struct {
	Delta string
	Err   error
}

// TextStream is a pull-based fragment stream over one completion. Recv
// blocks for the next fragment and returns io.EOF after the last one.
// Errors are sticky: once Recv has returned a non-nil error the stream
// is finished and every further Recv returns the same error. A finished
// stream never restarts.
type TextStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     <-chan StreamChunk

	// recv, when set, replaces the channel read. The chat session uses it
	// to run tree updates and event publishing on the calling goroutine.
	recv       func() (string, error)
	onTerminal func()

	err error
}

// NewTextStream builds a stream over a producer channel. The producer
// must honor ctx cancellation and close the channel once it is done
// sending.
func NewTextStream(ctx context.Context, cancel context.CancelFunc, ch <-chan StreamChunk) *TextStream {
	return &TextStream{
		ctx:    ctx,
		cancel: cancel,
		ch:     ch,
	}
}

// Recv returns the next text fragment. It returns io.EOF when the stream
// completed cleanly, the context error when it was cancelled, and the
// backend failure otherwise.
func (s *TextStream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	delta, err := s.next()
	if err != nil {
		s.finish(err)
		return "", err
	}
	return delta, nil
}

func (s *TextStream) next() (string, error) {
	if s.recv != nil {
		return s.recv()
	}

	select {
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	case chunk, ok := <-s.ch:
		if !ok {
			if err := s.ctx.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if chunk.Err != nil {
			return "", chunk.Err
		}
		return chunk.Delta, nil
	}
}

func (s *TextStream) finish(err error) {
	s.err = err
	if s.cancel != nil {
		s.cancel()
	}
	if s.onTerminal != nil {
		s.onTerminal()
		s.onTerminal = nil
	}
}

// Close cancels the underlying request. Pending and later Recv calls
// return the cancellation error; fragments already delivered stay valid.
// Closing a finished stream is a no-op.
func (s *TextStream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
