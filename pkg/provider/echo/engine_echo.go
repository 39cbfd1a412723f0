package echo

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/grillo/pkg/provider"
)

// EchoEngine streams the last user message back word by word. It needs no
// credentials and accepts every attachment kind, which makes it the
// backend for tests and offline runs.
type EchoEngine struct {
	perWordDelay time.Duration
}

type Option func(*EchoEngine)

// WithPerWordDelay makes the echo pause between words, to exercise
// cancellation paths and to feel like a real stream in the REPL.
func WithPerWordDelay(delay time.Duration) Option {
	return func(e *EchoEngine) {
		e.perWordDelay = delay
	}
}

func NewEchoEngine(options ...Option) *EchoEngine {
	e := &EchoEngine{}
	for _, option := range options {
		option(e)
	}
	return e
}

var _ provider.Engine = (*EchoEngine)(nil)

func (e *EchoEngine) StreamCompletion(ctx context.Context, req *provider.Request) (*provider.TextStream, error) {
	prompt := req.Messages.LastText()

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		words := strings.Fields(prompt)
		for i, word := range words {
			if e.perWordDelay > 0 {
				select {
				case <-time.After(e.perWordDelay):
				case <-streamCtx.Done():
					return
				}
			}
			delta := word
			if i < len(words)-1 {
				delta += " "
			}
			select {
			case ch <- provider.StreamChunk{Delta: delta}:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return provider.NewTextStream(streamCtx, cancel, ch), nil
}
