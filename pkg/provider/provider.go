// Package provider connects a conversation tree to a model backend and
// streams assistant replies into it.
//
// The package is split along a narrow seam. An Engine speaks one backend's
// wire protocol and turns a request into a TextStream of fragments. The
// ChatSession sits above it: it owns the conversation tree, appends the
// user message and an assistant placeholder before the request goes out,
// folds incoming fragments into the placeholder, and mirrors the stream's
// life cycle into events (start, partials, then exactly one final, error
// or interrupt).
//
// Streams are pull based. All tree mutation happens inside Recv, on the
// goroutine that calls it, so a UI that drives the session from a single
// goroutine never observes concurrent writes to its conversation state.
package provider

import (
	"context"

	"github.com/go-go-golems/grillo/pkg/conversation"
)

// Provider is the surface a chat UI drives: one-shot generation, stateful
// send-and-stream, history access and disposal. ChatSession is the
// standard implementation; model backends plug in underneath it as
// Engines rather than reimplementing this surface.
type Provider interface {
	// GenerateStream runs a single prompt against the backend without
	// touching the session's history and without emitting events.
	GenerateStream(ctx context.Context, prompt string, attachments ...conversation.Attachment) (*TextStream, error)

	// SendMessageStream appends the prompt to the active chain and streams
	// the assistant's reply into a placeholder message.
	SendMessageStream(ctx context.Context, prompt string, attachments ...conversation.Attachment) (*TextStream, error)

	// History returns the active chain of the conversation tree.
	History() (conversation.Conversation, error)

	// ReplaceHistory discards the tree and rebuilds it from a linear
	// transcript.
	ReplaceHistory(history conversation.Conversation) error

	// Close disposes the provider. In-flight streams are cancelled and all
	// further operations fail.
	Close() error
}
