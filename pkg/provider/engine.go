package provider

import (
	"context"

	"github.com/go-go-golems/grillo/pkg/conversation"
)

// Request carries everything an engine needs for one completion: the
// system prompt and the linear conversation to complete, oldest message
// first. Engines must not mutate the messages.
type Request struct {
	System   string
	Messages conversation.Conversation
}

// Engine opens streaming completions against one model backend. Engines
// are stateless: every request carries the full conversation, and the
// returned stream is the only artifact of a call. Sessions, not engines,
// own history and event publishing.
//
// Engines translate message attachments into their wire format and return
// *UnsupportedAttachmentError for kinds they cannot represent. Transport
// and API failures surface as *BackendFailure, either from
// StreamCompletion itself or from a later Recv on the stream.
type Engine interface {
	StreamCompletion(ctx context.Context, req *Request) (*TextStream, error)
}
