package provider

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/events"
)

// ChatSession is the standard Provider implementation. It owns a
// conversation tree, drives a single Engine, and publishes lifecycle
// events to its sinks while a reply streams in.
//
// The session is meant to be driven from one goroutine; the tree is only
// touched inside SendMessageStream and the Recv calls of the stream it
// returns. Close is the exception and may be called from anywhere.
type ChatSession struct {
	engine Engine
	tree   *conversation.Tree

	systemPrompt string
	sinks        []events.EventSink
	metadata     events.EventMetadata

	mu      sync.Mutex
	closed  bool
	cancels map[int]context.CancelFunc
	nextID  int
}

var _ Provider = (*ChatSession)(nil)

// ChatSessionOption configures a ChatSession at construction time.
type ChatSessionOption func(*ChatSession)

// WithTree seeds the session with an existing conversation tree instead
// of an empty one, for example one loaded from disk.
func WithTree(tree *conversation.Tree) ChatSessionOption {
	return func(s *ChatSession) {
		s.tree = tree
	}
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) ChatSessionOption {
	return func(s *ChatSession) {
		s.systemPrompt = prompt
	}
}

// WithSink adds an EventSink. Multiple sinks can be added and every event
// is published to all of them in order.
func WithSink(sink events.EventSink) ChatSessionOption {
	return func(s *ChatSession) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithEventMetadata sets the metadata template stamped onto every event,
// typically the backend name, model and session id.
func WithEventMetadata(metadata events.EventMetadata) ChatSessionOption {
	return func(s *ChatSession) {
		s.metadata = metadata
	}
}

func NewChatSession(engine Engine, options ...ChatSessionOption) *ChatSession {
	s := &ChatSession{
		engine:  engine,
		tree:    conversation.NewTree(),
		cancels: map[int]context.CancelFunc{},
	}
	for _, option := range options {
		option(s)
	}
	if s.metadata.SessionID == "" {
		s.metadata.SessionID = uuid.NewString()
	}
	return s
}

// Tree exposes the conversation tree for navigation, subscription and
// serialization.
func (s *ChatSession) Tree() *conversation.Tree {
	return s.tree
}

// History returns the active chain, root first.
func (s *ChatSession) History() (conversation.Conversation, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.tree.ActiveChain(), nil
}

// ReplaceHistory rebuilds the tree from a linear transcript, emitting a
// single tree notification.
func (s *ChatSession) ReplaceHistory(history conversation.Conversation) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.tree.ReplaceThread(history...)
}

// GenerateStream runs a one-shot completion for the prompt. The session's
// history is neither consulted nor modified and no events are published.
func (s *ChatSession) GenerateStream(ctx context.Context, prompt string, attachments ...conversation.Attachment) (*TextStream, error) {
	streamCtx, cancel, untrack, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	msg := conversation.NewMessage(conversation.RoleUser, prompt, conversation.WithAttachments(attachments...))
	stream, err := s.engine.StreamCompletion(streamCtx, &Request{
		System:   s.systemPrompt,
		Messages: conversation.Conversation{msg},
	})
	if err != nil {
		cancel()
		untrack()
		return nil, err
	}
	stream.onTerminal = untrack
	return stream, nil
}

// SendMessageStream appends the user message and an empty assistant
// placeholder to the active chain in one step, then streams the reply.
//
// Each Recv on the returned stream appends the delta to the placeholder
// and publishes a partial event, so all conversation state changes on
// the calling goroutine. The event sequence for one send is exactly one
// start, one partial per fragment, then one final, interrupt or error.
func (s *ChatSession) SendMessageStream(ctx context.Context, prompt string, attachments ...conversation.Attachment) (*TextStream, error) {
	streamCtx, cancel, untrack, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	userMsg := conversation.NewMessage(conversation.RoleUser, prompt, conversation.WithAttachments(attachments...))
	placeholder := conversation.NewPlaceholder()

	// wire history is captured before the placeholder joins the tree
	history := s.tree.ActiveChain()
	wire := append(append(conversation.Conversation{}, history...), userMsg)

	parentID := conversation.NullNode
	if tail := s.tree.Tail(); tail != nil {
		parentID = tail.ID
	}
	if err := s.tree.AppendThread(parentID, userMsg, placeholder); err != nil {
		cancel()
		untrack()
		return nil, err
	}

	metadata := s.newEventMetadata(placeholder.ID)
	s.publishEvent(ctx, events.NewStartEvent(metadata))

	inner, err := s.engine.StreamCompletion(streamCtx, &Request{
		System:   s.systemPrompt,
		Messages: wire,
	})
	if err != nil {
		s.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		cancel()
		untrack()
		return nil, err
	}

	completion := ""
	out := NewTextStream(streamCtx, cancel, nil)
	out.onTerminal = untrack
	out.recv = func() (string, error) {
		delta, err := inner.Recv()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.publishEvent(ctx, events.NewFinalEvent(metadata, completion))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				s.publishEvent(ctx, events.NewInterruptEvent(metadata, completion))
			default:
				s.publishEvent(ctx, events.NewErrorEvent(metadata, err))
			}
			return "", err
		}
		if delta == "" {
			return "", nil
		}
		// fails when the placeholder was removed from the tree mid-stream
		if err := s.tree.AppendText(placeholder.ID, delta); err != nil {
			s.publishEvent(ctx, events.NewErrorEvent(metadata, err))
			return "", err
		}
		completion += delta
		s.publishEvent(ctx, events.NewPartialCompletionEvent(metadata, delta, completion))
		return delta, nil
	}
	return out, nil
}

// Close disposes the session. Outstanding streams are cancelled and every
// later operation fails with a structural error. Close is idempotent.
func (s *ChatSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	s.cancels = map[int]context.CancelFunc{}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

func (s *ChatSession) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed()
	}
	return nil
}

// begin registers a cancellable stream context so Close can interrupt it.
// The returned untrack must be called once the stream is finished.
func (s *ChatSession) begin(ctx context.Context) (context.Context, context.CancelFunc, func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, nil, nil, errSessionClosed()
	}
	id := s.nextID
	s.nextID++
	s.cancels[id] = cancel
	s.mu.Unlock()

	untrack := func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}
	return streamCtx, cancel, untrack, nil
}

func (s *ChatSession) newEventMetadata(id conversation.NodeID) events.EventMetadata {
	metadata := s.metadata
	metadata.ID = uuid.UUID(id)
	return metadata
}

func (s *ChatSession) publishEvent(ctx context.Context, event events.Event) {
	for _, sink := range s.sinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).
				Str("event_type", string(event.Type())).
				Msg("failed to publish event to sink")
		}
	}
	events.PublishEventToContext(ctx, event)
}

func errSessionClosed() error {
	return &conversation.StructuralError{
		Op:     "chat-session",
		Reason: "session is closed",
	}
}
