package provider

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/events"
)

// scriptedEngine replays a fixed chunk sequence and records the requests
// it receives.
type scriptedEngine struct {
	chunks   []StreamChunk
	err      error
	requests []*Request
}

func (e *scriptedEngine) StreamCompletion(ctx context.Context, req *Request) (*TextStream, error) {
	e.requests = append(e.requests, req)
	if e.err != nil {
		return nil, e.err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, chunk := range e.chunks {
			select {
			case ch <- chunk:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return NewTextStream(streamCtx, cancel, ch), nil
}

// hangingEngine produces nothing until its context is cancelled.
type hangingEngine struct{}

func (e *hangingEngine) StreamCompletion(ctx context.Context, req *Request) (*TextStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		<-streamCtx.Done()
	}()
	return NewTextStream(streamCtx, cancel, ch), nil
}

type collectingSink struct {
	events []events.Event
}

func (c *collectingSink) PublishEvent(e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *collectingSink) types() []events.EventType {
	types := make([]events.EventType, 0, len(c.events))
	for _, e := range c.events {
		types = append(types, e.Type())
	}
	return types
}

func drain(t *testing.T, stream *TextStream) string {
	t.Helper()
	collected := ""
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return collected
		}
		require.NoError(t, err)
		collected += delta
	}
}

func TestSendMessageStreamAssemblesReply(t *testing.T) {
	engine := &scriptedEngine{chunks: []StreamChunk{{Delta: "Hel"}, {Delta: "lo"}}}
	sink := &collectingSink{}
	session := NewChatSession(engine, WithSink(sink))
	defer func() { _ = session.Close() }()

	var treeEvents []conversation.ChangeEvent
	session.Tree().Subscribe(func(e conversation.ChangeEvent) {
		treeEvents = append(treeEvents, e)
	})

	stream, err := session.SendMessageStream(context.Background(), "Hi")
	require.NoError(t, err)
	require.Equal(t, "Hello", drain(t, stream))

	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, conversation.RoleUser, history[0].Origin)
	require.Equal(t, "Hi", history[0].TextOrEmpty())
	require.Equal(t, conversation.RoleAssistant, history[1].Origin)
	require.Equal(t, "Hello", history[1].TextOrEmpty())

	// one start, one partial per fragment, one final
	require.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}, sink.types())

	partial, ok := sink.events[1].(*events.EventPartialCompletion)
	require.True(t, ok)
	require.Equal(t, "Hel", partial.Delta)
	require.Equal(t, "Hel", partial.Completion)

	final, ok := sink.events[3].(*events.EventFinal)
	require.True(t, ok)
	require.Equal(t, "Hello", final.Text)
	require.Equal(t, uuid.UUID(history[1].ID), final.Metadata().ID)

	// the tree saw one thread append and one text append per fragment
	require.Len(t, treeEvents, 3)
	require.Equal(t, conversation.ChangeThreadAppended, treeEvents[0].Kind)
	require.Equal(t, conversation.ChangeTextAppended, treeEvents[1].Kind)
	require.Equal(t, conversation.ChangeTextAppended, treeEvents[2].Kind)

	// the wire request held only the user message, not the placeholder
	require.Len(t, engine.requests, 1)
	require.Len(t, engine.requests[0].Messages, 1)
	require.Equal(t, "Hi", engine.requests[0].Messages[0].TextOrEmpty())
}

func TestSendMessageStreamCarriesHistoryForward(t *testing.T) {
	engine := &scriptedEngine{chunks: []StreamChunk{{Delta: "ok"}}}
	session := NewChatSession(engine, WithSystemPrompt("be brief"))
	defer func() { _ = session.Close() }()

	stream, err := session.SendMessageStream(context.Background(), "first")
	require.NoError(t, err)
	drain(t, stream)

	stream, err = session.SendMessageStream(context.Background(), "second")
	require.NoError(t, err)
	drain(t, stream)

	require.Len(t, engine.requests, 2)
	require.Equal(t, "be brief", engine.requests[1].System)

	// prior user turn, prior reply, new user turn
	wire := engine.requests[1].Messages
	require.Len(t, wire, 3)
	require.Equal(t, "first", wire[0].TextOrEmpty())
	require.Equal(t, "ok", wire[1].TextOrEmpty())
	require.Equal(t, "second", wire[2].TextOrEmpty())
}

func TestSendMessageStreamBackendFailureKeepsPartialText(t *testing.T) {
	failure := NewBackendFailure("test", errors.New("boom"))
	engine := &scriptedEngine{chunks: []StreamChunk{{Delta: "par"}, {Err: failure}}}
	sink := &collectingSink{}
	session := NewChatSession(engine, WithSink(sink))
	defer func() { _ = session.Close() }()

	stream, err := session.SendMessageStream(context.Background(), "Hi")
	require.NoError(t, err)

	delta, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "par", delta)

	_, err = stream.Recv()
	var backendErr *BackendFailure
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, "test", backendErr.Backend)

	// errors are sticky
	_, err = stream.Recv()
	require.ErrorAs(t, err, &backendErr)

	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "par", history[1].TextOrEmpty())

	require.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypeError,
	}, sink.types())
}

func TestSendMessageStreamImmediateFailurePublishesError(t *testing.T) {
	failure := NewBackendFailure("test", errors.New("no network"))
	engine := &scriptedEngine{err: failure}
	sink := &collectingSink{}
	session := NewChatSession(engine, WithSink(sink))
	defer func() { _ = session.Close() }()

	_, err := session.SendMessageStream(context.Background(), "Hi")
	var backendErr *BackendFailure
	require.ErrorAs(t, err, &backendErr)

	require.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypeError,
	}, sink.types())

	// the user message and the empty placeholder stay in the tree
	history, histErr := session.History()
	require.NoError(t, histErr)
	require.Len(t, history, 2)
	require.Equal(t, "", history[1].TextOrEmpty())
}

func TestStreamCloseInterrupts(t *testing.T) {
	sink := &collectingSink{}
	session := NewChatSession(&hangingEngine{}, WithSink(sink))
	defer func() { _ = session.Close() }()

	stream, err := session.SendMessageStream(context.Background(), "Hi")
	require.NoError(t, err)

	stream.Close()
	_, err = stream.Recv()
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypeInterrupt,
	}, sink.types())
}

func TestSessionCloseCancelsInFlightStream(t *testing.T) {
	session := NewChatSession(&hangingEngine{})

	stream, err := session.SendMessageStream(context.Background(), "Hi")
	require.NoError(t, err)

	require.NoError(t, session.Close())
	_, err = stream.Recv()
	require.ErrorIs(t, err, context.Canceled)
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	session := NewChatSession(&scriptedEngine{})
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	var structuralErr *conversation.StructuralError
	_, err := session.SendMessageStream(context.Background(), "Hi")
	require.ErrorAs(t, err, &structuralErr)

	_, err = session.GenerateStream(context.Background(), "Hi")
	require.ErrorAs(t, err, &structuralErr)

	_, err = session.History()
	require.ErrorAs(t, err, &structuralErr)

	err = session.ReplaceHistory(nil)
	require.ErrorAs(t, err, &structuralErr)
}

func TestGenerateStreamIsStateless(t *testing.T) {
	engine := &scriptedEngine{chunks: []StreamChunk{{Delta: "pong"}}}
	sink := &collectingSink{}
	session := NewChatSession(engine, WithSink(sink), WithSystemPrompt("echo back"))
	defer func() { _ = session.Close() }()

	stream, err := session.GenerateStream(context.Background(), "ping")
	require.NoError(t, err)
	require.Equal(t, "pong", drain(t, stream))

	history, err := session.History()
	require.NoError(t, err)
	require.Empty(t, history)
	require.Empty(t, sink.events)

	require.Len(t, engine.requests, 1)
	require.Equal(t, "echo back", engine.requests[0].System)
	require.Len(t, engine.requests[0].Messages, 1)
}

func TestReplaceHistoryRebuildsTree(t *testing.T) {
	engine := &scriptedEngine{chunks: []StreamChunk{{Delta: "reply"}}}
	session := NewChatSession(engine)
	defer func() { _ = session.Close() }()

	stream, err := session.SendMessageStream(context.Background(), "old")
	require.NoError(t, err)
	drain(t, stream)

	var treeEvents []conversation.ChangeEvent
	session.Tree().Subscribe(func(e conversation.ChangeEvent) {
		treeEvents = append(treeEvents, e)
	})

	replacement := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "imported"),
	}
	require.NoError(t, session.ReplaceHistory(replacement))

	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "imported", history[0].TextOrEmpty())

	require.Len(t, treeEvents, 1)
	require.Equal(t, conversation.ChangeThreadReplaced, treeEvents[0].Kind)
}
