package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// ChatEventHandler receives the decoded session events, one method per
// type. Use NewChatDispatchHandler to hook an implementation up to a
// router topic.
type ChatEventHandler interface {
	HandleStart(ctx context.Context, e *EventPartialCompletionStart) error
	HandlePartialCompletion(ctx context.Context, e *EventPartialCompletion) error
	HandleFinal(ctx context.Context, e *EventFinal) error
	HandleError(ctx context.Context, e *EventError) error
	HandleInterrupt(ctx context.Context, e *EventInterrupt) error
}

// EventRouter distributes session events to handlers over an in-process
// watermill pub/sub. Publishing blocks until subscribers ack, so a slow
// handler exerts backpressure on the publishing side rather than dropping
// events.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	verbose    bool
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		r.verbose = verbose
		r.logger = NewWatermillLogger(log.Logger)
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}

	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}

	ret.router = router

	return ret, nil
}

func (e *EventRouter) Close() error {
	log.Debug().Msg("closing publisher")
	err := e.Publisher.Close()
	if err != nil {
		log.Error().Err(err).Msg("failed to close pubsub")
		// not returning just yet
	}

	log.Debug().Msg("closing router")
	err = e.router.Close()
	if err != nil {
		log.Error().Err(err).Msg("failed to close router")
	}

	return nil
}

func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

// NewChatDispatchHandler wraps a ChatEventHandler in a watermill handler
// function that decodes each message and dispatches on the event type.
// Decode failures are logged and skipped so one bad message does not kill
// the handler.
func NewChatDispatchHandler(handler ChatEventHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.UUID).Msg("failed to parse chat event")
			return nil
		}

		msgCtx := msg.Context()
		switch ev := e.(type) {
		case *EventPartialCompletionStart:
			return handler.HandleStart(msgCtx, ev)
		case *EventPartialCompletion:
			return handler.HandlePartialCompletion(msgCtx, ev)
		case *EventFinal:
			return handler.HandleFinal(msgCtx, ev)
		case *EventError:
			return handler.HandleError(msgCtx, ev)
		case *EventInterrupt:
			return handler.HandleInterrupt(msgCtx, ev)
		default:
			log.Warn().Str("event_type", string(e.Type())).Msg("unhandled chat event type")
			return nil
		}
	}
}

// DumpRawEvents prints every event as indented JSON, a debugging handler.
// Without verbose the metadata is reduced to the message id.
func (e *EventRouter) DumpRawEvents(msg *message.Message) error {
	defer msg.Ack()

	var s map[string]interface{}
	err := json.Unmarshal(msg.Payload, &s)
	if err != nil {
		return err
	}
	if !e.verbose {
		if meta, ok := s["meta"].(map[string]interface{}); ok {
			s["id"] = meta["message_id"]
		}
		delete(s, "meta")
	}
	s_, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(s_))
	return nil
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) IsRunning() bool {
	return e.router.IsRunning()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

func (e *EventRouter) RunHandlers(ctx context.Context) error {
	return e.router.RunHandlers(ctx)
}
