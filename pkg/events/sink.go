package events

// EventSink is a destination for chat session events: a watermill topic,
// a log, a test collector. Sinks are fire-and-forget from the session's
// point of view; a failing sink is logged and never stalls the stream.
type EventSink interface {
	PublishEvent(event Event) error
}
