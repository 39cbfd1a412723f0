package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type StreamingEventType string

const (
	PingType              StreamingEventType = "ping"
	MessageStartType      StreamingEventType = "message_start"
	ContentBlockStartType StreamingEventType = "content_block_start"
	ContentBlockDeltaType StreamingEventType = "content_block_delta"
	ContentBlockStopType  StreamingEventType = "content_block_stop"
	MessageDeltaType      StreamingEventType = "message_delta"
	MessageStopType       StreamingEventType = "message_stop"
	ErrorType             StreamingEventType = "error"
)

type StreamingDeltaType string

const (
	TextDeltaType StreamingDeltaType = "text_delta"
)

type StreamingEvent struct {
	Type         StreamingEventType `json:"type"`
	Message      *MessageResponse   `json:"message,omitempty"`
	Delta        *Delta             `json:"delta,omitempty"`
	Error        *Error             `json:"error,omitempty"`
	Index        int                `json:"index,omitempty"`
	Usage        *Usage             `json:"usage,omitempty"`
	ContentBlock *ContentBlock      `json:"content_block,omitempty"`
}

func (s StreamingEvent) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(s.Type))
	if s.Delta != nil {
		e.Str("delta_type", string(s.Delta.Type))
		e.Str("delta_text", s.Delta.Text)
	}
	if s.Error != nil {
		e.Str("error_type", s.Error.Type)
		e.Str("error_message", s.Error.Message)
	}
	if s.Index != 0 {
		e.Int("index", s.Index)
	}
}

var _ zerolog.LogObjectMarshaler = StreamingEvent{}

type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Delta struct {
	Type         StreamingDeltaType `json:"type"`
	Text         string             `json:"text,omitempty"`
	StopReason   string             `json:"stop_reason,omitempty"`
	StopSequence string             `json:"stop_sequence,omitempty"`
}

func streamEvents(ctx context.Context, resp *http.Response, events chan StreamingEvent) {
	defer close(events)
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	reader := bufio.NewReader(resp.Body)
	var eventLines [][]byte
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Error().Err(err).Msg("error reading claude event stream")
				select {
				case events <- StreamingEvent{
					Type:  ErrorType,
					Error: &Error{Type: "stream_error", Message: err.Error()},
				}:
				case <-ctx.Done():
				}
			}
			return
		}
		if len(bytes.TrimSpace(line)) == 0 {
			// Empty line indicates the end of an event
			var event StreamingEvent
			if parseErr := parseSSEEvent(eventLines, &event); parseErr != nil {
				log.Debug().Err(parseErr).Msg("failed to parse SSE event")
				eventLines = eventLines[:0]
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
			eventLines = eventLines[:0]
		} else {
			eventLines = append(eventLines, line)
		}
	}
}

// parseSSEEvent parses an SSE event from multiple lines.
func parseSSEEvent(lines [][]byte, event *StreamingEvent) error {
	eventData := ""
	for _, line := range lines {
		line = bytes.TrimSuffix(line, []byte("\n"))

		parts := bytes.SplitN(line, []byte(": "), 2)
		if len(parts) != 2 {
			continue
		}

		field, value := parts[0], parts[1]
		if string(field) == "data" {
			eventData += string(value) + "\n"
		}
	}

	eventData = strings.TrimSuffix(eventData, "\n")

	return json.Unmarshal([]byte(eventData), event)
}
