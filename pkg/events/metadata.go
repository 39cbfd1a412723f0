package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Usage holds the token counts a backend reports for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// LLMInferenceData consolidates the inference parameters and results the
// backends report, for display and storage.
type LLMInferenceData struct {
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	StopReason  *string  `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	Usage       *Usage   `json:"usage,omitempty" yaml:"usage,omitempty"`
	DurationMs  *int64   `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

// EventMetadata correlates events with the conversation they belong to.
// ID is the id of the message the completion streams into.
type EventMetadata struct {
	LLMInferenceData
	ID        uuid.UUID `json:"message_id" yaml:"message_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Backend   string    `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Extra carries backend-specific values
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.Backend != "" {
		e.Str("backend", em.Backend)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Temperature != nil {
		e.Float64("temperature", *em.Temperature)
	}
	if em.TopP != nil {
		e.Float64("top_p", *em.TopP)
	}
	if em.MaxTokens != nil {
		e.Int("max_tokens", *em.MaxTokens)
	}
	if em.StopReason != nil && *em.StopReason != "" {
		e.Str("stop_reason", *em.StopReason)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}
