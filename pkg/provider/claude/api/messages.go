package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// MessageRequest represents the Messages API request payload.
type MessageRequest struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Stream        bool      `json:"stream"`
	System        string    `json:"system,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopK          *int      `json:"top_k,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
}

// Metadata represents the metadata object for Claude API requests.
type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	aux := struct {
		Role    string            `json:"role"`
		Content []json.RawMessage `json:"content"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := decodeContentBlocks(aux.Content)
	if err != nil {
		return err
	}
	m.Role = aux.Role
	m.Content = content
	return nil
}

// MessageResponse represents the Messages API response payload.
type MessageResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Role         string    `json:"role"`
	Content      []Content `json:"content"`
	Model        string    `json:"model"`
	StopReason   string    `json:"stop_reason,omitempty"`
	StopSequence string    `json:"stop_sequence,omitempty"`
	Usage        Usage     `json:"usage"`
}

func (m *MessageResponse) UnmarshalJSON(data []byte) error {
	type Alias MessageResponse
	aux := struct {
		Content []json.RawMessage `json:"content"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := decodeContentBlocks(aux.Content)
	if err != nil {
		return err
	}
	m.Content = content
	return nil
}

// FullText concatenates all text blocks of the response.
func (m *MessageResponse) FullText() string {
	text := ""
	for _, content := range m.Content {
		if textContent, ok := content.(TextContent); ok {
			text += textContent.Text
		}
	}
	return text
}

// Usage represents the billing and rate-limit usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamMessages sends a message request and returns a channel of
// streaming events. The channel is closed when the stream ends or ctx is
// cancelled.
func (c *Client) StreamMessages(ctx context.Context, req *MessageRequest) (<-chan StreamingEvent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer func(body io.ReadCloser) {
			_ = body.Close()
		}(resp.Body)
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil {
			return nil, errors.Errorf("claude API returned status %d", resp.StatusCode)
		}
		return nil, errors.New(errorResp.Error.Message)
	}

	events := make(chan StreamingEvent)
	go streamEvents(ctx, resp, events)

	return events, nil
}
