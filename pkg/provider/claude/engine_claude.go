package claude

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/claude/api"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// ClaudeEngine streams completions from the Anthropic Messages API.
type ClaudeEngine struct {
	settings *settings.StepSettings
}

func NewClaudeEngine(stepSettings *settings.StepSettings) (*ClaudeEngine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}
	return &ClaudeEngine{
		settings: stepSettings.Clone(),
	}, nil
}

var _ provider.Engine = (*ClaudeEngine)(nil)

func (e *ClaudeEngine) StreamCompletion(ctx context.Context, req *provider.Request) (*provider.TextStream, error) {
	apiSettings := e.settings.API
	apiKey, ok := apiSettings.APIKeys[string(types.ApiTypeClaude)+"-api-key"]
	if !ok {
		return nil, errors.Errorf("no API key for %s", types.ApiTypeClaude)
	}
	baseURL, ok := apiSettings.BaseUrls[string(types.ApiTypeClaude)+"-base-url"]
	if !ok {
		return nil, errors.Errorf("no base URL for %s", types.ApiTypeClaude)
	}

	client := api.NewClient(apiKey, baseURL)

	msgReq, err := makeMessageRequest(e.settings, req)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("model", msgReq.Model).
		Int("num_messages", len(msgReq.Messages)).
		Msg("starting claude completion stream")

	eventCh, err := client.StreamMessages(ctx, msgReq)
	if err != nil {
		return nil, provider.NewBackendFailure(string(types.ApiTypeClaude), err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		for {
			select {
			case <-streamCtx.Done():
				return
			case event, ok := <-eventCh:
				if !ok {
					return
				}
				switch event.Type {
				case api.ContentBlockDeltaType:
					if event.Delta == nil || event.Delta.Text == "" {
						continue
					}
					select {
					case ch <- provider.StreamChunk{Delta: event.Delta.Text}:
					case <-streamCtx.Done():
						return
					}
				case api.ErrorType:
					message := "unknown claude error"
					if event.Error != nil {
						message = event.Error.Message
					}
					select {
					case ch <- provider.StreamChunk{Err: provider.NewBackendFailure(string(types.ApiTypeClaude), errors.New(message))}:
					case <-streamCtx.Done():
					}
					return
				case api.MessageStopType:
					return
				default:
					// ping, message_start, content_block boundaries, message_delta
				}
			}
		}
	}()

	return provider.NewTextStream(streamCtx, cancel, ch), nil
}
