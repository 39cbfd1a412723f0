package openai

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// OpenAIEngine streams chat completions from OpenAI-compatible APIs.
// AnyScale and Fireworks reuse this engine with their own base URLs.
type OpenAIEngine struct {
	settings *settings.StepSettings
}

func NewOpenAIEngine(stepSettings *settings.StepSettings) (*OpenAIEngine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}
	return &OpenAIEngine{
		settings: stepSettings.Clone(),
	}, nil
}

var _ provider.Engine = (*OpenAIEngine)(nil)

func (e *OpenAIEngine) StreamCompletion(ctx context.Context, req *provider.Request) (*provider.TextStream, error) {
	apiType := e.apiType()

	client, err := MakeClient(e.settings.API, apiType)
	if err != nil {
		return nil, err
	}

	chatReq, err := makeCompletionRequest(e.settings, req)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("model", chatReq.Model).
		Int("num_messages", len(chatReq.Messages)).
		Msg("starting openai completion stream")

	stream, err := client.CreateChatCompletionStream(ctx, *chatReq)
	if err != nil {
		return nil, provider.NewBackendFailure(string(apiType), err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case ch <- provider.StreamChunk{Err: provider.NewBackendFailure(string(apiType), err)}:
				case <-streamCtx.Done():
				}
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			select {
			case ch <- provider.StreamChunk{Delta: response.Choices[0].Delta.Content}:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return provider.NewTextStream(streamCtx, cancel, ch), nil
}

func (e *OpenAIEngine) apiType() types.ApiType {
	if e.settings.Chat != nil && e.settings.Chat.ApiType != nil {
		return *e.settings.Chat.ApiType
	}
	return types.ApiTypeOpenAI
}
