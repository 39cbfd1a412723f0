package ollama

import (
	"context"

	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// OllamaEngine streams completions from a local or remote ollama server.
// Without an explicit base URL the client falls back to OLLAMA_HOST and
// then to the default localhost address.
type OllamaEngine struct {
	settings *settings.StepSettings
}

func NewOllamaEngine(stepSettings *settings.StepSettings) (*OllamaEngine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}
	return &OllamaEngine{
		settings: stepSettings.Clone(),
	}, nil
}

var _ provider.Engine = (*OllamaEngine)(nil)

func (e *OllamaEngine) StreamCompletion(ctx context.Context, req *provider.Request) (*provider.TextStream, error) {
	if e.settings.Chat.Engine == nil {
		return nil, errors.New("no chat engine specified")
	}

	client, err := makeClient(e.settings)
	if err != nil {
		return nil, err
	}

	messages, err := makeMessages(req)
	if err != nil {
		return nil, err
	}

	stream := true
	chatReq := &api.ChatRequest{
		Model:    *e.settings.Chat.Engine,
		Messages: messages,
		Stream:   &stream,
		Options:  makeOptions(e.settings),
	}

	log.Debug().
		Str("model", chatReq.Model).
		Int("num_messages", len(messages)).
		Msg("starting ollama completion stream")

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)

		err := client.Chat(streamCtx, chatReq, func(resp api.ChatResponse) error {
			if resp.Done || resp.Message.Content == "" {
				return nil
			}
			select {
			case ch <- provider.StreamChunk{Delta: resp.Message.Content}:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		// after cancellation the closed channel already reports the
		// context error, no chunk needed
		if err != nil && streamCtx.Err() == nil {
			select {
			case ch <- provider.StreamChunk{Err: provider.NewBackendFailure(string(types.ApiTypeOllama), err)}:
			case <-streamCtx.Done():
			}
		}
	}()

	return provider.NewTextStream(streamCtx, cancel, ch), nil
}
