package gemini

import (
	"context"
	"io"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// GeminiEngine streams completions from Google's Gemini API.
type GeminiEngine struct {
	settings *settings.StepSettings
}

func NewGeminiEngine(stepSettings *settings.StepSettings) (*GeminiEngine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}
	return &GeminiEngine{
		settings: stepSettings.Clone(),
	}, nil
}

var _ provider.Engine = (*GeminiEngine)(nil)

func (e *GeminiEngine) StreamCompletion(ctx context.Context, req *provider.Request) (*provider.TextStream, error) {
	if e.settings.Chat.Engine == nil {
		return nil, errors.New("no chat engine specified")
	}
	modelName := *e.settings.Chat.Engine

	apiKey, ok := e.settings.API.APIKeys[string(types.ApiTypeGemini)+"-api-key"]
	if !ok || apiKey == "" {
		return nil, errors.Errorf("missing API key %s", string(types.ApiTypeGemini)+"-api-key")
	}
	baseURL := e.settings.API.BaseUrls[string(types.ApiTypeGemini)+"-base-url"]

	parts, err := makeParts(req)
	if err != nil {
		return nil, err
	}

	// The iterator has no Close, cancelling this context is the only way
	// to abort the underlying HTTP stream.
	streamCtx, cancel := context.WithCancel(ctx)

	var client *genai.Client
	if baseURL != "" {
		client, err = genai.NewClient(streamCtx, option.WithAPIKey(apiKey), option.WithEndpoint(baseURL))
	} else {
		client, err = genai.NewClient(streamCtx, option.WithAPIKey(apiKey))
	}
	if err != nil {
		cancel()
		return nil, provider.NewBackendFailure(string(types.ApiTypeGemini), errors.Wrap(err, "failed to create gemini client"))
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = makeGenerationConfig(e.settings)

	log.Debug().
		Str("model", modelName).
		Int("num_parts", len(parts)).
		Msg("starting gemini completion stream")

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		defer func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close gemini client")
			}
		}()

		iter := model.GenerateContentStream(streamCtx, parts...)
		for {
			resp, err := iter.Next()
			if err == iterator.Done || errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case ch <- provider.StreamChunk{Err: provider.NewBackendFailure(string(types.ApiTypeGemini), err)}:
				case <-streamCtx.Done():
				}
				return
			}
			delta := responseText(resp)
			if delta == "" {
				continue
			}
			select {
			case ch <- provider.StreamChunk{Delta: delta}:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return provider.NewTextStream(streamCtx, cancel, ch), nil
}
