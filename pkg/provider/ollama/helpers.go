package ollama

import (
	"net/http"
	"net/url"

	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

func makeClient(stepSettings *settings.StepSettings) (*api.Client, error) {
	baseURL, ok := stepSettings.API.BaseUrls[string(types.ApiTypeOllama)+"-base-url"]
	if !ok || baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama base url %s", baseURL)
	}
	httpClient := http.DefaultClient
	if stepSettings.Client != nil && stepSettings.Client.HTTPClient != nil {
		httpClient = stepSettings.Client.HTTPClient
	}
	return api.NewClient(u, httpClient), nil
}

func makeMessages(req *provider.Request) ([]api.Message, error) {
	messages := []api.Message{}
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		wireMsg := api.Message{
			Role:    string(msg.Origin),
			Content: msg.TextOrEmpty(),
		}
		for _, attachment := range msg.Attachments {
			image, ok := attachment.(*conversation.ImageAttachment)
			if !ok {
				return nil, provider.NewUnsupportedAttachmentError("ollama", attachment)
			}
			wireMsg.Images = append(wireMsg.Images, api.ImageData(image.Content))
		}
		messages = append(messages, wireMsg)
	}
	return messages, nil
}

// makeOptions builds the request options map the ollama server expects.
// Chat-level settings go in first so the vendor-specific ones can override
// them, num_predict in particular.
func makeOptions(stepSettings *settings.StepSettings) map[string]interface{} {
	options := map[string]interface{}{}
	chatSettings := stepSettings.Chat
	if chatSettings.Temperature != nil {
		options["temperature"] = *chatSettings.Temperature
	}
	if chatSettings.TopP != nil {
		options["top_p"] = *chatSettings.TopP
	}
	if chatSettings.MaxResponseTokens != nil {
		options["num_predict"] = *chatSettings.MaxResponseTokens
	}
	if len(chatSettings.Stop) > 0 {
		options["stop"] = chatSettings.Stop
	}

	ollamaSettings := stepSettings.Ollama
	if ollamaSettings == nil {
		return options
	}
	if ollamaSettings.Mirostat != nil {
		options["mirostat"] = *ollamaSettings.Mirostat
	}
	if ollamaSettings.MirostatEta != nil {
		options["mirostat_eta"] = *ollamaSettings.MirostatEta
	}
	if ollamaSettings.MirostatTau != nil {
		options["mirostat_tau"] = *ollamaSettings.MirostatTau
	}
	if ollamaSettings.NumCtx != nil {
		options["num_ctx"] = *ollamaSettings.NumCtx
	}
	if ollamaSettings.NumGpu != nil {
		options["num_gpu"] = *ollamaSettings.NumGpu
	}
	if ollamaSettings.NumThread != nil {
		options["num_thread"] = *ollamaSettings.NumThread
	}
	if ollamaSettings.RepeatLastN != nil {
		options["repeat_last_n"] = *ollamaSettings.RepeatLastN
	}
	if ollamaSettings.RepeatPenalty != nil {
		options["repeat_penalty"] = *ollamaSettings.RepeatPenalty
	}
	if ollamaSettings.Seed != nil {
		options["seed"] = *ollamaSettings.Seed
	}
	if ollamaSettings.TfsZ != nil {
		options["tfs_z"] = *ollamaSettings.TfsZ
	}
	if ollamaSettings.NumPredict != nil {
		options["num_predict"] = *ollamaSettings.NumPredict
	}
	if ollamaSettings.TopK != nil {
		options["top_k"] = *ollamaSettings.TopK
	}
	return options
}
