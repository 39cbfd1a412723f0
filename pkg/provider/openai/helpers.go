package openai

import (
	"encoding/base64"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

func MakeClient(apiSettings *settings.APISettings, apiType types.ApiType) (*go_openai.Client, error) {
	apiKey, ok := apiSettings.APIKeys[string(apiType)+"-api-key"]
	if !ok {
		return nil, errors.Errorf("no API key for %s", apiType)
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL, ok := apiSettings.BaseUrls[string(apiType)+"-base-url"]; ok && baseURL != "" {
		config.BaseURL = baseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func makeCompletionRequest(
	stepSettings *settings.StepSettings,
	req *provider.Request,
) (*go_openai.ChatCompletionRequest, error) {
	chatSettings := stepSettings.Chat
	if chatSettings == nil || chatSettings.Engine == nil {
		return nil, errors.New("no chat engine specified")
	}

	messages := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		wireMsg, err := toWireMessage(msg)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *wireMsg)
	}

	chatReq := &go_openai.ChatCompletionRequest{
		Model:    *chatSettings.Engine,
		Messages: messages,
		Stream:   true,
	}
	if chatSettings.MaxResponseTokens != nil {
		chatReq.MaxTokens = *chatSettings.MaxResponseTokens
	}
	if chatSettings.Temperature != nil {
		chatReq.Temperature = float32(*chatSettings.Temperature)
	}
	if chatSettings.TopP != nil {
		chatReq.TopP = float32(*chatSettings.TopP)
	}
	if len(chatSettings.Stop) > 0 {
		chatReq.Stop = chatSettings.Stop
	}

	if openaiSettings := stepSettings.OpenAI; openaiSettings != nil {
		if openaiSettings.N != nil {
			chatReq.N = *openaiSettings.N
		}
		if openaiSettings.PresencePenalty != nil {
			chatReq.PresencePenalty = float32(*openaiSettings.PresencePenalty)
		}
		if openaiSettings.FrequencyPenalty != nil {
			chatReq.FrequencyPenalty = float32(*openaiSettings.FrequencyPenalty)
		}
	}

	return chatReq, nil
}

// toWireMessage renders a message for the chat completions API. Messages
// without attachments use the plain string content; messages with images
// or links switch to multi-part content. Other attachment kinds have no
// OpenAI representation.
func toWireMessage(msg *conversation.Message) (*go_openai.ChatCompletionMessage, error) {
	role := go_openai.ChatMessageRoleUser
	if msg.Origin == conversation.RoleAssistant {
		role = go_openai.ChatMessageRoleAssistant
	}

	if len(msg.Attachments) == 0 {
		return &go_openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.TextOrEmpty(),
		}, nil
	}

	parts := []go_openai.ChatMessagePart{
		{
			Type: go_openai.ChatMessagePartTypeText,
			Text: msg.TextOrEmpty(),
		},
	}
	for _, attachment := range msg.Attachments {
		switch a := attachment.(type) {
		case *conversation.ImageAttachment:
			parts = append(parts, go_openai.ChatMessagePart{
				Type: go_openai.ChatMessagePartTypeImageURL,
				ImageURL: &go_openai.ChatMessageImageURL{
					URL:    imageDataURI(a),
					Detail: go_openai.ImageURLDetailAuto,
				},
			})
		case *conversation.LinkAttachment:
			parts = append(parts, go_openai.ChatMessagePart{
				Type: go_openai.ChatMessagePartTypeImageURL,
				ImageURL: &go_openai.ChatMessageImageURL{
					URL:    a.URL.String(),
					Detail: go_openai.ImageURLDetailAuto,
				},
			})
		default:
			return nil, provider.NewUnsupportedAttachmentError(string(types.ApiTypeOpenAI), attachment)
		}
	}

	return &go_openai.ChatCompletionMessage{
		Role:         role,
		MultiContent: parts,
	}, nil
}

func imageDataURI(a *conversation.ImageAttachment) string {
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Content)
}
