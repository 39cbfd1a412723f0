package claude

import (
	"encoding/base64"

	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/claude/api"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// max_tokens is mandatory for the Messages API
const defaultMaxTokens = 4096

func makeMessageRequest(
	stepSettings *settings.StepSettings,
	req *provider.Request,
) (*api.MessageRequest, error) {
	chatSettings := stepSettings.Chat
	if chatSettings == nil || chatSettings.Engine == nil {
		return nil, errors.New("no chat engine specified")
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		wireMsg, err := toWireMessage(msg)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *wireMsg)
	}

	maxTokens := defaultMaxTokens
	if chatSettings.MaxResponseTokens != nil {
		maxTokens = *chatSettings.MaxResponseTokens
	}

	msgReq := &api.MessageRequest{
		Model:       *chatSettings.Engine,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      req.System,
		Temperature: chatSettings.Temperature,
		TopP:        chatSettings.TopP,
	}
	if len(chatSettings.Stop) > 0 {
		msgReq.StopSequences = chatSettings.Stop
	}

	if claudeSettings := stepSettings.Claude; claudeSettings != nil {
		msgReq.TopK = claudeSettings.TopK
		if claudeSettings.UserID != nil && *claudeSettings.UserID != "" {
			msgReq.Metadata = &api.Metadata{UserID: *claudeSettings.UserID}
		}
	}

	return msgReq, nil
}

// toWireMessage renders a message for the Messages API. Images become
// base64 source blocks; links and non-image files have no Claude
// representation.
func toWireMessage(msg *conversation.Message) (*api.Message, error) {
	role := "user"
	if msg.Origin == conversation.RoleAssistant {
		role = "assistant"
	}

	content := []api.Content{api.NewTextContent(msg.TextOrEmpty())}
	for _, attachment := range msg.Attachments {
		imageAttachment, ok := attachment.(*conversation.ImageAttachment)
		if !ok {
			return nil, provider.NewUnsupportedAttachmentError(string(types.ApiTypeClaude), attachment)
		}
		content = append(content, api.NewImageContent(
			imageAttachment.MimeType,
			base64.StdEncoding.EncodeToString(imageAttachment.Content),
		))
	}

	return &api.Message{
		Role:    role,
		Content: content,
	}, nil
}
