package gemini

import (
	"math"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
)

// makeParts flattens the request into a single part list. Gemini takes the
// whole prompt as one content, so the system prompt comes first and each
// message contributes its text followed by inline blobs for its attachments.
func makeParts(req *provider.Request) ([]genai.Part, error) {
	parts := []genai.Part{}
	if req.System != "" {
		parts = append(parts, genai.Text(req.System))
	}
	for _, msg := range req.Messages {
		if text := msg.TextOrEmpty(); text != "" {
			parts = append(parts, genai.Text(text))
		}
		for _, attachment := range msg.Attachments {
			switch a := attachment.(type) {
			case *conversation.ImageAttachment:
				parts = append(parts, genai.Blob{MIMEType: a.MimeType, Data: a.Content})
			case *conversation.FileAttachment:
				parts = append(parts, genai.Blob{MIMEType: a.MimeType, Data: a.Content})
			default:
				return nil, provider.NewUnsupportedAttachmentError("gemini", attachment)
			}
		}
	}
	return parts, nil
}

func makeGenerationConfig(stepSettings *settings.StepSettings) genai.GenerationConfig {
	cfg := genai.GenerationConfig{}
	chatSettings := stepSettings.Chat
	if chatSettings.Temperature != nil {
		v := float32(*chatSettings.Temperature)
		cfg.Temperature = &v
	}
	if chatSettings.TopP != nil {
		v := float32(*chatSettings.TopP)
		cfg.TopP = &v
	}
	if chatSettings.MaxResponseTokens != nil {
		// clamp to [0, math.MaxInt32] before the int32 conversion
		mt := *chatSettings.MaxResponseTokens
		var v int32
		switch {
		case mt < 0:
			log.Warn().Int("requested_max_tokens", mt).Msg("negative max response tokens, clamping to 0")
		case mt > int(math.MaxInt32):
			log.Warn().Int("requested_max_tokens", mt).Msg("max response tokens exceeds int32, clamping")
			v = math.MaxInt32
		default:
			v = int32(mt)
		}
		cfg.MaxOutputTokens = &v
	}
	if len(chatSettings.Stop) > 0 {
		cfg.StopSequences = chatSettings.Stop
	}
	if stepSettings.Gemini != nil && stepSettings.Gemini.TopK != nil {
		v := int32(*stepSettings.Gemini.TopK)
		cfg.TopK = &v
	}
	return cfg
}

// responseText concatenates the text parts of every candidate in a stream
// chunk. Candidates can arrive with nil content when generation is blocked.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	text := ""
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}
