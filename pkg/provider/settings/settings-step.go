package settings

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/grillo/pkg/provider/settings/claude"
	"github.com/go-go-golems/grillo/pkg/provider/settings/gemini"
	"github.com/go-go-golems/grillo/pkg/provider/settings/ollama"
	"github.com/go-go-golems/grillo/pkg/provider/settings/openai"
)

// StepSettings bundles everything needed to configure a backend engine:
// the shared chat parameters, HTTP client knobs, credentials and the
// per-backend extras.
type StepSettings struct {
	Chat   *ChatSettings    `yaml:"chat,omitempty"`
	Client *ClientSettings  `yaml:"client,omitempty"`
	API    *APISettings     `yaml:"api,omitempty"`
	OpenAI *openai.Settings `yaml:"openai,omitempty"`
	Claude *claude.Settings `yaml:"claude,omitempty"`
	Gemini *gemini.Settings `yaml:"gemini,omitempty"`
	Ollama *ollama.Settings `yaml:"ollama,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat:   NewChatSettings(),
		Client: NewClientSettings(),
		API:    NewAPISettings(),
		OpenAI: openai.NewSettings(),
		Claude: claude.NewSettings(),
		Gemini: gemini.NewSettings(),
		Ollama: ollama.NewSettings(),
	}
}

func NewStepSettingsFromYAML(s io.Reader) (*StepSettings, error) {
	settings_ := NewStepSettings()
	if err := yaml.NewDecoder(s).Decode(settings_); err != nil {
		return nil, err
	}
	return settings_, nil
}

func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if ss.Chat != nil {
		if ss.Chat.Engine != nil {
			metadata["engine"] = *ss.Chat.Engine
		}
		if ss.Chat.ApiType != nil {
			metadata["api_type"] = string(*ss.Chat.ApiType)
		}
		if ss.Chat.MaxResponseTokens != nil {
			metadata["max_response_tokens"] = *ss.Chat.MaxResponseTokens
		}
		if ss.Chat.TopP != nil && *ss.Chat.TopP != 1 {
			metadata["top_p"] = *ss.Chat.TopP
		}
		if ss.Chat.Temperature != nil {
			metadata["temperature"] = *ss.Chat.Temperature
		}
		if len(ss.Chat.Stop) > 0 {
			metadata["stop"] = ss.Chat.Stop
		}
		metadata["stream"] = ss.Chat.Stream
	}

	if ss.Client != nil {
		if ss.Client.Timeout != nil {
			metadata["timeout"] = ss.Client.Timeout.String()
		}
		if ss.Client.Organization != nil && *ss.Client.Organization != "" {
			metadata["organization"] = *ss.Client.Organization
		}
	}

	return metadata
}

func (s *StepSettings) Clone() *StepSettings {
	return &StepSettings{
		Chat:   s.Chat.Clone(),
		Client: s.Client.Clone(),
		API:    s.API.Clone(),
		OpenAI: s.OpenAI.Clone(),
		Claude: s.Claude.Clone(),
		Gemini: s.Gemini.Clone(),
		Ollama: s.Ollama.Clone(),
	}
}
