package settings

import (
	"github.com/huandu/go-clone"

	"github.com/go-go-golems/grillo/pkg/provider/types"
)

type ChatSettings struct {
	Engine            *string        `yaml:"engine,omitempty"`
	ApiType           *types.ApiType `yaml:"api_type,omitempty"`
	SystemPrompt      *string        `yaml:"system_prompt,omitempty"`
	MaxResponseTokens *int           `yaml:"max_response_tokens,omitempty"`
	TopP              *float64       `yaml:"top_p,omitempty"`
	Temperature       *float64       `yaml:"temperature,omitempty"`
	Stop              []string       `yaml:"stop,omitempty"`
	Stream            bool           `yaml:"stream,omitempty"`
}

func NewChatSettings() *ChatSettings {
	return &ChatSettings{
		Stop:   []string{},
		Stream: true,
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}
