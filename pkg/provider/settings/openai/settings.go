package openai

import "github.com/huandu/go-clone"

type Settings struct {
	// How many choices to create for each prompt
	N *int `yaml:"n,omitempty"`
	// PresencePenalty to use
	PresencePenalty *float64 `yaml:"presence_penalty,omitempty"`
	// FrequencyPenalty to use
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
