package gemini

import "github.com/huandu/go-clone"

type Settings struct {
	TopK *int `yaml:"top_k,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
