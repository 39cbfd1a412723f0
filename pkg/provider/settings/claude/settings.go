package claude

import "github.com/huandu/go-clone"

type Settings struct {
	TopK   *int    `yaml:"top_k,omitempty"`
	UserID *string `yaml:"user_id,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
