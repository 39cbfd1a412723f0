package ollama

import "github.com/huandu/go-clone"

type Settings struct {
	Mirostat      *int     `yaml:"mirostat,omitempty"`
	MirostatEta   *float64 `yaml:"mirostat-eta,omitempty"`
	MirostatTau   *float64 `yaml:"mirostat-tau,omitempty"`
	NumCtx        *int     `yaml:"num-ctx,omitempty"`
	NumGpu        *int     `yaml:"num-gpu,omitempty"`
	NumThread     *int     `yaml:"num-thread,omitempty"`
	RepeatLastN   *int     `yaml:"repeat-last-n,omitempty"`
	RepeatPenalty *float64 `yaml:"repeat-penalty,omitempty"`
	Seed          *int     `yaml:"seed,omitempty"`
	TfsZ          *float64 `yaml:"tfs-z,omitempty"`
	NumPredict    *int     `yaml:"num-predict,omitempty"`
	TopK          *int     `yaml:"top-k,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
