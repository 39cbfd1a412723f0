package settings

import "github.com/huandu/go-clone"

// APISettings holds credentials and endpoints per api type, keyed
// "<api-type>-api-key" and "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: map[string]string{},
	}
}

func (s *APISettings) Clone() *APISettings {
	return clone.Clone(s).(*APISettings)
}
