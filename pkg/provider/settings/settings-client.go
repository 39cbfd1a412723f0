package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

type ClientSettings struct {
	Timeout        *time.Duration `yaml:"timeout,omitempty"`
	TimeoutSeconds *int           `yaml:"timeout_second,omitempty"`
	Organization   *string        `yaml:"organization,omitempty"`
	UserAgent      *string        `yaml:"user_agent,omitempty"`
	HTTPClient     *http.Client   `yaml:"-" json:"-"`
}

// UnmarshalYAML overrides YAML parsing to convert time.Duration from an
// integer number of seconds.
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	type Alias ClientSettings
	aux := &struct {
		Timeout *int `yaml:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(cs),
	}
	if err := value.Decode(aux); err != nil {
		return err
	}
	if aux.Timeout != nil {
		t := time.Duration(*aux.Timeout) * time.Second
		cs.Timeout = &t
		cs.TimeoutSeconds = aux.Timeout
	}
	return nil
}

func (cs *ClientSettings) Clone() *ClientSettings {
	return clone.Clone(cs).(*ClientSettings)
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := 60 * time.Second
	defaultSeconds := int(defaultTimeout.Seconds())
	return &ClientSettings{
		Timeout:        &defaultTimeout,
		TimeoutSeconds: &defaultSeconds,
	}
}
