package factory

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/claude"
	"github.com/go-go-golems/grillo/pkg/provider/echo"
	"github.com/go-go-golems/grillo/pkg/provider/gemini"
	"github.com/go-go-golems/grillo/pkg/provider/ollama"
	"github.com/go-go-golems/grillo/pkg/provider/openai"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

// EngineFactory creates streaming engines based on backend settings.
// The interface gives callers runtime control over which backend is used
// without knowing the specific implementations.
type EngineFactory interface {
	// CreateEngine creates an Engine instance based on the provided settings.
	// The actual backend is determined from settings.Chat.ApiType.
	// Returns an error if the backend is unsupported or configuration is invalid.
	CreateEngine(stepSettings *settings.StepSettings) (provider.Engine, error)

	// SupportedBackends returns a list of backend names this factory supports.
	// Backend names match the ApiType constants (e.g., "openai", "claude", "gemini").
	SupportedBackends() []string

	// DefaultBackend returns the name of the default backend used when
	// settings.Chat.ApiType is nil or not specified.
	DefaultBackend() string
}

// StandardEngineFactory is the default implementation of EngineFactory.
// Backend selection is based on settings.Chat.ApiType with fallback to OpenAI.
type StandardEngineFactory struct{}

// NewStandardEngineFactory creates a new StandardEngineFactory.
func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

// CreateEngine creates an Engine instance based on the backend specified in
// settings.Chat.ApiType. If no ApiType is specified, defaults to OpenAI.
// Supported backends: openai, anyscale, fireworks, claude, anthropic, gemini,
// ollama, echo.
func (f *StandardEngineFactory) CreateEngine(stepSettings *settings.StepSettings) (provider.Engine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}

	backend := f.DefaultBackend()
	if stepSettings.Chat != nil && stepSettings.Chat.ApiType != nil {
		backend = strings.ToLower(string(*stepSettings.Chat.ApiType))
	}

	if err := f.validateSettings(stepSettings, backend); err != nil {
		return nil, errors.Wrapf(err, "invalid settings for backend %s", backend)
	}

	switch backend {
	case string(types.ApiTypeOpenAI), string(types.ApiTypeAnyScale), string(types.ApiTypeFireworks):
		return openai.NewOpenAIEngine(stepSettings)

	case string(types.ApiTypeClaude), "anthropic":
		return claude.NewClaudeEngine(stepSettings)

	case string(types.ApiTypeGemini):
		return gemini.NewGeminiEngine(stepSettings)

	case string(types.ApiTypeOllama):
		return ollama.NewOllamaEngine(stepSettings)

	case string(types.ApiTypeEcho):
		return echo.NewEchoEngine(), nil

	default:
		supported := strings.Join(f.SupportedBackends(), ", ")
		return nil, errors.Errorf("unsupported backend %s. Supported backends: %s", backend, supported)
	}
}

// SupportedBackends returns the list of backends this factory can create engines for.
func (f *StandardEngineFactory) SupportedBackends() []string {
	return []string{
		string(types.ApiTypeOpenAI),
		string(types.ApiTypeAnyScale),
		string(types.ApiTypeFireworks),
		string(types.ApiTypeClaude),
		"anthropic", // alias for claude
		string(types.ApiTypeGemini),
		string(types.ApiTypeOllama),
		string(types.ApiTypeEcho),
	}
}

// DefaultBackend returns the default backend name used when no ApiType is specified.
func (f *StandardEngineFactory) DefaultBackend() string {
	return string(types.ApiTypeOpenAI)
}

// validateSettings performs basic validation of settings for the specified backend.
func (f *StandardEngineFactory) validateSettings(stepSettings *settings.StepSettings, backend string) error {
	if stepSettings.Chat == nil {
		return errors.New("chat settings cannot be nil")
	}

	if stepSettings.API == nil {
		return errors.New("API settings cannot be nil")
	}

	switch backend {
	case string(types.ApiTypeOpenAI), string(types.ApiTypeAnyScale), string(types.ApiTypeFireworks):
		return f.validateOpenAISettings(stepSettings, backend)

	case string(types.ApiTypeClaude), "anthropic":
		return f.validateClaudeSettings(stepSettings)

	case string(types.ApiTypeGemini):
		return f.validateGeminiSettings(stepSettings)

	case string(types.ApiTypeOllama), string(types.ApiTypeEcho):
		// ollama falls back to OLLAMA_HOST, echo needs nothing
		return nil

	default:
		return errors.Errorf("unknown backend %s", backend)
	}
}

// validateOpenAISettings validates settings required for OpenAI-compatible backends.
func (f *StandardEngineFactory) validateOpenAISettings(stepSettings *settings.StepSettings, backend string) error {
	apiKeyName := backend + "-api-key"
	if _, ok := stepSettings.API.APIKeys[apiKeyName]; !ok {
		return errors.Errorf("missing API key %s", apiKeyName)
	}

	// Base URL is optional for OpenAI (uses default), but required for others
	baseURLName := backend + "-base-url"
	if backend != string(types.ApiTypeOpenAI) {
		if _, ok := stepSettings.API.BaseUrls[baseURLName]; !ok {
			return errors.Errorf("missing base URL %s for backend %s", baseURLName, backend)
		}
	}

	return nil
}

// validateClaudeSettings validates settings required for the Claude/Anthropic backend.
func (f *StandardEngineFactory) validateClaudeSettings(stepSettings *settings.StepSettings) error {
	// Claude uses "claude" as the key regardless of the "anthropic" alias
	actualBackend := string(types.ApiTypeClaude)

	apiKeyName := actualBackend + "-api-key"
	if _, ok := stepSettings.API.APIKeys[apiKeyName]; !ok {
		return errors.Errorf("missing API key %s", apiKeyName)
	}

	baseURLName := actualBackend + "-base-url"
	if _, ok := stepSettings.API.BaseUrls[baseURLName]; !ok {
		return errors.Errorf("missing base URL %s", baseURLName)
	}

	return nil
}

// validateGeminiSettings validates settings required for the Gemini backend.
// The base URL is optional, the client uses Google's endpoint by default.
func (f *StandardEngineFactory) validateGeminiSettings(stepSettings *settings.StepSettings) error {
	apiKeyName := string(types.ApiTypeGemini) + "-api-key"
	if key, ok := stepSettings.API.APIKeys[apiKeyName]; !ok || key == "" {
		return errors.Errorf("missing API key %s", apiKeyName)
	}

	return nil
}

// Compile-time check that StandardEngineFactory implements EngineFactory
var _ EngineFactory = (*StandardEngineFactory)(nil)
