package types

// ApiType names one backend wire protocol. OpenAI-compatible hosts such
// as anyscale and fireworks share the openai code path, with their own
// API keys and base URLs.
type ApiType string

const (
	ApiTypeOpenAI    ApiType = "openai"
	ApiTypeAnyScale  ApiType = "anyscale"
	ApiTypeFireworks ApiType = "fireworks"
	ApiTypeClaude    ApiType = "claude"
	ApiTypeGemini    ApiType = "gemini"
	ApiTypeOllama    ApiType = "ollama"
	// Echo is the local loopback backend used for tests and offline runs.
	ApiTypeEcho ApiType = "echo"
)
