package config

// Supported generation backends.
const (
	BackendREST  = "rest"  // raw generateContent over net/http
	BackendGenAI = "genai" // google.golang.org/genai SDK
)

// DefaultBaseURL is the public Gemini API root used by the REST backend.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ValidBackends lists all supported LLM backends.
var ValidBackends = []string{BackendREST, BackendGenAI}

// LLMConfig configures the generation collaborator.
type LLMConfig struct {
	Backend string `yaml:"backend"` // rest, genai
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	PlanModel string `yaml:"plan_model"`
	ChatModel string `yaml:"chat_model"`
	TTSModel  string `yaml:"tts_model"`
	Voice     string `yaml:"voice"` // prebuilt TTS voice

	Timeout string `yaml:"timeout"`

	// Token budget used when a plan request asks for extended reasoning
	ThinkingBudget int `yaml:"thinking_budget"`

	// Transport retries for 429/5xx. Zero disables retrying.
	MaxRetries int `yaml:"max_retries"`

	// Minimum spacing between requests from one client
	MinRequestInterval string `yaml:"min_request_interval"`
}
