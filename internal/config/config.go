// Package config provides configuration types and loading for lexcal.
package config

// Config is the root configuration struct.
// Top-level groups: Server, Backend, Model, History, Timeline, Trace, Prompt.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Backend  BackendConfig  `json:"backend"`
	Model    ModelConfig    `json:"model"`
	History  HistoryConfig  `json:"history"`
	Timeline TimelineConfig `json:"timeline"`
	Trace    TraceConfig    `json:"trace"`
	Prompt   PromptConfig   `json:"prompt"`
}

// ---------------------------------------------------------------------------
// Server – HTTP listener
// ---------------------------------------------------------------------------

// ServerConfig groups the HTTP server settings.
type ServerConfig struct {
	Listen string `json:"listen" envconfig:"LISTEN"`
}

// ---------------------------------------------------------------------------
// Backend – calendar API
// ---------------------------------------------------------------------------

// BackendConfig groups calendar backend connection settings.
type BackendConfig struct {
	BaseURL        string  `json:"baseUrl" envconfig:"BASE_URL"`
	TimeoutSeconds int     `json:"timeoutSeconds" envconfig:"TIMEOUT_SECONDS"`
	RetryAttempts  int     `json:"retryAttempts" envconfig:"RETRY_ATTEMPTS"`
	RetryBaseMs    int     `json:"retryBaseMs" envconfig:"RETRY_BASE_MS"`
	RetryMaxMs     int     `json:"retryMaxMs" envconfig:"RETRY_MAX_MS"`
	RetryMult      float64 `json:"retryMultiplier" envconfig:"RETRY_MULTIPLIER"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and agent-loop settings.
type ModelConfig struct {
	APIKey      string  `json:"apiKey" envconfig:"API_KEY"`
	APIBase     string  `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Name        string  `json:"name" envconfig:"NAME"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxRounds   int     `json:"maxRounds" envconfig:"MAX_ROUNDS"`
}

// ---------------------------------------------------------------------------
// History – conversation compaction
// ---------------------------------------------------------------------------

// HistoryConfig groups conversation sanitation settings.
type HistoryConfig struct {
	KeepRecent      int `json:"keepRecent" envconfig:"KEEP_RECENT"`
	MaxContentChars int `json:"maxContentChars" envconfig:"MAX_CONTENT_CHARS"`
}

// ---------------------------------------------------------------------------
// Timeline – local audit store
// ---------------------------------------------------------------------------

// TimelineConfig groups the sqlite audit store settings.
type TimelineConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// ---------------------------------------------------------------------------
// Trace – Kafka span publishing
// ---------------------------------------------------------------------------

// TraceConfig groups Kafka trace publishing settings.
type TraceConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
	AgentID string `json:"agentId" envconfig:"AGENT_ID"`
}

// ---------------------------------------------------------------------------
// Prompt – system prompt override
// ---------------------------------------------------------------------------

// PromptConfig groups prompt customization.
type PromptConfig struct {
	SystemPrompt string `json:"systemPrompt" envconfig:"SYSTEM_PROMPT"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8088",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 15,
			RetryAttempts:  3,
			RetryBaseMs:    250,
			RetryMaxMs:     5000,
			RetryMult:      2.0,
		},
		Model: ModelConfig{
			Name:        "gpt-4o",
			MaxTokens:   1024,
			Temperature: 0.2,
			MaxRounds:   5,
		},
		History: HistoryConfig{
			KeepRecent:      3,
			MaxContentChars: 1000,
		},
		Timeline: TimelineConfig{
			Enabled: true,
			DBPath:  "~/.lexcal/timeline.db",
		},
		Trace: TraceConfig{
			Topic:   "lexcal.traces",
			AgentID: "lexcal",
		},
	}
}
