package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

const (
	ProviderOpenAI    = "openai"
	ProviderLangChain = "langchain"

	FormatJSON    = "json"
	FormatConsole = "console"
)

var logLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Settings is the validated application configuration.
type Settings struct {
	AppName     string
	AppVersion  string
	Environment string
	Debug       bool

	LogLevel  string
	LogFormat string
	LogFile   string

	DBURI string

	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	Temperature   float64
	MaxTokens     int
	TopP          float64
	TopK          int

	MaxIterations   int
	ToolErrorPolicy string
	ThreadID        string
	RunTimeout      time.Duration
}

func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// Redacted returns loggable key/value pairs with the API key masked.
func (s *Settings) Redacted() map[string]any {
	return map[string]any{
		"app_name":          s.AppName,
		"app_version":       s.AppVersion,
		"environment":       s.Environment,
		"debug":             s.Debug,
		"log_level":         s.LogLevel,
		"log_format":        s.LogFormat,
		"db_uri":            RedactURI(s.DBURI),
		"llm_provider":      s.LLMProvider,
		"openai_api_key":    RedactValue(s.OpenAIAPIKey),
		"openai_model":      s.OpenAIModel,
		"openai_base_url":   s.OpenAIBaseURL,
		"temperature":       s.Temperature,
		"max_tokens":        s.MaxTokens,
		"top_p":             s.TopP,
		"top_k":             s.TopK,
		"max_iterations":    s.MaxIterations,
		"tool_error_policy": s.ToolErrorPolicy,
		"thread_id":         s.ThreadID,
		"run_timeout":       s.RunTimeout.String(),
	}
}

// Load reads and validates every setting. All problems are reported in one
// error wrapping entity.ErrConfiguration.
func Load(src output.ConfigPort) (*Settings, error) {
	l := &loader{src: src}

	s := &Settings{
		AppName:     l.required("APP_NAME"),
		AppVersion:  l.required("APP_VERSION"),
		Environment: l.oneOf("ENVIRONMENT", "", "development", "staging", "production"),
		Debug:       l.boolean("DEBUG", false),

		LogLevel:  l.oneOf("LOG_LEVEL", "", logLevels...),
		LogFormat: l.oneOf("LOG_FORMAT", FormatJSON, FormatJSON, FormatConsole),
		LogFile:   l.optional("LOG_FILE", ""),

		DBURI: l.optional("DB_URI", "memory"),

		LLMProvider:   l.oneOf("LLM_PROVIDER", ProviderOpenAI, ProviderOpenAI, ProviderLangChain),
		OpenAIAPIKey:  l.required("OPENAI_API_KEY"),
		OpenAIModel:   l.required("OPENAI_MODEL"),
		OpenAIBaseURL: l.optional("OPENAI_BASE_URL", ""),
		Temperature:   l.float("OPENAI_TEMPERATURE", 0, 2),
		MaxTokens:     l.integer("OPENAI_MAX_TOKENS", 0, -1, nil),
		TopP:          l.float("OPENAI_TOP_P", 0, 1),
		TopK:          l.integer("OPENAI_TOP_K", 1, 100, nil),

		MaxIterations:   l.integer("AGENT_MAX_ITERATIONS", 1, -1, intPtr(25)),
		ToolErrorPolicy: l.oneOf("AGENT_TOOL_ERROR_POLICY", "fatal", "fatal", "in_band"),
		ThreadID:        l.optional("THREAD_ID", "1"),
		RunTimeout:      l.duration("AGENT_RUN_TIMEOUT", 5*time.Minute),
	}

	if len(l.problems) > 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrConfiguration, strings.Join(l.problems, "; "))
	}
	return s, nil
}

type loader struct {
	src      output.ConfigPort
	problems []string
}

func (l *loader) fail(format string, args ...any) {
	l.problems = append(l.problems, fmt.Sprintf(format, args...))
}

func (l *loader) required(key string) string {
	val, ok := l.src.Lookup(key)
	if !ok {
		l.fail("%s is required", key)
		return ""
	}
	return val
}

func (l *loader) optional(key, def string) string {
	if val, ok := l.src.Lookup(key); ok {
		return val
	}
	return def
}

// oneOf reads a value restricted to allowed (case-insensitive). An empty
// def makes the key required.
func (l *loader) oneOf(key, def string, allowed ...string) string {
	var val string
	if def == "" {
		val = l.required(key)
		if val == "" {
			return ""
		}
	} else {
		val = l.optional(key, def)
	}
	for _, a := range allowed {
		if strings.EqualFold(val, a) {
			return a
		}
	}
	l.fail("%s must be one of %s, got %q", key, strings.Join(allowed, "/"), val)
	return ""
}

func (l *loader) boolean(key string, def bool) bool {
	val, ok := l.src.Lookup(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		l.fail("%s must be a boolean, got %q", key, val)
		return def
	}
	return parsed
}

func (l *loader) float(key string, min, max float64) float64 {
	val := l.required(key)
	if val == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		l.fail("%s must be a number, got %q", key, val)
		return 0
	}
	if parsed < min || parsed > max {
		l.fail("%s must be between %g and %g, got %g", key, min, max, parsed)
	}
	return parsed
}

// integer reads an int in [min, max]; a negative max means unbounded. A nil
// def makes the key required.
func (l *loader) integer(key string, min, max int, def *int) int {
	var val string
	if def == nil {
		val = l.required(key)
		if val == "" {
			return 0
		}
	} else {
		var ok bool
		if val, ok = l.src.Lookup(key); !ok {
			return *def
		}
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		l.fail("%s must be an integer, got %q", key, val)
		return 0
	}
	if parsed < min || (max >= 0 && parsed > max) {
		if max >= 0 {
			l.fail("%s must be between %d and %d, got %d", key, min, max, parsed)
		} else {
			l.fail("%s must be at least %d, got %d", key, min, parsed)
		}
	}
	return parsed
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	val, ok := l.src.Lookup(key)
	if !ok {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		l.fail("%s must be a positive duration, got %q", key, val)
		return def
	}
	return parsed
}

func intPtr(v int) *int { return &v }
