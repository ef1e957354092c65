package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"react-agent/internal/application/port/output"

	"github.com/joho/godotenv"
)

var _ output.ConfigPort = (*EnvService)(nil)

// EnvService reads configuration from the process environment after
// loading .env and .env.$APP_ENV into it.
type EnvService struct {
	appEnv  string
	sources []string
	notes   []string
}

func NewEnvService() *EnvService {
	return NewEnvServiceIn(".")
}

// NewEnvServiceIn loads the env files from dir. Variables already present in
// the environment win over .env; .env.$APP_ENV overrides both.
func NewEnvServiceIn(dir string) *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	s := &EnvService{appEnv: appEnv}

	base := filepath.Join(dir, ".env")
	if err := godotenv.Load(base); err != nil {
		s.notes = append(s.notes, "no .env file with secrets found (this is OK for CI/CD)")
	} else {
		s.sources = append(s.sources, base)
	}

	envFile := filepath.Join(dir, ".env."+appEnv)
	if err := godotenv.Overload(envFile); err != nil {
		s.notes = append(s.notes, fmt.Sprintf("could not load %s: %v", envFile, err))
	} else {
		s.sources = append(s.sources, envFile)
	}

	return s
}

func (e *EnvService) AppEnv() string {
	return e.appEnv
}

// Sources lists the env files that were loaded.
func (e *EnvService) Sources() []string {
	return append([]string(nil), e.sources...)
}

// Notes explains env files that were skipped. The logger does not exist
// yet when files are loaded, so callers log these afterwards.
func (e *EnvService) Notes() []string {
	return append([]string(nil), e.notes...)
}

func (e *EnvService) Get(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e *EnvService) Lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	val := e.Get(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	val := e.Get(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
