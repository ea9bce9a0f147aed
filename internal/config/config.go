package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapcal/snapcal/internal/core/domain"
)

type Config struct {
	APIPort  string
	LogLevel string

	InferenceURL       string
	InferenceAPIKey    string
	InferenceKeyPrefix string
	InferenceModels    string
	ModelsFile         string

	ExtractMaxRetries     int
	ExtractAttemptTimeout time.Duration
	ExtractBaseDelay      time.Duration
	ExtractMaxDelay       time.Duration
	ProbeTimeout          time.Duration
	BreakerEnabled        bool

	ParseDescriptionCap int

	PostgresDSN string

	APIRateLimitRPS          float64
	APIRateLimitBurst        int
	MaxConcurrentExtractions int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		InferenceURL:       mustEnv("INFERENCE_API_URL", "https://api.openai.com"),
		InferenceAPIKey:    mustEnv("INFERENCE_API_KEY", ""),
		InferenceKeyPrefix: mustEnv("INFERENCE_KEY_PREFIX", ""),
		InferenceModels:    mustEnv("INFERENCE_MODELS", ""),
		ModelsFile:         mustEnv("MODELS_FILE", ""),

		ExtractMaxRetries:     mustEnvInt("EXTRACT_MAX_RETRIES", 2),
		ExtractAttemptTimeout: mustEnvMillis("EXTRACT_ATTEMPT_TIMEOUT_MS", 30000),
		ExtractBaseDelay:      mustEnvMillis("EXTRACT_BASE_DELAY_MS", 1000),
		ExtractMaxDelay:       mustEnvMillis("EXTRACT_MAX_DELAY_MS", 10000),
		ProbeTimeout:          mustEnvMillis("PROBE_TIMEOUT_MS", 3000),
		BreakerEnabled:        mustEnvBool("BREAKER_ENABLED", false),

		ParseDescriptionCap: mustEnvInt("PARSE_RAW_DESCRIPTION_CAP", 300),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		APIRateLimitRPS:          mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:        mustEnvInt("API_RATE_LIMIT_BURST", 10),
		MaxConcurrentExtractions: mustEnvInt("MAX_CONCURRENT_EXTRACTIONS", 4),
	}
}

// Validate catches deployment defects before any network call is made.
// A missing or malformed credential is a Configuration error, never a
// network error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InferenceAPIKey) == "" {
		return domain.WrapError(domain.ErrConfiguration, "validate config",
			errors.New("INFERENCE_API_KEY is not set; provide the inference service credential"))
	}
	if c.InferenceKeyPrefix != "" && !strings.HasPrefix(c.InferenceAPIKey, c.InferenceKeyPrefix) {
		return domain.WrapError(domain.ErrConfiguration, "validate config",
			fmt.Errorf("INFERENCE_API_KEY does not start with the expected prefix %q", c.InferenceKeyPrefix))
	}
	return nil
}

type modelsFile struct {
	Models []domain.CandidateModel `yaml:"models"`
}

// Models resolves the candidate chain: the INFERENCE_MODELS env list wins,
// then the YAML models file, then the built-in defaults. Env entries are
// comma-separated names whose position sets the priority.
func (c Config) Models() ([]domain.CandidateModel, error) {
	if trimmed := strings.TrimSpace(c.InferenceModels); trimmed != "" {
		names := strings.Split(trimmed, ",")
		models := make([]domain.CandidateModel, 0, len(names))
		for i, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			models = append(models, domain.CandidateModel{Name: name, Priority: i})
		}
		if len(models) > 0 {
			return models, nil
		}
	}

	if c.ModelsFile != "" {
		data, err := os.ReadFile(c.ModelsFile)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "read models file", err)
		}
		var parsed modelsFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "parse models file", err)
		}
		if len(parsed.Models) == 0 {
			return nil, domain.WrapError(domain.ErrConfiguration, "parse models file",
				fmt.Errorf("%s lists no models", c.ModelsFile))
		}
		return parsed.Models, nil
	}

	return domain.DefaultModels(), nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(mustEnvInt(key, fallbackMs)) * time.Millisecond
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
