package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
)

func TestLoadIncludesExtractionDefaults(t *testing.T) {
	t.Setenv("EXTRACT_MAX_RETRIES", "")
	t.Setenv("EXTRACT_ATTEMPT_TIMEOUT_MS", "")
	t.Setenv("EXTRACT_BASE_DELAY_MS", "")
	t.Setenv("PROBE_TIMEOUT_MS", "")
	t.Setenv("PARSE_RAW_DESCRIPTION_CAP", "")

	cfg := Load()
	if cfg.ExtractMaxRetries != 2 {
		t.Fatalf("expected default max retries 2, got %d", cfg.ExtractMaxRetries)
	}
	if cfg.ExtractAttemptTimeout != 30*time.Second {
		t.Fatalf("expected default attempt timeout 30s, got %v", cfg.ExtractAttemptTimeout)
	}
	if cfg.ExtractBaseDelay != time.Second {
		t.Fatalf("expected default base delay 1s, got %v", cfg.ExtractBaseDelay)
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Fatalf("expected default probe timeout 3s, got %v", cfg.ProbeTimeout)
	}
	if cfg.ParseDescriptionCap != 300 {
		t.Fatalf("expected default description cap 300, got %d", cfg.ParseDescriptionCap)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("EXTRACT_MAX_RETRIES", "5")
	t.Setenv("EXTRACT_ATTEMPT_TIMEOUT_MS", "1500")
	t.Setenv("PARSE_RAW_DESCRIPTION_CAP", "120")

	cfg := Load()
	if cfg.ExtractMaxRetries != 5 {
		t.Fatalf("expected max retries 5, got %d", cfg.ExtractMaxRetries)
	}
	if cfg.ExtractAttemptTimeout != 1500*time.Millisecond {
		t.Fatalf("expected attempt timeout 1.5s, got %v", cfg.ExtractAttemptTimeout)
	}
	if cfg.ParseDescriptionCap != 120 {
		t.Fatalf("expected description cap 120, got %d", cfg.ParseDescriptionCap)
	}
}

func TestValidateRequiresCredential(t *testing.T) {
	cfg := Config{InferenceAPIKey: ""}
	if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing key, got %v", err)
	}
}

func TestValidateChecksCredentialPrefix(t *testing.T) {
	cfg := Config{InferenceAPIKey: "bad-key", InferenceKeyPrefix: "sk-"}
	if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad prefix, got %v", err)
	}

	cfg.InferenceAPIKey = "sk-good"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid credential, got %v", err)
	}
}

func TestModelsFromEnvListKeepsOrder(t *testing.T) {
	cfg := Config{InferenceModels: "gpt-4o, gpt-4o-mini"}
	models, err := cfg.Models()
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "gpt-4o" || models[0].Priority != 0 {
		t.Fatalf("unexpected first model: %+v", models[0])
	}
	if models[1].Name != "gpt-4o-mini" || models[1].Priority != 1 {
		t.Fatalf("unexpected second model: %+v", models[1])
	}
}

func TestModelsFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := "models:\n  - name: vision-large\n    priority: 0\n  - name: vision-small\n    priority: 1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write models file: %v", err)
	}

	cfg := Config{ModelsFile: path}
	models, err := cfg.Models()
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "vision-large" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestModelsFallBackToDefaults(t *testing.T) {
	models, err := Config{}.Models()
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(models) == 0 {
		t.Fatalf("expected built-in default chain")
	}
}

func TestModelsMissingFileIsConfigurationError(t *testing.T) {
	cfg := Config{ModelsFile: filepath.Join(t.TempDir(), "absent.yaml")}
	if _, err := cfg.Models(); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
