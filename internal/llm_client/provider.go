package llm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
}

type Provider interface {
	Init(cfg Config) error
	DefaultModel() string
	AllowedModelOrDefault(model string) string
	Generate(ctx context.Context, prompt, model string) (string, error)
	GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error)
}

var (
	active   Provider
	activeID string
)

func Init(cfg Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
		activeID = "ollama"
	case "gemini":
		p = &geminiProvider{}
		activeID = "gemini"
	default:
		return fmt.Errorf("unsupported LLM backend: %s", backend)
	}
	if err := p.Init(cfg); err != nil {
		return err
	}
	active = p
	return nil
}

// SetActive swaps the package-level provider directly. Tests use this to
// install fakes without touching backend configuration.
func SetActive(p Provider, id string) {
	active = p
	activeID = id
}

func ActiveBackend() string {
	if active == nil {
		return ""
	}
	return activeID
}

func AllowedModelOrDefault(m string) string {
	if active == nil {
		return m
	}
	return active.AllowedModelOrDefault(m)
}

func Generate(ctx context.Context, prompt, model string) (string, error) {
	if active == nil {
		return "", ErrNotInitialized
	}
	return active.Generate(ctx, prompt, model)
}

func GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	if active == nil {
		return "", ErrNotInitialized
	}
	return active.GenerateJSON(ctx, prompt, model, schema)
}

// CleanJSON strips markdown code fences that some backends wrap around
// strict-JSON responses.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeInto runs GenerateJSON and unmarshals the response into out.
// Unmarshal failures wrap ErrMalformed so callers can tell "the service
// answered garbage" apart from "the service was unreachable".
func DecodeInto(ctx context.Context, prompt, model string, schema any, out any) error {
	raw, err := GenerateJSON(ctx, prompt, model, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(CleanJSON(raw)), out); err != nil {
		return fmt.Errorf("%w: %v (raw: %.200s)", ErrMalformed, err, raw)
	}
	return nil
}
