package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects the generation backend.
type LLMConfig struct {
	// Backend is "gemini" or "ollama"
	Backend string `yaml:"backend"`

	// Model overrides the backend's default model
	Model string `yaml:"model"`

	// OllamaHost is used when backend is "ollama"
	OllamaHost string `yaml:"ollama_host"`
}

// MatcherConfig tunes guideline matching.
type MatcherConfig struct {
	// Threshold filters out matches scoring below it (0..1)
	Threshold float64 `yaml:"threshold"`

	// BatchSize is how many guidelines go into one evaluation request
	BatchSize int `yaml:"batch_size"`

	// CacheSize bounds the per-session match cache
	CacheSize int `yaml:"cache_size"`
}

// Duration decodes "60s"-style YAML values into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// CascadeConfig tunes task execution.
type CascadeConfig struct {
	// DependencyMode is "presence" (a dependency is met when the upstream
	// task produced text) or "success" (upstream must have completed)
	DependencyMode string `yaml:"dependency_mode"`

	// TaskTimeout bounds each task's execution
	TaskTimeout Duration `yaml:"task_timeout"`

	// StyleValidation toggles the post-writer style corrector
	StyleValidation bool `yaml:"style_validation"`
}

// Config represents concierge configuration options.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Matcher MatcherConfig `yaml:"matcher"`
	Cascade CascadeConfig `yaml:"cascade"`

	// GuidelinesFile is the YAML file holding the static guideline set
	GuidelinesFile string `yaml:"guidelines_file"`

	// WorkersFile optionally overrides/extends the built-in worker catalog
	WorkersFile string `yaml:"workers_file"`

	// LogFile is where the file logger writes
	LogFile string `yaml:"log_file"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend: "gemini",
		},
		Matcher: MatcherConfig{
			Threshold: 0.6,
			BatchSize: 5,
			CacheSize: 256,
		},
		Cascade: CascadeConfig{
			DependencyMode:  "presence",
			TaskTimeout:     Duration(60 * time.Second),
			StyleValidation: true,
		},
		GuidelinesFile: "guidelines.yaml",
		WorkersFile:    "",
		LogFile:        "concierge.log",
	}
}

// LoadConfig loads configuration from the given path. A missing file returns
// defaults without error; a malformed file returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Matcher.Threshold < 0 || cfg.Matcher.Threshold > 1 {
		return nil, fmt.Errorf("matcher.threshold must be within [0,1], got %v", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.BatchSize < 0 {
		return nil, fmt.Errorf("matcher.batch_size must not be negative")
	}
	switch cfg.Cascade.DependencyMode {
	case "", "presence", "success":
	default:
		return nil, fmt.Errorf("cascade.dependency_mode must be \"presence\" or \"success\", got %q", cfg.Cascade.DependencyMode)
	}
	return cfg, nil
}
