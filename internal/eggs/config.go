package eggs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"edgeroute/internal/achievements"
	"edgeroute/internal/sequence"
)

//go:embed eggs.yaml
var defaultConfig []byte

type InputKind string

const (
	InputKey   InputKind = "key"
	InputClick InputKind = "click"
)

// Action is what happens when a sequence completes.
type Action string

const (
	ActionMinigame Action = "minigame"
	ActionTheme    Action = "theme"
)

type SequenceDef struct {
	ID      string        `yaml:"id"`
	Input   InputKind     `yaml:"input"`
	Action  Action        `yaml:"action"`
	Timeout time.Duration `yaml:"timeout"`
	Tokens  []string      `yaml:"tokens"`
}

func (d SequenceDef) tokens() []sequence.Token {
	out := make([]sequence.Token, len(d.Tokens))
	for i, t := range d.Tokens {
		out[i] = sequence.Token(t)
	}
	return out
}

type Config struct {
	Sequences    []SequenceDef             `yaml:"sequences"`
	Landmarks    []sequence.Landmark       `yaml:"landmarks"`
	Achievements []achievements.Definition `yaml:"achievements"`
}

var ErrInvalidConfig = errors.New("invalid easter egg config")

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return Parse(defaultConfig)
}

// LoadConfig reads path, or the embedded configuration when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading eggs file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding eggs config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sequences))
	for _, s := range c.Sequences {
		if s.ID == "" {
			return fmt.Errorf("%w: sequence without id", ErrInvalidConfig)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate sequence %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if len(s.Tokens) == 0 {
			return fmt.Errorf("%w: sequence %q has no tokens", ErrInvalidConfig, s.ID)
		}
		switch s.Input {
		case InputKey, InputClick:
		default:
			return fmt.Errorf("%w: sequence %q has unknown input %q", ErrInvalidConfig, s.ID, s.Input)
		}
		switch s.Action {
		case ActionMinigame, ActionTheme:
		default:
			return fmt.Errorf("%w: sequence %q has unknown action %q", ErrInvalidConfig, s.ID, s.Action)
		}
	}
	for _, l := range c.Landmarks {
		if l.Token == "" || (l.Class == "" && l.Href == "") {
			return fmt.Errorf("%w: landmark needs a token and a class or href", ErrInvalidConfig)
		}
	}
	if err := achievements.Validate(c.Achievements); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
