package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects which controller drives the session.
const (
	ModeDebate   = "debate"
	ModeWorkshop = "workshop"
)

// participantKeys maps each mode to its two required participant keys,
// in speaking order.
var participantKeys = map[string][2]string{
	ModeDebate:   {"a", "b"},
	ModeWorkshop: {"author", "editor"},
}

// Participant describes one of the two agents taking part in a session.
type Participant struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
}

// Config is the immutable session configuration loaded from a YAML file.
type Config struct {
	Topic           string                 `mapstructure:"topic"`
	Mode            string                 `mapstructure:"mode"`
	Participants    map[string]Participant `mapstructure:"participants"`
	Brief           string                 `mapstructure:"brief"`
	SourceFile      string                 `mapstructure:"source_file"`
	MaxTurns        int                    `mapstructure:"max_turns"`
	CheckInInterval int                    `mapstructure:"check_in_interval"`
	TurnTimeout     int                    `mapstructure:"turn_timeout"`
	OutputDir       string                 `mapstructure:"output_dir"`

	// SourcePath is the resolved path of the file the config was loaded from.
	SourcePath string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeDebate)
	v.SetDefault("max_turns", 10)
	v.SetDefault("check_in_interval", 4)
	v.SetDefault("turn_timeout", 300)
	v.SetDefault("output_dir", "./conversations")
}

// Load reads and validates a session configuration file. A config that
// passes Load is safe to run: no field is checked again after this point.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	for key, p := range cfg.Participants {
		p.Name = strings.TrimSpace(p.Name)
		p.Role = strings.TrimSpace(p.Role)
		cfg.Participants[key] = p
	}

	if abs, err := filepath.Abs(path); err == nil {
		cfg.SourcePath = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces every invariant the controllers rely on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("config: topic is required")
	}
	keys, ok := participantKeys[c.Mode]
	if !ok {
		return fmt.Errorf("config: invalid mode %q, must be %q or %q", c.Mode, ModeDebate, ModeWorkshop)
	}
	if len(c.Participants) != 2 {
		return fmt.Errorf("config: exactly 2 participants required (%s, %s), got %d", keys[0], keys[1], len(c.Participants))
	}
	for _, key := range keys {
		p, ok := c.Participants[key]
		if !ok {
			return fmt.Errorf("config: participant %q is required in %s mode", key, c.Mode)
		}
		if p.Name == "" || p.Role == "" {
			return fmt.Errorf("config: participant %q must have a name and a role", key)
		}
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("config: max_turns must be >= 1, got %d", c.MaxTurns)
	}
	if c.CheckInInterval < 1 {
		return fmt.Errorf("config: check_in_interval must be >= 1, got %d", c.CheckInInterval)
	}
	if c.TurnTimeout < 1 {
		return fmt.Errorf("config: turn_timeout must be >= 1 second, got %d", c.TurnTimeout)
	}
	if c.Mode == ModeWorkshop && strings.TrimSpace(c.Brief) == "" {
		return fmt.Errorf("config: workshop mode requires a brief")
	}
	return nil
}

// Keys returns the two participant keys for the configured mode, in
// speaking order.
func (c *Config) Keys() [2]string {
	return participantKeys[c.Mode]
}

// Timeout returns the per-turn timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TurnTimeout) * time.Second
}
