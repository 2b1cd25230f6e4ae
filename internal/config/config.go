package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// ShiftTemplate defines a recurring guard shift to expand into concrete
// shifts over the scheduling horizon.
type ShiftTemplate struct {
	Name            string   `yaml:"name" validate:"required"`
	RRule           string   `yaml:"rrule" validate:"required"`
	Scope           string   `yaml:"scope" validate:"required"`
	StartTime       string   `yaml:"startTime" validate:"required"` // HH:MM, local to the scope
	EndTime         string   `yaml:"endTime" validate:"required"`   // HH:MM; earlier than startTime means next day
	MinParticipants int      `yaml:"minParticipants" validate:"required,min=1"`
	MaxParticipants int      `yaml:"maxParticipants" validate:"required,gtefield=MinParticipants"`
	Type            string   `yaml:"type" validate:"required,oneof=day night standby"`
	Tier            string   `yaml:"tier,omitempty" validate:"omitempty,oneof=routine elevated critical"`
	Slots           []string `yaml:"slots,omitempty"` // optional capability tags, one slot per tag
}

// Config represents the application configuration
type Config struct {
	DatabaseURL    string          `yaml:"databaseURL" validate:"required"`
	Scope          string          `yaml:"scope" validate:"required"`
	HorizonDays    int             `yaml:"horizonDays,omitempty" validate:"omitempty,min=1"`
	ShiftTemplates []ShiftTemplate `yaml:"shiftTemplates,omitempty" validate:"dive"`
}

// DefaultHorizonDays is how far ahead shifts are expanded when the config
// does not say otherwise.
const DefaultHorizonDays = 28

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from guardpost_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = DefaultHorizonDays
	}

	return &cfg, nil
}

// Validate validates the configuration struct, rrule syntax and template times
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, tpl := range cfg.ShiftTemplates {
		if _, err := rrule.StrToRRule(tpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shiftTemplates[%d]: %w", i, err)
		}
		if _, err := time.Parse("15:04", tpl.StartTime); err != nil {
			return fmt.Errorf("invalid startTime in shiftTemplates[%d]: %w", i, err)
		}
		if _, err := time.Parse("15:04", tpl.EndTime); err != nil {
			return fmt.Errorf("invalid endTime in shiftTemplates[%d]: %w", i, err)
		}
	}

	return nil
}

// findConfigFile searches for guardpost_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "guardpost_config.yaml"

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
