package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juparave/commitreminder/internal/util"
)

const (
	// DefaultThreshold is used when neither a workspace nor a global threshold is stored
	DefaultThreshold = 100

	// DefaultDebounce coalesces bursts of file events into one check
	DefaultDebounce = 500 * time.Millisecond
)

// Config holds all application configuration
type Config struct {
	DefaultThreshold int           `yaml:"default_threshold"`
	GitBinary        string        `yaml:"git_binary"`
	State            StateConfig   `yaml:"state"`
	Watch            WatchConfig   `yaml:"watch"`
	Notify           NotifyConfig  `yaml:"notify"`
	Suggest          SuggestConfig `yaml:"suggest"`
	RepoPath         string        `yaml:"-"` // Set via CLI only
	Verbose          bool          `yaml:"-"` // Set via CLI only
}

// StateConfig holds persistent state settings
type StateConfig struct {
	DBPath string `yaml:"db_path"`
}

// WatchConfig holds file watching settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Ignore   []string      `yaml:"ignore"`
}

// NotifyConfig selects where reminders are delivered
type NotifyConfig struct {
	Terminal bool        `yaml:"terminal"`
	Email    EmailConfig `yaml:"email"`
}

// EmailConfig holds email delivery settings
type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromAddress  string `yaml:"from_address"`
	FromName     string `yaml:"from_name"`
	ToAddress    string `yaml:"to_address"`
}

// SuggestConfig holds commit message suggestion settings
type SuggestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // googleai, openai
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // Custom OpenAI-compatible endpoint
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	dbPath := "state.db"
	if dataDir, err := util.DataDir(); err == nil {
		dbPath = filepath.Join(dataDir, "state.db")
	}

	return &Config{
		DefaultThreshold: DefaultThreshold,
		GitBinary:        "git",
		State: StateConfig{
			DBPath: dbPath,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{".git", "node_modules", "vendor", "dist", "build", ".cache"},
		},
		Notify: NotifyConfig{
			Terminal: true,
			Email: EmailConfig{
				SMTPPort: 587,
				FromName: "Commit Reminder",
			},
		},
		Suggest: SuggestConfig{
			Provider: "googleai",
			Model:    "gemini-2.0-flash",
		},
		RepoPath: ".",
	}
}

// DefaultPath returns ~/.config/commit-reminder/config.yaml
func DefaultPath() (string, error) {
	dir, err := util.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from file and merges with defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil // Use defaults if can't find home
		}
		path = p
	}

	path = util.ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.State.DBPath = util.ExpandPath(cfg.State.DBPath)

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DefaultThreshold < 0 {
		return fmt.Errorf("default_threshold must be non-negative, got %d", c.DefaultThreshold)
	}

	if c.State.DBPath == "" {
		return fmt.Errorf("state.db_path is required")
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %s", c.Watch.Debounce)
	}

	if c.Notify.Email.Enabled {
		if c.Notify.Email.SMTPHost == "" {
			return fmt.Errorf("smtp_host is required when email is enabled")
		}
		if c.Notify.Email.ToAddress == "" {
			return fmt.Errorf("to_address is required when email is enabled")
		}
	}

	if c.Suggest.Enabled {
		switch c.Suggest.Provider {
		case "googleai", "openai":
		default:
			return fmt.Errorf("suggest.provider must be googleai or openai, got %q", c.Suggest.Provider)
		}
		if c.Suggest.APIKey == "" {
			// Check environment variables
			for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
				if key := os.Getenv(env); key != "" {
					c.Suggest.APIKey = key
					break
				}
			}
		}
	}

	return nil
}
