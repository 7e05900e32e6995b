package config

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semaudit.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semaudit"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"

	// EnvNATSURL overrides the NATS URL for semaudit specifically.
	EnvNATSURL = "SEMAUDIT_NATS_URL"
	// EnvNATSURLGeneric is the conventional NATS URL variable, consulted
	// when the semaudit-specific one is unset.
	EnvNATSURLGeneric = "NATS_URL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semaudit/config.yaml)
// 3. Project config (semaudit.yaml in current or parent directories)
// 4. Environment variables
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Apply environment overrides
	config.ApplyEnv()

	// Auto-detect corpus root if not set
	if config.Corpus.Root == "" || config.Corpus.Root == "." {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			config.Corpus.Root = gitRoot
			l.logger.Debug("Auto-detected git root", slog.String("path", gitRoot))
		} else if cwd, err := os.Getwd(); err == nil {
			config.Corpus.Root = cwd
			l.logger.Debug("Using current directory as corpus root", slog.String("path", cwd))
		}
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv applies environment variable overrides to the configuration.
func (c *Config) ApplyEnv() {
	if url := os.Getenv(EnvNATSURL); url != "" {
		c.NATS.URL = url
		return
	}
	if url := os.Getenv(EnvNATSURLGeneric); url != "" {
		c.NATS.URL = url
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semaudit.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// detectGitRoot finds the git repository root from current directory
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
