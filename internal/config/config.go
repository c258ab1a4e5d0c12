package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations used by the batch run.
type Paths struct {
	ReferenceDir string `toml:"reference_dir"`
	CandidateDir string `toml:"candidate_dir"`
	ResultsPath  string `toml:"results_path"`
	LogDir       string `toml:"log_dir"`
}

// Gemini contains connection settings for the Gemini multimodal API.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Batch contains pacing, retry, and resume policy for the comparison loop.
type Batch struct {
	PacingSeconds    int  `toml:"pacing_seconds"`
	RetryAttempts    int  `toml:"retry_attempts"`
	RetryBaseSeconds int  `toml:"retry_base_seconds"`
	RetryMaxSeconds  int  `toml:"retry_max_seconds"`
	RetryFailures    bool `toml:"retry_failures"`
	Fresh            bool `toml:"fresh"`
}

// ResponseCache contains configuration for the raw-response cache.
type ResponseCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <log_dir>/responses.db
}

// Identification contains the verification target and candidate categories.
type Identification struct {
	TargetSpecies string   `toml:"target_species"`
	Species       []string `toml:"species"`
}

// Reference describes one reference specimen: its image file name under
// reference_dir and the dorsal-pattern text description sent with the prompt.
type Reference struct {
	FileName    string `toml:"file_name"`
	Description string `toml:"description"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for herpid.
//
// Configuration sections by subsystem:
//   - Paths: reference/candidate image locations, results file, log directory
//   - Gemini: multimodal API connection settings
//   - Batch: pacing interval, retry budget, resume policy
//   - ResponseCache: cached raw model responses keyed by work unit
//   - Identification: target species and candidate category labels
//   - References: reference specimen images and descriptions
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	Gemini         Gemini         `toml:"gemini"`
	Batch          Batch          `toml:"batch"`
	ResponseCache  ResponseCache  `toml:"response_cache"`
	Identification Identification `toml:"identification"`
	References     []Reference    `toml:"references"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/herpid/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("herpid.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch run writes into. The
// reference and candidate directories are inputs and are never created here;
// pointing the tool at a missing input tree should fail loudly instead.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.ResultsPath)}
	if c.ResponseCache.Enabled && strings.TrimSpace(c.ResponseCache.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.ResponseCache.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PacingInterval returns the configured delay applied between work units.
func (c *Config) PacingInterval() time.Duration {
	if c.Batch.PacingSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Batch.PacingSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
