package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. The Gemini API key is
// deliberately not checked here: read-only commands (results, config) must
// work without credentials, and the run command verifies the key itself
// before any work unit is attempted.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials checks the settings required to issue inference requests.
func (c *Config) ValidateCredentials() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/herpid/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'herpid config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ReferenceDir == "" {
		return errors.New("paths.reference_dir must be set")
	}
	if c.Paths.CandidateDir == "" {
		return errors.New("paths.candidate_dir must be set")
	}
	if c.Paths.ResultsPath == "" {
		return errors.New("paths.results_path must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.RetryAttempts < 1 {
		return errors.New("batch.retry_attempts must be at least 1")
	}
	if c.Batch.RetryBaseSeconds < 1 {
		return errors.New("batch.retry_base_seconds must be at least 1")
	}
	if c.Batch.RetryMaxSeconds < c.Batch.RetryBaseSeconds {
		return errors.New("batch.retry_max_seconds must not be smaller than batch.retry_base_seconds")
	}
	return nil
}

func (c *Config) validateIdentification() error {
	if c.Identification.TargetSpecies == "" {
		return errors.New("identification.target_species must be set")
	}
	if len(c.Identification.Species) == 0 {
		return errors.New("identification.species must list at least one candidate category")
	}
	if len(c.References) == 0 {
		return errors.New("at least one [[references]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.References))
	for i, ref := range c.References {
		if ref.FileName == "" {
			return fmt.Errorf("references[%d].file_name must be set", i)
		}
		if ref.Description == "" {
			return fmt.Errorf("references[%d].description must be set", i)
		}
		if _, dup := seen[ref.FileName]; dup {
			return fmt.Errorf("references[%d].file_name %q is listed twice", i, ref.FileName)
		}
		seen[ref.FileName] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
