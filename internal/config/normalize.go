package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeGemini(); err != nil {
		return err
	}
	c.normalizeBatch()
	if err := c.normalizeResponseCache(); err != nil {
		return err
	}
	c.normalizeIdentification()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ReferenceDir, err = expandPath(c.Paths.ReferenceDir); err != nil {
		return fmt.Errorf("paths.reference_dir: %w", err)
	}
	if c.Paths.CandidateDir, err = expandPath(c.Paths.CandidateDir); err != nil {
		return fmt.Errorf("paths.candidate_dir: %w", err)
	}
	if c.Paths.ResultsPath, err = expandPath(c.Paths.ResultsPath); err != nil {
		return fmt.Errorf("paths.results_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() error {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.RetryAttempts <= 0 {
		c.Batch.RetryAttempts = defaultRetryAttempts
	}
	if c.Batch.RetryBaseSeconds <= 0 {
		c.Batch.RetryBaseSeconds = defaultRetryBaseSeconds
	}
	if c.Batch.RetryMaxSeconds <= 0 {
		c.Batch.RetryMaxSeconds = defaultRetryMaxSeconds
	}
	if c.Batch.PacingSeconds < 0 {
		c.Batch.PacingSeconds = 0
	}
}

func (c *Config) normalizeResponseCache() error {
	c.ResponseCache.Path = strings.TrimSpace(c.ResponseCache.Path)
	if c.ResponseCache.Path == "" {
		c.ResponseCache.Path = filepath.Join(c.Paths.LogDir, "responses.db")
		return nil
	}
	expanded, err := expandPath(c.ResponseCache.Path)
	if err != nil {
		return fmt.Errorf("response_cache.path: %w", err)
	}
	c.ResponseCache.Path = expanded
	return nil
}

func (c *Config) normalizeIdentification() {
	c.Identification.TargetSpecies = strings.TrimSpace(c.Identification.TargetSpecies)
	if c.Identification.TargetSpecies == "" {
		c.Identification.TargetSpecies = defaultTargetSpecies
	}
	species := make([]string, 0, len(c.Identification.Species))
	for _, label := range c.Identification.Species {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			species = append(species, trimmed)
		}
	}
	c.Identification.Species = species

	for i := range c.References {
		c.References[i].FileName = strings.TrimSpace(c.References[i].FileName)
		c.References[i].Description = strings.TrimSpace(c.References[i].Description)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
