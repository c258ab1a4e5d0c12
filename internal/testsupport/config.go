package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"herpid/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ReferenceDir = filepath.Join(base, "reference")
	cfg.Paths.CandidateDir = filepath.Join(base, "candidates")
	cfg.Paths.ResultsPath = filepath.Join(base, "results.csv")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Gemini.APIKey = "test"
	cfg.ResponseCache.Enabled = false
	cfg.ResponseCache.Path = filepath.Join(base, "logs", "responses.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithReferences replaces the reference specimen list.
func WithReferences(refs ...config.Reference) ConfigOption {
	return func(cfg *config.Config) {
		cfg.References = refs
	}
}

// WithSpecies replaces the candidate species labels.
func WithSpecies(labels ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Identification.Species = labels
	}
}

// WriteImage creates a tiny image file (and its parent directories) so
// loaders have something real to read.
func WriteImage(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}, 0o644); err != nil {
		t.Fatalf("write image %s: %v", path, err)
	}
}
