package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"herpid/internal/results"
	"herpid/internal/testsupport"
)

func TestRunCommandEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"This is a match."}]}}]}`))
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	env.cfg.Gemini.BaseURL = server.URL
	env.cfg.Batch.PacingSeconds = 0
	env.cfg.References = env.cfg.References[:1]
	env.cfg.Identification.Species = []string{"examples"}
	testsupport.WriteImage(t, filepath.Join(env.cfg.Paths.ReferenceDir, env.cfg.References[0].FileName))
	testsupport.WriteImage(t, filepath.Join(env.cfg.Paths.CandidateDir, "examples", "photo1.jpg"))
	testsupport.WriteImage(t, filepath.Join(env.cfg.Paths.CandidateDir, "examples", "photo2.jpg"))
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Processed")
	requireContains(t, out, "Results written to")

	store := results.Open(env.cfg.Paths.ResultsPath, nil)
	if got := store.Load(false); got != 2 {
		t.Fatalf("expected 2 persisted results, got %d", got)
	}
}

func TestRunCommandRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Gemini.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)
	t.Setenv("GEMINI_API_KEY", "")

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err == nil {
		t.Fatal("expected missing api key error")
	}
}
