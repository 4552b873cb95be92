package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Core CLI Tests
// These tests verify basic CLI functionality: help, version, config loading
// and the offline parse command. Feature-specific CLI tests are co-located
// with their feature code:
// - add: backend/vikunja/cli_test.go
// - credentials: internal/credentials/cli_test.go
// - cache: internal/cache/cli_test.go
// =============================================================================

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// writeConfig writes a config file in a temp dir and returns its path
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func utcConfig(t *testing.T) *Config {
	t.Helper()
	body := fmt.Sprintf("quick_add:\n  timezone: UTC\ncache:\n  path: %q\n", filepath.Join(t.TempDir(), "lookups.db"))
	return &Config{
		ConfigPath: writeConfig(t, body),
		Getenv:     func(string) string { return "" },
		Now:        func() time.Time { return testNow },
	}
}

func run(cfg *Config, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr, cfg)
	return code, stdout.String(), stderr.String()
}

// --- Help and Version Tests ---

func TestHelpFlagCoreCLI(t *testing.T) {
	code, stdout, stderr := run(nil, "--help")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "vtask") || !strings.Contains(stdout, "Usage:") {
		t.Errorf("help output missing usage: %s", stdout)
	}
	for _, sub := range []string{"parse", "add", "tui", "credentials", "cache"} {
		if !strings.Contains(stdout, sub) {
			t.Errorf("help output should list %q", sub)
		}
	}
}

func TestVersionFlagCoreCLI(t *testing.T) {
	code, stdout, _ := run(nil, "--version")
	if code != 0 || !strings.Contains(stdout, "vtask") {
		t.Errorf("version output = %q (exit %d)", stdout, code)
	}
}

// --- Config Tests ---

func TestInvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, "output_format: xml\n")
	code, _, stderr := run(&Config{ConfigPath: path}, "parse", "hello")
	if code != 1 || !strings.Contains(stderr, "invalid output_format") {
		t.Errorf("expected config error, got exit %d: %s", code, stderr)
	}
}

func TestConfigFlagOverridesDefault(t *testing.T) {
	bad := writeConfig(t, "output_format: xml\n")
	good := utcConfig(t)

	code, _, stderr := run(&Config{ConfigPath: bad, Now: good.Now}, "--config", good.ConfigPath, "parse", "hello")
	if code != 0 {
		t.Errorf("--config should win over the injected path, got exit %d: %s", code, stderr)
	}
}

func TestMissingConfigIsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	code, _, stderr := run(&Config{ConfigPath: path, Now: func() time.Time { return testNow }}, "parse", "hello")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if !strings.Contains(string(data), "default_project") {
		t.Error("written config should be the documented sample")
	}
}

// --- Parse Command Tests ---

func TestParseText(t *testing.T) {
	code, stdout, stderr := run(utcConfig(t), "parse", "Call", "mom", "tomorrow", "at", "2:30pm", "!3", "*calls", "+Family", "@bob")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}

	for _, want := range []string{
		"Title:     Call mom",
		"Project:   Family",
		"Priority:  3",
		"Due:       Tue 2025-07-01 14:30",
		"Labels:    calls",
		"Assignees: bob",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestParsePlainTitle(t *testing.T) {
	code, stdout, _ := run(utcConfig(t), "parse", "Buy milk")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if strings.TrimSpace(stdout) != "Title:     Buy milk" {
		t.Errorf("plain text should only have a title, got:\n%s", stdout)
	}
}

func TestParseJSON(t *testing.T) {
	code, stdout, stderr := run(utcConfig(t), "parse", "--json", "Water plants every 2 days")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}

	var resp struct {
		Input string `json:"input"`
		Task  struct {
			Title  string `json:"title"`
			Repeat struct {
				Amount       int    `json:"amount"`
				IntervalType string `json:"interval_type"`
			} `json:"repeat"`
		} `json:"task"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Input != "Water plants every 2 days" {
		t.Errorf("input = %q", resp.Input)
	}
	if resp.Task.Title != "Water plants" || resp.Task.Repeat.Amount != 2 || resp.Task.Repeat.IntervalType != "days" {
		t.Errorf("parsed = %+v", resp.Task)
	}
	if resp.Result != ResultInfoOnly {
		t.Errorf("result = %q", resp.Result)
	}
}

func TestParseRequiresText(t *testing.T) {
	code, _, _ := run(utcConfig(t), "parse")
	if code != 1 {
		t.Errorf("expected exit 1 without text, got %d", code)
	}
}

// --- Error Output Tests ---

func TestErrorAsJSON(t *testing.T) {
	code, stdout, _ := run(utcConfig(t), "add", "--json", "Call mom")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var resp errorResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Result != ResultError || resp.Code != 1 || !strings.Contains(resp.Error, "server is not configured") {
		t.Errorf("response = %+v", resp)
	}
}

func TestErrorShowsSuggestion(t *testing.T) {
	code, _, stderr := run(utcConfig(t), "add", "Call mom")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.HasPrefix(stderr, "Error: server is not configured") || !strings.Contains(stderr, "Suggestion:") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestTUIRequiresTerminal(t *testing.T) {
	code, _, stderr := run(utcConfig(t), "tui")
	if code != 1 || !strings.Contains(stderr, "interactive terminal") {
		t.Errorf("expected terminal error, got exit %d: %s", code, stderr)
	}
}
