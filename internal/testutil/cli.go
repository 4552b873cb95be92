// Package testutil provides shared test utilities for CLI testing across packages.
// Feature CLI tests live next to the feature and drive the real root command
// through CLITest.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vtask/cmd/vtask/cmd"
	"vtask/internal/credentials"
)

// Now is the clock every CLITest parser sees: Monday 2025-06-30 12:00 UTC.
var Now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// Username is the server account written into test configs.
const Username = "alice"

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
	cachePath  string
	serverURL  string
	noCache    bool
	keyring    *credentials.MockKeyring
	env        map[string]string
}

// NewCLITest creates a CLI test helper with its own config file, cache path
// and mock keyring. Dates are read in UTC against Now.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	c := &CLITest{
		t:          t,
		tmpDir:     tmpDir,
		configPath: filepath.Join(tmpDir, "config.yaml"),
		cachePath:  filepath.Join(tmpDir, "cache", "lookups.db"),
		keyring:    credentials.NewMockKeyring(),
		env:        make(map[string]string),
	}
	c.cfg = &cmd.Config{
		ConfigPath: c.configPath,
		Keyring:    c.keyring,
		Getenv:     func(key string) string { return c.env[key] },
		Now:        func() time.Time { return Now },
	}
	c.writeConfig("")
	return c
}

// NewCLITestWithServer is NewCLITest pointed at url, with token in the
// environment.
func NewCLITestWithServer(t *testing.T, url, token string) *CLITest {
	t.Helper()
	c := NewCLITest(t)
	c.SetServer(url)
	c.SetEnv(credentials.EnvVar("vikunja"), token)
	return c
}

func (c *CLITest) writeConfig(extra string) {
	c.t.Helper()
	body := fmt.Sprintf(`server:
  url: %q
  username: %s
cache:
  enabled: %t
  path: %q
  ttl: 1h
quick_add:
  timezone: UTC
`, c.serverURL, Username, !c.noCache, c.cachePath)
	c.SetFullConfig(body + extra)
}

// SetServer points the config at url.
func (c *CLITest) SetServer(url string) {
	c.t.Helper()
	c.serverURL = url
	c.writeConfig("")
}

// DisableCache turns the lookup cache off.
func (c *CLITest) DisableCache() {
	c.t.Helper()
	c.noCache = true
	c.writeConfig("")
}

// AppendConfig adds top-level YAML keys after the generated config.
func (c *CLITest) AppendConfig(yamlContent string) {
	c.t.Helper()
	c.writeConfig(yamlContent)
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()
	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetEnv sets a variable visible to the credentials lookup.
func (c *CLITest) SetEnv(key, value string) {
	c.env[key] = value
}

// SetStdin sets what prompts read.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// CachePath returns the lookup cache database path.
func (c *CLITest) CachePath() string {
	return c.cachePath
}

// Keyring returns the mock keyring.
func (c *CLITest) Keyring() *credentials.MockKeyring {
	return c.keyring
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)
