package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"vtask/internal/utils"
)

func noEnv(string) string { return "" }

func envWith(key, value string) func(string) string {
	return func(k string) string {
		if k == key {
			return value
		}
		return ""
	}
}

// =============================================================================
// System Keyring Tests (credentials-keyring)
// =============================================================================

func TestSystemKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	k := &systemKeyring{}
	if err := k.Set("vtask-vikunja", "alice", "tk_123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := k.Get("vtask-vikunja", "alice")
	if err != nil || got != "tk_123" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := k.Delete("vtask-vikunja", "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := k.Get("vtask-vikunja", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
	}
}

func TestSystemKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: no secret service"))
	t.Cleanup(keyring.MockInit)

	err := (&systemKeyring{}).Set("vtask-vikunja", "alice", "tk")
	if !errors.Is(err, ErrKeyringNotAvailable) {
		t.Errorf("err = %v, want ErrKeyringNotAvailable", err)
	}
}

// =============================================================================
// Manager Tests (credentials-manager)
// =============================================================================

func TestManagerKeyringFirst(t *testing.T) {
	kr := NewMockKeyring()
	m := NewManager(WithKeyring(kr), WithGetenv(envWith("VTASK_VIKUNJA_TOKEN", "from-env")))
	ctx := context.Background()

	if err := m.Set(ctx, " Vikunja ", "alice", "from-keyring"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := m.Get(ctx, "vikunja", "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !info.Found || info.Source != SourceKeyring || info.Token != "from-keyring" {
		t.Errorf("info = %+v, want keyring token", info)
	}
}

func TestManagerEnvironmentFallback(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithGetenv(envWith("VTASK_VIKUNJA_TOKEN", "from-env")))

	info, err := m.Get(context.Background(), "VIKUNJA", "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !info.Found || info.Source != SourceEnvironment || info.Token != "from-env" {
		t.Errorf("info = %+v, want environment token", info)
	}
}

func TestManagerFallbackWhenKeyringBroken(t *testing.T) {
	kr := NewMockKeyring()
	kr.FailWith(ErrKeyringNotAvailable)
	m := NewManager(WithKeyring(kr), WithGetenv(envWith("VTASK_VIKUNJA_TOKEN", "from-env")))

	token, err := m.Token(context.Background(), "vikunja", "alice")
	if err != nil || token != "from-env" {
		t.Errorf("Token = %q, %v", token, err)
	}
}

func TestManagerTokenNotFound(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithGetenv(noEnv))

	_, err := m.Token(context.Background(), "vikunja", "alice")
	var ews *utils.ErrorWithSuggestion
	if !errors.As(err, &ews) {
		t.Fatalf("err = %v, want ErrorWithSuggestion", err)
	}
	if !strings.Contains(ews.Suggestion, "VTASK_VIKUNJA_TOKEN") {
		t.Errorf("suggestion = %q", ews.Suggestion)
	}
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithGetenv(noEnv))
	if err := m.Set(context.Background(), "vikunja", "alice", "  "); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestManagerDeleteIsIdempotent(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithGetenv(noEnv))
	if err := m.Delete(context.Background(), "vikunja", "nobody"); err != nil {
		t.Errorf("Delete of missing entry: %v", err)
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar(" Vikunja"); got != "VTASK_VIKUNJA_TOKEN" {
		t.Errorf("EnvVar = %q", got)
	}
}

func TestCredentialInfoJSONOmitsToken(t *testing.T) {
	info := &CredentialInfo{Source: SourceKeyring, Backend: "vikunja", Username: "alice", Token: "secret", Found: true}
	data, err := info.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("token leaked: %s", data)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["source"] != "keyring" || decoded["found"] != true {
		t.Errorf("decoded = %v", decoded)
	}
}

// =============================================================================
// CLI Handler Tests (credentials-cli)
// =============================================================================

func TestCLISetReadsPipedToken(t *testing.T) {
	kr := NewMockKeyring()
	var out bytes.Buffer
	h := NewCLIHandler(NewManager(WithKeyring(kr), WithGetenv(noEnv)), strings.NewReader("tk_piped\n"), &out)

	if err := h.Set(context.Background(), "vikunja", "alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := kr.Get("vtask-vikunja", "alice"); got != "tk_piped" {
		t.Errorf("stored token = %q", got)
	}
	if !strings.Contains(out.String(), "Enter API token for vikunja (user: alice)") {
		t.Errorf("prompt missing: %q", out.String())
	}
}

func TestCLISetNoInput(t *testing.T) {
	var out bytes.Buffer
	h := NewCLIHandler(NewManager(WithKeyring(NewMockKeyring()), WithGetenv(noEnv)), strings.NewReader(""), &out)

	if err := h.Set(context.Background(), "vikunja", "alice"); err == nil {
		t.Error("expected error when no token is piped in")
	}
}

func TestCLISetKeyringUnavailable(t *testing.T) {
	kr := NewMockKeyring()
	kr.FailWith(ErrKeyringNotAvailable)
	var out bytes.Buffer
	h := NewCLIHandler(NewManager(WithKeyring(kr), WithGetenv(noEnv)), strings.NewReader("tk\n"), &out)

	err := h.Set(context.Background(), "vikunja", "alice")
	if !errors.Is(err, ErrKeyringNotAvailable) {
		t.Fatalf("err = %v, want ErrKeyringNotAvailable", err)
	}
	if !strings.Contains(err.Error(), "export VTASK_VIKUNJA_TOKEN") {
		t.Errorf("error should suggest the environment variable: %v", err)
	}
}

func TestCLIGet(t *testing.T) {
	kr := NewMockKeyring()
	_ = kr.Set("vtask-vikunja", "alice", "secret")
	m := NewManager(WithKeyring(kr), WithGetenv(noEnv))

	var out bytes.Buffer
	h := NewCLIHandler(m, strings.NewReader(""), &out)
	if err := h.Get(context.Background(), "vikunja", "alice", false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(out.String(), "Source: keyring") || strings.Contains(out.String(), "secret") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := h.Get(context.Background(), "vikunja", "bob", false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(out.String(), "No token found for vikunja/bob") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := h.Get(context.Background(), "vikunja", "alice", true); err != nil {
		t.Fatalf("Get json: %v", err)
	}
	if !strings.Contains(out.String(), `"found":true`) {
		t.Errorf("json output = %q", out.String())
	}
}

func TestCLIDelete(t *testing.T) {
	kr := NewMockKeyring()
	_ = kr.Set("vtask-vikunja", "alice", "secret")
	var out bytes.Buffer
	h := NewCLIHandler(NewManager(WithKeyring(kr), WithGetenv(noEnv)), strings.NewReader(""), &out)

	if err := h.Delete(context.Background(), "vikunja", "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := kr.Get("vtask-vikunja", "alice"); !errors.Is(err, ErrNotFound) {
		t.Error("token should be gone")
	}
}
