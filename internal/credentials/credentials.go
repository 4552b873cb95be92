// Package credentials stores and looks up API tokens for the task server,
// using the OS keyring with a fallback to environment variables.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"vtask/internal/utils"
)

// Source indicates where credentials were retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// CredentialInfo is the result of a lookup
type CredentialInfo struct {
	Source   Source
	Backend  string
	Username string
	Token    string
	Found    bool
}

// JSON serializes the credential info without the token
func (c *CredentialInfo) JSON() ([]byte, error) {
	output := struct {
		Backend  string `json:"backend"`
		Username string `json:"username"`
		Source   string `json:"source"`
		Found    bool   `json:"found"`
	}{
		Backend:  c.Backend,
		Username: c.Username,
		Source:   string(c.Source),
		Found:    c.Found,
	}
	return json.Marshal(output)
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring Keyring
	getenv  func(string) string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithGetenv replaces os.Getenv for the environment fallback
func WithGetenv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a credential manager backed by the system keyring
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func normalizeBackend(backend string) string {
	return strings.ToLower(strings.TrimSpace(backend))
}

// serviceName returns the keyring service name for a backend
func serviceName(backend string) string {
	return "vtask-" + normalizeBackend(backend)
}

// EnvVar is the environment variable consulted for a backend's token.
func EnvVar(backend string) string {
	return fmt.Sprintf("VTASK_%s_TOKEN", strings.ToUpper(normalizeBackend(backend)))
}

// Set stores a token in the keyring
func (m *Manager) Set(ctx context.Context, backend, username, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token must not be empty")
	}
	return m.keyring.Set(serviceName(backend), username, token)
}

// Get looks in the keyring first, then in VTASK_<BACKEND>_TOKEN. A missing
// token is not an error; check Found.
func (m *Manager) Get(ctx context.Context, backend, username string) (*CredentialInfo, error) {
	backend = normalizeBackend(backend)
	info := &CredentialInfo{Source: SourceNone, Backend: backend, Username: username}

	token, err := m.keyring.Get(serviceName(backend), username)
	switch {
	case err == nil && token != "":
		info.Source, info.Token, info.Found = SourceKeyring, token, true
		return info, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		utils.Debugf("keyring lookup for %s/%s failed: %v", backend, username, err)
	}

	if token := m.getenv(EnvVar(backend)); token != "" {
		info.Source, info.Token, info.Found = SourceEnvironment, token, true
	}
	return info, nil
}

// Token returns the token or an ErrCredentialsNotFound error with a suggestion.
func (m *Manager) Token(ctx context.Context, backend, username string) (string, error) {
	info, err := m.Get(ctx, backend, username)
	if err != nil {
		return "", err
	}
	if !info.Found {
		return "", utils.ErrCredentialsNotFound(info.Backend, username)
	}
	utils.Debugf("using %s token from %s", info.Backend, info.Source)
	return info.Token, nil
}

// Delete removes a token from the keyring. Deleting a missing entry succeeds.
func (m *Manager) Delete(ctx context.Context, backend, username string) error {
	err := m.keyring.Delete(serviceName(backend), username)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// PromptToken asks for a token. When reader is a terminal the input is
// hidden; otherwise one line is read, so tokens can be piped in.
func PromptToken(reader io.Reader, writer io.Writer, backend, username string) (string, error) {
	_, _ = fmt.Fprintf(writer, "Enter API token for %s (user: %s): ", backend, username)

	if f, ok := reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(writer)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := utils.ReadLine(reader)
	if errors.Is(err, io.EOF) {
		return "", errors.New("no input received")
	}
	return line, err
}
