package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// CLIHandler implements the credentials subcommands
type CLIHandler struct {
	manager *Manager
	stdin   io.Reader
	stdout  io.Writer
}

// NewCLIHandler creates a new CLI handler for credential commands
func NewCLIHandler(manager *Manager, stdin io.Reader, stdout io.Writer) *CLIHandler {
	return &CLIHandler{
		manager: manager,
		stdin:   stdin,
		stdout:  stdout,
	}
}

// Set prompts for a token and stores it in the keyring
func (h *CLIHandler) Set(ctx context.Context, backend, username string) error {
	token, err := PromptToken(h.stdin, h.stdout, backend, username)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	if err := h.manager.Set(ctx, backend, username, token); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return h.keyringNotAvailableError(backend, err)
		}
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	_, _ = fmt.Fprintln(h.stdout, "Token stored in system keyring")
	return nil
}

func (h *CLIHandler) keyringNotAvailableError(backend string, cause error) error {
	return fmt.Errorf(`%w

Alternative: set the token in the environment instead:
  export %s="your-api-token"`, cause, EnvVar(backend))
}

// Get reports where a token was found, never the token itself
func (h *CLIHandler) Get(ctx context.Context, backend, username string, jsonOutput bool) error {
	info, err := h.manager.Get(ctx, backend, username)
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}

	if jsonOutput {
		data, err := info.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(h.stdout, string(data))
		return nil
	}

	if !info.Found {
		_, _ = fmt.Fprintf(h.stdout, "No token found for %s/%s\n", info.Backend, info.Username)
		_, _ = fmt.Fprintf(h.stdout, "Searched: system keyring, %s\n", EnvVar(info.Backend))
		return nil
	}

	_, _ = fmt.Fprintf(h.stdout, "Backend: %s\n", info.Backend)
	_, _ = fmt.Fprintf(h.stdout, "Username: %s\n", info.Username)
	_, _ = fmt.Fprintf(h.stdout, "Source: %s\n", info.Source)
	_, _ = fmt.Fprintln(h.stdout, "Token: ******** (hidden)")
	return nil
}

// Delete removes a token from the keyring
func (h *CLIHandler) Delete(ctx context.Context, backend, username string) error {
	if err := h.manager.Delete(ctx, backend, username); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	_, _ = fmt.Fprintln(h.stdout, "Token removed from system keyring")
	return nil
}
