package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-facing suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrEmptyTitle is returned when nothing is left of the input after the
// recognized syntax is removed.
func ErrEmptyTitle(input string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no task title left in %q", input),
		Suggestion: "Add some words besides dates, labels and other quick add syntax",
	}
}

// ErrServerNotConfigured is returned when server.url is missing.
func ErrServerNotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("server is not configured"),
		Suggestion: "Set server.url in your config file, or use 'vtask parse' to work offline",
	}
}

// ErrProjectNotFound is returned when no project matches and none can be created.
func ErrProjectNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("project not found: %s", name),
		Suggestion: "Check the +project name or set default_project in your config file",
	}
}

// ErrServerOffline returns an error for an unreachable server with a
// suggestion picked from the failure text.
func ErrServerOffline(url, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("server %s is unreachable: %s", url, reason),
		Suggestion: getSmartSuggestion(reason),
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	if strings.Contains(lowerReason, "certificate") || strings.Contains(lowerReason, "x509") {
		return "Check the server's TLS certificate and the scheme in server.url"
	}

	return "Check your internet connection and try again"
}

// ErrCredentialsNotFound returns an error when no token is stored.
func ErrCredentialsNotFound(backend, user string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("credentials not found for %s user %s", backend, user),
		Suggestion: fmt.Sprintf("Run 'vtask credentials set %s' or export VTASK_%s_TOKEN", user, strings.ToUpper(backend)),
	}
}

// ErrAuthenticationFailed returns an error when the server rejects the token.
func ErrAuthenticationFailed(backend string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("authentication failed for %s", backend),
		Suggestion: "Verify your API token is correct and has not expired",
	}
}
