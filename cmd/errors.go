package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/alt-project/flixctl/internal/app"
	"github.com/alt-project/flixctl/internal/auth"
	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/gateway"
	"github.com/alt-project/flixctl/internal/output"
)

// toCLIError maps a service error onto a CLIError with an exit code.
// An authorization failure logs the session out when a is non-nil.
func toCLIError(a *app.App, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	switch {
	case gateway.IsUnauthorized(err):
		if a != nil {
			a.HandleUnauthorized(context.Background(), err)
		}
		return &output.CLIError{
			Summary:    "not signed in",
			Detail:     gateway.MessageOf(err),
			Suggestion: "Run 'flixctl login' and try again",
			ExitCode:   output.ExitAuthError,
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return &output.CLIError{
			Summary:  strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": "),
			ExitCode: output.ExitUsageError,
		}
	case errors.Is(err, domain.ErrRateLimited):
		return &output.CLIError{
			Summary:    "rate limited",
			Detail:     err.Error(),
			Suggestion: "Wait a moment or raise api.rate_limit",
			ExitCode:   output.ExitAPIError,
		}
	case errors.Is(err, domain.ErrServiceUnavailable):
		return &output.CLIError{
			Summary:    "movie service unavailable",
			Detail:     err.Error(),
			Suggestion: "Check api.base_url, or start a local API with 'flixctl mock-api'",
			ExitCode:   output.ExitAPIError,
		}
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return &output.CLIError{Summary: gateway.MessageOf(err), ExitCode: output.ExitAPIError}
	}
	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral}
}

// requireSession fails fast when no session is held, so protected calls never go out anonymously.
func requireSession(a *app.App) error {
	if a.Auth.Snapshot().State != auth.Authenticated {
		return notSignedIn()
	}
	return nil
}

func requireAdmin(a *app.App) error {
	if err := requireSession(a); err != nil {
		return err
	}
	if !a.Auth.IsAdmin() {
		return &output.CLIError{
			Summary:  "admin access required",
			Detail:   "signed in as " + a.Auth.Snapshot().Session.Name,
			ExitCode: output.ExitAuthError,
		}
	}
	return nil
}

func notSignedIn() error {
	return &output.CLIError{
		Summary:    "not signed in",
		Suggestion: "Run 'flixctl login' first",
		ExitCode:   output.ExitAuthError,
	}
}

func usageError(summary string) error {
	return &output.CLIError{Summary: summary, ExitCode: output.ExitUsageError}
}
