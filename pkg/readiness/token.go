package readiness

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TokenSource produces the live bearer token of the deployment's
// authentication context.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CommandTokenSource obtains the token by running an external command
// (e.g. "oc whoami -t") and trimming its output.
type CommandTokenSource struct {
	Path string
	Args []string
}

func (s *CommandTokenSource) Token(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, s.Path, s.Args...).Output()
	if err != nil {
		return "", fmt.Errorf("running %s: %w", s.Path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// StaticTokenSource returns a fixed token. Test double.
type StaticTokenSource string

func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// TokenMismatchError reports that the live token differs from the
// configured one. Advisory: callers log it and continue.
type TokenMismatchError struct {
	Got  string
	Want string
}

func (e *TokenMismatchError) Error() string {
	return fmt.Sprintf("live token %s does not match configured token %s",
		maskToken(e.Got), maskToken(e.Want))
}

// VerifyToken compares the live token with the expected value
// byte-for-byte. The returned error is advisory by contract; the call
// site decides to log rather than abort.
func VerifyToken(ctx context.Context, source TokenSource, expected string) error {
	got, err := source.Token(ctx)
	if err != nil {
		return err
	}
	if got != expected {
		return &TokenMismatchError{Got: got, Want: expected}
	}
	return nil
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

var (
	_ TokenSource = (*CommandTokenSource)(nil)
	_ TokenSource = StaticTokenSource("")
)
