package auth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMechanismUnavailable means no supported authentication helper is
// installed. Machine treats it as a failed check.
var ErrMechanismUnavailable = errors.New("no authentication mechanism available (install pamtester)")

// PAMChecker verifies the user's password with pamtester, falling back to su
// when pamtester is not installed.
type PAMChecker struct {
	User string

	lookPath func(file string) (string, error)
	run      func(ctx context.Context, stdin string, name string, args ...string) (int, error)
}

// NewPAMChecker creates a checker for user.
func NewPAMChecker(user string) *PAMChecker {
	return &PAMChecker{
		User:     user,
		lookPath: exec.LookPath,
		run:      runWithStdin,
	}
}

// Check feeds credential to the helper on stdin. Exit code 0 accepts it, any
// other exit code rejects it.
func (c *PAMChecker) Check(ctx context.Context, credential string) (bool, error) {
	if c.User == "" {
		return false, fmt.Errorf("cannot authenticate: user name is unknown")
	}

	name, args, err := c.command()
	if err != nil {
		return false, err
	}

	code, err := c.run(ctx, credential+"\n", name, args...)
	if err != nil {
		return false, fmt.Errorf("%s failed: %w", name, err)
	}
	return code == 0, nil
}

// command picks the helper invocation.
func (c *PAMChecker) command() (string, []string, error) {
	if path, err := c.lookPath("pamtester"); err == nil {
		return path, []string{"login", c.User, "authenticate"}, nil
	}
	if path, err := c.lookPath("su"); err == nil {
		return path, []string{"-c", "true", "-", c.User}, nil
	}
	return "", nil, ErrMechanismUnavailable
}

// runWithStdin runs a command and returns its exit code. A non-nil error
// means the process could not be run to completion.
func runWithStdin(ctx context.Context, stdin string, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, err
}

var _ Checker = (*PAMChecker)(nil)
