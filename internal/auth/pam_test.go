package auth

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	stdin string
	name  string
	args  []string
}

// fakeHelpers builds a PAMChecker whose PATH contains only the named helpers
// and whose processes exit with code.
func fakeHelpers(installed []string, code int, runErr error) (*PAMChecker, *[]invocation) {
	var calls []invocation
	c := NewPAMChecker("ana")
	c.lookPath = func(file string) (string, error) {
		for _, name := range installed {
			if name == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
	c.run = func(ctx context.Context, stdin string, name string, args ...string) (int, error) {
		calls = append(calls, invocation{stdin: stdin, name: name, args: args})
		return code, runErr
	}
	return c, &calls
}

func TestPAMChecker_Pamtester(t *testing.T) {
	c, calls := fakeHelpers([]string{"pamtester", "su"}, 0, nil)

	ok, err := c.Check(context.Background(), "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *calls, 1)
	assert.Equal(t, invocation{
		stdin: "hunter2\n",
		name:  "/usr/bin/pamtester",
		args:  []string{"login", "ana", "authenticate"},
	}, (*calls)[0])
}

func TestPAMChecker_SuFallback(t *testing.T) {
	c, calls := fakeHelpers([]string{"su"}, 1, nil)

	ok, err := c.Check(context.Background(), "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/usr/bin/su", (*calls)[0].name)
	assert.Equal(t, []string{"-c", "true", "-", "ana"}, (*calls)[0].args)
}

func TestPAMChecker_NoMechanism(t *testing.T) {
	c, calls := fakeHelpers(nil, 0, nil)

	ok, err := c.Check(context.Background(), "hunter2")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMechanismUnavailable)
	assert.Empty(t, *calls)
}

func TestPAMChecker_RunError(t *testing.T) {
	c, _ := fakeHelpers([]string{"pamtester"}, -1, context.DeadlineExceeded)

	ok, err := c.Check(context.Background(), "hunter2")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPAMChecker_UnknownUser(t *testing.T) {
	c, _ := fakeHelpers([]string{"pamtester"}, 0, nil)
	c.User = ""

	ok, err := c.Check(context.Background(), "hunter2")
	assert.False(t, ok)
	assert.Error(t, err)
}
