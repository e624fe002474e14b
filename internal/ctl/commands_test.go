package ctl_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/classroom/internal/ctl"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := ctl.Execute(context.Background(), &out, &errOut, args)
	return out.String(), errOut.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := run(t)

	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	for _, sub := range []string{"pick", "stats", "reset", "simulate", "passes"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, errOut, err := run(t, "--unknown-flag", "value")

	assert.Error(t, err)
	assert.Contains(t, errOut, "unknown flag")
}

func TestSimulateCommand(t *testing.T) {
	out, _, err := run(t, "simulate", "--picks", "40", "--students", "4", "--seed", "11")

	require.NoError(t, err)
	assert.Contains(t, out, "40 picks")
	assert.Contains(t, out, "Student 01")
	assert.Contains(t, out, "fairness:")
	assert.Contains(t, out, "legacy x10:")
}

func TestPickAndPassCommands(t *testing.T) {
	srv := startServer(t)

	out, _, err := run(t, "--url", srv.URL, "--class", "math", "pick")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected")
	assert.Contains(t, out, "students: 3")

	out, _, err = run(t, "--url", srv.URL, "--class", "math", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "3 students")

	out, _, err = run(t, "--url", srv.URL, "--class", "math", "passes", "issue", "Ben", "--destination", "Office")
	require.NoError(t, err)
	assert.Contains(t, out, "Hall pass issued for Ben")

	out, _, err = run(t, "--url", srv.URL, "--class", "math", "passes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 active")
	assert.Contains(t, out, "Office")

	out, _, err = run(t, "--url", srv.URL, "--class", "math", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "History reset for today")
}

func TestPassesCommand_Errors(t *testing.T) {
	srv := startServer(t)

	_, _, err := run(t, "--url", srv.URL, "passes", "issue", "Ben")
	assert.Error(t, err, "destination is required")

	_, errOut, err := run(t, "--url", srv.URL, "passes", "return", "MISSING")
	assert.Error(t, err)
	assert.Contains(t, errOut, "Pass not found")
}
