package main

import (
	"errors"
	"os"
	"os/exec"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainHelp(t *testing.T) {
	output, err := runMain(t, "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
	require.Contains(t, string(output), "text [--direct]")
}

func TestMainVersion(t *testing.T) {
	output, err := runMain(t, "version")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "aurora")
}

func TestMainInvalidCommandExitsTwo(t *testing.T) {
	output, err := runMain(t, "not-a-command")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.ExitCode())
	require.Contains(t, string(output), "unknown command")
}

// TestMainHelperProcess runs main in a child process started by runMain.
func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("AURORA_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	os.Args = []string{"aurora"}
	if i := slices.Index(args, "--"); i >= 0 {
		os.Args = append(os.Args, args[i+1:]...)
	}
	main()
}

func runMain(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(), "AURORA_WANT_HELPER_PROCESS=1")
	return cmd.CombinedOutput()
}
