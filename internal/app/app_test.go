package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/aurora/internal/fsm"
	"github.com/rbright/aurora/internal/ipc"
	"github.com/rbright/aurora/internal/pipeline"
	"github.com/rbright/aurora/internal/session"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "aurora")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerArmFailsWithoutListener(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "arm"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no running aurora listener")
}

func TestRunnerForwardsControlCommands(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	commands := make(chan string, 8)
	deadline := time.Now().Add(6 * time.Second)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "aurora.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case ipc.CommandStatus, ipc.CommandDisarm:
			return ipc.Response{OK: true, State: "idle"}
		case ipc.CommandArm:
			return ipc.Response{OK: true, State: "armed", Deadline: deadline}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	want := map[string]string{"status": "idle\n", "arm": "armed (", "disarm": "idle\n"}
	for _, cmd := range []string{"status", "arm", "disarm"} {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: stderr}

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		require.Equal(t, 0, exitCode, cmd)
		require.Empty(t, stderr.String(), cmd)
		require.True(t, strings.HasPrefix(stdout.String(), want[cmd]), "%s: %q", cmd, stdout.String())
	}

	got := []string{<-commands, <-commands, <-commands}
	require.Equal(t, []string{"status", "arm", "disarm"}, got)
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "aurora.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: ""}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "aurora.sock")
	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		if req.Command == ipc.CommandStatus {
			return ipc.Response{OK: true, State: "armed"}
		}
		return ipc.Response{OK: false, Error: "unsupported"}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "armed", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.CommandArm)
	require.True(t, handled)
	require.ErrorContains(t, err, "unsupported")
}

func TestTryForwardLeavesStaleSocketInPlace(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "aurora.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "aurora.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.ErrorContains(t, err, "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestDescribeState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "idle", describeState(ipc.Response{OK: true}, now))
	require.Equal(t, "armed (2.5s left)", describeState(ipc.Response{State: "armed", Deadline: now.Add(2500 * time.Millisecond)}, now))
	require.Equal(t, "armed (0.0s left)", describeState(ipc.Response{State: "armed", Deadline: now.Add(-time.Second)}, now))
}

func TestRunnerDoctorPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "recognizer.model")
	require.Contains(t, stdout.String(), "HYPRLAND_INSTANCE_SIGNATURE")
}

func TestRunnerDevicesReportsPulseErrors(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestRunnerListenFailsOnMissingModelAndReleasesSocket(t *testing.T) {
	model := filepath.Join(t.TempDir(), "missing.bin")
	paths := setupRunnerEnv(t, `{"recognizer": {"model_path": "`+model+`"}}`)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "listen"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "load recognizer")

	_, statErr := os.Stat(filepath.Join(paths.runtimeDir, "aurora.sock"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerListenRefusesSecondListener(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "aurora.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "idle"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "listen"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already listening")
}

func TestRunnerTextDirectEchoesCommandsUntilQuit(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdin:  strings.NewReader("make me tea\nquit\nmake me coffee\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "text", "--direct"})
	require.Equal(t, 0, exitCode)
	require.Empty(t, stderr.String())
	require.Equal(t, "unknown(\"make me tea\") -> running\nquit -> quit\n", stdout.String())
}

func TestRunnerTextRequiresWakeWord(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	runner := Runner{
		Stdin:  strings.NewReader("quit\n"),
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "text"})
	require.Equal(t, 0, exitCode)
	require.Empty(t, stdout.String())
}

type fakeController struct {
	status   pipeline.Status
	snap     session.Snapshot
	err      error
	armed    int
	disarmed int
}

func (f *fakeController) Status() pipeline.Status { return f.status }

func (f *fakeController) Arm(context.Context) (session.Snapshot, error) {
	f.armed++
	return f.snap, f.err
}

func (f *fakeController) Disarm(context.Context) (session.Snapshot, error) {
	f.disarmed++
	return f.snap, f.err
}

func TestControlHandlerStatus(t *testing.T) {
	deadline := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctrl := &fakeController{status: pipeline.Status{
		Session: session.Snapshot{State: fsm.StateArmed, CycleID: "c1", Deadline: deadline},
		Device:  "mic",
		Dropped: 3,
	}}

	resp := controlHandler(ctrl).Handle(context.Background(), ipc.Request{Command: " STATUS "})
	require.Equal(t, ipc.Response{
		OK:       true,
		State:    "armed",
		CycleID:  "c1",
		Deadline: deadline,
		Device:   "mic",
		Dropped:  3,
	}, resp)
}

func TestControlHandlerArmAndDisarm(t *testing.T) {
	ctrl := &fakeController{snap: session.Snapshot{State: fsm.StateArmed, CycleID: "c2"}}
	handler := controlHandler(ctrl)

	resp := handler.Handle(context.Background(), ipc.Request{Command: ipc.CommandArm})
	require.True(t, resp.OK)
	require.Equal(t, "armed", resp.State)
	require.Equal(t, "armed", resp.Message)

	ctrl.snap = session.Snapshot{State: fsm.StateIdle}
	resp = handler.Handle(context.Background(), ipc.Request{Command: ipc.CommandDisarm})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, "disarmed", resp.Message)
	require.Equal(t, 1, ctrl.armed)
	require.Equal(t, 1, ctrl.disarmed)

	ctrl.err = pipeline.ErrListenerStopped
	resp = handler.Handle(context.Background(), ipc.Request{Command: ipc.CommandArm})
	require.False(t, resp.OK)
	require.Equal(t, pipeline.ErrListenerStopped.Error(), resp.Error)
}

func TestControlHandlerUnknownCommand(t *testing.T) {
	resp := controlHandler(&fakeController{}).Handle(context.Background(), ipc.Request{Command: "toggle"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command \"toggle\"")
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T, content string) runnerPaths {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(content+"\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
