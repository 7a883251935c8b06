package daemonctl

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"ntfybridge/internal/bridge"
	"ntfybridge/internal/config"
	"ntfybridge/internal/daemon"
	"ntfybridge/internal/logging"
)

type idleRunner struct{ stop chan struct{} }

func (r *idleRunner) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-r.stop:
	}
	return nil
}
func (r *idleRunner) Stop()               { close(r.stop) }
func (r *idleRunner) State() bridge.State { return bridge.StateIdle }
func (r *idleRunner) Stats() bridge.Stats { return bridge.Stats{} }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ntfybridge.pid")

	if _, err := ReadPID(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, err := ReadPID(path)
	if err != nil || pid != 4242 {
		t.Fatalf("unexpected pid %d err %v", pid, err)
	}
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProcessInfoNotRunning(t *testing.T) {
	info, err := ProcessInfo(testConfig(t))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if info.Running {
		t.Fatalf("expected not running, got %+v", info)
	}
}

func TestProcessInfoRunning(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.New(cfg, &idleRunner{stop: make(chan struct{})}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	info, err := ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !info.Running || info.PID != os.Getpid() {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := Stop(cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the current process")
	}
}

func TestStopNotRunning(t *testing.T) {
	if _, err := Stop(testConfig(t), time.Second); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestTerminateChildProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	pidPath := filepath.Join(t.TempDir(), "ntfybridge.pid")
	if err := os.WriteFile(pidPath, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Terminate(cmd.Process.Pid, pidPath, 2*time.Second)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if result.PID != cmd.Process.Pid || result.ForcedKill {
		t.Fatalf("unexpected result %+v", result)
	}
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("child did not exit")
	}
}

func TestAliveRejectsInvalidPID(t *testing.T) {
	if Alive(0) || Alive(-5) {
		t.Fatal("expected non-positive pids to be reported dead")
	}
	if !Alive(os.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
