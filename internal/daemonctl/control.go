package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"ntfybridge/internal/config"
	"ntfybridge/internal/daemon"
)

// ErrNotRunning indicates no daemon holds the lock.
var ErrNotRunning = errors.New("daemon not running")

const pollStep = 100 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
	Args       []string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Info describes the daemon process as seen from the lock and pid files.
type Info struct {
	Running bool
	PID     int
}

// Launch starts a detached "ntfybridge run" process in its own session.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	args = append(args, opts.Args...)

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// ProcessInfo reports whether a daemon holds the lock and its pid when known.
func ProcessInfo(cfg *config.Config) (Info, error) {
	if cfg == nil {
		return Info{}, errors.New("configuration not available")
	}
	locked, err := daemon.IsLocked(cfg.LockPath())
	if err != nil {
		return Info{}, err
	}
	pid, err := ReadPID(cfg.PIDPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Info{Running: locked}, err
	}
	if !locked {
		return Info{}, nil
	}
	return Info{Running: true, PID: pid}, nil
}

// EnsureStarted launches the daemon unless one is already running, then waits
// for it to take the lock.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	info, err := ProcessInfo(cfg)
	if err != nil {
		return StartResult{}, err
	}
	if info.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: info.PID}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		info, err = ProcessInfo(cfg)
		if err == nil && info.Running {
			return StartResult{State: StartStateStarted, PID: info.PID}, nil
		}
		time.Sleep(pollStep)
	}
	return StartResult{}, fmt.Errorf("daemon failed to start within %s (see %s)", waitTimeout, cfg.LogPath())
}

// Stop sends SIGTERM to the daemon and escalates to SIGKILL if it is still
// alive after gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	info, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !info.Running {
		return StopResult{}, ErrNotRunning
	}
	return Terminate(info.PID, cfg.PIDPath(), gracePeriod)
}

// Terminate signals pid and waits for it to exit.
func Terminate(pid int, pidPath string, gracePeriod time.Duration) (StopResult, error) {
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			removePIDFile(pidPath)
			return result, nil
		}
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if WaitForExit(pid, gracePeriod) {
		return result, nil
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	WaitForExit(pid, gracePeriod)
	removePIDFile(pidPath)
	return result, nil
}

// WaitForExit polls until pid is gone or timeout elapses.
func WaitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !Alive(pid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(pollStep)
	}
}

// Alive reports whether a process with pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ReadPID parses the daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, fmt.Errorf("pid file %q is empty", path)
	}
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q: invalid pid %q", path, text)
	}
	return pid, nil
}

func removePIDFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
