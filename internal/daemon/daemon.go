package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/gofrs/flock"

	"ntfybridge/internal/bridge"
	"ntfybridge/internal/config"
	"ntfybridge/internal/fileutil"
	"ntfybridge/internal/logging"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another ntfybridge daemon instance is already running")

// Runner is the relay loop managed by the daemon.
type Runner interface {
	Run(ctx context.Context) error
	Stop()
	State() bridge.State
	Stats() bridge.Stats
}

// Daemon coordinates the relay loop and enforces single-instance execution.
type Daemon struct {
	runner   Runner
	logger   *slog.Logger
	lockPath string
	pidPath  string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	done    chan struct{}
	runErr  error
}

// Status represents daemon runtime information.
type Status struct {
	Running  bool
	PID      int
	State    bridge.State
	Bridge   bridge.Stats
	LockPath string
	PIDPath  string
}

// New constructs a daemon around runner using the lock and pid locations in cfg.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and runner")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		pidPath:  cfg.PIDPath(),
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, records the pid, and launches the relay loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := fileutil.WriteFileAtomic(d.pidPath, pid, 0o644); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	done := make(chan struct{})
	d.done = done
	d.running = true
	d.runErr = nil

	go func() {
		err := d.runner.Run(ctx)
		d.mu.Lock()
		d.runErr = err
		d.mu.Unlock()
		close(done)
	}()

	d.logger.Info("ntfybridge daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
	)
	return nil
}

// Stop halts the relay loop, removes the pid file, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	done := d.done
	d.running = false
	d.mu.Unlock()

	d.runner.Stop()
	<-done

	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("ntfybridge daemon stopped")
}

// Done is closed once the relay loop has returned. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the relay loop's exit error, if any.
func (d *Daemon) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Status reports the daemon's current runtime snapshot.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	status := Status{
		Running:  running,
		State:    d.runner.State(),
		Bridge:   d.runner.Stats(),
		LockPath: d.lockPath,
		PIDPath:  d.pidPath,
	}
	if running {
		status.PID = os.Getpid()
	}
	return status
}

// IsLocked reports whether some process currently holds the lock at lockPath.
func IsLocked(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
