package query

import "context"

// Process is one row of the OS process table.
type Process struct {
	PID     int
	CPU     float64
	Mem     float64
	Command string
}

// DiskUsage describes a filesystem. When the platform tool's output could not
// be parsed, Total is zero and Raw carries the output.
type DiskUsage struct {
	Total     uint64
	Used      uint64
	Available uint64
	Raw       string
}

// Inspector is the engine's only window onto the host.
type Inspector interface {
	// FindProcess returns the first PID whose command line contains pattern.
	FindProcess(ctx context.Context, pattern string) (pid int, found bool, err error)
	// DiskUsage reports usage of the filesystem holding path.
	DiskUsage(ctx context.Context, path string) (DiskUsage, error)
	// Processes lists running processes.
	Processes(ctx context.Context) ([]Process, error)
	// TailBytes returns up to maxBytes from the end of path. Missing files
	// yield an error wrapping fs.ErrNotExist.
	TailBytes(ctx context.Context, path string, maxBytes int64) ([]byte, error)
	// TailLines returns up to n trailing lines of path. Missing files yield
	// an error wrapping fs.ErrNotExist.
	TailLines(ctx context.Context, path string, n int) ([]string, error)
}
