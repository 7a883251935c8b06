//go:build linux || darwin

package sysinspect

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"ntfybridge/internal/logging"
	"ntfybridge/internal/query"
)

// DiskUsage reads filesystem statistics with statfs, falling back to df when
// the call fails.
func (i *Inspector) DiskUsage(ctx context.Context, path string) (query.DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		i.logger.Debug("statfs failed; falling back to df",
			logging.String("path", path),
			logging.Error(fmt.Errorf("statfs %s: %w", path, err)),
		)
		return i.dfUsage(ctx, path)
	}
	bsize := uint64(st.Bsize)
	return query.DiskUsage{
		Total:     st.Blocks * bsize,
		Used:      (st.Blocks - st.Bfree) * bsize,
		Available: st.Bavail * bsize,
	}, nil
}
