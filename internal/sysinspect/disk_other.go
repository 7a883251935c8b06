//go:build !linux && !darwin

package sysinspect

import (
	"context"

	"ntfybridge/internal/query"
)

// DiskUsage runs `df -Pk path`.
func (i *Inspector) DiskUsage(ctx context.Context, path string) (query.DiskUsage, error) {
	return i.dfUsage(ctx, path)
}
