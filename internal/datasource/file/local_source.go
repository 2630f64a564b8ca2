// Package file implements the "file" loader scheme over the local
// filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"tabular/internal/loader"
	"tabular/internal/location"
	"tabular/internal/system"
)

func init() {
	system.Default.RegisterLoader(location.SchemeFile, func(spec system.Spec) (system.Loader, error) {
		return loader.New(spec, NewLocal(spec.Location.Fullpath), false), nil
	})
}

// Local opens one file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path. Path safety is checked during
// location resolution, not here.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the file as an io.ReadCloser. A canceled context short-circuits
// before the filesystem is touched. Errors keep os.ErrNotExist and friends
// reachable through errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
