package mock

import (
	"context"
	"io"

	"github.com/fwojciec/ponder"
)

// Interface compliance checks.
var (
	_ ponder.Library  = (*Library)(nil)
	_ ponder.Resetter = (*Resetter)(nil)
)

// Library is a test double for ponder.Library.
type Library struct {
	ListFilesFn func(ctx context.Context) ([]ponder.File, error)
	UploadFn    func(ctx context.Context, name string, r io.Reader) (ponder.UploadResult, error)
}

// ListFiles delegates to ListFilesFn.
func (l *Library) ListFiles(ctx context.Context) ([]ponder.File, error) {
	return l.ListFilesFn(ctx)
}

// Upload delegates to UploadFn.
func (l *Library) Upload(ctx context.Context, name string, r io.Reader) (ponder.UploadResult, error) {
	return l.UploadFn(ctx, name, r)
}

// Resetter is a test double for ponder.Resetter.
type Resetter struct {
	ResetFn func(ctx context.Context) error
}

// Reset delegates to ResetFn.
func (r *Resetter) Reset(ctx context.Context) error {
	return r.ResetFn(ctx)
}
