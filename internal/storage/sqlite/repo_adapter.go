package sqlite

import (
	"context"
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoCreate {
			if err := r.EnsureSchema(ctx); err != nil {
				r.Close()
				return nil, fmt.Errorf("sqlite: %w", err)
			}
		}
		return r, nil
	})
}
