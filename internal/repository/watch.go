// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"

	"envmod-cli/internal/watch"
)

// Watch blocks, re-running Rescan whenever descriptor files under the
// module roots change. Returns when ctx is cancelled or the underlying
// watcher fails fatally.
func (r *Repository) Watch(ctx context.Context) error {
	w, err := watch.New(watch.Config{
		Roots:  r.roots,
		Logger: r.logger,
		OnChange: func(_ context.Context, changed []string) error {
			r.logger.Info("descriptor change detected", "files", len(changed))
			return r.Rescan()
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
