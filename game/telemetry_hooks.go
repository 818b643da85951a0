package game

import (
	"context"
	"fmt"

	"github.com/pthm-cable/invaders/telemetry"
)

// report writes the generation's metrics, bookmarks and archive row.
func (t *Trainer) report(ctx context.Context, row telemetry.GenerationMetricsRow) error {
	if err := t.out.AppendGenerationMetrics(t.profile, row); err != nil {
		return err
	}

	bookmarks := t.bookmarks.Check(row)
	for _, bm := range bookmarks {
		bm.LogBookmark()
	}
	if err := t.out.AppendBookmarks(t.profile, bookmarks); err != nil {
		return err
	}

	if t.store != nil {
		if err := t.store.SaveGeneration(ctx, t.run.ID, row); err != nil {
			return fmt.Errorf("archiving generation: %w", err)
		}
	}
	return nil
}
