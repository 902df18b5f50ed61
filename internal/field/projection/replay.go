package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/solarfield/internal/field/journal"
	"github.com/louisbranch/solarfield/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Replay folds every journaled event after the store's position, page by
// page, and returns the final position.
func Replay(ctx context.Context, store *Store, lister journal.Lister, pageSize int) (uint64, error) {
	if store == nil {
		return 0, ErrStoreRequired
	}
	if lister == nil {
		return store.Position(), fmt.Errorf("event lister is not configured")
	}
	if pageSize <= 0 {
		pageSize = journal.DefaultPageSize
	}

	ctx, span := otel.Tracer("projection").Start(ctx, "projection.Replay")
	defer span.End()

	for {
		page, err := lister.ListEvents(ctx, store.Position(), pageSize)
		if err != nil {
			return store.Position(), fmt.Errorf("list events: %w", err)
		}
		if len(page) == 0 {
			span.SetAttributes(attribute.Int64("field.position", int64(store.Position())))
			return store.Position(), nil
		}
		if _, err := store.Fold(ctx, page...); err != nil {
			return store.Position(), err
		}
	}
}

// Rebuild resets the store and replays the journal from the start.
func Rebuild(ctx context.Context, store *Store, lister journal.Lister) (uint64, error) {
	if store == nil {
		return 0, ErrStoreRequired
	}
	store.Reset()
	return Replay(ctx, store, lister, journal.DefaultPageSize)
}

// Follow folds events from source as they are journaled, starting after the
// store's position. It returns nil when ctx is canceled or the journal
// closes, and the first fold or read error otherwise.
func Follow(ctx context.Context, store *Store, source journal.Source) error {
	if store == nil {
		return ErrStoreRequired
	}
	if source == nil {
		return fmt.Errorf("event source is not configured")
	}
	for evt, err := range source.Events(ctx, store.Position()) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, journal.ErrClosed) {
				return nil
			}
			return err
		}
		if _, err := store.Fold(ctx, evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
