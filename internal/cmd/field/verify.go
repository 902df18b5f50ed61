package field

import (
	"context"
	"fmt"
	"io"

	"github.com/louisbranch/solarfield/internal/field/journal/sqlite"
	"github.com/louisbranch/solarfield/internal/field/projection"
)

// Verify checks the journal hash chain of cfg's field, rebuilds the
// projection from scratch and writes a summary to out.
func Verify(ctx context.Context, cfg Config, out io.Writer) error {
	journal, err := sqlite.Open(ctx, cfg.DBPath, cfg.FieldID)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	if err := journal.Verify(ctx); err != nil {
		return fmt.Errorf("verify journal: %w", err)
	}
	store := projection.NewStore()
	position, err := projection.Rebuild(ctx, store, journal)
	if err != nil {
		return fmt.Errorf("rebuild projection: %w", err)
	}
	snapshot := store.Snapshot()
	live := len(snapshot.Table.Scan(projection.IsLive))
	fmt.Fprintf(out, "field %s: %d events, %d panels (%d live, %d deleted)\n",
		journal.FieldID(), position, snapshot.Table.Len(), live, snapshot.Table.Len()-live)
	return nil
}
