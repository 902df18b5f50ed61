package projection

import (
	"fmt"

	"github.com/louisbranch/solarfield/internal/field/event"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
)

// Op is the kind of table change an event produces.
type Op uint8

const (
	// OpNone leaves the table unchanged.
	OpNone Op = iota
	// OpInsert adds a new row.
	OpInsert
	// OpSoftDelete replaces a live row with its deleted version.
	OpSoftDelete
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpInsert:
		return "insert"
	case OpSoftDelete:
		return "soft_delete"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Mutation is the table change for one event. Row is the row as it will be
// stored after the change.
type Mutation struct {
	Op  Op
	Row Row
}

// Materialize computes the mutation evt makes to table. It reads nothing
// but its arguments; the only time it uses is the one carried by evt.
func Materialize(table Table, evt event.Event) (Mutation, error) {
	payload, err := event.Decode(evt)
	if err != nil {
		return Mutation{}, err
	}

	switch p := payload.(type) {
	case event.SolarPanelCreated:
		if _, exists := table.rows[p.ID]; exists {
			return Mutation{}, apperrors.WithMetadata(apperrors.CodeDuplicateID,
				fmt.Sprintf("panel %s already exists", p.ID),
				map[string]string{"panel_id": p.ID, "seq": fmt.Sprint(evt.Seq)})
		}
		return Mutation{Op: OpInsert, Row: Row{
			ID:         p.ID,
			X:          p.X,
			Y:          p.Y,
			Z:          p.Z,
			CreatedAt:  evt.Timestamp.UTC(),
			CreatedSeq: evt.Seq,
		}}, nil

	case event.SolarPanelDeleted:
		row, exists := table.rows[p.ID]
		if !exists {
			return Mutation{}, apperrors.WithMetadata(apperrors.CodeUnknownID,
				fmt.Sprintf("panel %s does not exist", p.ID),
				map[string]string{"panel_id": p.ID, "seq": fmt.Sprint(evt.Seq)})
		}
		if !row.Live() {
			return Mutation{Op: OpNone, Row: row.clone()}, nil
		}
		deletedAt := p.DeletedAt.UTC()
		row.DeletedAt = &deletedAt
		return Mutation{Op: OpSoftDelete, Row: row}, nil

	default:
		return Mutation{}, apperrors.New(apperrors.CodeUnknownEventKind,
			fmt.Sprintf("no materializer for %T", payload))
	}
}

// Apply folds evt into table and returns the new table. table itself is
// not modified.
func Apply(table Table, evt event.Event) (Table, error) {
	m, err := Materialize(table, evt)
	if err != nil {
		return table, err
	}
	if m.Op == OpNone {
		return table, nil
	}
	next := table.clone()
	next.mutate(m)
	return next, nil
}
