package projection

// Table is an immutable set of rows keyed by id. The zero value is empty.
type Table struct {
	rows  map[string]Row
	order []string
}

// Len returns the number of rows, deleted ones included.
func (t Table) Len() int {
	return len(t.order)
}

// Get returns the row for id.
func (t Table) Get(id string) (Row, bool) {
	row, ok := t.rows[id]
	if !ok {
		return Row{}, false
	}
	return row.clone(), true
}

// Scan returns the rows matching pred in creation order. A nil pred
// matches every row.
func (t Table) Scan(pred Predicate) []Row {
	if pred == nil {
		pred = All
	}
	var out []Row
	for _, id := range t.order {
		row := t.rows[id]
		if pred(row) {
			out = append(out, row.clone())
		}
	}
	return out
}

// Rows returns every row in creation order.
func (t Table) Rows() []Row {
	return t.Scan(All)
}

// clone returns a table that can be mutated without touching t.
func (t Table) clone() Table {
	rows := make(map[string]Row, len(t.rows)+1)
	for id, row := range t.rows {
		rows[id] = row
	}
	order := make([]string, len(t.order), len(t.order)+1)
	copy(order, t.order)
	return Table{rows: rows, order: order}
}

// mutate applies m in place. Only used on tables produced by clone.
func (t *Table) mutate(m Mutation) {
	switch m.Op {
	case OpInsert:
		t.rows[m.Row.ID] = m.Row
		t.order = append(t.order, m.Row.ID)
	case OpSoftDelete:
		t.rows[m.Row.ID] = m.Row
	}
}
