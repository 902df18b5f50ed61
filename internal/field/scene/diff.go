package scene

import (
	"sort"

	"github.com/louisbranch/solarfield/internal/field/projection"
)

// Plan lists the renderer changes needed to reach a new result.
type Plan struct {
	// ToAdd holds rows to create, in result order.
	ToAdd []projection.Row
	// ToRemove holds ids to destroy, sorted.
	ToRemove []string
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Diff computes ToAdd = next − previous and ToRemove = previous − next.
func Diff(previous map[string]struct{}, next []projection.Row) Plan {
	var plan Plan
	present := make(map[string]struct{}, len(next))
	for _, row := range next {
		if _, dup := present[row.ID]; dup {
			continue
		}
		present[row.ID] = struct{}{}
		if _, ok := previous[row.ID]; !ok {
			plan.ToAdd = append(plan.ToAdd, row)
		}
	}
	for id := range previous {
		if _, ok := present[id]; !ok {
			plan.ToRemove = append(plan.ToRemove, id)
		}
	}
	sort.Strings(plan.ToRemove)
	return plan
}
