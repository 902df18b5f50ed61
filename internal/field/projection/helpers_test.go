package projection

import (
	"testing"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// sequenced builds journaled events from payloads, starting at seq 1.
func sequenced(t *testing.T, payloads ...event.Payload) []event.Event {
	t.Helper()
	return sequencedFrom(t, 1, payloads...)
}

func sequencedFrom(t *testing.T, first uint64, payloads ...event.Payload) []event.Event {
	t.Helper()
	events := make([]event.Event, 0, len(payloads))
	for i, payload := range payloads {
		evt, err := event.New(payload, testClock.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("new event: %v", err)
		}
		evt.Seq = first + uint64(i)
		events = append(events, evt)
	}
	return events
}

func created(id string, x, y, z float64) event.SolarPanelCreated {
	return event.SolarPanelCreated{ID: id, X: x, Y: y, Z: z}
}

func deleted(id string, at time.Time) event.SolarPanelDeleted {
	return event.SolarPanelDeleted{ID: id, DeletedAt: at}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ID)
	}
	return out
}
