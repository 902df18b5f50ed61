package event

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
)

func TestType_Known(t *testing.T) {
	tests := []struct {
		eventType Type
		valid     bool
		known     bool
	}{
		{TypeSolarPanelCreated, true, true},
		{TypeSolarPanelDeleted, true, true},
		{"v2.SolarPanelRotated", true, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.valid {
				t.Errorf("Type(%q).IsValid() = %v, want %v", tt.eventType, got, tt.valid)
			}
			if got := tt.eventType.Known(); got != tt.known {
				t.Errorf("Type(%q).Known() = %v, want %v", tt.eventType, got, tt.known)
			}
		})
	}
}

func TestNewBuildsEnvelope(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	evt, err := New(SolarPanelCreated{ID: "a", X: 1, Y: 0, Z: 2}, ts)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if evt.Type != TypeSolarPanelCreated {
		t.Fatalf("type = %q, want %q", evt.Type, TypeSolarPanelCreated)
	}
	if evt.EntityID != "a" {
		t.Fatalf("entity id = %q, want a", evt.EntityID)
	}
	if evt.Seq != 0 || evt.Hash != "" {
		t.Fatalf("expected unjournaled event, got seq %d hash %q", evt.Seq, evt.Hash)
	}
	wantTS := time.Date(2026, 3, 1, 11, 0, 0, 123000000, time.UTC)
	if !evt.Timestamp.Equal(wantTS) || evt.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp = %v, want %v", evt.Timestamp, wantTS)
	}
	if got, want := string(evt.PayloadJSON), `{"id":"a","x":1,"y":0,"z":2}`; got != want {
		t.Fatalf("payload = %s, want %s", got, want)
	}
}

func TestNewRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"nil payload", nil},
		{"missing created id", SolarPanelCreated{X: 1}},
		{"missing deleted id", SolarPanelDeleted{DeletedAt: time.Now()}},
		{"missing deleted at", SolarPanelDeleted{ID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.payload, time.Now())
			if !apperrors.HasCode(err, apperrors.CodeInvalidPayload) {
				t.Fatalf("expected invalid payload error, got %v", err)
			}
		})
	}
}

func TestPayloadRoundTripsByteForByte(t *testing.T) {
	deletedAt := time.Date(2026, 3, 1, 12, 30, 0, 250000000, time.UTC)
	payloads := []Payload{
		SolarPanelCreated{ID: "a", X: 1, Y: 0, Z: 2},
		SolarPanelCreated{ID: "b", X: -3.141592653589793, Y: -0.5, Z: 1e-7},
		SolarPanelDeleted{ID: "a", DeletedAt: deletedAt},
	}
	for _, payload := range payloads {
		t.Run(string(payload.EventType())+"/"+payload.PanelID(), func(t *testing.T) {
			evt, err := New(payload, deletedAt)
			if err != nil {
				t.Fatalf("new event: %v", err)
			}
			decoded, err := Decode(evt)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(payload, decoded); diff != "" {
				t.Fatalf("decoded payload mismatch (-want +got):\n%s", diff)
			}
			again, err := Encode(decoded)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			if !bytes.Equal(again, evt.PayloadJSON) {
				t.Fatalf("re-encoded bytes differ:\n got %s\nwant %s", again, evt.PayloadJSON)
			}
		})
	}
}

func TestDecodeWireFormat(t *testing.T) {
	evt := Event{
		Type:        TypeSolarPanelDeleted,
		EntityID:    "a",
		PayloadJSON: []byte(`{"id":"a","deletedAt":"2026-03-01T12:30:00.25Z"}`),
	}
	payload, err := Decode(evt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	deleted, ok := payload.(SolarPanelDeleted)
	if !ok {
		t.Fatalf("payload type = %T, want SolarPanelDeleted", payload)
	}
	want := time.Date(2026, 3, 1, 12, 30, 0, 250000000, time.UTC)
	if !deleted.DeletedAt.Equal(want) {
		t.Fatalf("deletedAt = %v, want %v", deleted.DeletedAt, want)
	}
	again, err := Encode(deleted)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(again) != string(evt.PayloadJSON) {
		t.Fatalf("re-encoded = %s, want %s", again, evt.PayloadJSON)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		evt  Event
		code apperrors.Code
	}{
		{
			name: "unknown type",
			evt:  Event{Type: "v1.SolarPanelRotated", PayloadJSON: []byte(`{}`)},
			code: apperrors.CodeUnknownEventKind,
		},
		{
			name: "malformed json",
			evt:  Event{Type: TypeSolarPanelCreated, PayloadJSON: []byte(`{"id":`)},
			code: apperrors.CodeInvalidPayload,
		},
		{
			name: "unknown field",
			evt:  Event{Type: TypeSolarPanelCreated, PayloadJSON: []byte(`{"id":"a","x":1,"y":2,"z":3,"tilt":4}`)},
			code: apperrors.CodeInvalidPayload,
		},
		{
			name: "missing id",
			evt:  Event{Type: TypeSolarPanelCreated, PayloadJSON: []byte(`{"x":1,"y":2,"z":3}`)},
			code: apperrors.CodeInvalidPayload,
		},
		{
			name: "missing deletedAt",
			evt:  Event{Type: TypeSolarPanelDeleted, PayloadJSON: []byte(`{"id":"a"}`)},
			code: apperrors.CodeInvalidPayload,
		},
		{
			name: "entity mismatch",
			evt:  Event{Type: TypeSolarPanelCreated, EntityID: "b", PayloadJSON: []byte(`{"id":"a","x":1,"y":2,"z":3}`)},
			code: apperrors.CodeInvalidPayload,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.evt)
			if !apperrors.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}
