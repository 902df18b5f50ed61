package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
)

// Payload is the closed set of event payloads. Only types in this package
// implement it.
type Payload interface {
	// EventType returns the wire type of the payload.
	EventType() Type
	// PanelID returns the panel the payload is about.
	PanelID() string
	sealed()
}

// SolarPanelCreated captures the payload for v1.SolarPanelCreated events.
type SolarPanelCreated struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// SolarPanelDeleted captures the payload for v1.SolarPanelDeleted events.
type SolarPanelDeleted struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (SolarPanelCreated) EventType() Type   { return TypeSolarPanelCreated }
func (p SolarPanelCreated) PanelID() string { return p.ID }
func (SolarPanelCreated) sealed()           {}

func (SolarPanelDeleted) EventType() Type   { return TypeSolarPanelDeleted }
func (p SolarPanelDeleted) PanelID() string { return p.ID }
func (SolarPanelDeleted) sealed()           {}

// New builds an unjournaled event for payload at ts. Timestamps are
// normalized to UTC milliseconds, the precision the journal stores.
func New(payload Payload, ts time.Time) (Event, error) {
	if payload == nil {
		return Event{}, apperrors.New(apperrors.CodeInvalidPayload, "event payload is required")
	}
	if strings.TrimSpace(payload.PanelID()) == "" {
		return Event{}, apperrors.New(apperrors.CodeInvalidPayload, "panel id is required")
	}
	if deleted, ok := payload.(SolarPanelDeleted); ok {
		if deleted.DeletedAt.IsZero() {
			return Event{}, apperrors.New(apperrors.CodeInvalidPayload, "deletedAt is required")
		}
		deleted.DeletedAt = normalizeTime(deleted.DeletedAt)
		payload = deleted
	}
	payloadJSON, err := Encode(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Timestamp:   normalizeTime(ts),
		Type:        payload.EventType(),
		EntityID:    payload.PanelID(),
		PayloadJSON: payloadJSON,
	}, nil
}

// Encode serializes a payload to its wire form.
func Encode(payload Payload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidPayload, fmt.Sprintf("encode %s payload", payload.EventType()), err)
	}
	return data, nil
}

// Decode parses the payload of evt. Unknown types fail with
// SCHEMA_UNKNOWN_EVENT_KIND and malformed payloads with SCHEMA_INVALID_PAYLOAD.
func Decode(evt Event) (Payload, error) {
	switch evt.Type {
	case TypeSolarPanelCreated:
		var payload SolarPanelCreated
		if err := decodeStrict(evt, &payload); err != nil {
			return nil, err
		}
		return payload, checkPanelID(evt, payload.ID)
	case TypeSolarPanelDeleted:
		var payload SolarPanelDeleted
		if err := decodeStrict(evt, &payload); err != nil {
			return nil, err
		}
		if payload.DeletedAt.IsZero() {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidPayload, "deletedAt is required",
				map[string]string{"type": string(evt.Type), "id": payload.ID})
		}
		return payload, checkPanelID(evt, payload.ID)
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownEventKind,
			fmt.Sprintf("unknown event type %q", evt.Type),
			map[string]string{"type": string(evt.Type), "seq": fmt.Sprint(evt.Seq)})
	}
}

func decodeStrict(evt Event, target any) error {
	dec := json.NewDecoder(bytes.NewReader(evt.PayloadJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeInvalidPayload,
			fmt.Sprintf("decode %s payload", evt.Type),
			map[string]string{"type": string(evt.Type), "seq": fmt.Sprint(evt.Seq)}, err)
	}
	return nil
}

func checkPanelID(evt Event, panelID string) error {
	if strings.TrimSpace(panelID) == "" {
		return apperrors.WithMetadata(apperrors.CodeInvalidPayload, "panel id is required",
			map[string]string{"type": string(evt.Type), "seq": fmt.Sprint(evt.Seq)})
	}
	if evt.EntityID != "" && evt.EntityID != panelID {
		return apperrors.WithMetadata(apperrors.CodeInvalidPayload, "entity id does not match payload id",
			map[string]string{"entity_id": evt.EntityID, "id": panelID})
	}
	return nil
}

func normalizeTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return ts
	}
	return ts.UTC().Truncate(time.Millisecond)
}
