// Package errors provides structured, coded errors for the projection engine.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Schema errors
	CodeUnknownEventKind Code = "SCHEMA_UNKNOWN_EVENT_KIND"
	CodeInvalidPayload   Code = "SCHEMA_INVALID_PAYLOAD"

	// Integrity errors
	CodeDuplicateID   Code = "INTEGRITY_DUPLICATE_ID"
	CodeUnknownID     Code = "INTEGRITY_UNKNOWN_ID"
	CodeSequenceGap   Code = "INTEGRITY_SEQUENCE_GAP"
	CodeChainMismatch Code = "INTEGRITY_CHAIN_MISMATCH"

	// Geometry errors
	CodeNoIntersection Code = "GEOMETRY_NO_INTERSECTION"

	// Journal errors
	CodeAppendRejected Code = "APPEND_REJECTED"
	CodeNotFound       Code = "NOT_FOUND"
)

// Category groups codes by how callers are expected to react.
type Category string

const (
	CategoryUnknown   Category = "unknown"
	CategorySchema    Category = "schema"
	CategoryIntegrity Category = "integrity"
	CategoryGeometry  Category = "geometry"
	CategoryAppend    Category = "append"
)

// Category returns the category of the code.
func (c Code) Category() Category {
	switch c {
	case CodeUnknownEventKind, CodeInvalidPayload:
		return CategorySchema
	case CodeDuplicateID, CodeUnknownID, CodeSequenceGap, CodeChainMismatch:
		return CategoryIntegrity
	case CodeNoIntersection:
		return CategoryGeometry
	case CodeAppendRejected:
		return CategoryAppend
	default:
		return CategoryUnknown
	}
}

// Fatal reports whether errors with this code must stop projection folding.
// Schema and integrity failures mean the derived state can no longer be
// trusted; everything else is recoverable by the caller.
func (c Code) Fatal() bool {
	switch c.Category() {
	case CategorySchema, CategoryIntegrity:
		return true
	default:
		return false
	}
}
