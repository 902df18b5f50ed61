// Package event defines the solar panel field's domain events.
//
// Events are immutable facts. The envelope (Event) carries journal
// bookkeeping such as sequence and hashes; the payload is a closed set of
// kinds (Payload) that the projection layer switches over exhaustively.
// Payloads travel as JSON and must re-encode to the exact bytes they were
// decoded from.
package event
