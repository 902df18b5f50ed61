// Package projection folds field events into the panels table.
//
// The table is an immutable value. The Store serializes folds and publishes
// a new snapshot after each one, so readers always see the state after some
// whole number of events and never a half-applied one. Rows are soft
// deleted: a delete stamps DeletedAt and the row stays in the table, which
// keeps a replay from the start of the journal deterministic.
package projection
