// Package sqlite stores the field journal in a SQLite database.
//
// One database file may hold several fields; every row is keyed by field id
// so each field keeps its own sequence and hash chain. Reads verify the chain
// as they page, so a tampered or truncated journal surfaces as an integrity
// error instead of a silently different projection.
package sqlite
