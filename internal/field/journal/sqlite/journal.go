package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
	"github.com/louisbranch/solarfield/internal/field/journal"
	"github.com/louisbranch/solarfield/internal/field/journal/sqlite/migrations"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/storage/sqlitemigrate"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultPollInterval is how often followers re-read the database for
// appends made through another connection.
const DefaultPollInterval = 250 * time.Millisecond

// modernc reads connection settings only from _pragma parameters.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

// Journal is a SQLite-backed field journal.
type Journal struct {
	sqlDB        *sql.DB
	fieldID      string
	notifier     *journal.Notifier
	pollInterval time.Duration
	pageSize     int
}

// Option configures a Journal.
type Option func(*Journal)

// WithPollInterval sets how often followers poll for appends from other
// connections. Zero disables polling.
func WithPollInterval(interval time.Duration) Option {
	return func(j *Journal) {
		j.pollInterval = interval
	}
}

// WithPageSize sets the page size used by followers.
func WithPageSize(size int) Option {
	return func(j *Journal) {
		j.pageSize = size
	}
}

// Open opens (creating if needed) the journal database at path for fieldID
// and applies the embedded migrations.
func Open(ctx context.Context, path, fieldID string, opts ...Option) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	fieldID = strings.TrimSpace(fieldID)
	if fieldID == "" {
		return nil, fmt.Errorf("field id is required")
	}

	dsn := filepath.Clean(path) + dsnPragmas
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	j := &Journal{
		sqlDB:        sqlDB,
		fieldID:      fieldID,
		notifier:     journal.NewNotifier(),
		pollInterval: DefaultPollInterval,
		pageSize:     journal.DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j, nil
}

// FieldID returns the field this journal is scoped to.
func (j *Journal) FieldID() string {
	return j.fieldID
}

// Close stops followers and closes the database. It is nil-safe.
func (j *Journal) Close() error {
	if j == nil || j.sqlDB == nil {
		return nil
	}
	j.notifier.Close()
	return j.sqlDB.Close()
}

// Append atomically assigns the next sequence and chain hash to evt and
// stores it.
func (j *Journal) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if j == nil || j.sqlDB == nil {
		return event.Event{}, apperrors.New(apperrors.CodeAppendRejected, "storage is not configured")
	}
	if j.notifier.Closed() {
		return event.Event{}, apperrors.Wrap(apperrors.CodeAppendRejected, "append event", journal.ErrClosed)
	}
	if !evt.Type.IsValid() {
		return event.Event{}, apperrors.New(apperrors.CodeAppendRejected, "event type is required")
	}
	if !evt.Type.Known() {
		return event.Event{}, apperrors.WithMetadata(apperrors.CodeAppendRejected,
			fmt.Sprintf("unknown event type %q", evt.Type),
			map[string]string{"type": string(evt.Type)})
	}
	if evt.Seq != 0 {
		return event.Event{}, apperrors.New(apperrors.CodeAppendRejected, "event is already journaled")
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	stored, err := j.appendTx(ctx, evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeAppendRejected, "append event", err)
	}
	j.notifier.Notify()
	return stored, nil
}

func (j *Journal) appendTx(ctx context.Context, evt event.Event) (event.Event, error) {
	tx, err := j.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		lastSeq   int64
		prevChain string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT seq, chain_hash FROM events WHERE field_id = ? ORDER BY seq DESC LIMIT 1",
		j.fieldID,
	).Scan(&lastSeq, &prevChain)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("load previous event: %w", err)
	}

	sealed, err := event.Seal(evt, uint64(lastSeq)+1, prevChain)
	if err != nil {
		return event.Event{}, fmt.Errorf("seal event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO events (field_id, seq, event_hash, prev_hash, chain_hash, timestamp, event_type, entity_id, payload_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.fieldID,
		int64(sealed.Seq),
		sealed.Hash,
		sealed.PrevHash,
		sealed.ChainHash,
		sealed.Timestamp.UnixMilli(),
		string(sealed.Type),
		sealed.EntityID,
		sealed.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("concurrent append at seq %d: %w", sealed.Seq, err)
		}
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return sealed, nil
}

// ListEvents returns up to limit events after afterSeq. Each event's hashes
// are checked against its content and its predecessor in the page.
func (j *Journal) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if j == nil || j.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	rows, err := j.sqlDB.QueryContext(ctx, `
SELECT seq, event_hash, prev_hash, chain_hash, timestamp, event_type, entity_id, payload_json
FROM events
WHERE field_id = ? AND seq > ?
ORDER BY seq
LIMIT ?`, j.fieldID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var page []event.Event
	for rows.Next() {
		var (
			seq       int64
			timestamp int64
			eventType string
			evt       event.Event
		)
		if err := rows.Scan(&seq, &evt.Hash, &evt.PrevHash, &evt.ChainHash, &timestamp, &eventType, &evt.EntityID, &evt.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Timestamp = time.UnixMilli(timestamp).UTC()
		evt.Type = event.Type(eventType)
		page = append(page, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for i, evt := range page {
		if err := event.VerifyChain(evt, evt.PrevHash); err != nil {
			return nil, j.chainError(evt, err)
		}
		if i > 0 && (evt.Seq != page[i-1].Seq+1 || evt.PrevHash != page[i-1].ChainHash) {
			return nil, j.chainError(evt, fmt.Errorf("event %d does not follow event %d", evt.Seq, page[i-1].Seq))
		}
	}
	return page, nil
}

// Events follows the journal after afterSeq. Appends through this Journal
// wake followers immediately; appends from other connections are picked up
// on the poll interval.
func (j *Journal) Events(ctx context.Context, afterSeq uint64) iter.Seq2[event.Event, error] {
	return journal.Follow(ctx, j, j.notifier, afterSeq, journal.FollowOptions{
		PageSize:     j.pageSize,
		PollInterval: j.pollInterval,
		Retryable:    isBusyError,
	})
}

// Verify walks the whole journal and checks sequence continuity and the
// hash chain from the first event.
func (j *Journal) Verify(ctx context.Context) error {
	var (
		lastSeq   uint64
		prevChain string
	)
	for {
		page, err := j.ListEvents(ctx, lastSeq, j.pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, evt := range page {
			if evt.Seq != lastSeq+1 {
				return apperrors.WithMetadata(apperrors.CodeSequenceGap,
					fmt.Sprintf("expected seq %d, got %d", lastSeq+1, evt.Seq),
					map[string]string{"field_id": j.fieldID})
			}
			if err := event.VerifyChain(evt, prevChain); err != nil {
				return j.chainError(evt, err)
			}
			prevChain = evt.ChainHash
			lastSeq = evt.Seq
		}
	}
}

func (j *Journal) chainError(evt event.Event, cause error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeChainMismatch, "journal integrity check failed",
		map[string]string{"field_id": j.fieldID, "seq": fmt.Sprint(evt.Seq)}, cause)
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// isBusyError reports lock contention with another connection.
func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
