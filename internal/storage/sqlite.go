package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"eventfeed/internal/model"
	"eventfeed/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const eventColumns = `id, owner_id, name, description, category, subcategory, region, type,
	start_date, start_time, end_date, end_time, payment, document, visibility,
	published, deactivated, created_at`

const sourceColumns = `id, owner_id, name, url, interval_minutes, is_active, last_check_at, created_at`

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertEvent inserts an event or replaces the stored copy with the same ID.
// A missing ID is generated and a missing CreatedAt set to now; the original
// creation time survives updates.
func (s *SQLite) UpsertEvent(ctx context.Context, e *model.EventRecord) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == nil {
		now, _ := time.Parse(timeLayout, time.Now().UTC().Format(timeLayout))
		e.CreatedAt = &now
	}
	if e.Visibility == "" {
		e.Visibility = model.VisibilityPublic
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   owner_id = excluded.owner_id, name = excluded.name,
		   description = excluded.description, category = excluded.category,
		   subcategory = excluded.subcategory, region = excluded.region, type = excluded.type,
		   start_date = excluded.start_date, start_time = excluded.start_time,
		   end_date = excluded.end_date, end_time = excluded.end_time,
		   payment = excluded.payment, document = excluded.document,
		   visibility = excluded.visibility, published = excluded.published,
		   deactivated = excluded.deactivated`,
		e.ID, e.OwnerID, e.Name, e.Description, e.Category, e.Subcategory, e.Region, string(e.Type),
		e.StartDate, e.StartTime, e.EndDate, e.EndTime, string(e.Payment), string(e.Document),
		string(e.Visibility), boolToInt(e.Published), boolToInt(e.Deactivated),
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event by its ID.
func (s *SQLite) GetEvent(ctx context.Context, id string) (*model.EventRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns the events selected by q, newest first.
// Owner-id sets larger than MaxOwnerIDsPerQuery are rejected with ErrTooManyOwners.
func (s *SQLite) ListEvents(ctx context.Context, q EventQuery) ([]model.EventRecord, error) {
	if len(q.OwnerIDs) > MaxOwnerIDsPerQuery {
		return nil, fmt.Errorf("list events for %d owners: %w", len(q.OwnerIDs), ErrTooManyOwners)
	}

	var (
		where []string
		args  []any
	)
	if !q.IncludeHidden {
		where = append(where, "published = 1", "deactivated = 0")
	}
	if len(q.OwnerIDs) > 0 {
		where = append(where, "owner_id IN ("+placeholders(len(q.OwnerIDs))+")")
		for _, id := range q.OwnerIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.EventRecord
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event by its ID.
func (s *SQLite) DeleteEvent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Follow records that followerID follows organiserID. Repeated calls are no-ops.
func (s *SQLite) Follow(ctx context.Context, followerID, organiserID string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, organiser_id, created_at) VALUES (?, ?, ?)`,
		followerID, organiserID, now,
	)
	if err != nil {
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// Unfollow removes a follow relation.
func (s *SQLite) Unfollow(ctx context.Context, followerID, organiserID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND organiser_id = ?`,
		followerID, organiserID,
	)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

// ListFollowedOrganiserIDs returns the organisers followerID follows, oldest follow first.
func (s *SQLite) ListFollowedOrganiserIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT organiser_id FROM follows WHERE follower_id = ? ORDER BY created_at, organiser_id`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query follows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateSource inserts a new source and populates its ID and CreatedAt.
func (s *SQLite) CreateSource(ctx context.Context, src *model.Source) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (owner_id, name, url, interval_minutes, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		src.OwnerID, src.Name, src.URL, src.IntervalMinutes, boolToInt(src.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSource returns a single source by its ID.
func (s *SQLite) GetSource(ctx context.Context, id int64) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns all sources of the given organiser.
func (s *SQLite) ListSources(ctx context.Context, ownerID string) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE owner_id = ? ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// ListDueSources returns all active sources that are due for polling.
func (s *SQLite) ListDueSources(ctx context.Context) ([]model.Source, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+`
		 FROM sources
		 WHERE is_active = 1
		   AND (last_check_at IS NULL
		        OR datetime(last_check_at, '+' || interval_minutes || ' minutes') <= datetime(?))
		 ORDER BY id`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// UpdateSource persists changes to an existing source.
func (s *SQLite) UpdateSource(ctx context.Context, src *model.Source) error {
	var lastCheck *string
	if src.LastCheckAt != nil {
		v := src.LastCheckAt.UTC().Format(timeLayout)
		lastCheck = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, url = ?, interval_minutes = ?, is_active = ?, last_check_at = ?
		 WHERE id = ?`,
		src.Name, src.URL, src.IntervalMinutes, boolToInt(src.IsActive), lastCheck, src.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update source %d: %w", src.ID, ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source. Events it imported stay in the store.
func (s *SQLite) DeleteSource(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable) (model.EventRecord, error) {
	var (
		e                      model.EventRecord
		typ, pay, doc, vis     string
		published, deactivated int
		created                sql.NullString
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.Category, &e.Subcategory,
		&e.Region, &typ, &e.StartDate, &e.StartTime, &e.EndDate, &e.EndTime,
		&pay, &doc, &vis, &published, &deactivated, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}
	e.Type = model.EventType(typ)
	e.Payment = model.Payment(pay)
	e.Document = model.DocumentType(doc)
	e.Visibility = model.Visibility(vis)
	e.Published = published == 1
	e.Deactivated = deactivated == 1
	if created.Valid {
		if t, err := time.Parse(timeLayout, created.String); err == nil {
			e.CreatedAt = &t
		}
	}
	return e, nil
}

func scanSource(row scannable) (*model.Source, error) {
	var src model.Source
	var isActive int
	var lastCheck, created sql.NullString
	err := row.Scan(&src.ID, &src.OwnerID, &src.Name, &src.URL, &src.IntervalMinutes, &isActive, &lastCheck, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.IsActive = isActive == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		src.LastCheckAt = &t
	}
	if created.Valid {
		src.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &src, nil
}

func scanSources(rows *sql.Rows) ([]model.Source, error) {
	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}
