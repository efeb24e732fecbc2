package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const sqliteSchemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLite is a single-file store for local and offline use. Replacements run
// in one transaction.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLite{db: db, path: path, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", sqliteSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != sqliteSchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, sqliteSchemaVersion)
	}
	return nil
}

// PutEpisode inserts or updates an episode row. Episodes are owned by the
// content side; this exists for seeding local databases.
func (s *SQLite) PutEpisode(ctx context.Context, ep models.Episode) error {
	ctx = ensureContext(ctx)
	now := s.now().UTC()
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	if ep.UpdatedAt.IsZero() {
		ep.UpdatedAt = now
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO episodes (id, story_id, title, duration, use_image_timeline, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    story_id = excluded.story_id,
    title = excluded.title,
    duration = excluded.duration,
    updated_at = excluded.updated_at`,
			ep.ID, nullableInt64(ep.StoryID), ep.Title, ep.Duration, boolToInt(ep.UseImageTimeline),
			formatTime(ep.CreatedAt), formatTime(ep.UpdatedAt))
		return err
	})
}

const episodeColumns = "id, story_id, title, duration, use_image_timeline, created_at, updated_at"

func (s *SQLite) GetEpisode(ctx context.Context, episodeID int64) (models.Episode, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+episodeColumns+" FROM episodes WHERE id = ?", episodeID)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Episode{}, ErrEpisodeNotFound
	}
	if err != nil {
		return models.Episode{}, fmt.Errorf("fetch episode %d: %w", episodeID, err)
	}
	return ep, nil
}

func (s *SQLite) ListEpisodes(ctx context.Context) ([]models.Episode, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+episodeColumns+" FROM episodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	episodes := []models.Episode{}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func (s *SQLite) GetTimeline(ctx context.Context, episodeID int64) ([]models.TimelineImage, error) {
	ctx = ensureContext(ctx)
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, episode_id, start_time, end_time, image_url, image_order, is_key_frame, created_at, updated_at
FROM image_timelines WHERE episode_id = ? ORDER BY image_order`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline for episode %d: %w", episodeID, err)
	}
	defer rows.Close()

	out := []models.TimelineImage{}
	for rows.Next() {
		var (
			img                  models.TimelineImage
			id, created, updated string
			keyFrame             int
		)
		if err := rows.Scan(&id, &img.EpisodeID, &img.StartTime, &img.EndTime, &img.ImageURL,
			&img.ImageOrder, &keyFrame, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan timeline row: %w", err)
		}
		if img.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse timeline row id %q: %w", id, err)
		}
		img.IsKeyFrame = keyFrame != 0
		img.CreatedAt = parseTime(created)
		img.UpdatedAt = parseTime(updated)
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *SQLite) ReplaceTimeline(ctx context.Context, episodeID int64, rows []models.TimelineImage) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.replaceTimeline(ctx, episodeID, rows)
	})
}

func (s *SQLite) replaceTimeline(ctx context.Context, episodeID int64, rows []models.TimelineImage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(s.now().UTC())
	res, err := tx.ExecContext(ctx,
		"UPDATE episodes SET use_image_timeline = ?, updated_at = ? WHERE id = ?",
		boolToInt(len(rows) > 0), now, episodeID)
	if err != nil {
		return fmt.Errorf("touch episode %d: %w", episodeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEpisodeNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM image_timelines WHERE episode_id = ?", episodeID); err != nil {
		return fmt.Errorf("delete timeline for episode %d: %w", episodeID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO image_timelines (id, episode_id, start_time, end_time, image_url, image_order, is_key_frame, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare timeline insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		created, updated := now, now
		if !r.CreatedAt.IsZero() {
			created = formatTime(r.CreatedAt)
		}
		if !r.UpdatedAt.IsZero() {
			updated = formatTime(r.UpdatedAt)
		}
		if _, err := stmt.ExecContext(ctx, id.String(), episodeID, r.StartTime, r.EndTime, r.ImageURL,
			r.ImageOrder, boolToInt(r.IsKeyFrame), created, updated); err != nil {
			return fmt.Errorf("insert timeline row %d: %w", r.ImageOrder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timeline for episode %d: %w", episodeID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (models.Episode, error) {
	var (
		ep               models.Episode
		storyID          sql.NullInt64
		useTimeline      int
		created, updated string
	)
	if err := row.Scan(&ep.ID, &storyID, &ep.Title, &ep.Duration, &useTimeline, &created, &updated); err != nil {
		return models.Episode{}, err
	}
	if storyID.Valid {
		v := storyID.Int64
		ep.StoryID = &v
	}
	ep.UseImageTimeline = useTimeline != 0
	ep.CreatedAt = parseTime(created)
	ep.UpdatedAt = parseTime(updated)
	return ep, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
