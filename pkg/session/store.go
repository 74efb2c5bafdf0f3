package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a session id does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrPhotoAlreadySet is returned when a capture is recorded for a
	// session that already has a photo.
	ErrPhotoAlreadySet = errors.New("session already has a photo")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	group_name     TEXT,
	created_at     TEXT NOT NULL,
	weapon         INTEGER,
	land           INTEGER,
	companion      INTEGER,
	email          TEXT,
	photo_path     TEXT,
	copies_printed INTEGER NOT NULL DEFAULT 0,
	story_text     TEXT,
	headline       TEXT
);
`

// Store persists sessions in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the session database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new session row.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, group_name, created_at, weapon, land, companion, email, photo_path, copies_printed, story_text, headline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.GroupName, sess.CreatedAt,
		sess.Weapon, sess.Land, sess.Companion, sess.Email,
		sess.PhotoPath, sess.CopiesPrinted, sess.StoryText, sess.Headline)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get looks up a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_name, created_at, weapon, land, companion, email, photo_path, copies_printed, story_text, headline
		FROM sessions WHERE id = ?`, id)

	var sess Session
	err := row.Scan(&sess.ID, &sess.GroupName, &sess.CreatedAt,
		&sess.Weapon, &sess.Land, &sess.Companion, &sess.Email,
		&sess.PhotoPath, &sess.CopiesPrinted, &sess.StoryText, &sess.Headline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return &sess, nil
}

// Update writes the mutable fields of a session. The photo path and print
// counter are managed by RecordCapture and RecordPrint and are left alone.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET group_name = ?, weapon = ?, land = ?, companion = ?, email = ?, story_text = ?, headline = ?
		WHERE id = ?`,
		sess.GroupName, sess.Weapon, sess.Land, sess.Companion,
		sess.Email, sess.StoryText, sess.Headline, sess.ID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCapture stores the photo path for a session. The photo is set at
// most once; a second capture for the same session is rejected.
func (s *Store) RecordCapture(ctx context.Context, id, photoPath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET photo_path = ? WHERE id = ? AND photo_path IS NULL`,
		photoPath, id)
	if err != nil {
		return fmt.Errorf("recording capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording capture: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrPhotoAlreadySet
	}
	return nil
}

// RecordPrint bumps the print counter for a session and returns the new
// total.
func (s *Store) RecordPrint(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET copies_printed = copies_printed + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("recording print: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recording print: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT copies_printed FROM sessions WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("reading print count: %w", err)
	}
	return count, nil
}
