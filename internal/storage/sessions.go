package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Session is one captured browser login. Cookies holds the raw JSON cookie
// array as captured at login time; the blog package decodes it.
type Session struct {
	ID        int64
	BlogName  string
	Cookies   json.RawMessage
	CreatedAt time.Time
}

// SaveSession records a fresh login capture. Older sessions are removed;
// only the newest login is ever valid.
func (s *Store) SaveSession(ctx context.Context, blogName string, cookies json.RawMessage) (int64, error) {
	if !json.Valid(cookies) {
		return 0, fmt.Errorf("saving session: cookies are not valid JSON")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("saving session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return 0, fmt.Errorf("clearing old sessions: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (blog_name, cookies) VALUES (?, ?)`,
		blogName, string(cookies),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return id, nil
}

// CurrentSession returns the newest captured session. Returns ErrNotFound
// when no login has been captured yet.
func (s *Store) CurrentSession(ctx context.Context) (*Session, error) {
	var (
		sess      Session
		cookies   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, blog_name, cookies, created_at
		 FROM sessions
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
	).Scan(&sess.ID, &sess.BlogName, &cookies, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting current session: %w", err)
	}

	sess.Cookies = json.RawMessage(cookies)
	sess.CreatedAt = parseTime(createdAt)
	return &sess, nil
}

// UpdateSessionBlogName backfills the blog name after autodetection.
func (s *Store) UpdateSessionBlogName(ctx context.Context, id int64, blogName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET blog_name = ? WHERE id = ?`, blogName, id,
	)
	if err != nil {
		return fmt.Errorf("updating session blog name: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session blog name: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessions removes every captured session, logging the user out.
func (s *Store) DeleteSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}
