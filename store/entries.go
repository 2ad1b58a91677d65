package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSaveFailed wraps persistence failures reported to callers.
var ErrSaveFailed = errors.New("store: save failed")

// Entry is a persisted research entry.
type Entry struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	HTML       string    `json:"html,omitempty"`
	Analysis   string    `json:"analysis,omitempty"`
	Headings   []Heading `json:"headings,omitempty"`
	CapturedAt int64     `json:"captured_at"`
	SavedAt    int64     `json:"saved_at"`
}

// Heading is one document heading captured with an entry.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// SaveEntry inserts or replaces a research entry. The id is the caller's;
// saving the same entry twice overwrites the stored copy.
func (s *Store) SaveEntry(ctx context.Context, e *Entry) error {
	headings, err := json.Marshal(e.Headings)
	if err != nil {
		return fmt.Errorf("%w: marshal headings: %v", ErrSaveFailed, err)
	}
	if e.SavedAt == 0 {
		e.SavedAt = time.Now().UnixMilli()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO research_entries
			(id, url, title, text, html, analysis, headings, captured_at, saved_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.URL, e.Title, e.Text, e.HTML, e.Analysis, string(headings),
		e.CapturedAt, e.SavedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// GetEntry retrieves one entry by id. Returns (nil, nil) when absent.
func (s *Store) GetEntry(ctx context.Context, id string) (*Entry, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, url, title, text, html, analysis, headings, captured_at, saved_at
		FROM research_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ListEntries returns saved entries, most recently saved first.
func (s *Store) ListEntries(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, title, text, html, analysis, headings, captured_at, saved_at
		FROM research_entries ORDER BY saved_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes one entry by id.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM research_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	var e Entry
	var headings string
	err := r.Scan(&e.ID, &e.URL, &e.Title, &e.Text, &e.HTML, &e.Analysis,
		&headings, &e.CapturedAt, &e.SavedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headings), &e.Headings); err != nil {
		return nil, fmt.Errorf("store: unmarshal headings: %w", err)
	}
	return &e, nil
}
