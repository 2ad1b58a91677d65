package store

import (
	"context"
	"fmt"
)

// HistoryRecord is one completed navigation.
type HistoryRecord struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	VisitedAt int64  `json:"visited_at"`
}

// AppendHistory records a completed load.
func (s *Store) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO nav_history (id, url, title, visited_at) VALUES (?,?,?,?)`,
		rec.ID, rec.URL, rec.Title, rec.VisitedAt)
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}

// History returns navigation history, most recent first.
func (s *Store) History(ctx context.Context, limit int) ([]*HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, title, visited_at FROM nav_history
		ORDER BY visited_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var recs []*HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.VisitedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}
