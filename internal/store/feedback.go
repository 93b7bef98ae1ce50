package store

import (
	"context"
	"time"

	"github.com/pavelanni/docquiz/internal/model"
)

// InsertFeedback stores a feedback record and returns it with ID and
// CreatedAt set.
func (s *Store) InsertFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (document_id, query, answer, helpful, correction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.DocumentID, f.Query, f.Answer, f.Helpful, f.Correction, f.CreatedAt,
	)
	if err != nil {
		return model.Feedback{}, err
	}
	f.ID, err = res.LastInsertId()
	return f, err
}

// ListFeedback returns the feedback of a document, oldest first.
func (s *Store) ListFeedback(ctx context.Context, documentID string) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, query, answer, helpful, correction, created_at
		 FROM feedback WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Query, &f.Answer, &f.Helpful, &f.Correction, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
