package store

import (
	"context"
	"database/sql"
)

// MarkerRow is one tag's correctness counters.
type MarkerRow struct {
	Tag       string `json:"tag"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Markers keeps global tag-marker statistics. It implements round.MarkerStore.
type Markers struct{ db *sql.DB }

// NewMarkers wraps db.
func NewMarkers(db *sql.DB) *Markers { return &Markers{db: db} }

// UpdateMarkers bumps the counter of every tag in one transaction. Each
// increment is a single UPSERT, so concurrent rounds never lose updates.
func (m *Markers) UpdateMarkers(ctx context.Context, tags []string, correct bool) error {
	if len(tags) == 0 {
		return nil
	}
	c, ic := 0, 1
	if correct {
		c, ic = 1, 0
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO markers (tag, correct, incorrect) VALUES (?,?,?)
            ON CONFLICT(tag) DO UPDATE SET
                correct = correct + excluded.correct,
                incorrect = incorrect + excluded.incorrect`,
			tag, c, ic); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns one tag's counters; unknown tags report zeros.
func (m *Markers) Get(ctx context.Context, tag string) (MarkerRow, error) {
	r := MarkerRow{Tag: tag}
	err := m.db.QueryRowContext(ctx,
		`SELECT correct, incorrect FROM markers WHERE tag=?`, tag,
	).Scan(&r.Correct, &r.Incorrect)
	if err == sql.ErrNoRows {
		return r, nil
	}
	return r, err
}

// Top lists markers by how often they pointed the right way.
//
//   - Ordered by correct DESC, then incorrect ASC, then tag ASC.
//   - Default limit is 20 if not specified.
func (m *Markers) Top(ctx context.Context, limit int) ([]MarkerRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := m.db.QueryContext(ctx, `
        SELECT tag, correct, incorrect
        FROM markers
        ORDER BY correct DESC, incorrect ASC, tag ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MarkerRow, 0, limit)
	for rows.Next() {
		var r MarkerRow
		if err := rows.Scan(&r.Tag, &r.Correct, &r.Incorrect); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
