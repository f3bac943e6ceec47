package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/spotthebot/internal/round"
)

// RoundRow is one entry of a user's round history.
type RoundRow struct {
	ID         string `json:"id"`
	SnippetID  string `json:"snippetId"`
	Status     string `json:"status"`
	Bucket     string `json:"bucket,omitempty"`
	Delta      int    `json:"delta"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Journal persists round history. It implements round.Journal.
type Journal struct{ db *sql.DB }

// NewJournal wraps db.
func NewJournal(db *sql.DB) *Journal { return &Journal{db: db} }

// RoundStarted inserts a live row.
func (j *Journal) RoundStarted(ctx context.Context, roundID, userID, snippetID string, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
        INSERT INTO rounds (id, user_id, snippet_id, started_at, status)
        VALUES (?,?,?,?,?)`,
		roundID, userID, snippetID, at.UTC().Format(time.RFC3339), string(round.StateLive))
	return err
}

// RoundFinished stamps the outcome on a live row.
func (j *Journal) RoundFinished(ctx context.Context, roundID string, status round.State, bucket round.Bucket, delta int, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
        UPDATE rounds SET status=?, bucket=?, delta=?, finished_at=? WHERE id=?`,
		string(status), string(bucket), delta, at.UTC().Format(time.RFC3339), roundID)
	return err
}

// Mine lists a user's most recent rounds, newest first.
func (j *Journal) Mine(ctx context.Context, userID string, limit int) ([]RoundRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
        SELECT id, snippet_id, status, bucket, delta, started_at, COALESCE(finished_at,'')
        FROM rounds WHERE user_id=? ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoundRow{}
	for rows.Next() {
		var r RoundRow
		if err := rows.Scan(&r.ID, &r.SnippetID, &r.Status, &r.Bucket, &r.Delta, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusAbandoned marks a round that was replaced or lost before submit.
const StatusAbandoned = "abandoned"

// Abandon marks a still-live round as abandoned. Rows already closed are left alone.
func (j *Journal) Abandon(ctx context.Context, roundID string, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
        UPDATE rounds SET status=?, finished_at=? WHERE id=? AND status=?`,
		StatusAbandoned, at.UTC().Format(time.RFC3339), roundID, string(round.StateLive))
	return err
}

// AbandonAllLive marks every live round as abandoned, used at startup since
// the in-memory registry does not survive a restart.
func (j *Journal) AbandonAllLive(ctx context.Context, at time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
        UPDATE rounds SET status=?, finished_at=? WHERE status=?`,
		StatusAbandoned, at.UTC().Format(time.RFC3339), string(round.StateLive))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
