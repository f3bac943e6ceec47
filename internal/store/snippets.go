package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robalobadob/spotthebot/internal/round"
	"github.com/robalobadob/spotthebot/internal/snippet"
)

// Snippets is the SQLite-backed snippet store. It implements round.SnippetStore.
type Snippets struct {
	db   *sql.DB
	salt string
}

// NewSnippets wraps db; salt seeds the deterministic pick.
func NewSnippets(db *sql.DB, salt string) *Snippets {
	return &Snippets{db: db, salt: salt}
}

// Import upserts every snippet of the corpus and returns how many were written.
func (s *Snippets) Import(ctx context.Context, c *snippet.Corpus) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO snippets (id, text, is_bot, source) VALUES (?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET text=excluded.text, is_bot=excluded.is_bot, source=excluded.source`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, sn := range c.Snippets {
		if _, err := stmt.ExecContext(ctx, sn.ID, sn.Text, sn.IsBot, sn.Source); err != nil {
			return 0, fmt.Errorf("import %s: %w", sn.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(c.Snippets), nil
}

// All returns every snippet ordered by ID.
func (s *Snippets) All(ctx context.Context) ([]snippet.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, is_bot, source FROM snippets ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []snippet.Snippet
	for rows.Next() {
		var sn snippet.Snippet
		if err := rows.Scan(&sn.ID, &sn.Text, &sn.IsBot, &sn.Source); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Count returns the number of stored snippets.
func (s *Snippets) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM snippets`).Scan(&n)
	return n, err
}

// NextSnippet picks a snippet the user has not seen yet.
func (s *Snippets) NextSnippet(ctx context.Context, u *round.User) (snippet.Snippet, error) {
	all, err := s.All(ctx)
	if err != nil {
		return snippet.Snippet{}, err
	}
	sn, ok := snippet.Pick(all, u.RecentSnippetIDs, s.salt, u.ID)
	if !ok {
		return snippet.Snippet{}, round.ErrSnippetExhausted
	}
	return sn, nil
}
