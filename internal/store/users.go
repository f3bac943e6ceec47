package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/robalobadob/spotthebot/internal/auth"
	"github.com/robalobadob/spotthebot/internal/round"
)

// ErrNameTaken is returned by CreateUser when the public name is in use.
var ErrNameTaken = errors.New("name taken")

// UserRow matches the users table shape.
type UserRow struct {
	ID           string
	PublicName   string
	NameHash     string
	PasswordHash string
	CreatedAt    time.Time
	Penalty      bool
}

// Stats are a user's accumulated results in both scoring modes.
type Stats struct {
	TruePositive  int `json:"truePositive"`
	TrueNegative  int `json:"trueNegative"`
	FalsePositive int `json:"falsePositive"`
	FalseNegative int `json:"falseNegative"`
	Penalties     int `json:"penalties"`
	Score         int `json:"score"`
	MaxScore      int `json:"maxScore"`
}

// Correct counts rounds where the verdict matched the truth.
func (s Stats) Correct() int { return s.TruePositive + s.TrueNegative }

// Wrong counts rounds where the verdict missed the truth.
func (s Stats) Wrong() int { return s.FalsePositive + s.FalseNegative }

// Users is the SQLite-backed user store. It implements round.UserStore and
// round.StatsRecorder.
type Users struct{ db *sql.DB }

// NewUsers wraps db.
func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

// CreateUser validates input, checks uniqueness, hashes the password and inserts a new user.
func (u *Users) CreateUser(ctx context.Context, name, pw string) (*UserRow, error) {
	name = auth.NormalizeName(name)
	if err := auth.ValidateSignup(name, pw); err != nil {
		return nil, err
	}
	hash := auth.NameHash(name)
	var exists int
	err := u.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE name_hash=?`, hash).Scan(&exists)
	switch {
	case err == nil:
		return nil, ErrNameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check name: %w", err)
	}
	pwHash, err := auth.HashPassword(pw)
	if err != nil {
		return nil, err
	}
	row := &UserRow{
		ID:           auth.GenID(),
		PublicName:   name,
		NameHash:     hash,
		PasswordHash: pwHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if _, err := u.db.ExecContext(ctx,
		`INSERT INTO users (id, public_name, name_hash, password_hash, created_at) VALUES (?,?,?,?,?)`,
		row.ID, row.PublicName, row.NameHash, row.PasswordHash, row.CreatedAt.Format(time.RFC3339)); err != nil {
		// a concurrent signup can win between the check and the insert
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return row, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// FindByName loads a user by public name (case-insensitive).
func (u *Users) FindByName(ctx context.Context, name string) (*UserRow, error) {
	return u.scan(u.db.QueryRowContext(ctx,
		`SELECT id, public_name, name_hash, password_hash, created_at, penalty FROM users WHERE name_hash=?`,
		auth.NameHash(name)))
}

// FindByID loads a user by ID.
func (u *Users) FindByID(ctx context.Context, id string) (*UserRow, error) {
	return u.scan(u.db.QueryRowContext(ctx,
		`SELECT id, public_name, name_hash, password_hash, created_at, penalty FROM users WHERE id=?`, id))
}

func (u *Users) scan(row *sql.Row) (*UserRow, error) {
	var r UserRow
	var created string
	if err := row.Scan(&r.ID, &r.PublicName, &r.NameHash, &r.PasswordHash, &created, &r.Penalty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, round.ErrUserNotFound
		}
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &r, nil
}

// GetUser resolves a session key (name hash) to the engine's user view,
// including the snippet history in append order.
func (u *Users) GetUser(ctx context.Context, sessionKey string) (*round.User, error) {
	var out round.User
	err := u.db.QueryRowContext(ctx,
		`SELECT id, public_name, penalty FROM users WHERE name_hash=?`, sessionKey,
	).Scan(&out.ID, &out.PublicName, &out.PenaltyPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, round.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	recent, err := u.RecentSnippets(ctx, out.ID)
	if err != nil {
		return nil, err
	}
	out.RecentSnippetIDs = recent
	return &out, nil
}

// RecentSnippets returns the user's snippet history, oldest first.
func (u *Users) RecentSnippets(ctx context.Context, userID string) ([]string, error) {
	rows, err := u.db.QueryContext(ctx,
		`SELECT snippet_id FROM recent_snippets WHERE user_id=? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetPenalty writes the user's penalty flag.
func (u *Users) SetPenalty(ctx context.Context, userID string, pending bool) error {
	res, err := u.db.ExecContext(ctx, `UPDATE users SET penalty=? WHERE id=?`, pending, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendRecentSnippet appends snippetID to the user's history.
func (u *Users) AppendRecentSnippet(ctx context.Context, userID, snippetID string) error {
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO recent_snippets (user_id, seq, snippet_id)
        SELECT ?, COALESCE(MAX(seq), 0) + 1, ? FROM recent_snippets WHERE user_id=?`,
		userID, snippetID, userID)
	return err
}

// RecordBucket increments one outcome counter.
func (u *Users) RecordBucket(ctx context.Context, userID string, b round.Bucket) error {
	col, err := bucketColumn(b)
	if err != nil {
		return err
	}
	res, err := u.db.ExecContext(ctx, `UPDATE users SET `+col+` = `+col+` + 1 WHERE id=?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ApplyDelta adds a signed delta to the running score and grows the ceiling by maxPoints.
func (u *Users) ApplyDelta(ctx context.Context, userID string, _ bool, delta, maxPoints int) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET score = score + ?, max_score = max_score + ? WHERE id=?`,
		delta, maxPoints, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Stats returns the user's counters.
func (u *Users) Stats(ctx context.Context, userID string) (Stats, error) {
	var s Stats
	err := u.db.QueryRowContext(ctx, `
        SELECT true_positive, true_negative, false_positive, false_negative, penalties, score, max_score
        FROM users WHERE id=?`, userID,
	).Scan(&s.TruePositive, &s.TrueNegative, &s.FalsePositive, &s.FalseNegative, &s.Penalties, &s.Score, &s.MaxScore)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, round.ErrUserNotFound
	}
	return s, err
}

// bucketColumn maps a bucket to its counter column. Only fixed names are
// ever interpolated into SQL.
func bucketColumn(b round.Bucket) (string, error) {
	switch b {
	case round.TruePositive:
		return "true_positive", nil
	case round.TrueNegative:
		return "true_negative", nil
	case round.FalsePositive:
		return "false_positive", nil
	case round.FalseNegative:
		return "false_negative", nil
	case round.Penalized:
		return "penalties", nil
	default:
		return "", fmt.Errorf("unknown bucket %q", b)
	}
}

// requireRow turns a zero-row update into ErrUserNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return round.ErrUserNotFound
	}
	return nil
}
