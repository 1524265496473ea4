// Package sqlite is an account.Store backed by a single SQLite file through
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/store/sqlite/migrations"
)

type Store struct {
	db *sql.DB
}

var _ account.Store = (*Store)(nil)

// Open opens path and applies the bundled migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending schema migrations. Open calls it; it is exposed
// for the migrate command.
func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.db, migrations.FS); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetProfile(ctx context.Context, id string) (account.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, full_name, avatar_url, plan, team_id, created_at, updated_at
FROM profiles WHERE id = ?`, id)

	var (
		p                        account.Profile
		fullName, avatar, teamID sql.NullString
		createdAt, updatedAt     int64
	)
	err := row.Scan(&p.ID, &p.Email, &fullName, &avatar, &p.Plan, &teamID, &createdAt, &updatedAt)
	if err != nil {
		return account.Profile{}, mapErr(err)
	}
	p.FullName = fromNull(fullName)
	p.AvatarURL = fromNull(avatar)
	p.TeamID = fromNull(teamID)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p account.Profile) (account.Profile, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (id, email, full_name, avatar_url, plan, team_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, toNull(p.FullName), toNull(p.AvatarURL), p.Plan, toNull(p.TeamID),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return account.Profile{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) SetProfileTeam(ctx context.Context, id, teamID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET team_id = ?, updated_at = ? WHERE id = ?`,
		teamID, toMillis(time.Now()), id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, t account.Team) (account.Team, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO teams (id, name, owner_id, avatar_url, is_personal, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.OwnerID, toNull(t.AvatarURL), t.Personal, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if err != nil {
		return account.Team{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (account.Team, error) {
	return s.getTeam(ctx, `WHERE id = ?`, id)
}

func (s *Store) GetPersonalTeam(ctx context.Context, id string) (account.Team, error) {
	return s.getTeam(ctx, `WHERE id = ? AND is_personal = 1`, id)
}

func (s *Store) getTeam(ctx context.Context, where string, args ...any) (account.Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, avatar_url, is_personal, created_at, updated_at FROM teams `+where, args...)
	var (
		t                    account.Team
		avatar               sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &avatar, &t.Personal, &createdAt, &updatedAt); err != nil {
		return account.Team{}, mapErr(err)
	}
	t.AvatarURL = fromNull(avatar)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

func (s *Store) CreateMembership(ctx context.Context, m account.Membership) (account.Membership, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO team_members (id, team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.TeamID, m.UserID, m.Role, toMillis(m.JoinedAt),
	)
	if err != nil {
		return account.Membership{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, teamID, userID string) (account.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, user_id, role, joined_at FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID)
	m, err := scanMembership(row)
	if err != nil {
		return account.Membership{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListMemberships(ctx context.Context, userID string) ([]account.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, team_id, user_id, role, joined_at FROM team_members
WHERE user_id = ? ORDER BY joined_at, team_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(row scanner) (account.Membership, error) {
	var (
		m        account.Membership
		joinedAt int64
	)
	if err := row.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &joinedAt); err != nil {
		return account.Membership{}, err
	}
	m.JoinedAt = fromMillis(joinedAt)
	return m, nil
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return account.ErrNotFound
	}
	if isConstraintError(err) {
		return fmt.Errorf("%w: %v", account.ErrDuplicate, err)
	}
	return err
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// Zero times round-trip as 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
