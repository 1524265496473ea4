// Package postgres is an account.Store on PostgreSQL through gorm and the
// pgx driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/localizekit/authgate/account"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ account.Store = (*Store)(nil)

// Open connects to dsn and pings it. Schema changes are applied by Migrate.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Migrate creates or updates the profiles, teams and team_members tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&profileModel{}, &teamModel{}, &memberModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetProfile(ctx context.Context, id string) (account.Profile, error) {
	var row profileModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return account.Profile{}, s.mapErr("get_profile", err, "user_id", id)
	}
	return row.toProfile(), nil
}

func (s *Store) CreateProfile(ctx context.Context, p account.Profile) (account.Profile, error) {
	row := profileFromAccount(p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return account.Profile{}, s.mapErr("create_profile", err, "user_id", p.ID)
	}
	return row.toProfile(), nil
}

func (s *Store) SetProfileTeam(ctx context.Context, id, teamID string) error {
	res := s.db.WithContext(ctx).Model(&profileModel{}).Where("id = ?", id).Updates(map[string]any{
		"team_id":    teamID,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return s.mapErr("set_profile_team", res.Error, "user_id", id)
	}
	if res.RowsAffected == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, t account.Team) (account.Team, error) {
	row := teamFromAccount(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return account.Team{}, s.mapErr("create_team", err, "team_id", t.ID)
	}
	return row.toTeam(), nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (account.Team, error) {
	var row teamModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return account.Team{}, s.mapErr("get_team", err, "team_id", id)
	}
	return row.toTeam(), nil
}

func (s *Store) GetPersonalTeam(ctx context.Context, id string) (account.Team, error) {
	var row teamModel
	if err := s.db.WithContext(ctx).Where("id = ? AND is_personal = ?", id, true).First(&row).Error; err != nil {
		return account.Team{}, s.mapErr("get_personal_team", err, "team_id", id)
	}
	return row.toTeam(), nil
}

func (s *Store) CreateMembership(ctx context.Context, m account.Membership) (account.Membership, error) {
	row := memberFromAccount(m)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return account.Membership{}, s.mapErr("create_membership", err, "team_id", m.TeamID, "user_id", m.UserID)
	}
	return row.toMembership(), nil
}

func (s *Store) GetMembership(ctx context.Context, teamID, userID string) (account.Membership, error) {
	var row memberModel
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&row).
		Error
	if err != nil {
		return account.Membership{}, s.mapErr("get_membership", err, "team_id", teamID, "user_id", userID)
	}
	return row.toMembership(), nil
}

func (s *Store) ListMemberships(ctx context.Context, userID string) ([]account.Membership, error) {
	var rows []memberModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("joined_at ASC, team_id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, s.mapErr("list_memberships", err, "user_id", userID)
	}
	out := make([]account.Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMembership())
	}
	return out, nil
}

// mapErr translates driver errors to account sentinels. Anything else is
// logged and returned unchanged.
func (s *Store) mapErr(op string, err error, attrs ...any) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return account.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", account.ErrDuplicate, err)
	}
	fields := append([]any{"op", op, "error", err.Error()}, attrs...)
	s.logger.Error("postgres store operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
