package postgres

import (
	"time"

	"github.com/localizekit/authgate/account"
)

type profileModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;not null"`
	FullName  *string   `gorm:"column:full_name"`
	AvatarURL *string   `gorm:"column:avatar_url"`
	Plan      string    `gorm:"column:plan;not null;default:free"`
	TeamID    *string   `gorm:"column:team_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string { return "profiles" }

func profileFromAccount(p account.Profile) profileModel {
	return profileModel{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Plan:      p.Plan,
		TeamID:    p.TeamID,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (m profileModel) toProfile() account.Profile {
	return account.Profile{
		ID:        m.ID,
		Email:     m.Email,
		FullName:  m.FullName,
		AvatarURL: m.AvatarURL,
		Plan:      m.Plan,
		TeamID:    m.TeamID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type teamModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	OwnerID   string    `gorm:"column:owner_id"`
	AvatarURL *string   `gorm:"column:avatar_url"`
	Personal  bool      `gorm:"column:is_personal;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (teamModel) TableName() string { return "teams" }

func teamFromAccount(t account.Team) teamModel {
	return teamModel{
		ID:        t.ID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		AvatarURL: t.AvatarURL,
		Personal:  t.Personal,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (m teamModel) toTeam() account.Team {
	return account.Team{
		ID:        m.ID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		AvatarURL: m.AvatarURL,
		Personal:  m.Personal,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type memberModel struct {
	ID       string    `gorm:"column:id;primaryKey"`
	TeamID   string    `gorm:"column:team_id;not null;uniqueIndex:team_members_team_user"`
	UserID   string    `gorm:"column:user_id;not null;uniqueIndex:team_members_team_user;index"`
	Role     string    `gorm:"column:role;not null;default:member"`
	JoinedAt time.Time `gorm:"column:joined_at"`
}

func (memberModel) TableName() string { return "team_members" }

func memberFromAccount(m account.Membership) memberModel {
	return memberModel{
		ID:       m.ID,
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt.UTC(),
	}
}

func (m memberModel) toMembership() account.Membership {
	return account.Membership{
		ID:       m.ID,
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt.UTC(),
	}
}
