// Package storetest is the shared behaviour suite for account.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localizekit/authgate/account"
)

// Run exercises an empty store returned by open. Each subtest gets a fresh
// store.
func Run(t *testing.T, open func(t *testing.T) account.Store) {
	t.Helper()
	t.Run("profiles", func(t *testing.T) { testProfiles(t, open(t)) })
	t.Run("teams", func(t *testing.T) { testTeams(t, open(t)) })
	t.Run("memberships", func(t *testing.T) { testMemberships(t, open(t)) })
}

func testProfiles(t *testing.T, s account.Store) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	name := "Ada"
	in := account.Profile{ID: "u1", Email: "ada@example.com", FullName: &name, Plan: account.PlanPro, CreatedAt: created, UpdatedAt: created}
	if _, err := s.CreateProfile(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateProfile(ctx, account.Profile{ID: "u1", Email: "other@example.com", Plan: account.PlanFree}); !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "ada@example.com" || got.FullName == nil || *got.FullName != "Ada" || got.AvatarURL != nil || got.TeamID != nil {
		t.Fatalf("unexpected profile %+v", got)
	}
	if got.Plan != account.PlanPro || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected plan or timestamp %+v", got)
	}

	if err := s.SetProfileTeam(ctx, "u1", "t1"); err != nil {
		t.Fatalf("set team: %v", err)
	}
	got, _ = s.GetProfile(ctx, "u1")
	if got.TeamID == nil || *got.TeamID != "t1" {
		t.Fatalf("team not set: %+v", got)
	}
	if err := s.SetProfileTeam(ctx, "missing", "t1"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testTeams(t *testing.T, s account.Store) {
	ctx := context.Background()
	if _, err := s.CreateTeam(ctx, account.Team{ID: "personal", Name: "Mine", OwnerID: "u1", Personal: true}); err != nil {
		t.Fatalf("create personal: %v", err)
	}
	if _, err := s.CreateTeam(ctx, account.Team{ID: "shared", Name: "Shared", OwnerID: "u2"}); err != nil {
		t.Fatalf("create shared: %v", err)
	}
	if _, err := s.CreateTeam(ctx, account.Team{ID: "shared", Name: "Again"}); !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	team, err := s.GetPersonalTeam(ctx, "personal")
	if err != nil || !team.Personal || team.Name != "Mine" || team.OwnerID != "u1" {
		t.Fatalf("unexpected personal team %+v %v", team, err)
	}
	if _, err := s.GetPersonalTeam(ctx, "shared"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("shared team must not resolve as personal, got %v", err)
	}
	if team, err := s.GetTeam(ctx, "shared"); err != nil || team.Personal {
		t.Fatalf("unexpected shared team %+v %v", team, err)
	}
	if _, err := s.GetTeam(ctx, "missing"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testMemberships(t *testing.T, s account.Store) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, m := range []account.Membership{
		{ID: "m2", TeamID: "t2", UserID: "u1", Role: "member", JoinedAt: base.Add(time.Hour)},
		{ID: "m1", TeamID: "t1", UserID: "u1", Role: account.RoleOwner, JoinedAt: base},
		{ID: "m3", TeamID: "t1", UserID: "u2", Role: "member", JoinedAt: base},
	} {
		if _, err := s.CreateMembership(ctx, m); err != nil {
			t.Fatalf("create %s: %v", m.ID, err)
		}
	}
	if _, err := s.CreateMembership(ctx, account.Membership{ID: "m4", TeamID: "t1", UserID: "u1", Role: "member"}); !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	m, err := s.GetMembership(ctx, "t1", "u1")
	if err != nil || m.Role != account.RoleOwner || m.ID != "m1" {
		t.Fatalf("unexpected membership %+v %v", m, err)
	}
	if _, err := s.GetMembership(ctx, "t2", "u2"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := s.ListMemberships(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].TeamID != "t1" || list[1].TeamID != "t2" {
		t.Fatalf("expected join-time order, got %+v", list)
	}
	if !list[1].JoinedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("joined_at not preserved: %v", list[1].JoinedAt)
	}
	if list, _ := s.ListMemberships(ctx, "nobody"); len(list) != 0 {
		t.Fatalf("expected no memberships, got %+v", list)
	}
}
