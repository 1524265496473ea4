// Package memory is an in-process account.Store for tests, the load test
// and single-node development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/localizekit/authgate/account"
)

type membershipKey struct {
	teamID string
	userID string
}

// Store keeps records in maps guarded by one RWMutex. Returned values are
// copies; callers cannot mutate stored state.
type Store struct {
	mu          sync.RWMutex
	profiles    map[string]account.Profile
	teams       map[string]account.Team
	memberships map[membershipKey]account.Membership
}

var _ account.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		profiles:    make(map[string]account.Profile),
		teams:       make(map[string]account.Team),
		memberships: make(map[membershipKey]account.Membership),
	}
}

func (s *Store) GetProfile(_ context.Context, id string) (account.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return account.Profile{}, account.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) CreateProfile(_ context.Context, p account.Profile) (account.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.ID]; exists {
		return account.Profile{}, account.ErrDuplicate
	}
	s.profiles[p.ID] = cloneProfile(p)
	return cloneProfile(p), nil
}

func (s *Store) SetProfileTeam(_ context.Context, id, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return account.ErrNotFound
	}
	p.TeamID = &teamID
	s.profiles[id] = p
	return nil
}

func (s *Store) CreateTeam(_ context.Context, t account.Team) (account.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.teams[t.ID]; exists {
		return account.Team{}, account.ErrDuplicate
	}
	s.teams[t.ID] = t
	return t, nil
}

func (s *Store) GetTeam(_ context.Context, id string) (account.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return account.Team{}, account.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetPersonalTeam(_ context.Context, id string) (account.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok || !t.Personal {
		return account.Team{}, account.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateMembership(_ context.Context, m account.Membership) (account.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := membershipKey{teamID: m.TeamID, userID: m.UserID}
	if _, exists := s.memberships[key]; exists {
		return account.Membership{}, account.ErrDuplicate
	}
	s.memberships[key] = m
	return m, nil
}

func (s *Store) GetMembership(_ context.Context, teamID, userID string) (account.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipKey{teamID: teamID, userID: userID}]
	if !ok {
		return account.Membership{}, account.ErrNotFound
	}
	return m, nil
}

// ListMemberships returns userID's memberships ordered by join time.
func (s *Store) ListMemberships(_ context.Context, userID string) ([]account.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []account.Membership
	for key, m := range s.memberships {
		if key.userID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// Close is a no-op so Store satisfies the same lifecycle as the SQL stores.
func (s *Store) Close() error { return nil }

func cloneProfile(p account.Profile) account.Profile {
	out := p
	out.FullName = cloneString(p.FullName)
	out.AvatarURL = cloneString(p.AvatarURL)
	out.TeamID = cloneString(p.TeamID)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
