package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/middleware"
)

const maxBodyBytes = 1 << 20

// envelopeTime matches the millisecond ISO-8601 stamps clients already parse.
const envelopeTime = "2006-01-02T15:04:05.000Z07:00"

// envelope wraps every success body. POST routes answer 201, GET routes 200.
type envelope struct {
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Data:      data,
		Timestamp: s.now().UTC().Format(envelopeTime),
		RequestID: authgate.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err,
		middleware.WithLogger(s.logger),
		middleware.WithClock(s.now),
	)
}

func badRequest(message string) error {
	return apperr.NewHTTPError(http.StatusBadRequest, message)
}

// decode reads one JSON object into dst. Unknown fields are ignored.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("Request body is required")
		default:
			return badRequest("Invalid JSON body")
		}
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, "Hello World!")
}

type loginRequest struct {
	AccessToken string  `json:"accessToken"`
	TeamID      *string `json:"teamId"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		s.fail(w, r, badRequest("accessToken is required"))
		return
	}
	res, err := s.engine.LoginWithProvider(r.Context(), req.AccessToken, req.TeamID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, res.Tokens)
}

type refreshRequest struct {
	RefreshToken *string `json:"refreshToken"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.RefreshToken == nil {
		s.fail(w, r, badRequest("refreshToken is required"))
		return
	}
	pair, err := s.engine.RefreshTokens(r.Context(), *req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, pair)
}

type switchTeamRequest struct {
	TeamID string `json:"teamId"`
}

func (s *Server) switchTeam(w http.ResponseWriter, r *http.Request) {
	identity, err := authgate.RequireIdentity(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req switchTeamRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.TeamID) == "" {
		s.fail(w, r, badRequest("teamId is required"))
		return
	}
	pair, err := s.engine.SwitchTeam(r.Context(), identity, req.TeamID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, pair)
}

type registerRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
	Plan      string `json:"plan"`
}

func (req registerRequest) validate() error {
	if strings.TrimSpace(req.ID) == "" {
		return badRequest("id is required")
	}
	if err := uuid.Validate(strings.TrimSpace(req.ID)); err != nil {
		return badRequest("id must be a valid UUID")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest("email is required")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != strings.TrimSpace(req.Email) {
		return badRequest("email must be a valid email address")
	}
	if req.AvatarURL != "" {
		u, err := url.ParseRequestURI(req.AvatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return badRequest("avatarUrl must be a valid URL")
		}
	}
	switch req.Plan {
	case "", account.PlanFree, account.PlanPro, account.PlanBusiness:
	default:
		return badRequest("plan must be one of free, pro, business")
	}
	return nil
}

type registerResponse struct {
	User         userView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.Register(r.Context(), authgate.RegisterInput{
		ID:        strings.ToLower(strings.TrimSpace(req.ID)),
		Email:     strings.TrimSpace(req.Email),
		FullName:  strings.TrimSpace(req.FullName),
		AvatarURL: req.AvatarURL,
		Plan:      req.Plan,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, registerResponse{
		User:         newUserView(res.Profile),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	identity, err := authgate.RequireIdentity(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.Me(r.Context(), identity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, http.StatusOK, newMeView(res))
}

type userView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  *string    `json:"fullName"`
	AvatarURL *string    `json:"avatarUrl"`
	Plan      string     `json:"plan"`
	TeamID    *string    `json:"teamId"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type teamView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	OwnerID    string  `json:"ownerId,omitempty"`
	AvatarURL  *string `json:"avatarUrl"`
	IsPersonal bool    `json:"isPersonal"`
	Role       string  `json:"role"`
}

type meView struct {
	User         userView   `json:"user"`
	Teams        []teamView `json:"teams"`
	ActiveTeamID string     `json:"activeTeamId,omitempty"`
}

func newUserView(p account.Profile) userView {
	return userView{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Plan:      p.Plan,
		TeamID:    p.TeamID,
		CreatedAt: timePtr(p.CreatedAt),
		UpdatedAt: timePtr(p.UpdatedAt),
	}
}

func newMeView(res authgate.MeResult) meView {
	out := meView{
		User:         newUserView(res.Profile),
		Teams:        make([]teamView, 0, len(res.Teams)),
		ActiveTeamID: res.ActiveTeamID,
	}
	for _, t := range res.Teams {
		out.Teams = append(out.Teams, teamView{
			ID:         t.Team.ID,
			Name:       t.Team.Name,
			OwnerID:    t.Team.OwnerID,
			AvatarURL:  t.Team.AvatarURL,
			IsPersonal: t.Team.Personal,
			Role:       t.Role,
		})
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
