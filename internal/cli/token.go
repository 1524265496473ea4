package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/jwt"
	"github.com/localizekit/authgate/store/memory"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect session tokens",
		Long: `Operator tools for session tokens signed with the configured keys.
Nothing is read from or written to the account store.`,
	}
	cmd.AddCommand(newTokenMintCommand(), newTokenVerifyCommand())
	return cmd
}

type mintOptions struct {
	subject string
	email   string
	plan    string
	teamID  string
}

func newTokenMintCommand() *cobra.Command {
	opts := &mintOptions{}
	cmd := &cobra.Command{
		Use:     "mint",
		Short:   "Issue an access/refresh pair for a subject",
		Example: "  authgate token mint --sub 0b7c1f2e-1111-4c4c-8d8d-000000000001 --plan pro",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.subject) == "" {
				return errors.New("--sub is required")
			}
			engine, err := tokenEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			claims := authgate.Identity{Subject: opts.subject}
			if opts.email != "" {
				claims.Email = jwt.String(opts.email)
			}
			if opts.plan != "" {
				claims.Plan = jwt.String(opts.plan)
			}
			if opts.teamID != "" {
				claims.TeamID = jwt.String(opts.teamID)
			}
			pair, err := engine.IssueTokens(cmd.Context(), claims)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pair)
		},
	}
	cmd.Flags().StringVar(&opts.subject, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&opts.email, "email", "", "email claim")
	cmd.Flags().StringVar(&opts.plan, "plan", "", "plan claim")
	cmd.Flags().StringVar(&opts.teamID, "team", "", "team id claim")
	return cmd
}

func newTokenVerifyCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := tokenEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			var claims jwt.Claims
			if refresh {
				claims, err = engine.Issuer().VerifyRefresh(args[0])
			} else {
				claims, err = engine.VerifyAccess(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newClaimsView(claims))
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "verify as a refresh token")
	return cmd
}

// tokenEngine builds an engine with no provider and a throwaway store;
// only the codecs are used.
func tokenEngine() (*authgate.Engine, error) {
	cfg, err := authgate.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Audit.Enabled = false
	return authgate.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

type claimsView struct {
	Subject   string    `json:"sub"`
	Email     *string   `json:"email,omitempty"`
	Plan      *string   `json:"plan,omitempty"`
	TeamID    *string   `json:"teamId,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func newClaimsView(c jwt.Claims) claimsView {
	return claimsView{
		Subject:   c.Subject,
		Email:     c.Email,
		Plan:      c.Plan,
		TeamID:    c.TeamID,
		IssuedAt:  c.IssuedAt.UTC(),
		ExpiresAt: c.ExpiresAt.UTC(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
