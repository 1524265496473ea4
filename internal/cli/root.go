// Package cli holds the authgate command tree. Every command reads its
// configuration from the environment through authgate.LoadConfigFromEnv.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the authgate command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "authgate",
		Short: "Session token service for provider-authenticated users",
		Long: `authgate exchanges identity provider access tokens for its own
access/refresh token pairs, scopes them to a team and guards the API
routes that consume them.

Configuration is read from the environment (JWT_SECRET, SUPABASE_URL,
SUPABASE_SECRET_KEY, AUTHGATE_STORE, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

// Execute runs the command tree with args from os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
