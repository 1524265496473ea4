package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localizekit/authgate"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		Long: `Apply schema migrations for AUTHGATE_STORE=sqlite or postgres.
The memory store has no schema and is reported as such.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := authgate.LoadConfigFromEnv()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Store.Driver == authgate.StoreMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory store: nothing to migrate")
				return nil
			}

			store, err := openStore(ctx, cfg, logger, false)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
			}
			defer store.Close()

			if m, ok := store.(migrator); ok {
				if err := m.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", cfg.Store.Driver)
			return nil
		},
	}
}
