package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docvault/internal/model"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

func newGrantCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "grant <owner-id>",
		Short: "Set an owner's role",
		Long: `Set an owner's role directly in the database, registering the owner if needed.

Use this to bootstrap the first admin; afterwards admins can promote others over HTTP.

Examples:
  docvault grant 42
  docvault grant alice --role user`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			owners := service.NewOwnerService(postgres.NewOwnerPostgres(db), service.WithLogger(logger))
			o, err := owners.Grant(cmd.Context(), args[0], model.Role(role))
			if err != nil {
				return fmt.Errorf("grant role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "owner %s now has role %s\n", o.ID, o.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "Role to grant (user or admin)")
	return cmd
}
