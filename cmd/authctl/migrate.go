package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/prperemyshlev/user-service/pkg/database"
)

func newMigrateCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.Postgres == nil {
				return errors.New("migrate requires a PostgreSQL connection")
			}

			if down {
				cmd.Println("Rolling back migrations...")
				if err := database.MigrateDown(rt.Postgres.DB); err != nil {
					return err
				}
			} else {
				cmd.Println("Running migrations...")
				if err := database.MigrateUp(rt.Postgres.DB); err != nil {
					return err
				}
			}

			version, dirty, err := database.MigrationVersion(rt.Postgres.DB)
			if err != nil {
				return err
			}
			cmd.Printf("Schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration instead of applying them")
	return cmd
}
