package main

import (
	"github.com/spf13/cobra"
)

func newTokensCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain stored refresh and reset tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired refresh and password reset tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			refresh, reset, err := rt.Services.Tokens.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d refresh tokens and %d reset tokens\n", refresh, reset)
			return nil
		},
	})

	return cmd
}
