package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/prperemyshlev/user-service/internal/service"
)

func newUserCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and change account state",
	}

	transitions := []struct {
		use, short string
		apply      func(*service.AccountDirectory) func(context.Context, string) error
	}{
		{"activate", "Enable an account", func(d *service.AccountDirectory) func(context.Context, string) error { return d.Activate }},
		{"deactivate", "Disable an account and revoke its access tokens", func(d *service.AccountDirectory) func(context.Context, string) error { return d.Deactivate }},
		{"lock", "Lock an account and revoke its access tokens", func(d *service.AccountDirectory) func(context.Context, string) error { return d.Lock }},
		{"unlock", "Unlock an account", func(d *service.AccountDirectory) func(context.Context, string) error { return d.Unlock }},
	}

	for _, t := range transitions {
		cmd.AddCommand(&cobra.Command{
			Use:   t.use + " <user-id>",
			Short: t.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := open(cmd)
				if err != nil {
					return err
				}
				defer rt.Close()

				if err := t.apply(rt.Services.Accounts)(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("%s: %s\n", t.use, args[0])
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "profile <user-id>",
		Short: "Print an account profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			profile, err := rt.Services.Accounts.GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		},
	})

	return cmd
}
