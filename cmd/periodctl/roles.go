package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/internal/app"
)

func newRolesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage user role assignments",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [role]",
			Short: "List role assignments",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var role string
				if len(args) == 1 {
					role = args[0]
				}
				return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
					assignments, err := rt.Roles.ListAssignments(ctx, role)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), assignments)
				})
			},
		},
		&cobra.Command{
			Use:   "grant <user> <role>",
			Short: "Grant a role to a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
					if err := rt.Roles.Grant(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <user> <role>",
			Short: "Revoke a role from a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
					if err := rt.Roles.Revoke(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", args[1], args[0])
					return nil
				})
			},
		},
	)
	return cmd
}
