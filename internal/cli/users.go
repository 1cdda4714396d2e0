package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newUsersCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer user accounts (admin only)",
	}
	cmd.AddCommand(newUsersListCmd(app, out), newUsersUpdateCmd(app, out))
	return cmd
}

func newUsersListCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if err := a.requireAdmin(); err != nil {
				return err
			}
			users, err := a.users.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{string(u.ID), u.Username, string(u.Role), strconv.FormatBool(u.Disabled)})
			}
			return out().Print(users, view{
				headers: []string{"ID", "Username", "Role", "Disabled"},
				rows:    rows,
				empty:   "No users found.",
			})
		},
	}
}

func newUsersUpdateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var (
		role     string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change a user's role or disable the account",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAdmin(); err != nil {
				return err
			}

			var in domain.UserUpdate
			if cmd.Flags().Changed("role") {
				r := domain.Role(role)
				in.Role = &r
			}
			if cmd.Flags().Changed("disabled") {
				in.Disabled = &disabled
			}
			if in == (domain.UserUpdate{}) {
				return usagef("nothing to update: pass --role or --disabled")
			}
			if err := validate.Struct(in); err != nil {
				return err
			}

			u, err := a.users.Update(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("update user %s: %w", args[0], err)
			}
			return out().Print(u, keyValues(
				[2]string{"ID", string(u.ID)},
				[2]string{"Username", u.Username},
				[2]string{"Role", string(u.Role)},
				[2]string{"Disabled", strconv.FormatBool(u.Disabled)},
			))
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "new role, e.g. admin or customer")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "disable (or with =false re-enable) the account")
	return cmd
}
