package cli

import (
	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

const userHeader = "ID\tUSERNAME\tEMAIL\tROLE\tVERIFIED\tCREATED"

func userRow(u domain.User) []string {
	return []string{fmtID(u.ID), u.Username, u.Email, string(u.Role), yesNo(u.IsVerified), when(u.CreatedAt)}
}

func (a *App) usersCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "users",
		Short: "User administration",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			users, err := a.client.Users.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(users, userHeader, func(emit func(...string)) {
				for _, u := range users {
					emit(userRow(u)...)
				}
			})
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one user",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			u, err := a.client.Users.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(u, userHeader, func(emit func(...string)) { emit(userRow(*u)...) })
		},
	}

	var data string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a user's profile or role from a JSON payload (admin)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			var in domain.UserInput
			if err := decodePayload(cmd, data, &in); err != nil {
				return err
			}
			u, err := a.client.Users.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return a.render(u, userHeader, func(emit func(...string)) { emit(userRow(*u)...) })
		},
	}
	update.Flags().StringVar(&data, "data", "", "JSON payload, @file or - for stdin")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user (admin)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			if err := a.client.Users.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.say("Deleted user %d.", id)
			return nil
		},
	}

	subs := &cobra.Command{
		Use:   "subscriptions [ID]",
		Short: "List a user's shared subscriptions (defaults to you)",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.currentUser()
			if err != nil {
				return err
			}
			id := me.ID
			if len(args) == 1 {
				if id, err = parseID("id", args[0]); err != nil {
					return err
				}
			}
			list, err := a.client.Users.Subscriptions(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(list, "ID\tSERVICE\tPLAN\tPER MEMBER\tNEXT PAYMENT\tSTATUS", func(emit func(...string)) {
				for _, s := range list {
					emit(fmtID(s.ID), s.ServiceName, s.PlanName, money(s.PricePerMember), when(s.NextPaymentDate), s.Status)
				}
			})
		},
	}

	root.AddCommand(get, update, del, subs)
	return root
}
