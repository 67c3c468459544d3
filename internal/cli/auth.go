package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/app"
	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// secret returns the flag value, or reads one line from stdin when the flag
// was left empty so passwords stay out of shell history.
func (a *App) secret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt+": ")
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", domain.NewValidationError(strings.ToLower(prompt), "is required")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) registerCommand() *cobra.Command {
	var in app.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is sent by email",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Password, err = a.secret(cmd, in.Password, "Password"); err != nil {
				return err
			}
			if in.ConfirmPassword == "" {
				if in.ConfirmPassword, err = a.secret(cmd, "", "Confirm password"); err != nil {
					return err
				}
			}
			resp, err := a.auth.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.render(resp, "", nil)
			}
			a.say("Verification code sent to %s.", resp.Email)
			a.say("Run `splitup verify --code <code>` to finish signing up.")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "public username (3-50 characters)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm", "", "password confirmation (prompted when empty)")
	return cmd
}

func (a *App) verifyCommand() *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm the emailed code and sign in",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.auth.Verify(cmd.Context(), email, code)
			if err != nil {
				return err
			}
			return a.showUser(user, "Signed in as %s.")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email the code was sent to (defaults to the pending registration)")
	cmd.Flags().StringVar(&code, "code", "", "six-digit verification code")
	return cmd
}

func (a *App) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.secret(cmd, password, "Password")
			if err != nil {
				return err
			}
			user, err := a.auth.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			return a.showUser(user, "Signed in as %s.")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			a.say("Signed out.")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pending := a.session.PendingEmail(); pending != "" && !a.session.IsAuthenticated() {
				a.say("Waiting for the verification code sent to %s.", pending)
				return nil
			}
			user, err := a.currentUser()
			if err != nil {
				return err
			}
			if refresh {
				if user, err = a.client.Users.GetByID(cmd.Context(), user.ID); err != nil {
					return err
				}
			}
			return a.showUser(user, "")
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the profile from the server instead of the stored session")
	return cmd
}

func (a *App) showUser(user *domain.User, banner string) error {
	if banner != "" {
		a.say(banner, user.Username)
	}
	return a.render(user, "ID\tUSERNAME\tEMAIL\tROLE\tBALANCE", func(emit func(...string)) {
		balance := "-"
		if user.Wallet != nil {
			balance = money(user.Wallet.Balance) + " " + user.Wallet.Currency
		}
		emit(fmtID(user.ID), user.Username, user.Email, string(user.Role), balance)
	})
}
