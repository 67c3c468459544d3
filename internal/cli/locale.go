package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/locale"
)

func (a *App) localeCommand() *cobra.Command {
	show := func(*cobra.Command, []string) error {
		current := a.prefs.Locale()
		return a.render(map[string]any{"locale": current, "supported": locale.Supported}, "LOCALE\tSUPPORTED", func(emit func(...string)) {
			emit(current, strings.Join(locale.Supported, ", "))
		})
	}
	root := &cobra.Command{
		Use:   "locale",
		Short: "Preferred language for server messages",
		Args:  exactArgs(0),
		RunE:  show,
	}
	root.AddCommand(
		&cobra.Command{Use: "show", Short: "Show the current language", Args: exactArgs(0), RunE: show},
		&cobra.Command{
			Use:   "set CODE",
			Short: "Change the language (" + strings.Join(locale.Supported, ", ") + ")",
			Args:  exactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				if err := a.prefs.Set(args[0]); err != nil {
					return err
				}
				a.say("Language set to %s.", a.prefs.Locale())
				return nil
			},
		},
	)
	return root
}
