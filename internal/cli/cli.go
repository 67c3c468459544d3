/**
 * @description
 * This package is the command-line front-end of SplitUp. Each command is a
 * thin view over the API access layer: it parses flags, calls one client
 * operation and renders the result as a table or as JSON.
 *
 * @dependencies
 * - github.com/spf13/cobra: command tree and flag parsing.
 * - The module's config, session, locale and apiclient packages.
 */
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/app"
	"github.com/nsa09-nsa09/splitup-frontend/internal/config"
	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
	"github.com/nsa09-nsa09/splitup-frontend/internal/locale"
	"github.com/nsa09-nsa09/splitup-frontend/internal/session"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/apiclient"
)

// App holds the collaborators every command uses. They are built once per
// invocation, right before the command runs.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	session *session.Session
	prefs   *locale.Preferences
	client  *apiclient.Client
	auth    *app.AuthService

	out     io.Writer
	errOut  io.Writer
	stdin   *bufio.Reader
	closers []func() error

	configDir string
	apiURL    string
	verbose   bool
	asJSON    bool
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &App{out: stdout, errOut: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(stderr, "error: "+describe(err))
		return exitCode(err)
	}
	return 0
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "splitup",
		Short:         "Share subscription plans with friends",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", ".", "directory holding an optional .env file")
	flags.StringVar(&a.apiURL, "api-url", "", "API base URL (overrides API_BASE_URL)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every API request to stderr")
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		a.registerCommand(),
		a.verifyCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
	)
	root.AddCommand(a.catalogCommands()...)
	root.AddCommand(
		a.walletCommand(),
		a.usersCommand(),
		a.speedTestCommand(),
		a.localeCommand(),
	)
	return root
}

func (a *App) setup(ctx context.Context) error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	if url := strings.TrimRight(strings.TrimSpace(a.apiURL), "/"); url != "" {
		cfg.APIBaseURL = url
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	store, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	a.session = session.New(store, a.logger)
	if err := a.session.Load(ctx); err != nil {
		return err
	}

	a.prefs = locale.NewPreferences(cfg.LocaleFile)
	if err := a.prefs.Load(); err != nil {
		a.logger.Warn("ignoring unreadable locale preference", "component", "cli", "path", cfg.LocaleFile, "error", err)
	}

	paths := apiclient.DefaultPaths()
	if err := paths.Apply(cfg.PathOverrides); err != nil {
		return fmt.Errorf("invalid %s* override: %w", config.PathEnvPrefix, err)
	}
	a.client = apiclient.New(cfg.APIBaseURL,
		apiclient.WithCredentials(a.session),
		apiclient.WithLocale(a.prefs),
		apiclient.WithTimeout(cfg.HTTPTimeout()),
		apiclient.WithLogger(a.logger),
		apiclient.WithPaths(paths),
	)
	a.auth = app.NewAuthService(a.client.Auth, a.session, a.logger)
	return nil
}

// sessionStore picks Redis when SESSION_REDIS_URL is set and the session
// file otherwise.
func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.SessionRedisURL == "" {
		return session.NewFileStore(a.cfg.SessionFile), nil
	}
	client, err := session.DialRedis(ctx, a.cfg.SessionRedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return session.NewRedisStore(client, a.cfg.SessionRedisPrefix, a.cfg.SessionProfile, a.cfg.SessionRedisTTL()), nil
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil && a.logger != nil {
			a.logger.Warn("failed to release resource", "component", "cli", "error", err)
		}
	}
	a.closers = nil
}

// errStaffOnly gates admin commands locally; the server still authorizes.
var errStaffOnly = errors.New("this command needs an admin or manager account")

func (a *App) currentUser() (*domain.User, error) {
	if !a.session.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	return a.session.User(), nil
}

func (a *App) requireStaff() error {
	if _, err := a.currentUser(); err != nil {
		return err
	}
	if !a.session.CanAccessAdmin() {
		return errStaffOnly
	}
	return nil
}
