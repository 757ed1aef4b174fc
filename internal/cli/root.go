package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"localcron/internal/config"
	"localcron/internal/logging"
	"localcron/internal/store"
)

// App carries the dependencies shared by every command.
type App struct {
	// OpenStore opens the schedule backend; defaults to store.Open.
	OpenStore func(ctx context.Context, cfg config.Store, log zerolog.Logger) (store.Store, error)
	// Now is the clock used for scheduling and timing; defaults to time.Now.
	Now func() time.Time

	cfg config.Config
	log zerolog.Logger
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	st, err := a.OpenStore(ctx, a.cfg.Store, a.log)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", a.cfg.Store.Driver, err)
	}
	return st, nil
}

type globalFlags struct {
	configFile string
	driver     string
	path       string
	redisAddr  string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the localcron command tree.
func NewRootCmd(app *App) *cobra.Command {
	if app == nil {
		app = &App{}
	}
	if app.OpenStore == nil {
		app.OpenStore = store.Open
	}
	if app.Now == nil {
		app.Now = time.Now
	}
	app.log = zerolog.Nop()

	var gf globalFlags
	root := &cobra.Command{
		Use:           "localcron",
		Short:         "Maintenance commands for the persisted cron schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.configure(cmd, gf)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gf.configFile, "config", "", "path to a YAML config file (env LOCALCRON_CONFIG)")
	pf.StringVar(&gf.driver, "store", "", "schedule store driver: sqlite, file, redis")
	pf.StringVar(&gf.path, "path", "", "database or document path for the sqlite and file drivers")
	pf.StringVar(&gf.redisAddr, "redis-addr", "", "redis address for the redis driver")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.StringVar(&gf.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(newCronCmd(app))
	return root
}

func (a *App) configure(cmd *cobra.Command, gf globalFlags) error {
	path := gf.configFile
	if path == "" {
		path = os.Getenv("LOCALCRON_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Driver = gf.driver
	}
	if flags.Changed("path") {
		cfg.Store.Path = gf.path
	}
	if flags.Changed("redis-addr") {
		cfg.Store.Redis.Addr = gf.redisAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = gf.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = gf.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Log, cmd.ErrOrStderr())
	return nil
}

// Run executes the command line in args and returns the process exit code.
func Run(ctx context.Context, app *App, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
