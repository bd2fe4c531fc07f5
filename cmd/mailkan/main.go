package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	serveradapter "github.com/evanschultz/mailkan/internal/adapters/server"
	"github.com/evanschultz/mailkan/internal/platform"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the tui command drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a scripted one.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the health + MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one command line through fang.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(newCLI(stdin, stdout, stderr, os.LookupEnv))
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	apiURL     string
	devMode    bool
}

// cli carries process IO and the resolved root flags.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
	opts   rootOptions
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer, lookup func(string) (string, bool)) *cli {
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &cli{stdin: stdin, stdout: stdout, stderr: stderr, lookup: lookup}
}

// env returns a trimmed environment value.
func (c *cli) env(name string) string {
	v, _ := c.lookup(name)
	return strings.TrimSpace(v)
}

// envBool parses a boolean environment value.
func (c *cli) envBool(name string) (bool, bool) {
	raw := c.env(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func newRootCmd(c *cli) *cobra.Command {
	defaultDev := version == "dev"
	if v, ok := c.envBool("MAILKAN_DEV_MODE"); ok {
		defaultDev = v
	}
	appName := platform.DefaultAppName
	if v := c.env("MAILKAN_APP_NAME"); v != "" {
		appName = v
	}

	root := &cobra.Command{
		Use:   "mailkan",
		Short: "Triage Gmail as a kanban board from the terminal",
		Long: `mailkan is a terminal client for the AI Email Box backend.

Run it without a subcommand to open the board. Every board action is also
available as a subcommand for scripting.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), c)
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", "", "path to config TOML (env MAILKAN_CONFIG)")
	flags.StringVar(&c.opts.dbPath, "db", "", "path to the sqlite cache database (env MAILKAN_DB_PATH)")
	flags.StringVar(&c.opts.appName, "app", appName, "application name for config/data path resolution")
	flags.StringVar(&c.opts.apiURL, "api-url", "", "backend base URL (env MAILKAN_API_URL)")
	flags.BoolVar(&c.opts.devMode, "dev", defaultDev, "use dev mode paths (<app>-dev) and the dev log file")

	root.AddCommand(
		newTUICmd(c),
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newBoardCmd(c),
		newMoveCmd(c),
		newSnoozeCmd(c),
		newSummarizeCmd(c),
		newColumnsCmd(c),
		newLabelsCmd(c),
		newSearchCmd(c),
		newSuggestCmd(c),
		newStatsCmd(c),
		newCacheCmd(c),
		newServeCmd(c),
		newMockServerCmd(c),
		newPathsCmd(c),
		newVersionCmd(c),
	)
	return root
}

func newPathsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := c.paths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", c.opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", c.opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", c.configPath(paths))
			_, _ = fmt.Fprintf(out, "env: %s\n", paths.EnvPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			dbPath, _ := c.dbPath(paths)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			return nil
		},
	}
}

func newVersionCmd(_ *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mailkan version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mailkan %s\n", version)
			return err
		},
	}
}

// paths resolves platform paths from the root flags.
func (c *cli) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: c.opts.appName,
		DevMode: c.opts.devMode,
	})
}

// configPath applies the flag, then MAILKAN_CONFIG, then the platform default.
func (c *cli) configPath(paths platform.Paths) string {
	if p := strings.TrimSpace(c.opts.configPath); p != "" {
		return p
	}
	if p := c.env("MAILKAN_CONFIG"); p != "" {
		return p
	}
	return paths.ConfigPath
}

// dbPath applies the flag, then MAILKAN_DB_PATH, then the platform default.
// The bool reports whether the path overrides the config file.
func (c *cli) dbPath(paths platform.Paths) (string, bool) {
	if p := strings.TrimSpace(c.opts.dbPath); p != "" {
		return p, true
	}
	if p := c.env("MAILKAN_DB_PATH"); p != "" {
		return p, true
	}
	return paths.DBPath, false
}
