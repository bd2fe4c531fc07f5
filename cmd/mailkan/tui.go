package main

import (
	"context"
	"fmt"
	"time"

	"github.com/evanschultz/mailkan/internal/config"
	"github.com/evanschultz/mailkan/internal/tui"
	"github.com/spf13/cobra"
)

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), c)
		},
	}
}

// runTUI seeds the config file, wires the stack with console logs muted, and runs the program loop.
func runTUI(ctx context.Context, c *cli) error {
	env, err := c.open(ctx, "tui", true)
	if err != nil {
		return err
	}
	defer env.Close()

	wrote, err := config.WriteDefault(env.configPath, env.cfg)
	if err != nil {
		env.logger.Warn("default config not written", "config_path", env.configPath, "err", err)
	} else if wrote {
		env.logger.Info("default config written", "config_path", env.configPath)
	}

	opts := []tui.Option{
		tui.WithKeyConfig(toTUIKeyConfig(env.cfg.Keys)),
		tui.WithSearchDebounce(time.Duration(env.cfg.Search.DebounceMS) * time.Millisecond),
	}
	if env.svc.LoggedIn() {
		user, err := env.svc.CurrentUser(ctx)
		if err != nil {
			env.logger.Warn("current user lookup failed", "err", err)
		} else {
			opts = append(opts, tui.WithUser(user.DisplayName()))
		}
	}

	env.logger.Info("starting tui program loop")
	if _, err := programFactory(tui.NewModel(env.svc, opts...)).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// toTUIKeyConfig maps persisted key overrides into the TUI keymap config.
func toTUIKeyConfig(keys config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		Search:    keys.Search,
		Snooze:    keys.Snooze,
		Summarize: keys.Summarize,
		Settings:  keys.Settings,
		Stats:     keys.Stats,
		Inbox:     keys.Inbox,
		CopyLink:  keys.CopyLink,
	}
}
