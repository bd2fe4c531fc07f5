package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// errCacheDisabled is returned by cache commands when cache.enabled is false.
var errCacheDisabled = errors.New("offline cache is disabled (cache.enabled = false)")

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the offline response cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.open(cmd.Context(), "cache", false)
			if err != nil {
				return err
			}
			defer env.Close()
			stats, err := env.repo.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				_, _ = fmt.Fprintln(out, "cache is empty")
				return nil
			}
			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				_, _ = fmt.Fprintf(out, "%-24s %d entries\n", name, stats[name])
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cache bucket",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				env, err := c.open(cmd.Context(), "cache clear", false)
				if err != nil {
					return err
				}
				defer env.Close()
				if env.cache == nil {
					return errCacheDisabled
				}
				if err := env.cache.ClearAll(cmd.Context()); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return err
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete buckets left over from older cache versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				env, err := c.open(cmd.Context(), "cache prune", false)
				if err != nil {
					return err
				}
				defer env.Close()
				if env.cache == nil {
					return errCacheDisabled
				}
				purged, err := env.cache.Activate(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d stale buckets\n", len(purged))
				return err
			},
		},
		&cobra.Command{
			Use:   "warm",
			Short: "Fetch the configured precache URLs into the static bucket",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				env, err := c.open(cmd.Context(), "cache warm", false)
				if err != nil {
					return err
				}
				defer env.Close()
				if env.cache == nil {
					return errCacheDisabled
				}
				urls := env.cfg.PrecacheURLs()
				stored, err := env.cache.Precache(cmd.Context(), urls)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cached %d of %d urls\n", stored, len(urls))
				return err
			},
		},
	)
	return cmd
}
