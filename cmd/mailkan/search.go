package main

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/evanschultz/mailkan/internal/highlight"
	"github.com/spf13/cobra"
)

// matchStyle marks highlighted query matches in terminal output.
var matchStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		semantic bool
		keyword  bool
		limit    int
		pages    int
		embed    int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search mail by meaning or by keyword",
		Long: `Search mail. Semantic search ranks by similarity; keyword search is fuzzy
and paginated. The default comes from search.mode in the config.

--generate-embeddings N asks the backend to embed up to N messages first.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if embed > 0 && len(args) == 0 {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := c.open(ctx, "search", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if embed > 0 {
				rep, err := env.svc.GenerateEmbeddings(ctx, embed)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "embedded %d messages (%d failed)\n", rep.Processed, rep.Failed)
				if len(args) == 0 {
					return nil
				}
			}

			query := strings.Join(args, " ")
			useSemantic := env.svc.Config().SearchMode != app.SearchModeKeyword
			switch {
			case semantic:
				useSemantic = true
			case keyword:
				useSemantic = false
			}
			if useSemantic {
				page, err := env.svc.SemanticSearch(ctx, query, limit)
				if err != nil {
					return err
				}
				writeSemanticResults(out, query, page)
				return nil
			}

			page, err := env.svc.KeywordSearch(ctx, query, "")
			if err != nil {
				return err
			}
			for i := 1; i < pages && page.HasMore(); i++ {
				if page, err = env.svc.LoadMore(ctx, query, page); err != nil {
					return err
				}
			}
			writeKeywordResults(out, query, page)
			return nil
		},
	}
	cmd.Flags().BoolVar(&semantic, "semantic", false, "force semantic search")
	cmd.Flags().BoolVar(&keyword, "keyword", false, "force keyword search")
	cmd.Flags().IntVar(&limit, "limit", 0, "semantic result limit (default search.limit)")
	cmd.Flags().IntVar(&pages, "pages", 1, "keyword result pages to fetch")
	cmd.Flags().IntVar(&embed, "generate-embeddings", 0, "embed up to N messages before searching")
	cmd.MarkFlagsMutuallyExclusive("semantic", "keyword")
	return cmd
}

func markMatch(s string) string {
	return matchStyle.Render(s)
}

func writeSemanticResults(w io.Writer, query string, page domain.SemanticPage) {
	if len(page.Results) == 0 {
		_, _ = fmt.Fprintf(w, "no results for %q\n", query)
		return
	}
	for _, r := range page.Results {
		_, _ = fmt.Fprintf(w, "%3d%%  %-10s %s  %s\n",
			r.ScorePercent(), r.Email.ID,
			highlight.Apply(oneLine(r.Email.From.String(), 24), query, markMatch),
			highlight.Apply(oneLine(r.Email.Subject, 60), query, markMatch))
	}
	_, _ = fmt.Fprintf(w, "%d of %d results\n", len(page.Results), max(page.Total, len(page.Results)))
}

func writeKeywordResults(w io.Writer, query string, page domain.KeywordPage) {
	if len(page.Emails) == 0 {
		_, _ = fmt.Fprintf(w, "no results for %q\n", query)
		return
	}
	for _, e := range page.Emails {
		_, _ = fmt.Fprintf(w, "%-10s %s  %s\n", e.ID,
			highlight.Apply(oneLine(e.From.String(), 24), query, markMatch),
			highlight.Apply(oneLine(e.Subject, 60), query, markMatch))
	}
	more := ""
	if page.HasMore() {
		more = " (more available, raise --pages)"
	}
	_, _ = fmt.Fprintf(w, "%d results%s\n", len(page.Emails), more)
}

func newSuggestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <query>",
		Short: "Print autocomplete suggestions for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd.Context(), "suggest", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			query := strings.Join(args, " ")
			items, err := env.svc.Suggest(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range items {
				_, _ = fmt.Fprintf(out, "%s %s\n", s.Type.Glyph(), highlight.Apply(s.Text, query, markMatch))
			}
			return nil
		},
	}
}
