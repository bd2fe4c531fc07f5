package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/spf13/cobra"
)

func newColumnsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "columns",
		Aliases: []string{"cols"},
		Short:   "Manage board columns",
	}
	cmd.AddCommand(
		newColumnsListCmd(c),
		newColumnsAddCmd(c),
		newColumnsEditCmd(c),
		newColumnsRemoveCmd(c),
		newColumnsReorderCmd(c),
	)
	return cmd
}

// withColumnEditor opens the stack, loads the editor, and runs fn.
func withColumnEditor(cmd *cobra.Command, c *cli, name string, fn func(context.Context, *runtimeEnv, *app.ColumnEditor) error) error {
	ctx := cmd.Context()
	env, err := c.open(ctx, name, false)
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireLogin(); err != nil {
		return err
	}
	editor, err := env.svc.NewColumnEditor(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, env, editor)
}

// commitColumnOp sends op, prints any duplicate-label warning, then the resulting list.
func commitColumnOp(ctx context.Context, w io.Writer, env *runtimeEnv, editor *app.ColumnEditor, op app.ColumnOp) error {
	if op.Warning != "" {
		_, _ = fmt.Fprintln(w, "warning:", op.Warning)
	}
	if err := env.svc.ApplyColumnOp(ctx, editor, op); err != nil {
		return err
	}
	writeColumns(w, editor.Columns())
	return nil
}

// resolveColumn finds a column by id or key.
func resolveColumn(cols []domain.Column, ref string) (domain.Column, int, error) {
	ref = strings.TrimSpace(ref)
	if idx := domain.ColumnIndex(cols, ref); idx >= 0 {
		return cols[idx], idx, nil
	}
	for i, col := range cols {
		if col.Key == ref {
			return col, i, nil
		}
	}
	return domain.Column{}, -1, fmt.Errorf("%w: column %q", app.ErrNotFound, ref)
}

func writeColumns(w io.Writer, cols []domain.Column) {
	rows := make([][]string, 0, len(cols))
	for i, col := range cols {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(col.Color.TerminalColor())).Render("■")
		def := ""
		if col.IsDefault {
			def = "default"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			col.ID,
			col.Key,
			swatch + " " + col.Label,
			col.GmailLabel,
			def,
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "ID", "KEY", "LABEL", "GMAIL LABEL", "").
		Rows(rows...)
	_, _ = fmt.Fprintln(w, t.String())
}

func newColumnsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured columns",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withColumnEditor(cmd, c, "columns list", func(_ context.Context, _ *runtimeEnv, editor *app.ColumnEditor) error {
				writeColumns(cmd.OutOrStdout(), editor.Columns())
				return nil
			})
		},
	}
}

// columnFlags holds the editable column fields shared by add and edit.
type columnFlags struct {
	label string
	gmail string
	color string
}

func (f *columnFlags) register(cmd *cobra.Command) {
	names := make([]string, 0, len(domain.ColumnColors()))
	for _, c := range domain.ColumnColors() {
		names = append(names, string(c))
	}
	cmd.Flags().StringVar(&f.label, "label", "", "column label")
	cmd.Flags().StringVar(&f.gmail, "gmail-label", "", "Gmail label applied when a card lands here")
	cmd.Flags().StringVar(&f.color, "color", "", "accent color: "+strings.Join(names, ", "))
}

func (f columnFlags) input() domain.ColumnInput {
	return domain.ColumnInput{
		Label:      f.label,
		GmailLabel: f.gmail,
		Color:      domain.ParseColumnColor(f.color),
	}
}

func newColumnsAddCmd(c *cli) *cobra.Command {
	var f columnFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withColumnEditor(cmd, c, "columns add", func(ctx context.Context, env *runtimeEnv, editor *app.ColumnEditor) error {
				op, err := editor.BeginCreate(f.input())
				if err != nil {
					return err
				}
				return commitColumnOp(ctx, cmd.OutOrStdout(), env, editor, op)
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newColumnsEditCmd(c *cli) *cobra.Command {
	var f columnFlags
	cmd := &cobra.Command{
		Use:   "edit <column>",
		Short: "Change a column's label, Gmail label, or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withColumnEditor(cmd, c, "columns edit", func(ctx context.Context, env *runtimeEnv, editor *app.ColumnEditor) error {
				col, _, err := resolveColumn(editor.Columns(), args[0])
				if err != nil {
					return err
				}
				in := domain.ColumnInput{Label: col.Label, GmailLabel: col.GmailLabel, Color: col.Color}
				if cmd.Flags().Changed("label") {
					in.Label = f.label
				}
				if cmd.Flags().Changed("gmail-label") {
					in.GmailLabel = f.gmail
				}
				if cmd.Flags().Changed("color") {
					in.Color = domain.ParseColumnColor(f.color)
				}
				op, err := editor.BeginUpdate(col.ID, in)
				if err != nil {
					return err
				}
				return commitColumnOp(ctx, cmd.OutOrStdout(), env, editor, op)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newColumnsRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <column>",
		Aliases: []string{"delete"},
		Short:   "Delete a non-default column",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withColumnEditor(cmd, c, "columns rm", func(ctx context.Context, env *runtimeEnv, editor *app.ColumnEditor) error {
				col, _, err := resolveColumn(editor.Columns(), args[0])
				if err != nil {
					return err
				}
				op, err := editor.BeginDelete(col.ID)
				if err != nil {
					return err
				}
				return commitColumnOp(ctx, cmd.OutOrStdout(), env, editor, op)
			})
		},
	}
}

func newColumnsReorderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <column> <position>",
		Short: "Move a column to a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return withColumnEditor(cmd, c, "columns reorder", func(ctx context.Context, env *runtimeEnv, editor *app.ColumnEditor) error {
				cols := editor.Columns()
				_, from, err := resolveColumn(cols, args[0])
				if err != nil {
					return err
				}
				op, err := editor.BeginReorder(from, min(pos, len(cols))-1)
				if err != nil {
					return err
				}
				return commitColumnOp(ctx, cmd.OutOrStdout(), env, editor, op)
			})
		},
	}
}

func newLabelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List Gmail labels a column can map to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.open(cmd.Context(), "labels", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			labels, err := env.svc.ListGmailLabels(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range labels {
				_, _ = fmt.Fprintf(out, "%-24s %s\n", l.ID, l.Name)
			}
			return nil
		},
	}
}
