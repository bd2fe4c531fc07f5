package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/spf13/cobra"
)

// boardCardJSON is the --json shape of one card.
type boardCardJSON struct {
	ID             string     `json:"id"`
	Sender         string     `json:"sender"`
	Subject        string     `json:"subject"`
	Text           string     `json:"text"`
	GmailURL       string     `json:"gmail_url,omitempty"`
	ReceivedAt     time.Time  `json:"received_at"`
	IsRead         bool       `json:"is_read"`
	HasAttachments bool       `json:"has_attachments"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`
}

// boardColumnJSON is the --json shape of one column.
type boardColumnJSON struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Cards []boardCardJSON `json:"cards"`
}

func newBoardCmd(c *cli) *cobra.Command {
	var (
		unread      bool
		attachments bool
		sortBy      string
		order       string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the triage board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, ok := domain.ParseSortField(sortBy)
			if !ok {
				return fmt.Errorf("invalid --sort %q: want received_at or sender", sortBy)
			}
			dir, ok := domain.ParseSortOrder(order)
			if !ok {
				return fmt.Errorf("invalid --order %q: want asc or desc", order)
			}
			ctx := cmd.Context()
			env, err := c.open(ctx, "board", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}

			filter := env.svc.Config().Filter
			if cmd.Flags().Changed("unread") {
				filter.UnreadOnly = unread
			}
			if cmd.Flags().Changed("attachments") {
				filter.AttachmentsOnly = attachments
			}
			if field != "" {
				filter.SortBy = field
			}
			if dir != "" {
				filter.SortOrder = dir
			}
			board, err := env.svc.LoadBoardFiltered(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeBoardJSON(cmd.OutOrStdout(), board)
			}
			writeBoardText(cmd.OutOrStdout(), board, time.Now())
			if env.svc.Offline() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(offline: served from cache)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread cards")
	cmd.Flags().BoolVar(&attachments, "attachments", false, "only cards with attachments")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by received_at or sender")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeBoardJSON(w io.Writer, board domain.Board) error {
	out := make([]boardColumnJSON, 0, len(board.Columns))
	for _, key := range board.Keys() {
		col := boardColumnJSON{Key: key, Label: board.MetaFor(key).Label, Cards: []boardCardJSON{}}
		for _, card := range board.Cards[key] {
			col.Cards = append(col.Cards, boardCardJSON{
				ID:             card.ID,
				Sender:         card.Sender,
				Subject:        card.Subject,
				Text:           card.DisplayText(),
				GmailURL:       card.GmailURL,
				ReceivedAt:     card.ReceivedAt,
				IsRead:         card.IsRead,
				HasAttachments: card.HasAttachments,
				SnoozedUntil:   card.SnoozedUntil,
			})
		}
		out = append(out, col)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeBoardText(w io.Writer, board domain.Board, now time.Time) {
	for i, key := range board.Keys() {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		cards := board.Cards[key]
		_, _ = fmt.Fprintf(w, "%s (%d)\n", board.MetaFor(key).Label, len(cards))
		if len(cards) == 0 {
			_, _ = fmt.Fprintln(w, "  (empty)")
			continue
		}
		for _, card := range cards {
			mark := " "
			if !card.IsRead {
				mark = "●"
			}
			flags := ""
			if card.HasAttachments {
				flags += " 📎"
			}
			if card.IsSnoozed(now) {
				flags += " ⏾ " + humanize.RelTime(*card.SnoozedUntil, now, "ago", "from now")
			}
			_, _ = fmt.Fprintf(w, "  %s %-10s %-20s %s (%s)%s\n",
				mark, card.ID, oneLine(card.Sender, 20), oneLine(card.Subject, 60),
				humanize.RelTime(card.ReceivedAt, now, "ago", "from now"), flags)
		}
	}
}

// oneLine flattens whitespace and truncates to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n > 0 && len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func newMoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move <email-id> <column-key>",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd.Context(), "move", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			if err := env.svc.MoveCardTo(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", args[0], args[1])
			return err
		},
	}
}

func newSnoozeCmd(c *cli) *cobra.Command {
	presets := make([]string, 0, len(domain.SnoozePresets()))
	for _, p := range domain.SnoozePresets() {
		presets = append(presets, string(p))
	}
	return &cobra.Command{
		Use:       "snooze <email-id> <" + strings.Join(presets, "|") + "|RFC3339>",
		Short:     "Hide a card until a later time",
		Args:      cobra.ExactArgs(2),
		ValidArgs: presets,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd.Context(), "snooze", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			until, err := env.svc.SnoozeCard(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "snoozed %s until %s\n", args[0], until.Local().Format("Mon Jan 2 15:04"))
			return err
		},
	}
}

func newSummarizeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <email-id>",
		Short: "Ask the backend for an AI summary of one email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd.Context(), "summarize", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			summary, err := env.svc.SummarizeCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
}
