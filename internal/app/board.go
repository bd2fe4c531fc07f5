package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/mailkan/internal/domain"
	"golang.org/x/sync/errgroup"
)

// LoadBoard fetches the board with the configured filter.
func (s *Service) LoadBoard(ctx context.Context) (domain.Board, error) {
	return s.LoadBoardFiltered(ctx, s.Config().Filter)
}

// LoadBoardFiltered fetches cards and column metadata concurrently and merges them.
// On error no partial board is returned.
func (s *Service) LoadBoardFiltered(ctx context.Context, filter domain.BoardFilter) (domain.Board, error) {
	var (
		grouped map[string][]domain.Card
		meta    []domain.ColumnMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grouped, err = s.backend.Board(gctx, filter)
		if err != nil {
			return fmt.Errorf("fetch board: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		meta, err = s.backend.BoardMeta(gctx)
		if err != nil {
			return fmt.Errorf("fetch board meta: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Board{}, err
	}
	return domain.MergeBoard(meta, grouped), nil
}

// MoveOutcome reports how a committed move settled.
type MoveOutcome struct {
	Snapshot domain.MoveSnapshot
	Err      error
	// Refetched is set when the move failed and the board was reloaded from the backend.
	Refetched *domain.Board
}

// Failed reports whether the move request was rejected.
func (o MoveOutcome) Failed() bool {
	return o.Err != nil
}

// Apply reconciles board with the outcome: a refetched board replaces it
// verbatim, otherwise a failure restores the snapshot lists.
func (o MoveOutcome) Apply(board *domain.Board) {
	if o.Err == nil || board == nil {
		return
	}
	if o.Refetched != nil {
		*board = *o.Refetched
		return
	}
	board.Restore(o.Snapshot)
}

// CommitMove sends an already-applied optimistic move to the backend.
func (s *Service) CommitMove(ctx context.Context, snap domain.MoveSnapshot) MoveOutcome {
	out := MoveOutcome{Snapshot: snap}
	err := s.backend.MoveCard(ctx, snap.CardID, snap.To)
	if err == nil {
		log.Debug("card moved", "email_id", snap.CardID, "from", snap.From, "to", snap.To)
		return out
	}
	out.Err = fmt.Errorf("move card %s to %s: %w", snap.CardID, snap.To, err)
	log.Warn("card move failed", "email_id", snap.CardID, "to", snap.To, "err", err)
	if !s.Config().RefetchOnMoveFailure {
		return out
	}
	board, loadErr := s.LoadBoard(ctx)
	if loadErr != nil {
		log.Warn("board refetch after failed move failed", "err", loadErr)
		return out
	}
	out.Refetched = &board
	return out
}

// MoveCard applies a move to board optimistically, commits it, and reconciles
// board on failure.
func (s *Service) MoveCard(ctx context.Context, board *domain.Board, cardID, overID string) error {
	if board == nil {
		return domain.ErrCardNotFound
	}
	snap, moved, err := board.Move(cardID, overID)
	if err != nil {
		return err
	}
	if !moved {
		return ErrMoveUnchanged
	}
	out := s.CommitMove(ctx, snap)
	out.Apply(board)
	return out.Err
}

// MoveCardTo moves a card to a column key without local board state.
func (s *Service) MoveCardTo(ctx context.Context, emailID, columnKey string) error {
	emailID = strings.TrimSpace(emailID)
	columnKey = strings.TrimSpace(columnKey)
	if emailID == "" {
		return domain.ErrInvalidID
	}
	if columnKey == "" {
		return domain.ErrInvalidColumnKey
	}
	meta, err := s.backend.BoardMeta(ctx)
	if err != nil {
		return fmt.Errorf("fetch board meta: %w", err)
	}
	known := false
	for _, m := range meta {
		if m.Key == columnKey {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", domain.ErrUnknownColumn, columnKey)
	}
	if err := s.backend.MoveCard(ctx, emailID, columnKey); err != nil {
		return fmt.Errorf("move card %s to %s: %w", emailID, columnKey, err)
	}
	return nil
}

// SnoozeCard resolves a preset or timestamp and snoozes the card.
func (s *Service) SnoozeCard(ctx context.Context, emailID, when string) (time.Time, error) {
	emailID = strings.TrimSpace(emailID)
	if emailID == "" {
		return time.Time{}, domain.ErrInvalidID
	}
	until, err := domain.ResolveSnooze(when, s.clock())
	if err != nil {
		return time.Time{}, err
	}
	if err := s.backend.SnoozeCard(ctx, emailID, until); err != nil {
		return time.Time{}, fmt.Errorf("snooze card %s: %w", emailID, err)
	}
	return until, nil
}

// SummarizeCard requests a fresh AI summary for the card.
func (s *Service) SummarizeCard(ctx context.Context, emailID string) (string, error) {
	emailID = strings.TrimSpace(emailID)
	if emailID == "" {
		return "", domain.ErrInvalidID
	}
	summary, err := s.backend.SummarizeCard(ctx, emailID)
	if err != nil {
		return "", fmt.Errorf("summarize card %s: %w", emailID, err)
	}
	return strings.TrimSpace(summary), nil
}

// OpenCard loads the full message behind a card and marks it read when needed.
// A failed read marker is logged and does not fail the open.
func (s *Service) OpenCard(ctx context.Context, card domain.Card) (domain.Email, error) {
	email, err := s.backend.GetEmail(ctx, card.ID)
	if err != nil {
		return domain.Email{}, fmt.Errorf("load email %s: %w", card.ID, err)
	}
	if !card.IsRead || !email.IsRead {
		err := s.backend.ModifyEmail(ctx, card.ID, domain.MarkReadChange())
		switch {
		case err == nil:
			email.IsRead = true
		case !errors.Is(err, context.Canceled):
			log.Warn("mark read failed", "email_id", card.ID, "err", err)
		}
	}
	return email, nil
}
