package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanschultz/mailkan/internal/domain"
)

// ListMailboxes returns the mailbox sidebar entries.
func (s *Service) ListMailboxes(ctx context.Context) ([]domain.Mailbox, error) {
	boxes, err := s.backend.ListMailboxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}
	return boxes, nil
}

// ListEmails returns one page of a mailbox. Pages are 1-based.
func (s *Service) ListEmails(ctx context.Context, mailboxID string, page int) (domain.EmailPage, error) {
	mailboxID = strings.TrimSpace(mailboxID)
	if mailboxID == "" {
		return domain.EmailPage{}, domain.ErrInvalidID
	}
	page = max(page, 1)
	out, err := s.backend.ListEmails(ctx, mailboxID, page, s.Config().InboxPageSize)
	if err != nil {
		return domain.EmailPage{}, fmt.Errorf("list emails in %s: %w", mailboxID, err)
	}
	return out, nil
}

// OpenEmail loads one message and marks it read when it was unread.
func (s *Service) OpenEmail(ctx context.Context, id string) (domain.Email, error) {
	return s.OpenCard(ctx, domain.Card{ID: strings.TrimSpace(id)})
}

// ToggleStar flips the starred flag and returns the new value.
func (s *Service) ToggleStar(ctx context.Context, email domain.Email) (bool, error) {
	starred := !email.IsStarred
	if err := s.backend.ModifyEmail(ctx, email.ID, domain.StarChange(starred)); err != nil {
		return email.IsStarred, fmt.Errorf("star email %s: %w", email.ID, err)
	}
	return starred, nil
}

// Trash moves a message to trash.
func (s *Service) Trash(ctx context.Context, id string) error {
	if err := s.backend.ModifyEmail(ctx, id, domain.TrashChange()); err != nil {
		return fmt.Errorf("trash email %s: %w", id, err)
	}
	return nil
}

// MarkRead removes the unread flag.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	if err := s.backend.ModifyEmail(ctx, id, domain.MarkReadChange()); err != nil {
		return fmt.Errorf("mark email %s read: %w", id, err)
	}
	return nil
}

// Send validates and sends a new message.
func (s *Service) Send(ctx context.Context, draft domain.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	draft.Subject = strings.TrimSpace(draft.Subject)
	if err := s.backend.SendEmail(ctx, draft); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Reply answers the sender of original.
func (s *Service) Reply(ctx context.Context, original domain.Email, body string) error {
	to := strings.TrimSpace(original.From.Email)
	if to == "" {
		return domain.ErrNoRecipients
	}
	reply := domain.Reply{
		To:      to,
		Subject: domain.ReplySubject(original.Subject),
		Body:    body,
	}
	if err := s.backend.ReplyEmail(ctx, original.ID, reply); err != nil {
		return fmt.Errorf("reply to %s: %w", original.ID, err)
	}
	return nil
}
