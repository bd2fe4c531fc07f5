package app

import (
	"context"
	"errors"
	"testing"

	"github.com/evanschultz/mailkan/internal/domain"
)

func TestSendRequiresRecipient(t *testing.T) {
	b := newFakeBackend()
	svc := newTestService(b, ServiceConfig{})
	if err := svc.Send(context.Background(), domain.Draft{Subject: "hi"}); !errors.Is(err, domain.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if b.called("send") != 0 {
		t.Fatal("expected no send request")
	}
	if err := svc.Send(context.Background(), domain.Draft{To: []string{"a@example.com"}, Subject: " hi "}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if b.sent[0].Subject != "hi" {
		t.Fatalf("unexpected subject %q", b.sent[0].Subject)
	}
}

func TestReplyAddressesSender(t *testing.T) {
	b := newFakeBackend()
	svc := newTestService(b, ServiceConfig{})
	original := b.emails["m1"]
	if err := svc.Reply(context.Background(), original, "thanks"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	got := b.replies[0]
	if got.To != "ann@example.com" || got.Subject != "Re: hello" || got.Body != "thanks" {
		t.Fatalf("unexpected reply %#v", got)
	}
	if err := svc.Reply(context.Background(), domain.Email{ID: "x"}, "body"); !errors.Is(err, domain.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestToggleStarAndTrash(t *testing.T) {
	b := newFakeBackend()
	svc := newTestService(b, ServiceConfig{})
	starred, err := svc.ToggleStar(context.Background(), domain.Email{ID: "m1"})
	if err != nil || !starred {
		t.Fatalf("ToggleStar() = %v, %v", starred, err)
	}
	if b.modifies[0].Add[0] != domain.LabelStarred {
		t.Fatalf("unexpected change %#v", b.modifies[0])
	}
	if err := svc.Trash(context.Background(), "m1"); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	if b.modifies[1].Add[0] != domain.LabelTrash {
		t.Fatalf("unexpected change %#v", b.modifies[1])
	}
	b.modifyErr = errors.New("nope")
	starred, err = svc.ToggleStar(context.Background(), domain.Email{ID: "m1", IsStarred: true})
	if err == nil || !starred {
		t.Fatalf("expected previous star state on failure, got %v, %v", starred, err)
	}
}

func TestListEmailsUsesPageSize(t *testing.T) {
	svc := newTestService(newFakeBackend(), ServiceConfig{InboxPageSize: 15})
	page, err := svc.ListEmails(context.Background(), "inbox", 0)
	if err != nil {
		t.Fatalf("ListEmails() error = %v", err)
	}
	if page.Page != 1 || page.PerPage != 15 {
		t.Fatalf("unexpected page %#v", page)
	}
	if _, err := svc.ListEmails(context.Background(), " ", 1); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestStatisticsDefaultsPeriod(t *testing.T) {
	svc := newTestService(newFakeBackend(), ServiceConfig{})
	stats, err := svc.Statistics(context.Background(), "")
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.Period != domain.Period30Days || stats.TotalEmails != 3 {
		t.Fatalf("unexpected stats %#v", stats)
	}
}
