package domain

import (
	"testing"
)

func TestParseRecipients(t *testing.T) {
	got, err := ParseRecipients("Ann <ann@example.com>, bob@example.com; ,")
	if err != nil {
		t.Fatalf("ParseRecipients() error = %v", err)
	}
	if !equalIDs(got, []string{"ann@example.com", "bob@example.com"}) {
		t.Fatalf("unexpected recipients %v", got)
	}
	if _, err := ParseRecipients("not an address"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDraftValidate(t *testing.T) {
	if err := (Draft{Subject: "hi"}).Validate(); err != ErrNoRecipients {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if err := (Draft{To: []string{"a@example.com"}}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestReplySubject(t *testing.T) {
	if got := ReplySubject("Lunch"); got != "Re: Lunch" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := ReplySubject("RE: Lunch"); got != "RE: Lunch" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestLabelChanges(t *testing.T) {
	if c := MarkReadChange(); len(c.Remove) != 1 || c.Remove[0] != LabelUnread {
		t.Fatalf("unexpected mark-read change %#v", c)
	}
	if c := StarChange(true); len(c.Add) != 1 || c.Add[0] != LabelStarred {
		t.Fatalf("unexpected star change %#v", c)
	}
	if c := StarChange(false); len(c.Remove) != 1 || c.Remove[0] != LabelStarred {
		t.Fatalf("unexpected unstar change %#v", c)
	}
	if c := TrashChange(); len(c.Add) != 1 || c.Add[0] != LabelTrash {
		t.Fatalf("unexpected trash change %#v", c)
	}
}

func TestMailboxIcons(t *testing.T) {
	tests := map[string]MailboxIcon{
		"InboxOutlined":  MailboxIconInbox,
		"StarOutlined":   MailboxIconStar,
		"SendOutlined":   MailboxIconSend,
		"EditOutlined":   MailboxIconDraft,
		"DeleteOutlined": MailboxIconTrash,
		"Whatever":       MailboxIconFolder,
	}
	for raw, want := range tests {
		got := ParseMailboxIcon(raw)
		if got != want {
			t.Fatalf("ParseMailboxIcon(%q) = %q want %q", raw, got, want)
		}
		if got.Glyph() == "" {
			t.Fatalf("expected glyph for %q", got)
		}
	}
}

func TestSuggestionsAndScores(t *testing.T) {
	if ShouldSuggest(" a ", 0) {
		t.Fatal("expected no suggestions for single char")
	}
	if !ShouldSuggest("ab", 0) {
		t.Fatal("expected suggestions for two chars")
	}
	if ParseSuggestionType("SENDER") != SuggestionSender || ParseSuggestionType("other") != SuggestionKeyword {
		t.Fatal("unexpected suggestion type parsing")
	}
	if got := (SemanticResult{Score: 0.876}).ScorePercent(); got != 88 {
		t.Fatalf("unexpected percent %d", got)
	}
	if got := (SemanticResult{Score: 1.7}).ScorePercent(); got != 100 {
		t.Fatalf("unexpected clamped percent %d", got)
	}
}

func TestStatisticsHelpers(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != Period30Days {
		t.Fatalf("unexpected default period %q %v", p, err)
	}
	if _, err := ParsePeriod("1y"); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if Period90Days.Next() != Period7Days {
		t.Fatal("expected period cycle to wrap")
	}
	s := Statistics{
		TotalEmails: 10,
		UnreadCount: 4,
		DailyActivity: []ActivityCell{
			{DayOfWeek: 1, Hour: 9, Count: 3},
			{DayOfWeek: 1, Hour: 9, Count: 2},
			{DayOfWeek: 9, Hour: 9, Count: 50},
		},
	}
	if s.ReadCount() != 6 {
		t.Fatalf("unexpected read count %d", s.ReadCount())
	}
	grid, peak := s.Heatmap()
	if grid[1][9] != 5 || peak != 5 {
		t.Fatalf("unexpected heatmap %d peak %d", grid[1][9], peak)
	}
}
