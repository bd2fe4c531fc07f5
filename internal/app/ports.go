package app

import (
	"context"
	"time"

	"github.com/evanschultz/mailkan/internal/domain"
)

// BoardBackend serves the triage board endpoints.
type BoardBackend interface {
	Board(context.Context, domain.BoardFilter) (map[string][]domain.Card, error)
	BoardMeta(context.Context) ([]domain.ColumnMeta, error)
	MoveCard(ctx context.Context, emailID, toStatus string) error
	SnoozeCard(ctx context.Context, emailID string, until time.Time) error
	SummarizeCard(ctx context.Context, emailID string) (string, error)
}

// ColumnBackend serves column configuration endpoints.
type ColumnBackend interface {
	ListColumns(context.Context) ([]domain.Column, error)
	CreateColumn(context.Context, domain.ColumnInput) (domain.Column, error)
	UpdateColumn(context.Context, string, domain.ColumnInput) (domain.Column, error)
	DeleteColumn(context.Context, string) ([]domain.Column, error)
	ReorderColumns(context.Context, []string) ([]domain.Column, error)
	ListGmailLabels(context.Context) ([]domain.GmailLabel, error)
}

// SearchBackend serves search endpoints.
type SearchBackend interface {
	Suggestions(ctx context.Context, query string) ([]domain.Suggestion, error)
	SemanticSearch(ctx context.Context, query string, limit int) (domain.SemanticPage, error)
	KeywordSearch(ctx context.Context, query, pageToken string) (domain.KeywordPage, error)
	GenerateEmbeddings(ctx context.Context, limit int) (domain.EmbeddingReport, error)
}

// MailBackend serves mailbox and message endpoints.
type MailBackend interface {
	ListMailboxes(context.Context) ([]domain.Mailbox, error)
	ListEmails(ctx context.Context, mailboxID string, page, perPage int) (domain.EmailPage, error)
	GetEmail(context.Context, string) (domain.Email, error)
	ModifyEmail(context.Context, string, domain.LabelChange) error
	SendEmail(context.Context, domain.Draft) error
	ReplyEmail(context.Context, string, domain.Reply) error
}

// StatisticsBackend serves the dashboard endpoint.
type StatisticsBackend interface {
	Statistics(context.Context, domain.Period) (domain.Statistics, error)
}

// AuthBackend serves session endpoints.
type AuthBackend interface {
	Login(context.Context, domain.Credentials) (domain.User, error)
	Signup(context.Context, domain.Credentials) (domain.User, error)
	GoogleLogin(ctx context.Context, code string) (domain.User, error)
	Me(context.Context) (domain.User, error)
	Logout(context.Context) error
	LoggedIn() bool
}

// Backend is the full remote API the client consumes.
type Backend interface {
	BoardBackend
	ColumnBackend
	SearchBackend
	MailBackend
	StatisticsBackend
	AuthBackend
}

// ConnectivityReporter is implemented by backends that know when a response was replayed from the offline cache.
type ConnectivityReporter interface {
	Offline() bool
}
