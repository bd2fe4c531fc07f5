package domain

import "strings"

// SortField names a server-side board sort key.
type SortField string

const (
	SortReceivedAt SortField = "received_at"
	SortSender     SortField = "sender"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// BoardFilter holds the server-side filter and sort options for a board fetch.
type BoardFilter struct {
	UnreadOnly      bool
	AttachmentsOnly bool
	SortBy          SortField
	SortOrder       SortOrder
}

// ParseSortField validates a sort key; empty means backend default.
func ParseSortField(raw string) (SortField, bool) {
	switch SortField(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", true
	case SortReceivedAt, "date":
		return SortReceivedAt, true
	case SortSender:
		return SortSender, true
	default:
		return "", false
	}
}

// ParseSortOrder validates a sort direction; empty means backend default.
func ParseSortOrder(raw string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", true
	case SortAsc:
		return SortAsc, true
	case SortDesc:
		return SortDesc, true
	default:
		return "", false
	}
}

// ColumnInput carries editable column fields for create and update calls.
type ColumnInput struct {
	Label      string
	GmailLabel string
	Color      ColumnColor
}

// Reply is a response to an existing message.
type Reply struct {
	To      string
	Subject string
	Body    string
}
