package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/mailkan/internal/domain"
)

// TempColumnPrefix marks optimistic column ids that the backend has not assigned yet.
const TempColumnPrefix = "temp_"

// ColumnOpKind identifies one settings mutation.
type ColumnOpKind string

// ColumnOpCreate and related constants define package defaults.
const (
	ColumnOpCreate  ColumnOpKind = "create"
	ColumnOpUpdate  ColumnOpKind = "update"
	ColumnOpDelete  ColumnOpKind = "delete"
	ColumnOpReorder ColumnOpKind = "reorder"
)

// ColumnOp is an optimistic settings change plus what is needed to undo it.
type ColumnOp struct {
	Kind    ColumnOpKind
	ID      string
	Input   domain.ColumnInput
	IDs     []string
	Warning string

	prev      domain.Column
	prevIndex int
	prevOrder []domain.Column
}

// ColumnResult is the backend answer to a committed ColumnOp.
type ColumnResult struct {
	Column  domain.Column
	Columns []domain.Column
	Err     error
}

// ColumnEditor holds the settings list and applies optimistic changes to it.
// Deletes and reorders replace the whole list when they settle, so they are
// refused while any other change is in flight, and creates and updates are
// refused while one of them is.
type ColumnEditor struct {
	cols  []domain.Column
	idGen IDGenerator

	pending int
	listOps int
}

// NewColumnEditor constructs an editor over cols sorted by order.
func NewColumnEditor(cols []domain.Column, idGen IDGenerator) *ColumnEditor {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	return &ColumnEditor{cols: domain.SortColumns(cols), idGen: idGen}
}

// Columns returns a copy of the current list.
func (e *ColumnEditor) Columns() []domain.Column {
	return slices.Clone(e.cols)
}

// Replace swaps in an authoritative list.
func (e *ColumnEditor) Replace(cols []domain.Column) {
	e.cols = domain.SortColumns(cols)
}

// Pending reports how many begun operations have not been completed or rolled back.
func (e *ColumnEditor) Pending() int {
	return e.pending
}

func (e *ColumnEditor) track(op ColumnOp) ColumnOp {
	e.pending++
	if op.Kind == ColumnOpDelete || op.Kind == ColumnOpReorder {
		e.listOps++
	}
	return op
}

func (e *ColumnEditor) settle(op ColumnOp) {
	e.pending = max(0, e.pending-1)
	if op.Kind == ColumnOpDelete || op.Kind == ColumnOpReorder {
		e.listOps = max(0, e.listOps-1)
	}
}

// BeginCreate inserts a temporary column.
func (e *ColumnEditor) BeginCreate(in domain.ColumnInput) (ColumnOp, error) {
	if e.listOps > 0 {
		return ColumnOp{}, ErrColumnBusy
	}
	in = normalizeColumnInput(in)
	col, err := domain.NewColumn(TempColumnPrefix+e.idGen(), in.Label, in.GmailLabel, in.Color, len(e.cols))
	if err != nil {
		return ColumnOp{}, err
	}
	op := ColumnOp{Kind: ColumnOpCreate, ID: col.ID, Input: in}
	op.Warning = duplicateLabelWarning(e.cols, in.GmailLabel, "")
	e.cols = append(e.cols, col)
	return e.track(op), nil
}

// BeginUpdate replaces a column's editable fields in place.
func (e *ColumnEditor) BeginUpdate(id string, in domain.ColumnInput) (ColumnOp, error) {
	in = normalizeColumnInput(in)
	if in.Label == "" {
		return ColumnOp{}, domain.ErrInvalidLabel
	}
	if e.listOps > 0 || strings.HasPrefix(id, TempColumnPrefix) {
		return ColumnOp{}, ErrColumnBusy
	}
	idx := domain.ColumnIndex(e.cols, id)
	if idx < 0 {
		return ColumnOp{}, ErrNotFound
	}
	op := ColumnOp{Kind: ColumnOpUpdate, ID: id, Input: in, prev: e.cols[idx]}
	op.Warning = duplicateLabelWarning(e.cols, in.GmailLabel, id)
	updated := e.cols[idx]
	updated.Label = in.Label
	updated.GmailLabel = in.GmailLabel
	updated.Color = in.Color
	e.cols[idx] = updated
	return e.track(op), nil
}

// BeginDelete removes a non-default column.
func (e *ColumnEditor) BeginDelete(id string) (ColumnOp, error) {
	if e.pending > 0 {
		return ColumnOp{}, ErrColumnBusy
	}
	idx := domain.ColumnIndex(e.cols, id)
	if idx < 0 {
		return ColumnOp{}, ErrNotFound
	}
	if e.cols[idx].IsDefault {
		return ColumnOp{}, domain.ErrDefaultColumn
	}
	op := ColumnOp{Kind: ColumnOpDelete, ID: id, prev: e.cols[idx], prevIndex: idx}
	e.cols = slices.Delete(e.cols, idx, idx+1)
	return e.track(op), nil
}

// BeginReorder moves the column at from to to.
func (e *ColumnEditor) BeginReorder(from, to int) (ColumnOp, error) {
	if e.pending > 0 {
		return ColumnOp{}, ErrColumnBusy
	}
	moved, err := domain.MoveColumn(e.cols, from, to)
	if err != nil {
		return ColumnOp{}, err
	}
	op := ColumnOp{Kind: ColumnOpReorder, IDs: domain.ColumnIDs(moved), prevOrder: slices.Clone(e.cols)}
	for i := range moved {
		moved[i].Order = i
	}
	e.cols = moved
	return e.track(op), nil
}

// Complete folds the backend result of op into the list.
func (e *ColumnEditor) Complete(op ColumnOp, res ColumnResult) {
	e.settle(op)
	switch op.Kind {
	case ColumnOpCreate, ColumnOpUpdate:
		if idx := domain.ColumnIndex(e.cols, op.ID); idx >= 0 {
			e.cols[idx] = res.Column
		}
	case ColumnOpDelete, ColumnOpReorder:
		if res.Columns != nil {
			e.Replace(res.Columns)
		}
	}
}

// Rollback undoes op using its snapshot.
func (e *ColumnEditor) Rollback(op ColumnOp) {
	e.settle(op)
	switch op.Kind {
	case ColumnOpCreate:
		if idx := domain.ColumnIndex(e.cols, op.ID); idx >= 0 {
			e.cols = slices.Delete(e.cols, idx, idx+1)
		}
	case ColumnOpUpdate:
		if idx := domain.ColumnIndex(e.cols, op.ID); idx >= 0 {
			e.cols[idx] = op.prev
		}
	case ColumnOpDelete:
		if domain.ColumnIndex(e.cols, op.ID) >= 0 {
			return
		}
		at := min(op.prevIndex, len(e.cols))
		e.cols = slices.Insert(e.cols, at, op.prev)
	case ColumnOpReorder:
		e.cols = slices.Clone(op.prevOrder)
	}
}

func normalizeColumnInput(in domain.ColumnInput) domain.ColumnInput {
	in.Label = strings.TrimSpace(in.Label)
	in.GmailLabel = strings.TrimSpace(in.GmailLabel)
	return in
}

func duplicateLabelWarning(cols []domain.Column, gmailLabel, excludeID string) string {
	dup, ok := domain.DuplicateLabelColumn(cols, gmailLabel, excludeID)
	if !ok {
		return ""
	}
	return fmt.Sprintf("label %q is already mapped to %q; cards follow the first matching column", gmailLabel, dup.Label)
}

// ListColumns returns configured columns sorted by order.
func (s *Service) ListColumns(ctx context.Context) ([]domain.Column, error) {
	cols, err := s.backend.ListColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return domain.SortColumns(cols), nil
}

// ListGmailLabels returns the upstream labels a column can map to.
func (s *Service) ListGmailLabels(ctx context.Context) ([]domain.GmailLabel, error) {
	labels, err := s.backend.ListGmailLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// NewColumnEditor loads the column list into an editor.
func (s *Service) NewColumnEditor(ctx context.Context) (*ColumnEditor, error) {
	cols, err := s.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	return NewColumnEditor(cols, s.idGen), nil
}

// CommitColumnOp sends an optimistic settings change to the backend.
func (s *Service) CommitColumnOp(ctx context.Context, op ColumnOp) ColumnResult {
	var res ColumnResult
	switch op.Kind {
	case ColumnOpCreate:
		res.Column, res.Err = s.backend.CreateColumn(ctx, op.Input)
	case ColumnOpUpdate:
		res.Column, res.Err = s.backend.UpdateColumn(ctx, op.ID, op.Input)
	case ColumnOpDelete:
		res.Columns, res.Err = s.backend.DeleteColumn(ctx, op.ID)
	case ColumnOpReorder:
		res.Columns, res.Err = s.backend.ReorderColumns(ctx, op.IDs)
	default:
		res.Err = fmt.Errorf("unsupported column operation %q", op.Kind)
	}
	if res.Err != nil {
		res.Err = fmt.Errorf("%s column: %w", op.Kind, res.Err)
		log.Warn("column change failed", "op", op.Kind, "column_id", op.ID, "err", res.Err)
	}
	return res
}

// ApplyColumnOp commits op and completes or rolls it back on editor.
func (s *Service) ApplyColumnOp(ctx context.Context, editor *ColumnEditor, op ColumnOp) error {
	res := s.CommitColumnOp(ctx, op)
	if res.Err != nil {
		editor.Rollback(op)
		return res.Err
	}
	editor.Complete(op, res)
	return nil
}
