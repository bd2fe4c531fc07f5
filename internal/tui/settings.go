package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
)

// column form field indexes.
const (
	formLabel = iota
	formGmailLabel
	formColor
	formFieldCount
)

// settingsState holds the column editor and its create/edit form.
type settingsState struct {
	editor  *app.ColumnEditor
	labels  []domain.GmailLabel
	loading bool
	row     int
	warning string
	pending int

	editing   bool
	editingID string
	field     int
	label     textinput.Model
	// labelIdx indexes labels; -1 leaves the column unmapped.
	labelIdx int
	colorIdx int
}

func newSettingsState() settingsState {
	in := textinput.New()
	in.Prompt = "label: "
	in.Placeholder = "column name"
	in.CharLimit = 60
	return settingsState{label: in, labelIdx: -1}
}

// formColors lists the selectable colors, default first.
func formColors() []domain.ColumnColor {
	return append([]domain.ColumnColor{domain.ColumnColorDefault}, domain.ColumnColors()...)
}

// columns returns the editor's current list.
func (s settingsState) columns() []domain.Column {
	if s.editor == nil {
		return nil
	}
	return s.editor.Columns()
}

// input reads the form.
func (s settingsState) input() domain.ColumnInput {
	in := domain.ColumnInput{Label: strings.TrimSpace(s.label.Value())}
	if s.labelIdx >= 0 && s.labelIdx < len(s.labels) {
		in.GmailLabel = s.labels[s.labelIdx].ID
	}
	colors := formColors()
	in.Color = colors[clamp(s.colorIdx, 0, len(colors)-1)]
	return in
}

// labelName returns the display name of a gmail label id.
func (s settingsState) labelName(id string) string {
	for _, l := range s.labels {
		if l.ID == id {
			return l.Name
		}
	}
	return id
}

// columnsLoadedMsg carries a fresh editor and the label catalog.
type columnsLoadedMsg struct {
	editor *app.ColumnEditor
	labels []domain.GmailLabel
	err    error
}

// columnOpDoneMsg carries the backend answer to one column change.
type columnOpDoneMsg struct {
	op  app.ColumnOp
	res app.ColumnResult
}

// openSettings shows the column settings and loads them.
func (m Model) openSettings() (tea.Model, tea.Cmd) {
	m.screen = screenSettings
	m.settings.loading = true
	m.status = "loading columns..."
	svc := m.svc
	return m, func() tea.Msg {
		editor, err := svc.NewColumnEditor(context.Background())
		if err != nil {
			return columnsLoadedMsg{err: err}
		}
		labels, err := svc.ListGmailLabels(context.Background())
		return columnsLoadedMsg{editor: editor, labels: labels, err: err}
	}
}

// applyColumnsLoaded installs the editor. A failed label fetch still shows the columns.
func (m Model) applyColumnsLoaded(msg columnsLoadedMsg) (tea.Model, tea.Cmd) {
	m.settings.loading = false
	if msg.editor == nil {
		m.failed("load columns", msg.err)
		return m, nil
	}
	m.settings.editor = msg.editor
	m.settings.labels = msg.labels
	m.settings.row = clamp(m.settings.row, 0, len(msg.editor.Columns())-1)
	m.status = "ready"
	if msg.err != nil {
		m.failed("load labels", msg.err)
	}
	return m, nil
}

// applyColumnOpDone completes or rolls back an optimistic column change.
func (m Model) applyColumnOpDone(msg columnOpDoneMsg) (tea.Model, tea.Cmd) {
	m.settings.pending = max(0, m.settings.pending-1)
	editor := m.settings.editor
	if editor == nil {
		return m, nil
	}
	if msg.res.Err != nil {
		editor.Rollback(msg.op)
		m.settings.row = clamp(m.settings.row, 0, len(editor.Columns())-1)
		m.failed(string(msg.op.Kind)+" column", msg.res.Err)
		return m, nil
	}
	editor.Complete(msg.op, msg.res)
	m.settings.row = clamp(m.settings.row, 0, len(editor.Columns())-1)
	if msg.op.Warning != "" {
		m.status = "saved • " + msg.op.Warning
	} else {
		m.status = "saved"
	}
	return m, nil
}

// commitColumnOp sends op to the backend.
func (m Model) commitColumnOp(op app.ColumnOp) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return columnOpDoneMsg{op: op, res: svc.CommitColumnOp(context.Background(), op)}
	}
}

// handleSettingsKey handles the column list and form.
func (m Model) handleSettingsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.settings.editing {
		return m.handleColumnFormKey(msg)
	}
	if key.Matches(msg, m.keys.back) {
		m.screen = screenBoard
		m.status = "reloading..."
		return m, m.loadBoardCmd()
	}
	editor := m.settings.editor
	if editor == nil {
		if model, cmd, ok := m.handleGlobalKey(msg); ok {
			return model, cmd
		}
		return m, nil
	}
	cols := editor.Columns()
	switch msg.String() {
	case "n":
		return m.beginColumnForm(domain.Column{})
	case "e", "enter":
		if m.settings.row >= len(cols) {
			return m, nil
		}
		return m.beginColumnForm(cols[m.settings.row])
	case "d", "x":
		if m.settings.row >= len(cols) {
			return m, nil
		}
		op, err := editor.BeginDelete(cols[m.settings.row].ID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrDefaultColumn):
				m.status = "default columns cannot be deleted"
			case errors.Is(err, app.ErrColumnBusy):
				m.status = "wait: " + err.Error()
			default:
				m.status = "delete failed: " + err.Error()
			}
			return m, nil
		}
		m.settings.row = clamp(m.settings.row, 0, len(editor.Columns())-1)
		m.settings.pending++
		m.status = "deleting..."
		return m, m.commitColumnOp(op)
	case "J", "shift+j":
		return m.reorderColumn(1)
	case "K", "shift+k":
		return m.reorderColumn(-1)
	}
	switch {
	case key.Matches(msg, m.keys.moveUp):
		m.settings.row = max(0, m.settings.row-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.settings.row = clamp(m.settings.row+1, 0, len(cols)-1)
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m.openSettings()
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	return m, nil
}

// reorderColumn moves the selected column by delta.
func (m Model) reorderColumn(delta int) (tea.Model, tea.Cmd) {
	from := m.settings.row
	to := from + delta
	op, err := m.settings.editor.BeginReorder(from, to)
	if errors.Is(err, app.ErrColumnBusy) {
		m.status = "wait: " + err.Error()
		return m, nil
	}
	if err != nil {
		return m, nil
	}
	m.settings.row = to
	m.settings.pending++
	m.status = "reordering..."
	return m, m.commitColumnOp(op)
}

// beginColumnForm opens the form, prefilled from col when editing.
func (m Model) beginColumnForm(col domain.Column) (tea.Model, tea.Cmd) {
	m.settings.editing = true
	m.settings.editingID = col.ID
	m.settings.field = formLabel
	m.settings.warning = ""
	m.settings.label.SetValue(col.Label)
	m.settings.label.CursorEnd()
	m.settings.labelIdx = -1
	for i, l := range m.settings.labels {
		if l.ID == col.GmailLabel {
			m.settings.labelIdx = i
		}
	}
	m.settings.colorIdx = 0
	for i, c := range formColors() {
		if c == col.Color {
			m.settings.colorIdx = i
		}
	}
	return m, m.settings.label.Focus()
}

// handleColumnFormKey edits and submits the column form.
func (m Model) handleColumnFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	s := &m.settings
	switch msg.String() {
	case "esc":
		s.editing = false
		s.label.Blur()
		return m, nil
	case "tab", "down":
		s.field = wrapIndex(s.field, 1, formFieldCount)
		return m, m.focusColumnForm()
	case "shift+tab", "up":
		s.field = wrapIndex(s.field, -1, formFieldCount)
		return m, m.focusColumnForm()
	case "enter":
		return m.submitColumnForm()
	}
	switch s.field {
	case formGmailLabel:
		switch msg.String() {
		case "left", "h":
			s.labelIdx = cycleOptional(s.labelIdx, -1, len(s.labels))
		case "right", "l", "space", " ":
			s.labelIdx = cycleOptional(s.labelIdx, 1, len(s.labels))
		}
		m.settings.warning = m.labelWarning()
		return m, nil
	case formColor:
		switch msg.String() {
		case "left", "h":
			s.colorIdx = wrapIndex(s.colorIdx, -1, len(formColors()))
		case "right", "l", "space", " ":
			s.colorIdx = wrapIndex(s.colorIdx, 1, len(formColors()))
		}
		return m, nil
	}
	var cmd tea.Cmd
	s.label, cmd = s.label.Update(msg)
	return m, cmd
}

// focusColumnForm focuses the label input when its row is active.
func (m *Model) focusColumnForm() tea.Cmd {
	if m.settings.field == formLabel {
		return m.settings.label.Focus()
	}
	m.settings.label.Blur()
	return nil
}

// labelWarning previews the duplicate mapping warning for the form.
func (m Model) labelWarning() string {
	in := m.settings.input()
	dup, ok := domain.DuplicateLabelColumn(m.settings.columns(), in.GmailLabel, m.settings.editingID)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%q is already mapped to %q", m.settings.labelName(in.GmailLabel), dup.Label)
}

// submitColumnForm applies the form optimistically and commits it.
func (m Model) submitColumnForm() (tea.Model, tea.Cmd) {
	editor := m.settings.editor
	if editor == nil {
		return m, nil
	}
	in := m.settings.input()
	var (
		op  app.ColumnOp
		err error
	)
	if m.settings.editingID == "" {
		op, err = editor.BeginCreate(in)
	} else {
		op, err = editor.BeginUpdate(m.settings.editingID, in)
	}
	if err != nil {
		m.status = "save failed: " + err.Error()
		return m, nil
	}
	m.settings.editing = false
	m.settings.label.Blur()
	if op.Kind == app.ColumnOpCreate {
		m.settings.row = len(editor.Columns()) - 1
	}
	m.settings.pending++
	m.status = "saving..."
	if op.Warning != "" {
		m.status = "saving • " + op.Warning
	}
	return m, m.commitColumnOp(op)
}

// cycleOptional steps through -1..total-1, where -1 means none.
func cycleOptional(current, delta, total int) int {
	return wrapIndex(current+1, delta, total+1) - 1
}

// renderSettings renders the column list or the form.
func (m Model) renderSettings() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	if m.settings.editor == nil {
		if m.settings.loading {
			return hint.Render("loading columns...")
		}
		return hint.Render("columns unavailable • press r to retry")
	}
	if m.settings.editing {
		return m.renderColumnForm()
	}
	sel := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	cols := m.settings.columns()
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Columns"), ""}
	if len(cols) == 0 {
		lines = append(lines, hint.Render("(no columns) • press n to add one"))
	}
	for i, c := range cols {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color.TerminalColor())).Render("■")
		label := c.Label
		if strings.HasPrefix(c.ID, app.TempColumnPrefix) {
			label += hint.Render(" (saving)")
		}
		mapped := hint.Render("unmapped")
		if c.GmailLabel != "" {
			mapped = hint.Render("label " + m.settings.labelName(c.GmailLabel))
		}
		if c.IsDefault {
			mapped += hint.Render(" • default")
		}
		line := fmt.Sprintf("%s %-24s %s", swatch, truncate(label, 24), mapped)
		if i == m.settings.row {
			line = sel.Render("› ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if m.settings.pending > 0 {
		lines = append(lines, "", hint.Render(plural(m.settings.pending, "change")+" syncing"))
	}
	return strings.Join(lines, "\n")
}

// renderColumnForm renders the create/edit form.
func (m Model) renderColumnForm() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	active := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	warn := lipgloss.NewStyle().Foreground(warningColor)
	title := "New column"
	if m.settings.editingID != "" {
		title = "Edit column"
	}
	in := m.settings.input()
	label := m.settings.label
	label.SetWidth(40)

	labelName := "(none)"
	if in.GmailLabel != "" {
		labelName = m.settings.labelName(in.GmailLabel)
	}
	colorName := string(in.Color)
	if colorName == "" {
		colorName = "default"
	}
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(in.Color.TerminalColor())).Render("■")

	rows := []string{
		label.View(),
		"gmail label: ‹ " + labelName + " ›",
		"color: ‹ " + swatch + " " + colorName + " ›",
	}
	for i := range rows {
		if i == m.settings.field && i != formLabel {
			rows[i] = active.Render("› ") + rows[i]
		} else {
			rows[i] = "  " + rows[i]
		}
	}
	lines := append([]string{lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(title), ""}, rows...)
	if m.settings.warning != "" {
		lines = append(lines, "", warn.Render("warning: "+m.settings.warning))
	}
	lines = append(lines, "", hint.Render("tab next field • ←/→ change • enter save • esc cancel"))
	return strings.Join(lines, "\n")
}
