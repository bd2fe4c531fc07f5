package domain

import (
	"testing"
)

func cards(ids ...string) []Card {
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, Card{ID: id, Subject: "subject " + id})
	}
	return out
}

func cardIDs(list []Card) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeBoardFillsEveryMetaKey(t *testing.T) {
	meta := []ColumnMeta{{Key: "inbox", Label: "Inbox"}, {Key: "todo", Label: "To Do"}, {Key: "done", Label: "Done"}}
	b := MergeBoard(meta, map[string][]Card{
		"inbox":  cards("m1", "m2"),
		"legacy": cards("m3"),
	})
	for _, m := range meta {
		list, ok := b.Cards[m.Key]
		if !ok {
			t.Fatalf("expected entry for %q", m.Key)
		}
		if list == nil {
			t.Fatalf("expected non-nil list for %q", m.Key)
		}
	}
	if got := cardIDs(b.Cards["inbox"]); !equalIDs(got, []string{"m1", "m2"}) {
		t.Fatalf("unexpected inbox %v", got)
	}
	if got := cardIDs(b.Cards["legacy"]); !equalIDs(got, []string{"m3"}) {
		t.Fatalf("expected backend-only key to be kept, got %v", got)
	}
	if keys := b.Keys(); !equalIDs(keys, []string{"inbox", "todo", "done", "legacy"}) {
		t.Fatalf("unexpected key order %v", keys)
	}
}

func TestMergeBoardKeepsDuplicateCardInFirstColumn(t *testing.T) {
	meta := []ColumnMeta{{Key: "todo"}, {Key: "urgent"}}
	grouped := map[string][]Card{
		"urgent": cards("m1", "m2"),
		"todo":   cards("m1"),
		"extra":  cards("m2", "m3"),
	}
	for range 50 {
		b := MergeBoard(meta, grouped)
		if got := cardIDs(b.Cards["todo"]); !equalIDs(got, []string{"m1"}) {
			t.Fatalf("unexpected todo %v", got)
		}
		if got := cardIDs(b.Cards["urgent"]); !equalIDs(got, []string{"m2"}) {
			t.Fatalf("unexpected urgent %v", got)
		}
		if got := cardIDs(b.Cards["extra"]); !equalIDs(got, []string{"m3"}) {
			t.Fatalf("unexpected extra %v", got)
		}
		if key, ok := b.FindContainer("m1"); !ok || key != "todo" {
			t.Fatalf("FindContainer(m1) = %q,%v want todo", key, ok)
		}
	}
}

func TestFindContainer(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("x", "y")})
	tests := []struct {
		id   string
		want string
		ok   bool
	}{
		{id: "A", want: "A", ok: true},
		{id: "B", want: "B", ok: true},
		{id: "y", want: "A", ok: true},
		{id: "missing", ok: false},
	}
	for _, tc := range tests {
		got, ok := b.FindContainer(tc.id)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("FindContainer(%q) = %q,%v want %q,%v", tc.id, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBoardMoveAppendsToDestination(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("x", "y")})
	snap, moved, err := b.Move("x", "B")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if !moved {
		t.Fatal("expected move to apply")
	}
	if snap.From != "A" || snap.To != "B" {
		t.Fatalf("unexpected snapshot route %s -> %s", snap.From, snap.To)
	}
	if got := cardIDs(b.Cards["A"]); !equalIDs(got, []string{"y"}) {
		t.Fatalf("unexpected A %v", got)
	}
	if got := cardIDs(b.Cards["B"]); !equalIDs(got, []string{"x"}) {
		t.Fatalf("unexpected B %v", got)
	}
}

func TestBoardMoveOverCardResolvesColumn(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("x"), "B": cards("z")})
	if _, moved, err := b.Move("x", "z"); err != nil || !moved {
		t.Fatalf("Move() = %v,%v", moved, err)
	}
	if got := cardIDs(b.Cards["B"]); !equalIDs(got, []string{"z", "x"}) {
		t.Fatalf("unexpected B %v", got)
	}
}

func TestBoardMoveSameColumnIsNoop(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}}, map[string][]Card{"A": cards("x", "y")})
	_, moved, err := b.Move("x", "y")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if moved {
		t.Fatal("expected same-column move to be a no-op")
	}
	if got := cardIDs(b.Cards["A"]); !equalIDs(got, []string{"x", "y"}) {
		t.Fatalf("unexpected A %v", got)
	}
}

func TestBoardMoveErrors(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("x")})
	if _, _, err := b.Move("nope", "B"); err != ErrCardNotFound {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
	if _, _, err := b.Move("A", "B"); err != ErrCardNotFound {
		t.Fatalf("expected ErrCardNotFound for column id, got %v", err)
	}
	if _, _, err := b.Move("x", "C"); err != ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestBoardRestoreRevertsOnlyTouchedLists(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}, {Key: "C"}}, map[string][]Card{
		"A": cards("x", "y"),
		"C": cards("c1"),
	})
	snap, _, err := b.Move("x", "B")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	b.Cards["C"] = append(b.Cards["C"], Card{ID: "c2"})
	b.Restore(snap)
	if got := cardIDs(b.Cards["A"]); !equalIDs(got, []string{"x", "y"}) {
		t.Fatalf("unexpected A after restore %v", got)
	}
	if got := cardIDs(b.Cards["B"]); len(got) != 0 {
		t.Fatalf("unexpected B after restore %v", got)
	}
	if got := cardIDs(b.Cards["C"]); !equalIDs(got, []string{"c1", "c2"}) {
		t.Fatalf("expected untouched column to keep its changes, got %v", got)
	}
}

func TestBoardRestoreKeepsOverlappingMoves(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}, {Key: "C"}}, map[string][]Card{"A": cards("x", "y")})
	snapX, _, err := b.Move("x", "B")
	if err != nil {
		t.Fatalf("Move(x) error = %v", err)
	}
	if _, _, err := b.Move("y", "C"); err != nil {
		t.Fatalf("Move(y) error = %v", err)
	}
	b.Restore(snapX)

	if got := cardIDs(b.Cards["A"]); !equalIDs(got, []string{"x"}) {
		t.Fatalf("unexpected A %v", got)
	}
	if got := cardIDs(b.Cards["B"]); len(got) != 0 {
		t.Fatalf("unexpected B %v", got)
	}
	if got := cardIDs(b.Cards["C"]); !equalIDs(got, []string{"y"}) {
		t.Fatalf("unexpected C %v", got)
	}
}

func TestBoardRestoreReinsertsAtOriginalIndex(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("w", "x", "y")})
	snap, _, err := b.Move("x", "B")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, _, err := b.Move("w", "B"); err != nil {
		t.Fatalf("Move(w) error = %v", err)
	}
	b.Restore(snap)
	if got := cardIDs(b.Cards["A"]); !equalIDs(got, []string{"y", "x"}) {
		t.Fatalf("expected x clamped into the shorter list, got %v", got)
	}
	if got := cardIDs(b.Cards["B"]); !equalIDs(got, []string{"w"}) {
		t.Fatalf("unexpected B %v", got)
	}
}

func TestBoardCloneIsIndependent(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}, {Key: "B"}}, map[string][]Card{"A": cards("x")})
	cp := b.Clone()
	if _, _, err := b.Move("x", "B"); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got := cardIDs(cp.Cards["A"]); !equalIDs(got, []string{"x"}) {
		t.Fatalf("expected clone to be unaffected, got %v", got)
	}
}

func TestBoardUpdateCard(t *testing.T) {
	b := MergeBoard([]ColumnMeta{{Key: "A"}}, map[string][]Card{"A": cards("x")})
	if !b.UpdateCard("x", func(c *Card) { c.MarkRead() }) {
		t.Fatal("expected card to be found")
	}
	c, key, ok := b.CardByID("x")
	if !ok || key != "A" || !c.IsRead {
		t.Fatalf("unexpected card %#v in %q", c, key)
	}
	if b.UpdateCard("missing", func(*Card) {}) {
		t.Fatal("expected missing card to report false")
	}
}
