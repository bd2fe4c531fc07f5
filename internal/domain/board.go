package domain

import "slices"

// Board maps column keys to their ordered cards.
type Board struct {
	Columns []ColumnMeta
	Cards   map[string][]Card
}

// MergeBoard combines column metadata with the backend grouping.
// Every meta key gets an entry, backend lists overwrite the empty defaults,
// and backend keys absent from meta are kept. A card listed under several
// columns stays only in the first one by board order.
func MergeBoard(meta []ColumnMeta, grouped map[string][]Card) Board {
	b := Board{Columns: slices.Clone(meta), Cards: make(map[string][]Card, len(meta)+len(grouped))}
	for _, m := range meta {
		b.Cards[m.Key] = []Card{}
	}
	for key := range grouped {
		if _, ok := b.Cards[key]; !ok {
			b.Cards[key] = []Card{}
		}
	}
	seen := make(map[string]struct{})
	for _, key := range b.Keys() {
		for _, c := range grouped[key] {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			b.Cards[key] = append(b.Cards[key], c)
		}
	}
	return b
}

// Keys returns the board column keys in display order, followed by any
// backend-only keys in sorted order.
func (b Board) Keys() []string {
	out := make([]string, 0, len(b.Cards))
	seen := make(map[string]struct{}, len(b.Columns))
	for _, m := range b.Columns {
		out = append(out, m.Key)
		seen[m.Key] = struct{}{}
	}
	extra := make([]string, 0)
	for key := range b.Cards {
		if _, ok := seen[key]; !ok {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// MetaFor returns the metadata for key, synthesizing a label when meta is absent.
func (b Board) MetaFor(key string) ColumnMeta {
	for _, m := range b.Columns {
		if m.Key == key {
			return m
		}
	}
	return ColumnMeta{Key: key, Label: key}
}

// FindContainer resolves id to a column key: either id is itself a key or it
// names a card in that column. Columns are searched in board order.
func (b Board) FindContainer(id string) (string, bool) {
	if _, ok := b.Cards[id]; ok {
		return id, true
	}
	if _, key, ok := b.CardByID(id); ok {
		return key, true
	}
	return "", false
}

// CardByID returns the card with id and its column key.
func (b Board) CardByID(id string) (Card, string, bool) {
	for _, key := range b.Keys() {
		for _, c := range b.Cards[key] {
			if c.ID == id {
				return c, key, true
			}
		}
	}
	return Card{}, "", false
}

// UpdateCard applies fn to the card with id in place.
func (b Board) UpdateCard(id string, fn func(*Card)) bool {
	for key, list := range b.Cards {
		for i := range list {
			if list[i].ID == id {
				fn(&b.Cards[key][i])
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the board lists.
func (b Board) Clone() Board {
	cards := make(map[string][]Card, len(b.Cards))
	for key, list := range b.Cards {
		cards[key] = slices.Clone(list)
	}
	return Board{Columns: slices.Clone(b.Columns), Cards: cards}
}

// MoveSnapshot records where a moved card sat before the move.
type MoveSnapshot struct {
	CardID string
	From   string
	To     string
	// Index is the card's position in From before the move.
	Index int
	card  Card
}

// Move splices the card out of its current column and appends it to the
// destination column. overID may be a column key or the id of a card in the
// destination. A move within the same column is a no-op and returns ok=false.
func (b Board) Move(cardID, overID string) (MoveSnapshot, bool, error) {
	from, ok := b.FindContainer(cardID)
	if !ok || from == cardID {
		return MoveSnapshot{}, false, ErrCardNotFound
	}
	to, ok := b.FindContainer(overID)
	if !ok {
		return MoveSnapshot{}, false, ErrUnknownColumn
	}
	if from == to {
		return MoveSnapshot{}, false, nil
	}
	src := b.Cards[from]
	idx := slices.IndexFunc(src, func(c Card) bool { return c.ID == cardID })
	moved := src[idx]
	b.Cards[from] = slices.Delete(slices.Clone(src), idx, idx+1)
	b.Cards[to] = append(slices.Clone(b.Cards[to]), moved)
	return MoveSnapshot{CardID: cardID, From: from, To: to, Index: idx, card: moved}, true, nil
}

// Restore undoes the move recorded by snap for that card only: the card is
// taken out of whatever column holds it now and reinserted at its old index
// in From. Other cards are left where they are.
func (b Board) Restore(snap MoveSnapshot) {
	if snap.CardID == "" {
		return
	}
	card := snap.card
	for key, list := range b.Cards {
		idx := slices.IndexFunc(list, func(c Card) bool { return c.ID == snap.CardID })
		if idx < 0 {
			continue
		}
		card = list[idx]
		b.Cards[key] = slices.Delete(slices.Clone(list), idx, idx+1)
	}
	if card.ID == "" {
		card.ID = snap.CardID
	}
	dst := slices.Clone(b.Cards[snap.From])
	at := min(max(snap.Index, 0), len(dst))
	b.Cards[snap.From] = slices.Insert(dst, at, card)
}

// CardCount returns the number of cards across all columns.
func (b Board) CardCount() int {
	n := 0
	for _, list := range b.Cards {
		n += len(list)
	}
	return n
}
