package render

import (
	"bytes"
	"sync"
)

// View is an in-memory Container. It is safe for concurrent use.
type View struct {
	mu    sync.Mutex
	cards []Card
}

// NewView returns an empty view.
func NewView() *View {
	return &View{}
}

// Clear implements Container.
func (v *View) Clear() {
	v.mu.Lock()
	v.cards = nil
	v.mu.Unlock()
}

// Append implements Container.
func (v *View) Append(card Card) {
	v.mu.Lock()
	v.cards = append(v.cards, card)
	v.mu.Unlock()
}

// Cards returns a copy of the current cards.
func (v *View) Cards() []Card {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Card(nil), v.cards...)
}

// Len returns the number of cards shown.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cards)
}

// HTML renders the current cards.
func (v *View) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCards(&buf, v.Cards()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
