package catalog

// Catalog is an insertion-ordered mapping of Key to Card.
type Catalog struct {
	order []Key
	cards map[Key]*Card
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{cards: make(map[Key]*Card)}
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Get returns the card stored under key.
func (c *Catalog) Get(key Key) (*Card, bool) {
	card, ok := c.cards[key]
	return card, ok
}

// Put stores card under its key. New keys are appended; existing keys keep
// their position.
func (c *Catalog) Put(card *Card) {
	if _, ok := c.cards[card.Key]; !ok {
		c.order = append(c.order, card.Key)
	}
	c.cards[card.Key] = card
}

// Keys returns the keys in catalog order.
func (c *Catalog) Keys() []Key {
	out := make([]Key, len(c.order))
	copy(out, c.order)
	return out
}

// Cards returns the cards in catalog order.
func (c *Catalog) Cards() []*Card {
	out := make([]*Card, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.cards[k])
	}
	return out
}

// Variants returns every card sharing number, in catalog order.
func (c *Catalog) Variants(number string) []*Card {
	var out []*Card
	for _, k := range c.order {
		if k.Number == number {
			out = append(out, c.cards[k])
		}
	}
	return out
}

// Clone returns a deep copy that shares nothing with c.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		order: make([]Key, len(c.order)),
		cards: make(map[Key]*Card, len(c.cards)),
	}
	copy(out.order, c.order)
	for k, card := range c.cards {
		out.cards[k] = card.Clone()
	}
	return out
}

// Filter selects cards by number and/or expansion. Empty fields match all.
type Filter struct {
	Number    string `json:"number,omitempty" yaml:"number,omitempty"`
	Expansion string `json:"expansion,omitempty" yaml:"expansion,omitempty"`
}

// IsZero reports whether the filter matches every card.
func (f Filter) IsZero() bool {
	return f.Number == "" && f.Expansion == ""
}

// Match reports whether card passes the filter.
func (f Filter) Match(card *Card) bool {
	if f.Number != "" && card.Number != f.Number {
		return false
	}
	if f.Expansion != "" && card.ExpansionCode() != f.Expansion {
		return false
	}
	return true
}
