package domain

// MaxSelectedCoins is the maximum number of coins a user can pick for one creation.
const MaxSelectedCoins = 2

// SelectionSet is an ordered set of at most MaxSelectedCoins coins chosen by the
// user. Order determines display index only, not generation semantics.
type SelectionSet struct {
	coins []Coin
}

// NewSelectionSet creates an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{}
}

// Add appends a coin to the selection. Adding a coin whose ID is already selected,
// or adding beyond capacity, is a no-op and returns false.
func (s *SelectionSet) Add(c Coin) bool {
	if len(s.coins) >= MaxSelectedCoins {
		return false
	}
	for _, existing := range s.coins {
		if existing.ID == c.ID {
			return false
		}
	}
	s.coins = append(s.coins, c)
	return true
}

// Remove drops the coin with the given ID. Removing a non-member is a no-op and
// returns false.
func (s *SelectionSet) Remove(id string) bool {
	for i, c := range s.coins {
		if c.ID == id {
			s.coins = append(s.coins[:i], s.coins[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether the coin with the given ID is selected.
func (s *SelectionSet) Contains(id string) bool {
	for _, c := range s.coins {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Index returns the display index (0-based) of the coin with the given ID,
// or -1 if it is not selected.
func (s *SelectionSet) Index(id string) int {
	for i, c := range s.coins {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of selected coins.
func (s *SelectionSet) Len() int {
	return len(s.coins)
}

// Coins returns a copy of the selected coins in display order.
func (s *SelectionSet) Coins() []Coin {
	out := make([]Coin, len(s.coins))
	copy(out, s.coins)
	return out
}

// Clear empties the selection. Called after a successful mint completion.
func (s *SelectionSet) Clear() {
	s.coins = nil
}
