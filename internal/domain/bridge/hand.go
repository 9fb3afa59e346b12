package bridge

import (
	"fmt"
	"sort"
	"strings"
)

// HandSize is the number of cards dealt to each seat.
const HandSize = 13

// Hand is a set of 13 distinct cards, stored from highest to lowest.
type Hand struct {
	cards []Card
}

// NewHand builds a hand from exactly 13 distinct cards.
func NewHand(cards []Card) (Hand, error) {
	if len(cards) != HandSize {
		return Hand{}, formatError("hand", fmt.Sprint(cards), fmt.Sprintf("expected %d cards, got %d", HandSize, len(cards)))
	}
	seen := make(map[Card]struct{}, len(cards))
	for _, c := range cards {
		if !c.Rank.IsValid() || !c.Suit.IsValid() {
			return Hand{}, formatError("hand", fmt.Sprint(cards), "unknown card")
		}
		if _, dup := seen[c]; dup {
			return Hand{}, formatError("hand", fmt.Sprint(cards), "duplicate card "+c.String())
		}
		seen[c] = struct{}{}
	}
	return sortedHand(cards), nil
}

// sortedHand copies and sorts cards without validation; callers guarantee
// the cards are distinct.
func sortedHand(cards []Card) Hand {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[j].Less(sorted[i])
	})
	return Hand{cards: sorted}
}

// ParseHand parses the canonical "S|H|D|C" text form. Each group is a run of
// rank symbols; a group may be empty for a void suit.
func ParseHand(s string) (Hand, error) {
	groups := strings.Split(s, "|")
	if len(groups) != len(DisplaySuits) {
		return Hand{}, formatError("hand", s, fmt.Sprintf("expected 4 suit groups, got %d", len(groups)))
	}

	cards := make([]Card, 0, HandSize)
	for i, suit := range DisplaySuits {
		for _, sym := range groups[i] {
			rank, err := ParseRank(string(sym))
			if err != nil {
				return Hand{}, formatError("hand", s, fmt.Sprintf("unknown rank %q in %s group", sym, suit))
			}
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}

	h, err := NewHand(cards)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Input = s
		}
		return Hand{}, err
	}
	return h, nil
}

// Cards returns a copy of the cards, highest first.
func (h Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards in the hand.
func (h Hand) Len() int {
	return len(h.cards)
}

// Holding returns the cards of one suit, highest first.
func (h Hand) Holding(suit Suit) []Card {
	var out []Card
	for _, c := range h.cards {
		if c.Suit == suit {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether the hand holds the card.
func (h Hand) Contains(card Card) bool {
	for _, c := range h.cards {
		if c == card {
			return true
		}
	}
	return false
}

// Equal reports whether both hands hold the same cards.
func (h Hand) Equal(o Hand) bool {
	if len(h.cards) != len(o.cards) {
		return false
	}
	for i := range h.cards {
		if h.cards[i] != o.cards[i] {
			return false
		}
	}
	return true
}

// HighCardPoints counts A=4, K=3, Q=2, J=1.
func (h Hand) HighCardPoints() int {
	points := 0
	for _, c := range h.cards {
		switch c.Rank {
		case Ace:
			points += 4
		case King:
			points += 3
		case Queen:
			points += 2
		case Jack:
			points++
		}
	}
	return points
}

// String returns the canonical "S|H|D|C" form with ranks high to low.
func (h Hand) String() string {
	var b strings.Builder
	for i, suit := range DisplaySuits {
		if i > 0 {
			b.WriteByte('|')
		}
		for _, c := range h.Holding(suit) {
			b.WriteString(c.Rank.String())
		}
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (h Hand) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hand) UnmarshalText(text []byte) error {
	parsed, err := ParseHand(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
