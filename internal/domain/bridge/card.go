package bridge

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// RANK
// ══════════════════════════════════════════════════════════════════════════════

// Rank is a card rank. Its numeric value is the pip value (Two=2 … Ace=14),
// so comparing two ranks compares their values directly.
type Rank uint8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// RanksHighToLow lists every rank from Ace down to Two.
var RanksHighToLow = [13]Rank{Ace, King, Queen, Jack, Ten, Nine, Eight, Seven, Six, Five, Four, Three, Two}

var rankSymbols = map[Rank]byte{
	Ace: 'A', King: 'K', Queen: 'Q', Jack: 'J', Ten: 'T',
	Nine: '9', Eight: '8', Seven: '7', Six: '6', Five: '5',
	Four: '4', Three: '3', Two: '2',
}

// IsValid reports whether r is one of the 13 ranks.
func (r Rank) IsValid() bool {
	return r >= Two && r <= Ace
}

// String returns the single-character rank symbol.
func (r Rank) String() string {
	if sym, ok := rankSymbols[r]; ok {
		return string(sym)
	}
	return "?"
}

// ParseRank parses a single rank symbol (A K Q J T 9 … 2).
func ParseRank(s string) (Rank, error) {
	if len(s) == 1 {
		for r, sym := range rankSymbols {
			if sym == s[0] {
				return r, nil
			}
		}
	}
	return 0, formatError("rank", s, "expected one of A K Q J T 9 8 7 6 5 4 3 2")
}

// ══════════════════════════════════════════════════════════════════════════════
// SUIT
// ══════════════════════════════════════════════════════════════════════════════

// Suit is one of the four card suits. Constants are declared in display
// order; ranking goes through Suit.Rank and never through the constant value.
type Suit uint8

const (
	Spades Suit = iota + 1
	Hearts
	Diamonds
	Clubs
)

// DisplaySuits is the fixed order used for hand text: Spades|Hearts|Diamonds|Clubs.
var DisplaySuits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// suitRanks is the auction ranking of the suits: Clubs < Diamonds < Hearts < Spades.
var suitRanks = map[Suit]int{
	Clubs:    0,
	Diamonds: 1,
	Hearts:   2,
	Spades:   3,
}

var suitSymbols = map[Suit]string{
	Spades:   "S",
	Hearts:   "H",
	Diamonds: "D",
	Clubs:    "C",
}

// IsValid reports whether s is one of the four suits.
func (s Suit) IsValid() bool {
	_, ok := suitRanks[s]
	return ok
}

// Rank returns the suit's position in the auction ranking (Clubs=0 … Spades=3).
// It returns -1 for an invalid suit.
func (s Suit) Rank() int {
	if r, ok := suitRanks[s]; ok {
		return r
	}
	return -1
}

// String returns the suit symbol.
func (s Suit) String() string {
	if sym, ok := suitSymbols[s]; ok {
		return sym
	}
	return "?"
}

// ParseSuit parses a suit symbol (S, H, D, C).
func ParseSuit(s string) (Suit, error) {
	for suit, sym := range suitSymbols {
		if sym == s {
			return suit, nil
		}
	}
	return 0, formatError("suit", s, "expected one of S H D C")
}

// ══════════════════════════════════════════════════════════════════════════════
// CARD
// ══════════════════════════════════════════════════════════════════════════════

// Card is a single playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard builds a card, rejecting unknown ranks or suits.
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.IsValid() {
		return Card{}, formatError("card", fmt.Sprintf("%d", rank), "rank out of range")
	}
	if !suit.IsValid() {
		return Card{}, formatError("card", fmt.Sprintf("%d", suit), "suit out of range")
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// Less orders cards by rank first, then by suit rank.
func (c Card) Less(o Card) bool {
	if c.Rank != o.Rank {
		return c.Rank < o.Rank
	}
	return c.Suit.Rank() < o.Suit.Rank()
}

// String returns the rank symbol followed by the suit symbol, e.g. "AS".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}
