package bridge

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// Deck is an ordered arrangement of all 52 cards.
type Deck [DeckSize]Card

// NewDeck returns the deck in a fixed order: suits in display order, each
// from Ace down to Two.
func NewDeck() Deck {
	var d Deck
	i := 0
	for _, suit := range DisplaySuits {
		for _, rank := range RanksHighToLow {
			d[i] = Card{Rank: rank, Suit: suit}
			i++
		}
	}
	return d
}

// NewRand returns a ChaCha8 generator seeded from system entropy. Its 256-bit
// seed is larger than log2(52!), so every deck ordering is reachable.
func NewRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// Shuffle permutes the deck in place with a Fisher-Yates shuffle.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) {
		d[i], d[j] = d[j], d[i]
	})
}

// Deal partitions the deck into four consecutive 13-card hands, in seat
// order North, East, South, West.
func (d Deck) Deal() [4]Hand {
	var hands [4]Hand
	for seat := range hands {
		start := seat * HandSize
		hands[seat] = sortedHand(d[start : start+HandSize])
	}
	return hands
}
