package bridge

import (
	"fmt"
	"math/rand/v2"
)

// Deal is one distribution of the deck plus the dealer and vulnerability.
// Hands are indexed by Seat.
type Deal struct {
	Dealer     Seat
	Vulnerable Vulnerability
	Hands      [4]Hand
}

// RandomDeal shuffles a fresh deck and deals it with North as dealer and
// nobody vulnerable.
func RandomDeal(rng *rand.Rand) Deal {
	deck := NewDeck()
	deck.Shuffle(rng)
	return Deal{
		Dealer:     North,
		Vulnerable: Neither,
		Hands:      deck.Deal(),
	}
}

// NewDeal assembles a deal from existing hands and checks it.
func NewDeal(dealer Seat, vul Vulnerability, hands [4]Hand) (Deal, error) {
	d := Deal{Dealer: dealer, Vulnerable: vul, Hands: hands}
	if err := d.Validate(); err != nil {
		return Deal{}, err
	}
	return d, nil
}

// Hand returns the cards held at seat.
func (d Deal) Hand(seat Seat) Hand {
	return d.Hands[seat]
}

// Validate checks that the four hands are disjoint 13-card hands covering
// the whole deck.
func (d Deal) Validate() error {
	if !d.Dealer.IsValid() {
		return formatError("deal", d.Dealer.String(), "unknown dealer")
	}
	seen := make(map[Card]Seat, DeckSize)
	for _, seat := range Seats {
		h := d.Hands[seat]
		if h.Len() != HandSize {
			return formatError("deal", h.String(), fmt.Sprintf("%s holds %d cards", seat, h.Len()))
		}
		for _, c := range h.cards {
			if other, dup := seen[c]; dup {
				return formatError("deal", c.String(), fmt.Sprintf("dealt to both %s and %s", other, seat))
			}
			seen[c] = seat
		}
	}
	return nil
}
