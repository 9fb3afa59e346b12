package bridge

import "strings"

// BidSequence is an auction from its first call. Values are immutable:
// Append returns a new sequence and never touches the receiver.
type BidSequence struct {
	bids []Bid
}

// NewBidSequence wraps bids without checking legality. Use Append to build
// sequences that must respect the auction rules.
func NewBidSequence(bids ...Bid) BidSequence {
	if len(bids) == 0 {
		return BidSequence{}
	}
	cp := make([]Bid, len(bids))
	copy(cp, bids)
	return BidSequence{bids: cp}
}

// ParseBidSequence parses comma-separated calls. The empty string is the
// empty sequence.
func ParseBidSequence(s string) (BidSequence, error) {
	if s == "" {
		return BidSequence{}, nil
	}
	parts := strings.Split(s, ",")
	bids := make([]Bid, 0, len(parts))
	for _, part := range parts {
		b, err := ParseBid(part)
		if err != nil {
			return BidSequence{}, formatError("bid sequence", s, err.Error())
		}
		bids = append(bids, b)
	}
	return BidSequence{bids: bids}, nil
}

// MustBidSequence parses a sequence and panics on error.
func MustBidSequence(s string) BidSequence {
	seq, err := ParseBidSequence(s)
	if err != nil {
		panic(err)
	}
	return seq
}

// Bids returns a copy of the calls.
func (s BidSequence) Bids() []Bid {
	out := make([]Bid, len(s.bids))
	copy(out, s.bids)
	return out
}

// Len returns the number of calls made.
func (s BidSequence) Len() int {
	return len(s.bids)
}

// Equal reports whether both sequences hold the same calls.
func (s BidSequence) Equal(o BidSequence) bool {
	if len(s.bids) != len(o.bids) {
		return false
	}
	for i := range s.bids {
		if s.bids[i] != o.bids[i] {
			return false
		}
	}
	return true
}

func (s BidSequence) String() string {
	parts := make([]string, len(s.bids))
	for i, b := range s.bids {
		parts[i] = b.String()
	}
	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (s BidSequence) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BidSequence) UnmarshalText(text []byte) error {
	parsed, err := ParseBidSequence(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AUCTION RULES
// ══════════════════════════════════════════════════════════════════════════════

// IsFinished reports whether the auction has ended: either four passes
// opened it, or three passes followed a bid.
func (s BidSequence) IsFinished() bool {
	n := len(s.bids)
	if n < 4 {
		return false
	}
	if allPass(s.bids[:4]) {
		return true
	}
	return allPass(s.bids[n-3:])
}

func allPass(bids []Bid) bool {
	for _, b := range bids {
		if !b.IsPass() {
			return false
		}
	}
	return true
}

// lastNonPass returns the index and value of the most recent call that was
// not a Pass.
func (s BidSequence) lastNonPass() (int, Bid, bool) {
	for i := len(s.bids) - 1; i >= 0; i-- {
		if !s.bids[i].IsPass() {
			return i, s.bids[i], true
		}
	}
	return -1, Bid{}, false
}

// LastContract returns the highest contract named so far. Pass, Dbl and
// Rdbl never reset it.
func (s BidSequence) LastContract() (Contract, bool) {
	for i := len(s.bids) - 1; i >= 0; i-- {
		if c, ok := s.bids[i].Contract(); ok {
			return c, true
		}
	}
	return Contract{}, false
}

// Validate checks whether next may legally follow the sequence. The error,
// if any, is an *InvalidContinuationError naming the rule that failed.
//
// Dbl and Rdbl look at the last non-Pass call at index idx: the call is
// only allowed when (len - idx) is odd, i.e. that call came from the
// opposing side.
func (s BidSequence) Validate(next Bid) error {
	reject := func(r Reason) error {
		return &InvalidContinuationError{Reason: r, Bid: next, Sequence: s}
	}

	if s.IsFinished() {
		return reject(ReasonAuctionFinished)
	}

	curr := len(s.bids)
	idx, lnp, found := s.lastNonPass()

	switch next.Kind() {
	case KindPass:
		return nil

	case KindRedouble:
		if !found || !lnp.IsDouble() {
			return reject(ReasonNothingToRedouble)
		}
		if (curr-idx)%2 != 1 {
			return reject(ReasonRedoubleOwnSide)
		}
		return nil

	case KindDouble:
		if !found || !lnp.IsContract() {
			return reject(ReasonNothingToDouble)
		}
		if (curr-idx)%2 != 1 {
			return reject(ReasonDoubleOwnSide)
		}
		return nil

	case KindContract:
		c, _ := next.Contract()
		if last, ok := s.LastContract(); ok && !c.Outranks(last) {
			return reject(ReasonInsufficientBid)
		}
		return nil
	}

	return formatError("bid", next.String(), "unknown call")
}

// IsValid reports whether next is a legal continuation.
func (s BidSequence) IsValid(next Bid) bool {
	return s.Validate(next) == nil
}

// Append returns a new sequence with next added, or the validation error.
func (s BidSequence) Append(next Bid) (BidSequence, error) {
	if err := s.Validate(next); err != nil {
		return BidSequence{}, err
	}
	bids := make([]Bid, len(s.bids)+1)
	copy(bids, s.bids)
	bids[len(s.bids)] = next
	return BidSequence{bids: bids}, nil
}

// NextSeat returns the seat due to call, given who dealt.
func (s BidSequence) NextSeat(dealer Seat) Seat {
	return dealer.Offset(len(s.bids))
}

// LegalCalls lists every call that may follow the sequence, lowest first.
func (s BidSequence) LegalCalls() []Bid {
	if s.IsFinished() {
		return nil
	}
	calls := make([]Bid, 0, 38)
	for _, b := range []Bid{Pass, Double, Redouble} {
		if s.IsValid(b) {
			calls = append(calls, b)
		}
	}
	trumps := []Trump{SuitTrump(Clubs), SuitTrump(Diamonds), SuitTrump(Hearts), SuitTrump(Spades), NoTrump}
	for level := Level(1); level <= 7; level++ {
		for _, t := range trumps {
			b := ContractBid(Contract{Level: level, Trump: t})
			if s.IsValid(b) {
				calls = append(calls, b)
			}
		}
	}
	return calls
}
