package bridge

import "strconv"

// Level is the number of odd tricks a contract names, 1 through 7.
type Level uint8

// IsValid reports whether l is between 1 and 7.
func (l Level) IsValid() bool {
	return l >= 1 && l <= 7
}

func (l Level) String() string {
	return strconv.Itoa(int(l))
}

// Trump is a denomination: one of the four suits, or no-trump.
// The zero value is NoTrump.
type Trump struct {
	suit Suit
}

// NoTrump is the no-trump denomination.
var NoTrump = Trump{}

// SuitTrump returns the denomination for a suit.
func SuitTrump(s Suit) Trump {
	return Trump{suit: s}
}

// IsNoTrump reports whether t is no-trump.
func (t Trump) IsNoTrump() bool {
	return t.suit == 0
}

// Suit returns the trump suit; ok is false for no-trump.
func (t Trump) Suit() (Suit, bool) {
	return t.suit, !t.IsNoTrump()
}

// noTrumpRank sits above every suit rank.
const noTrumpRank = 4

// Rank returns the denomination ranking: C=0, D=1, H=2, S=3, NT=4.
func (t Trump) Rank() int {
	if t.IsNoTrump() {
		return noTrumpRank
	}
	return t.suit.Rank()
}

func (t Trump) String() string {
	if t.IsNoTrump() {
		return "NT"
	}
	return t.suit.String()
}

// ParseTrump parses "C", "D", "H", "S" or "NT".
func ParseTrump(s string) (Trump, error) {
	if s == "NT" {
		return NoTrump, nil
	}
	suit, err := ParseSuit(s)
	if err != nil {
		return Trump{}, formatError("trump", s, "expected one of C D H S NT")
	}
	return SuitTrump(suit), nil
}

// Contract is a level and a denomination, e.g. 3NT.
type Contract struct {
	Level Level
	Trump Trump
}

// NewContract validates the level and builds a contract.
func NewContract(level Level, trump Trump) (Contract, error) {
	if !level.IsValid() {
		return Contract{}, formatError("contract", level.String()+trump.String(), "level must be 1-7")
	}
	if s, ok := trump.Suit(); ok && !s.IsValid() {
		return Contract{}, formatError("contract", level.String()+trump.String(), "unknown suit")
	}
	return Contract{Level: level, Trump: trump}, nil
}

// MustContract parses a contract and panics on error. Intended for tests and
// fixed tables.
func MustContract(s string) Contract {
	c, err := ParseContract(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Compare orders contracts by level, then by denomination rank.
// It returns -1, 0 or +1.
func (c Contract) Compare(o Contract) int {
	switch {
	case c.Level < o.Level:
		return -1
	case c.Level > o.Level:
		return 1
	}
	cr, or := c.Trump.Rank(), o.Trump.Rank()
	switch {
	case cr < or:
		return -1
	case cr > or:
		return 1
	}
	return 0
}

// Outranks reports whether c is strictly higher than o.
func (c Contract) Outranks(o Contract) bool {
	return c.Compare(o) > 0
}

func (c Contract) String() string {
	return c.Level.String() + c.Trump.String()
}

// ParseContract parses a level digit followed by a denomination, e.g. "1NT".
func ParseContract(s string) (Contract, error) {
	if len(s) < 2 {
		return Contract{}, formatError("contract", s, "must be a level 1-7 followed by C, D, H, S or NT")
	}
	n, err := strconv.Atoi(s[:1])
	if err != nil || !Level(n).IsValid() {
		return Contract{}, formatError("contract", s, "level must be 1-7")
	}
	trump, err := ParseTrump(s[1:])
	if err != nil {
		return Contract{}, formatError("contract", s, "denomination must be C, D, H, S or NT")
	}
	return Contract{Level: Level(n), Trump: trump}, nil
}
