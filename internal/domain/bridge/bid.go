package bridge

// BidKind distinguishes the four sorts of call.
type BidKind uint8

const (
	KindPass BidKind = iota + 1
	KindDouble
	KindRedouble
	KindContract
)

// Bid is a single call in an auction: Pass, Double, Redouble or a contract.
// The zero value is not a valid bid.
type Bid struct {
	kind     BidKind
	contract Contract
}

var (
	Pass     = Bid{kind: KindPass}
	Double   = Bid{kind: KindDouble}
	Redouble = Bid{kind: KindRedouble}
)

// ContractBid returns the call naming c.
func ContractBid(c Contract) Bid {
	return Bid{kind: KindContract, contract: c}
}

// Kind returns the sort of call.
func (b Bid) Kind() BidKind { return b.kind }

func (b Bid) IsPass() bool     { return b.kind == KindPass }
func (b Bid) IsDouble() bool   { return b.kind == KindDouble }
func (b Bid) IsRedouble() bool { return b.kind == KindRedouble }
func (b Bid) IsContract() bool { return b.kind == KindContract }

// Contract returns the named contract; ok is false for Pass, Dbl and Rdbl.
func (b Bid) Contract() (Contract, bool) {
	return b.contract, b.kind == KindContract
}

func (b Bid) String() string {
	switch b.kind {
	case KindPass:
		return "Pass"
	case KindDouble:
		return "Dbl"
	case KindRedouble:
		return "Rdbl"
	case KindContract:
		return b.contract.String()
	}
	return ""
}

// ParseBid parses "Pass" (or "P"), "Dbl", "Rdbl", or a contract such as "4S".
func ParseBid(s string) (Bid, error) {
	switch s {
	case "Pass", "P":
		return Pass, nil
	case "Dbl":
		return Double, nil
	case "Rdbl":
		return Redouble, nil
	}
	c, err := ParseContract(s)
	if err != nil {
		return Bid{}, formatError("bid", s, "expected Pass, Dbl, Rdbl or a contract like 1NT")
	}
	return ContractBid(c), nil
}

// MustBid parses a bid and panics on error.
func MustBid(s string) Bid {
	b, err := ParseBid(s)
	if err != nil {
		panic(err)
	}
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (b Bid) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bid) UnmarshalText(text []byte) error {
	parsed, err := ParseBid(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
