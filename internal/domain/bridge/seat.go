package bridge

import "strings"

// Seat is a position at the table.
type Seat uint8

const (
	North Seat = iota
	East
	South
	West
)

// Seats lists the seats in their fixed cyclic order.
var Seats = [4]Seat{North, East, South, West}

var seatNames = [4]string{"North", "East", "South", "West"}

// IsValid reports whether s is one of the four seats.
func (s Seat) IsValid() bool {
	return s <= West
}

// Next returns the seat to the left, wrapping from West to North.
func (s Seat) Next() Seat {
	return (s + 1) % 4
}

// Offset returns the seat n places after s.
func (s Seat) Offset(n int) Seat {
	return Seat((int(s) + n%4 + 4) % 4)
}

// Initial returns the one-letter seat label used in table headers.
func (s Seat) Initial() string {
	return s.String()[:1]
}

func (s Seat) String() string {
	if s.IsValid() {
		return seatNames[s]
	}
	return "Unknown"
}

// ParseSeat accepts a seat name ("North") or its initial ("N").
func ParseSeat(text string) (Seat, error) {
	for _, s := range Seats {
		if strings.EqualFold(text, s.String()) || strings.EqualFold(text, s.Initial()) {
			return s, nil
		}
	}
	return 0, formatError("seat", text, "expected North, East, South or West")
}

// MarshalText implements encoding.TextMarshaler.
func (s Seat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seat) UnmarshalText(text []byte) error {
	parsed, err := ParseSeat(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Vulnerability says which partnerships are vulnerable on a deal.
type Vulnerability uint8

const (
	Neither Vulnerability = iota
	NorthSouth
	EastWest
	Both
)

var vulnerabilityNames = map[Vulnerability]string{
	Neither:    "None",
	NorthSouth: "NS",
	EastWest:   "EW",
	Both:       "Both",
}

func (v Vulnerability) String() string {
	if name, ok := vulnerabilityNames[v]; ok {
		return name
	}
	return "Unknown"
}

// ParseVulnerability parses "NS", "EW", "Both" or "None" ("Neither" is also accepted).
func ParseVulnerability(text string) (Vulnerability, error) {
	if text == "Neither" {
		return Neither, nil
	}
	for v, name := range vulnerabilityNames {
		if name == text {
			return v, nil
		}
	}
	return 0, formatError("vulnerability", text, "expected NS, EW, Both or None")
}

// MarshalText implements encoding.TextMarshaler.
func (v Vulnerability) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Vulnerability) UnmarshalText(text []byte) error {
	parsed, err := ParseVulnerability(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
