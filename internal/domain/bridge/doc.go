// Package bridge models the cards and the auction of contract bridge.
//
// Everything here is a value type with no I/O:
//
//   - Rank, Suit, Card, Hand and Deck: the cards, a shuffle and a deal into
//     four disjoint hands. Hands round-trip through the "S|H|D|C" text form.
//   - Seat and Vulnerability.
//   - Level, Trump, Contract and Bid: the calls. Suit and denomination
//     ranking comes from explicit tables, not from constant order.
//   - BidSequence: the auction state machine. Validate explains why a call
//     is illegal, Append extends a sequence, IsFinished detects the end.
//
// Parse failures are *FormatError (errors.Is shared.ErrInvalidFormat) and
// illegal calls are *InvalidContinuationError (errors.Is
// shared.ErrInvalidContinuation).
package bridge
