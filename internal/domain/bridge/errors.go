package bridge

import (
	"fmt"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// FormatError reports text that could not be parsed into a bridge value.
// It matches shared.ErrInvalidFormat under errors.Is.
type FormatError struct {
	What   string // "hand", "bid", "contract", ...
	Input  string
	Reason string
}

func formatError(what, input, reason string) *FormatError {
	return &FormatError{What: what, Input: input, Reason: reason}
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("bridge: invalid %s %q: %s", e.What, e.Input, e.Reason)
}

// Is implements errors.Is() matching.
func (e *FormatError) Is(target error) bool {
	return target == shared.ErrInvalidFormat
}

// Reason names the auction rule a rejected call violated.
type Reason string

const (
	ReasonAuctionFinished   Reason = "auction_finished"
	ReasonNothingToDouble   Reason = "nothing_to_double"
	ReasonDoubleOwnSide     Reason = "double_own_side"
	ReasonNothingToRedouble Reason = "nothing_to_redouble"
	ReasonRedoubleOwnSide   Reason = "redouble_own_side"
	ReasonInsufficientBid   Reason = "insufficient_bid"
)

var reasonMessages = map[Reason]string{
	ReasonAuctionFinished:   "the auction is already over",
	ReasonNothingToDouble:   "double not available here: there is no contract to double",
	ReasonDoubleOwnSide:     "double not available here: the last contract was bid by your side",
	ReasonNothingToRedouble: "redouble not available here: the last call was not a double",
	ReasonRedoubleOwnSide:   "redouble not available here: the double was made by your side",
	ReasonInsufficientBid:   "the bid does not outrank the last contract",
}

// Message returns the learner-facing explanation of the rule.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// InvalidContinuationError is returned when a call is not a legal
// continuation of an auction. It matches shared.ErrInvalidContinuation.
type InvalidContinuationError struct {
	Reason   Reason
	Bid      Bid
	Sequence BidSequence
}

// Error implements the error interface.
func (e *InvalidContinuationError) Error() string {
	return fmt.Sprintf("bridge: %s cannot follow [%s]: %s", e.Bid, e.Sequence, e.Reason.Message())
}

// Is implements errors.Is() matching.
func (e *InvalidContinuationError) Is(target error) bool {
	return target == shared.ErrInvalidContinuation
}
