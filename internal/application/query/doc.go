// Package query contains read operations (CQRS - Queries).
//
// NextExercise is the one query that may write: when a learner has seen
// everything available it deals a fresh board.
package query

import "time"

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	GenerateID() string
}

// Clock returns the current time. Handlers default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
