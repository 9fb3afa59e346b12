// Package practice holds the exercise tree: stored deals, exercises (a deal
// plus a partial auction), the calls learners make against them, and
// comments.
//
// Exercises form an append-only forest rooted at deals. A root exercise has
// an empty auction; every other exercise carries its parent's auction plus
// one legal call, and records the ExerciseBid that produced it. Links are
// ids, never pointers.
//
// The package defines the Repository/Store collaborator and a Locker used
// to serialise per-learner scheduling; implementations live under
// internal/infrastructure.
package practice
