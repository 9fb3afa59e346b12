// Package learner models the people who practice: their login identity and
// when they were last active. Password hashing and session tokens are
// handled outside the domain.
package learner
