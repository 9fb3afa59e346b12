package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

func TestParseEmail(t *testing.T) {
	e, err := ParseEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, Email("alice@example.com"), e)

	for _, bad := range []string{"", "alice", "alice@", "Alice <alice@example.com>", "a b@example.com"} {
		_, err := ParseEmail(bad)
		assert.ErrorIs(t, err, shared.ErrInvalidEmail, bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.ErrorIs(t, ValidatePassword("short"), shared.ErrWeakPassword)
	assert.True(t, shared.IsValidation(ValidatePassword("")))
}

func TestNewLearner(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	l, err := NewLearner(NewLearnerParams{ID: "l-1", Email: "a@b.co", PasswordHash: []byte("hash"), Now: now})
	require.NoError(t, err)
	assert.Equal(t, now, l.CreatedAt)
	assert.Equal(t, now, l.LastActive)

	_, err = NewLearner(NewLearnerParams{Email: "a@b.co", PasswordHash: []byte("hash"), Now: now})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewLearner(NewLearnerParams{ID: "l-1", Email: "a@b.co", Now: now})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestTouch(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	l := &Learner{LastActive: now}

	l.Touch(now.Add(-time.Hour))
	assert.Equal(t, now, l.LastActive)

	l.Touch(now.Add(time.Minute))
	assert.Equal(t, now.Add(time.Minute), l.LastActive)
}
