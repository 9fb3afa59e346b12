package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
)

type stubSessions struct{ issued []string }

func (s *stubSessions) Issue(learnerID string, now time.Time) (string, time.Time, error) {
	s.issued = append(s.issued, learnerID)
	return "token-for-" + learnerID, now.Add(time.Hour), nil
}

func TestRegisterAndLogin(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	register := NewRegisterLearnerHandler(store, &seqIDs{}, fixedClock, bcrypt.MinCost)

	l, err := register.Handle(ctx, RegisterLearnerCommand{Email: " Alice@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", l.Email.String())
	assert.NotEqual(t, []byte("correct horse"), l.PasswordHash)

	_, err = register.Handle(ctx, RegisterLearnerCommand{Email: "alice@example.com", Password: "another one"})
	assert.True(t, shared.IsAlreadyExists(err))

	sessions := &stubSessions{}
	login := NewLoginLearnerHandler(store, sessions, fixedClock)

	res, err := login.Handle(ctx, LoginLearnerCommand{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, l.ID, res.LearnerID)
	assert.Equal(t, "token-for-"+l.ID, res.Token)
	assert.Equal(t, testNow.Add(time.Hour), res.ExpiresAt)

	_, err = login.Handle(ctx, LoginLearnerCommand{Email: "alice@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.True(t, shared.IsUnauthorized(err))

	_, err = login.Handle(ctx, LoginLearnerCommand{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	assert.Equal(t, []string{l.ID}, sessions.issued)
}

func TestRegisterValidation(t *testing.T) {
	register := NewRegisterLearnerHandler(memory.NewStore(), &seqIDs{}, fixedClock, bcrypt.MinCost)
	ctx := context.Background()

	_, err := register.Handle(ctx, RegisterLearnerCommand{Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)

	_, err = register.Handle(ctx, RegisterLearnerCommand{Email: "a@b.co", Password: "short"})
	assert.ErrorIs(t, err, shared.ErrWeakPassword)
}

func TestAddComment(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	seedLearner(t, store, "alice")
	h := NewAddCommentHandler(store, store, &seqIDs{}, fixedClock)
	ctx := context.Background()

	c, err := h.Handle(ctx, AddCommentCommand{ExerciseID: "root", LearnerID: "alice", Text: "2C here?"})
	require.NoError(t, err)
	assert.Equal(t, "2C here?", c.Text)

	list, err := store.ListCommentsByExercise(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.Handle(ctx, AddCommentCommand{ExerciseID: "root", LearnerID: "alice", Text: " "})
	assert.ErrorIs(t, err, shared.ErrEmptyComment)

	_, err = h.Handle(ctx, AddCommentCommand{ExerciseID: "nope", LearnerID: "alice", Text: "hi"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, AddCommentCommand{ExerciseID: "root", LearnerID: "ghost", Text: "hi"})
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	list, err = store.ListCommentsByExercise(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
