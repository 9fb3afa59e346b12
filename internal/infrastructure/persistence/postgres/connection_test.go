package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

func TestMigrationsAreOrdered(t *testing.T) {
	migrations := GetMigrations()
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Name)
		assert.NotEmpty(t, m.UpSQL, m.Name)
	}
}

func TestMissingParentUsesConstraintName(t *testing.T) {
	learnerErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503", ConstraintName: "fk_exercise_bids_learner"})
	assert.ErrorIs(t, missingParent(learnerErr), shared.ErrLearnerNotFound)

	commentErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_comments_learner"}
	assert.ErrorIs(t, missingParent(commentErr), shared.ErrLearnerNotFound)

	exerciseErr := &pgconn.PgError{Code: "23503", ConstraintName: "exercise_bids_exercise_id_fkey"}
	assert.ErrorIs(t, missingParent(exerciseErr), shared.ErrExerciseNotFound)

	assert.Empty(t, ForeignKeyConstraint(errors.New("boom")))
	assert.True(t, IsForeignKeyViolation(learnerErr))
}

func TestHealthStatusString(t *testing.T) {
	ok := &HealthStatus{Healthy: true, PingLatency: 1500 * time.Microsecond, AcquiredConns: 2, MaxConns: 10, IdleConns: 3}
	assert.Equal(t, "ping 1.5ms, 2/10 conns acquired, 3 idle", ok.String())

	bad := &HealthStatus{Error: "connection refused"}
	assert.Equal(t, "unhealthy: connection refused", bad.String())
}
