package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/postgres"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

func TestOpenStorageMemory(t *testing.T) {
	s, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory}, 1, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Pinger)
	learners, err := s.Learners.List(context.Background(), learner.DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, learners)
}

func TestOpenStorageSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.db")
	s, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path}, 1, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Pinger)
	assert.NoError(t, s.Pinger.Ping(context.Background()))
	assert.Nil(t, s.Health)
}

func TestOpenStorageUnknownDriver(t *testing.T) {
	_, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "mongo"}, 1, logger.Discard())
	assert.Error(t, err)
}

func TestSummarizeMigrations(t *testing.T) {
	applied, latest, pending := summarizeMigrations([]postgres.Migration{
		{Version: 1, Name: "create_learners", IsApplied: true},
		{Version: 2, Name: "create_practice", IsApplied: true},
		{Version: 3, Name: "bid_order_and_learner_refs"},
	})
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, latest)
	assert.Equal(t, []string{"bid_order_and_learner_refs"}, pending)

	applied, latest, pending = summarizeMigrations(nil)
	assert.Zero(t, applied)
	assert.Zero(t, latest)
	assert.Empty(t, pending)
}

func TestDescribeHealth(t *testing.T) {
	detail, err := describeHealth(&postgres.HealthStatus{Healthy: true, PingLatency: time.Millisecond, MaxConns: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ping 1ms, 0/4 conns acquired, 0 idle", detail)

	_, err = describeHealth(&postgres.HealthStatus{Error: "dial tcp: refused"}, nil)
	assert.EqualError(t, err, "dial tcp: refused")

	_, err = describeHealth(nil, postgres.ErrConnectionClosed)
	assert.True(t, errors.Is(err, postgres.ErrConnectionClosed))
}
