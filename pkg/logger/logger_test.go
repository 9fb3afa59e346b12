package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: slog.LevelInfo, Format: FormatJSON})

	l.Debug("hidden")
	l.Info("bid recorded", LearnerID("alice"), ExerciseID("e1"), Bid("1NT"), Err(errors.New("x")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "bid recorded", entry["msg"])
	assert.Equal(t, "alice", entry["learner_id"])
	assert.Equal(t, "e1", entry["exercise_id"])
	assert.Equal(t, "1NT", entry["bid"])
	assert.Equal(t, "x", entry["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestPrettyAndTextFormats(t *testing.T) {
	for _, f := range []Format{FormatPretty, FormatText} {
		var buf bytes.Buffer
		New(Options{Output: &buf, Format: f}).Info("hello", DealID("d1"))
		assert.Contains(t, buf.String(), "hello", string(f))
	}
}

func TestContextPropagation(t *testing.T) {
	l := Discard()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
