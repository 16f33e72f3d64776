package runctx

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRun_GeneratesID(t *testing.T) {
	ctx := WithRun(context.Background(), "")
	rc := FromContext(ctx)
	_, err := uuid.Parse(rc.RunID)
	require.NoError(t, err)
	assert.False(t, rc.StartTime.IsZero())
}

func TestWithRun_KeepsGivenID(t *testing.T) {
	ctx := WithRun(context.Background(), "run-1")
	assert.Equal(t, "run-1", FromContext(ctx).RunID)
}

func TestFromContext_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).RunID)
}

func TestNewRunError(t *testing.T) {
	base := errors.New("sink down")
	err := NewRunError(WithRun(context.Background(), "abc"), base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "[run abc] sink down", err.Error())
	assert.NoError(t, NewRunError(context.Background(), nil))
}
