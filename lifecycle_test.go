package csdl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleOrder(t *testing.T) {
	l := NewLifecycle()
	var order []string
	record := func(name string) Task {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	l.On(PhasePostFinalize, record("post"))
	l.On(PhaseFinalize, record("finalize 1"))
	l.On(PhasePreFinalize, record("pre"))
	l.On(PhaseFinalize, func(ctx context.Context) error {
		order = append(order, "finalize 2")
		// Tasks registered while draining run in a later round
		l.On(PhasePreFinalize, record("late pre"))
		return nil
	})

	require.NoError(t, l.Emit(context.Background(), PhaseFinalize))
	assert.Equal(t, []string{"pre", "finalize 1", "finalize 2", "post", "late pre"}, order)
	assert.Zero(t, l.Pending(PhasePreFinalize))
	assert.Zero(t, l.Pending(PhaseFinalize))
	assert.Zero(t, l.Pending(PhasePostFinalize))
}

func TestLifecycleStopsOnError(t *testing.T) {
	l := NewLifecycle()
	boom := errors.New("boom")
	ran := false

	l.On(PhasePreFinalize, func(context.Context) error { return boom })
	l.On(PhaseFinalize, func(context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, l.Emit(context.Background(), PhaseFinalize), boom)
	assert.False(t, ran)
	assert.Equal(t, 1, l.Pending(PhaseFinalize))
}

func TestLifecycleRecoversPanics(t *testing.T) {
	l := NewLifecycle()
	l.On(PhaseFinalize, func(context.Context) error { panic("bad task") })

	assert.EqualError(t, l.Emit(context.Background(), PhaseFinalize), "task panicked: bad task")
}

func TestLifecycleHonorsCancellation(t *testing.T) {
	l := NewLifecycle()
	l.On(PhaseFinalize, func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Emit(ctx, PhaseFinalize), context.Canceled)
}
