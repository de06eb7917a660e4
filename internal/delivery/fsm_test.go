package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSM(t *testing.T) {
	t.Run("happy path through completed", func(t *testing.T) {
		fsm := NewFSM()
		assert.Equal(t, StateCreated, fsm.Current())

		require.NoError(t, fsm.Transition(StateExtracting))
		require.NoError(t, fsm.Transition(StateDelivering))
		require.NoError(t, fsm.Transition(StateCompleted))
		assert.Equal(t, StateCompleted, fsm.Current())
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		fsm := NewFSM()
		err := fsm.Transition(StateCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StateCreated, fsm.Current())
	})

	t.Run("error state allows rerun", func(t *testing.T) {
		fsm := NewFSM()
		require.NoError(t, fsm.Transition(StateExtracting))
		require.NoError(t, fsm.Transition(StateError))
		require.NoError(t, fsm.Transition(StateExtracting))
	})
}
