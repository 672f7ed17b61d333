package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-foundation/jls/errs"
)

func TestTrackRejectsExactDuplicate(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Track("rig-a"))
	require.ErrorIs(t, tr.Track("rig-a"), errs.ErrAlreadyExists)
}

func TestTrackAllowsEmptyNamesRepeatedly(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Track(""))
	require.NoError(t, tr.Track(""))
	assert.False(t, tr.Has(""))
}

func TestHasReflectsTrackedNames(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Has("rig-b"))
	require.NoError(t, tr.Track("rig-b"))
	assert.True(t, tr.Has("rig-b"))
}
