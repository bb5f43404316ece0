package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	playerID string
	update   *entity.GameUpdate
}

type editedMessage struct {
	ref    string
	update *entity.GameUpdate
}

type fakeMessenger struct {
	seq     int
	sent    []sentMessage
	edited  []editedMessage
	editErr error
	sendErr error
}

func (that *fakeMessenger) Send(_ context.Context, playerID string, update *entity.GameUpdate) (string, error) {
	if that.sendErr != nil {
		return "", that.sendErr
	}

	that.seq++
	that.sent = append(that.sent, sentMessage{playerID: playerID, update: update})

	return playerID + "#" + strconv.Itoa(that.seq), nil
}

func (that *fakeMessenger) Edit(_ context.Context, ref string, update *entity.GameUpdate) error {
	if that.editErr != nil {
		return that.editErr
	}

	that.edited = append(that.edited, editedMessage{ref: ref, update: update})

	return nil
}

func TestBroadcaster_Deliver(t *testing.T) {
	ctx := context.Background()

	t.Run("First delivery sends, later deliveries edit in place", func(t *testing.T) {
		rooms, joined := startedGame(t)
		messenger := &fakeMessenger{}
		broadcaster := NewBroadcaster(testLogger(), messenger, rooms)

		// When: the started game is delivered
		broadcaster.Deliver(ctx, joined)

		// Then: both players got a fresh message
		require.Len(t, messenger.sent, 2)
		assert.Empty(t, messenger.edited)

		// When: delivering the next state, refs now recorded on the session
		next, err := rooms.LookupByPlayer("alice")
		require.NoError(t, err)
		require.Len(t, next.Refs, 2)

		broadcaster.Deliver(ctx, next)

		// Then: no new sends, both messages edited under their refs
		assert.Len(t, messenger.sent, 2)
		require.Len(t, messenger.edited, 2)
	})

	t.Run("Ongoing update offers leave, finished update offers restart", func(t *testing.T) {
		rooms, joined := startedGame(t)
		messenger := &fakeMessenger{}
		broadcaster := NewBroadcaster(testLogger(), messenger, rooms)

		broadcaster.Deliver(ctx, joined)

		require.NotEmpty(t, messenger.sent)
		assert.Equal(t, []string{entity.ActionLeave}, messenger.sent[0].update.Actions)

		// Given: the next snapshot carries refs and a finished status
		finished, err := rooms.LookupByPlayer("alice")
		require.NoError(t, err)
		finished.Status = entity.StatusFinished

		broadcaster.Deliver(ctx, finished)

		require.NotEmpty(t, messenger.edited)
		assert.Equal(t, []string{entity.ActionRestart, entity.ActionLeave}, messenger.edited[0].update.Actions)
	})

	t.Run("Edit failure is swallowed", func(t *testing.T) {
		rooms, joined := startedGame(t)
		messenger := &fakeMessenger{}
		broadcaster := NewBroadcaster(testLogger(), messenger, rooms)

		broadcaster.Deliver(ctx, joined)

		next, err := rooms.LookupByPlayer("alice")
		require.NoError(t, err)

		messenger.editErr = assert.AnError

		// When/Then: a failing edit neither panics nor sends a replacement
		broadcaster.Deliver(ctx, next)
		assert.Len(t, messenger.sent, 2)
	})

	t.Run("One unreachable player does not block the other", func(t *testing.T) {
		rooms, joined := startedGame(t)
		messenger := &fakeMessenger{sendErr: assert.AnError}
		broadcaster := NewBroadcaster(testLogger(), messenger, rooms)

		// When: every send fails
		broadcaster.Deliver(ctx, joined)

		// Then: no refs recorded, nothing delivered, no panic
		next, err := rooms.LookupByPlayer("alice")
		require.NoError(t, err)
		assert.Empty(t, next.Refs)
	})
}

func TestBroadcaster_DeliverClosed(t *testing.T) {
	ctx := context.Background()

	rooms, joined := startedGame(t)
	messenger := &fakeMessenger{}
	broadcaster := NewBroadcaster(testLogger(), messenger, rooms)

	broadcaster.Deliver(ctx, joined)
	require.Len(t, messenger.sent, 2)

	// Given: the room is terminated; the final snapshot still carries refs
	final, err := rooms.Terminate(joined.Code)
	require.NoError(t, err)
	require.NotNil(t, final)

	// When: the closed state is delivered
	broadcaster.DeliverClosed(ctx, final)

	// Then: both players' messages were edited to the closed status
	require.Len(t, messenger.edited, 2)
	for _, edited := range messenger.edited {
		assert.Equal(t, statusClosed, edited.update.Status)
		assert.Empty(t, edited.update.Turn)
		assert.Empty(t, edited.update.Actions)
	}
}
