package service

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"testing"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRooms(t *testing.T) *registry.Registry {
	t.Helper()

	return registry.New(testLogger(), rand.New(rand.NewSource(7)).Intn) //nolint: gosec // deterministic test source
}

func TestMatchmaker_CreateAndJoin(t *testing.T) {
	ctx := context.Background()
	rooms := testRooms(t)
	matchmaker := NewMatchmakerService(testLogger(), rooms)

	// When: alice creates and bob joins with the returned code
	created, err := matchmaker.Create(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWaiting, created.Status)

	joined, err := matchmaker.Join(ctx, created.Code, "bob", "Bob")

	// Then: the game is on with both players
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOngoing, joined.Status)
	assert.Len(t, joined.Players, 2)
}

func TestMatchmaker_Join_Errors(t *testing.T) {
	ctx := context.Background()
	rooms := testRooms(t)
	matchmaker := NewMatchmakerService(testLogger(), rooms)

	t.Run("Rejects malformed code text before touching the registry", func(t *testing.T) {
		for _, code := range []string{"", "4", "123", "ab", "4x", "-1", "07"} {
			_, err := matchmaker.Join(ctx, code, "bob", "Bob")
			assert.ErrorIsf(t, err, apperror.ErrInvalidCode, "code %q", code)
		}
	})

	t.Run("Unknown code leaves state unchanged", func(t *testing.T) {
		_, err := matchmaker.Join(ctx, "99", "bob", "Bob")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		_, err = rooms.LookupByPlayer("bob")
		assert.ErrorIs(t, err, apperror.ErrNotInRoom)
	})
}

func TestMatchmaker_Leave(t *testing.T) {
	ctx := context.Background()
	rooms := testRooms(t)
	matchmaker := NewMatchmakerService(testLogger(), rooms)

	t.Run("Either player's leave evicts both", func(t *testing.T) {
		created, err := matchmaker.Create(ctx, "alice", "Alice")
		require.NoError(t, err)
		_, err = matchmaker.Join(ctx, created.Code, "bob", "Bob")
		require.NoError(t, err)

		// When: bob leaves mid-game
		snapshot, err := matchmaker.Leave(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, created.Code, snapshot.Code)

		// Then: both players are out and the room is gone
		_, err = rooms.LookupByPlayer("alice")
		assert.ErrorIs(t, err, apperror.ErrNotInRoom)
		_, err = rooms.LookupByPlayer("bob")
		assert.ErrorIs(t, err, apperror.ErrNotInRoom)
	})

	t.Run("Error when the player has no room", func(t *testing.T) {
		_, err := matchmaker.Leave(ctx, "nobody")
		assert.ErrorIs(t, err, apperror.ErrNotInRoom)
	})
}

func TestMatchmaker_Restart(t *testing.T) {
	ctx := context.Background()
	rooms := testRooms(t)
	matchmaker := NewMatchmakerService(testLogger(), rooms)

	created, err := matchmaker.Create(ctx, "alice", "Alice")
	require.NoError(t, err)
	joined, err := matchmaker.Join(ctx, created.Code, "bob", "Bob")
	require.NoError(t, err)

	t.Run("Restart of a running game is a silent no-op", func(t *testing.T) {
		snapshot, err := matchmaker.Restart(ctx, "alice")

		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("Restart of a finished game resets the board in place", func(t *testing.T) {
		// Given: the game played to a win by the opening player
		mover := joined.Turn
		other := opponentID(joined, mover)
		for _, move := range []struct {
			player string
			cell   int
		}{
			{mover, 0}, {other, 3}, {mover, 1}, {other, 4}, {mover, 2},
		} {
			_, err = rooms.UpdateByPlayer(move.player, func(session *entity.Session) error {
				return session.MakeTurn(move.player, move.cell)
			})
			require.NoError(t, err)
		}

		// When: either player restarts
		snapshot, err := matchmaker.Restart(ctx, other)

		// Then: same code and players, empty board, game running again
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, created.Code, snapshot.Code)
		assert.Equal(t, entity.StatusOngoing, snapshot.Status)
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Empty(t, snapshot.Winner)
		assert.Len(t, snapshot.Players, 2)
		assert.Contains(t, []string{"alice", "bob"}, snapshot.Turn)
	})

	t.Run("Restart by a player without a room is a silent no-op", func(t *testing.T) {
		snapshot, err := matchmaker.Restart(ctx, "nobody")

		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})
}

func opponentID(snapshot *entity.Snapshot, playerID string) string {
	for _, player := range snapshot.Players {
		if player.ID != playerID {
			return player.ID
		}
	}

	return ""
}
