package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedResult(winnerID string, winner string) *entity.GameResult {
	return &entity.GameResult{
		Code:     "42",
		Winner:   winner,
		WinnerID: winnerID,
		Players: []entity.Player{
			{ID: "alice", Name: "Alice", Mark: entity.MarkX},
			{ID: "bob", Name: "Bob", Mark: entity.MarkO},
		},
		FinishedAt: time.Now().UTC(),
	}
}

func TestResultRepository_Record(t *testing.T) {
	ctx, st := suite.New(t)

	resultRepo := NewResultRepository(st.Storage)

	// Given: a game won by alice
	result := finishedResult("alice", entity.MarkX)

	// When: the result is recorded
	err := resultRepo.Record(ctx, result)

	// Then: the counters reflect a win for alice and a loss for bob
	require.NoError(t, err)

	aliceStats, err := resultRepo.PlayerStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), aliceStats.Wins)
	assert.Equal(t, int64(0), aliceStats.Losses)

	bobStats, err := resultRepo.PlayerStats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobStats.Losses)
	assert.Equal(t, int64(0), bobStats.Wins)
}

func TestResultRepository_Record_Draw(t *testing.T) {
	ctx, st := suite.New(t)

	resultRepo := NewResultRepository(st.Storage)

	// Given: a drawn game
	result := finishedResult("", entity.MarkTie)

	// When: the result is recorded
	err := resultRepo.Record(ctx, result)

	// Then: both players get a draw, nothing else
	require.NoError(t, err)

	for _, playerID := range []string{"alice", "bob"} {
		stats, err := resultRepo.PlayerStats(ctx, playerID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Draws)
		assert.Equal(t, int64(0), stats.Wins)
		assert.Equal(t, int64(0), stats.Losses)
	}
}

func TestResultRepository_PlayerStats_Unknown(t *testing.T) {
	ctx, st := suite.New(t)

	resultRepo := NewResultRepository(st.Storage)

	// When: asking for a player with no recorded games
	stats, err := resultRepo.PlayerStats(ctx, "nobody")

	// Then: all-zero stats, no error
	require.NoError(t, err)
	assert.Equal(t, &entity.PlayerStats{}, stats)
}

func TestResultRepository_Record_Accumulates(t *testing.T) {
	ctx, st := suite.New(t)

	resultRepo := NewResultRepository(st.Storage)

	// Given: alice wins twice and draws once
	require.NoError(t, resultRepo.Record(ctx, finishedResult("alice", entity.MarkX)))
	require.NoError(t, resultRepo.Record(ctx, finishedResult("alice", entity.MarkX)))
	require.NoError(t, resultRepo.Record(ctx, finishedResult("", entity.MarkTie)))

	// Then: her counters add up
	stats, err := resultRepo.PlayerStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Wins)
	assert.Equal(t, int64(1), stats.Draws)
	assert.Equal(t, int64(0), stats.Losses)
}
