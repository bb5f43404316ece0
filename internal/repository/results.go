package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type ResultRepository interface {
	Record(ctx context.Context, result *entity.GameResult) error
	PlayerStats(ctx context.Context, playerID string) (*entity.PlayerStats, error)
}

type dbResult struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) ResultRepository {
	return &dbResult{
		client: client,
	}
}

// Record - stores the finished game as a JSON blob and bumps each player's
// win/loss/draw counter.
func (that *dbResult) Record(ctx context.Context, result *entity.GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal game result: %w", err)
	}

	resultKey := "result:" + result.Code + ":" + strconv.FormatInt(result.FinishedAt.UnixNano(), 10)
	if err = that.client.Set(ctx, resultKey, resultJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game result: %w", err)
	}

	for _, player := range result.Players {
		if err = that.client.Incr(ctx, statsKey(player.ID, result)).Err(); err != nil {
			return fmt.Errorf("failed to bump stats for player %s: %w", player.ID, err)
		}
	}

	return nil
}

func (that *dbResult) PlayerStats(ctx context.Context, playerID string) (*entity.PlayerStats, error) {
	stats := &entity.PlayerStats{}

	fields := []struct {
		suffix string
		target *int64
	}{
		{"wins", &stats.Wins},
		{"losses", &stats.Losses},
		{"draws", &stats.Draws},
	}

	for _, field := range fields {
		value, err := that.counter(ctx, "stats:"+playerID+":"+field.suffix)
		if err != nil {
			return nil, err
		}
		*field.target = value
	}

	return stats, nil
}

func (that *dbResult) counter(ctx context.Context, key string) (int64, error) {
	value, err := that.client.Get(ctx, key).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}

	return value, nil
}

func statsKey(playerID string, result *entity.GameResult) string {
	switch {
	case result.Winner == entity.MarkTie:
		return "stats:" + playerID + ":draws"
	case result.WinnerID == playerID:
		return "stats:" + playerID + ":wins"
	default:
		return "stats:" + playerID + ":losses"
	}
}
