package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
)

type GameplayService interface {
	ApplyMove(ctx context.Context, playerID string, cell int) (*entity.Snapshot, error)
}

type resultRepo interface {
	Record(ctx context.Context, result *entity.GameResult) error
}

type gameplayService struct {
	logger  *slog.Logger
	rooms   *registry.Registry
	results resultRepo
}

func NewGameplayService(logger *slog.Logger, rooms *registry.Registry, results resultRepo) GameplayService {
	return &gameplayService{
		logger:  logger.With("component", "gameplay"),
		rooms:   rooms,
		results: results,
	}
}

// ApplyMove - places the player's mark inside the session's exclusive
// section; recording the outcome happens after the lock is released, so a
// slow Redis never blocks the other player's next move.
func (that *gameplayService) ApplyMove(ctx context.Context, playerID string, cell int) (*entity.Snapshot, error) {
	snapshot, err := that.rooms.UpdateByPlayer(playerID, func(session *entity.Session) error {
		return session.MakeTurn(playerID, cell)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if snapshot.Status == entity.StatusFinished {
		that.recordResult(ctx, snapshot)
	}

	return snapshot, nil
}

// recordResult - best effort; losing a score line never fails the move.
func (that *gameplayService) recordResult(ctx context.Context, snapshot *entity.Snapshot) {
	log := that.logger.With("method", "recordResult", "code", snapshot.Code)

	result := entity.NewGameResult(snapshot, time.Now().UTC())

	if err := that.results.Record(ctx, result); err != nil {
		log.Error("failed to record game result", "error", err)
		return
	}

	log.Info("game result recorded", "winner", result.Winner)
}
