package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
)

type MatchmakerService interface {
	Create(ctx context.Context, playerID, playerName string) (*entity.Snapshot, error)
	Join(ctx context.Context, code, playerID, playerName string) (*entity.Snapshot, error)
	Leave(ctx context.Context, playerID string) (*entity.Snapshot, error)
	Restart(ctx context.Context, playerID string) (*entity.Snapshot, error)
	Lookup(ctx context.Context, playerID string) (*entity.Snapshot, error)
}

type matchmakerService struct {
	logger *slog.Logger
	rooms  *registry.Registry
}

func NewMatchmakerService(logger *slog.Logger, rooms *registry.Registry) MatchmakerService {
	return &matchmakerService{
		logger: logger.With("component", "matchmaker"),
		rooms:  rooms,
	}
}

func (that *matchmakerService) Create(_ context.Context, playerID, playerName string) (*entity.Snapshot, error) {
	snapshot, err := that.rooms.CreateRoom(playerID, playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("room created", "code", snapshot.Code, "playerID", playerID)

	return snapshot, nil
}

func (that *matchmakerService) Join(_ context.Context, code, playerID, playerName string) (*entity.Snapshot, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}

	snapshot, err := that.rooms.JoinRoom(code, playerID, playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	that.logger.Info("player joined", "code", code, "playerID", playerID)

	return snapshot, nil
}

// Leave - tears down the player's room. Both occupants are evicted no matter
// who asked; the returned snapshot carries the message refs needed to tell
// the other player.
func (that *matchmakerService) Leave(_ context.Context, playerID string) (*entity.Snapshot, error) {
	snapshot, err := that.rooms.TerminateByPlayer(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to terminate room: %w", err)
	}

	if snapshot == nil {
		return nil, apperror.ErrNotInRoom
	}

	that.logger.Info("player left", "code", snapshot.Code, "playerID", playerID)

	return snapshot, nil
}

// Restart - Finished -> Ongoing with a fresh board and re-randomized marks.
// A stale request (player not in a room, or the game still running) is a
// silent no-op: both snapshot and error are nil.
func (that *matchmakerService) Restart(_ context.Context, playerID string) (*entity.Snapshot, error) {
	snapshot, err := that.rooms.RematchByPlayer(playerID)

	if errors.Is(err, apperror.ErrNotInRoom) || errors.Is(err, registry.ErrNotFinished) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to restart room: %w", err)
	}

	that.logger.Info("room restarted", "code", snapshot.Code, "playerID", playerID)

	return snapshot, nil
}

func (that *matchmakerService) Lookup(_ context.Context, playerID string) (*entity.Snapshot, error) {
	snapshot, err := that.rooms.LookupByPlayer(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}

	return snapshot, nil
}

// validateCode rejects malformed code text before it reaches the registry.
func validateCode(code string) error {
	if len(code) != 2 {
		return apperror.ErrInvalidCode
	}

	value, err := strconv.Atoi(code)
	if err != nil || value < 10 {
		return apperror.ErrInvalidCode
	}

	return nil
}
