package service

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
)

// statusClosed is outbound only: the session is already gone when players
// see it.
const statusClosed = "closed"

// Messenger is the delivery side of the messaging channel. Edit may fail
// for reasons outside our control (recipient gone, message dropped); callers
// treat that as ignorable and never revert game state over it.
type Messenger interface {
	Send(ctx context.Context, playerID string, update *entity.GameUpdate) (string, error)
	Edit(ctx context.Context, ref string, update *entity.GameUpdate) error
}

// Broadcaster delivers session snapshots to both players: the first delivery
// to a player sends a fresh message and remembers its ref, every later one
// edits that message in place. Called strictly outside room locks.
type Broadcaster struct {
	logger    *slog.Logger
	messenger Messenger
	rooms     *registry.Registry
}

func NewBroadcaster(logger *slog.Logger, messenger Messenger, rooms *registry.Registry) *Broadcaster {
	return &Broadcaster{
		logger:    logger.With("component", "broadcaster"),
		messenger: messenger,
		rooms:     rooms,
	}
}

// Deliver - pushes the snapshot to every player in it. Each delivery is
// attempted independently; one unreachable player never blocks the other.
func (that *Broadcaster) Deliver(ctx context.Context, snapshot *entity.Snapshot) {
	that.deliver(ctx, snapshot, buildUpdate(snapshot))
}

// DeliverClosed - final edit after a room is terminated, flipping both
// players' messages to the closed state.
func (that *Broadcaster) DeliverClosed(ctx context.Context, snapshot *entity.Snapshot) {
	update := buildUpdate(snapshot)
	update.Status = statusClosed
	update.Turn = ""
	update.Actions = nil

	that.deliver(ctx, snapshot, update)
}

func (that *Broadcaster) deliver(ctx context.Context, snapshot *entity.Snapshot, update *entity.GameUpdate) {
	log := that.logger.With("method", "deliver", "code", snapshot.Code)

	for _, player := range snapshot.Players {
		if ref, ok := snapshot.Refs[player.ID]; ok {
			if err := that.messenger.Edit(ctx, ref, update); err != nil {
				log.Warn("failed to edit message, ignoring", "playerID", player.ID, "error", err)
			}
			continue
		}

		ref, err := that.messenger.Send(ctx, player.ID, update)
		if err != nil {
			log.Error("failed to send message", "playerID", player.ID, "error", err)
			continue
		}

		that.rooms.SetMessageRef(snapshot.Code, player.ID, ref)
	}
}

func buildUpdate(snapshot *entity.Snapshot) *entity.GameUpdate {
	update := &entity.GameUpdate{
		Code:    snapshot.Code,
		Board:   snapshot.Board,
		Players: snapshot.Players,
		Turn:    snapshot.Turn,
		Status:  snapshot.Status,
		Winner:  snapshot.Winner,
	}

	switch snapshot.Status {
	case entity.StatusFinished:
		update.Actions = []string{entity.ActionRestart, entity.ActionLeave}
	default:
		update.Actions = []string{entity.ActionLeave}
	}

	return update
}
