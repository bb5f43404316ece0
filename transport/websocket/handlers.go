package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
)

func (that *Server) handleConnect(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	player := &entity.Player{}
	if payloadReq.Player != nil {
		*player = *payloadReq.Player
	}

	if player.ID == "" {
		player.ID = pkg.GenerateNewSessionID()
		log.Info("registered new player", "playerID", player.ID)
	}

	that.registerConnection(player.ID, conn)

	if err = conn.sendMessage(msg.Action, Payload{Player: player}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	// A reconnecting player gets their room state re-delivered.
	if snapshot, lookupErr := that.matchmaker.Lookup(ctx, player.ID); lookupErr == nil {
		that.broadcaster.Deliver(ctx, snapshot)
	}

	log.Info("successfully connected player", "playerID", player.ID)

	return nil
}

func (that *Server) handleNewRoom(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleNewRoom")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payloadReq.Player == nil {
		log.Error("Player is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Player is required")
	}

	that.registerConnection(payloadReq.Player.ID, conn)

	snapshot, err := that.matchmaker.Create(ctx, payloadReq.Player.ID, payloadReq.Player.Name)
	if err != nil {
		log.Error("failed to create room", "playerID", payloadReq.Player.ID, "error", err)
		return sendErrorResponse(conn, msg.Action, userFacingError(err))
	}

	that.broadcaster.Deliver(ctx, snapshot)

	log.Info("room created", "code", snapshot.Code, "playerID", payloadReq.Player.ID)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleJoinRoom")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payloadReq.Player == nil {
		log.Error("Player is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Player is required")
	}

	if payloadReq.Code == "" {
		log.Error("Code is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Room code is required")
	}

	that.registerConnection(payloadReq.Player.ID, conn)

	snapshot, err := that.matchmaker.Join(ctx, payloadReq.Code, payloadReq.Player.ID, payloadReq.Player.Name)
	if err != nil {
		log.Error("failed to join room", "code", payloadReq.Code, "error", err)
		return sendErrorResponse(conn, msg.Action, userFacingError(err))
	}

	that.broadcaster.Deliver(ctx, snapshot)

	log.Info("player joined room", "code", snapshot.Code, "playerID", payloadReq.Player.ID)

	return nil
}

func (that *Server) handleRoomTurn(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleRoomTurn")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payloadReq.Player == nil {
		log.Error("Player is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Player is required")
	}

	if payloadReq.Cell == nil {
		log.Error("Cell is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Cell is required")
	}

	that.registerConnection(payloadReq.Player.ID, conn)

	snapshot, err := that.gameplay.ApplyMove(ctx, payloadReq.Player.ID, *payloadReq.Cell)
	if err != nil {
		log.Error("failed to make turn", "playerID", payloadReq.Player.ID, "error", err)
		return sendErrorResponse(conn, msg.Action, userFacingError(err))
	}

	that.broadcaster.Deliver(ctx, snapshot)

	log.Info("player made a turn", "code", snapshot.Code, "playerID", payloadReq.Player.ID)

	return nil
}

func (that *Server) handleRoomRestart(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleRoomRestart")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payloadReq.Player == nil {
		log.Error("Player is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Player is required")
	}

	that.registerConnection(payloadReq.Player.ID, conn)

	snapshot, err := that.matchmaker.Restart(ctx, payloadReq.Player.ID)
	if err != nil {
		log.Error("failed to restart room", "playerID", payloadReq.Player.ID, "error", err)
		return sendErrorResponse(conn, msg.Action, userFacingError(err))
	}

	// A stale restart is silently ignored.
	if snapshot == nil {
		return nil
	}

	that.broadcaster.Deliver(ctx, snapshot)

	log.Info("room restarted", "code", snapshot.Code, "playerID", payloadReq.Player.ID)

	return nil
}

func (that *Server) handleRoomLeave(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleRoomLeave")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payloadReq.Player == nil {
		log.Error("Player is missing in payload")
		return sendErrorResponse(conn, msg.Action, "Player is required")
	}

	that.registerConnection(payloadReq.Player.ID, conn)

	snapshot, err := that.matchmaker.Leave(ctx, payloadReq.Player.ID)
	if err != nil {
		log.Error("failed to leave room", "playerID", payloadReq.Player.ID, "error", err)
		return sendErrorResponse(conn, msg.Action, userFacingError(err))
	}

	that.broadcaster.DeliverClosed(ctx, snapshot)

	log.Info("player left room", "code", snapshot.Code, "playerID", payloadReq.Player.ID)

	return nil
}

func decodePayload(msg *Message) (*Payload, error) {
	var payload Payload

	if len(msg.Payload) == 0 {
		return &payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &payload, nil
}

func sendErrorResponse(conn *connection, action, errorMsg string) error {
	if err := conn.sendMessage(action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}

// userFacingError - maps recoverable game errors to short transient texts;
// anything unexpected stays generic.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, apperror.ErrRoomFull):
		return "room is full"
	case errors.Is(err, apperror.ErrAlreadyInRoom):
		return "you are already in a room"
	case errors.Is(err, apperror.ErrNotInRoom):
		return "you are not in a room"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "it's not your turn"
	case errors.Is(err, apperror.ErrCellOccupied):
		return "that cell is taken"
	case errors.Is(err, apperror.ErrInvalidCode):
		return "room codes are two digits, like 42"
	case errors.Is(err, apperror.ErrNoFreeRoomCode):
		return "no free rooms right now, try again later"
	case errors.Is(err, entity.ErrInvalidCell):
		return "that cell does not exist"
	default:
		return "something went wrong, try again"
	}
}
