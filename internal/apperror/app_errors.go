package apperror

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrAlreadyInRoom  = errors.New("player is already in a room")
	ErrNotInRoom      = errors.New("player is not in a room")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrInvalidCode    = errors.New("invalid room code")
	ErrNoFreeRoomCode = errors.New("no free room codes left")
)
