package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

var ErrNotEnoughPlayers = errors.New("session needs exactly two players")

// Intn reports a uniform random int in [0, n). The process-wide source is
// math/rand.Intn; tests inject a seeded one.
type Intn func(n int) int

// Session is the full mutable state of one game room, keyed by its code.
type Session struct {
	Code    string            `json:"code"`
	Board   Board             `json:"board"`
	Players []*Player         `json:"players,omitempty"`
	Turn    string            `json:"turn,omitempty"` // ID of the player holding the move
	Status  string            `json:"status"`
	Winner  string            `json:"winner,omitempty"`
	Refs    map[string]string `json:"-"` // player ID -> outbound message ref
}

func NewSession(code string, owner *Player) *Session {
	return &Session{
		Code:    code,
		Players: []*Player{owner},
		Status:  StatusWaiting,
		Refs:    make(map[string]string),
	}
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Session) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Session) Opponent(id string) *Player {
	for _, player := range that.Players {
		if player.ID != id {
			return player
		}
	}

	return nil
}

// AssignMarks - shuffles the two players and gives the first one X and the
// opening move.
func (that *Session) AssignMarks(intn Intn) error {
	if len(that.Players) != 2 {
		return fmt.Errorf("%w: got %d", ErrNotEnoughPlayers, len(that.Players))
	}

	if intn(2) == 1 {
		that.Players[0], that.Players[1] = that.Players[1], that.Players[0]
	}

	that.Players[0].Mark = MarkX
	that.Players[1].Mark = MarkO
	that.Turn = that.Players[0].ID

	return nil
}

// MakeTurn - places the player's mark and advances the session: either the
// turn flips to the opponent or the session finishes with a winner or a tie.
func (that *Session) MakeTurn(playerID string, cell int) error {
	if !that.IsOngoing() || that.Turn != playerID {
		return apperror.ErrNotYourTurn
	}

	player := that.PlayerByID(playerID)

	if err := that.Board.Place(cell, player.Mark); err != nil {
		return err
	}

	switch winner := that.Board.Winner(); winner {
	case MarkX, MarkO, MarkTie:
		that.Winner = winner
		that.Status = StatusFinished
		that.Turn = ""
	default:
		that.Turn = that.Opponent(playerID).ID
	}

	return nil
}

// Rematch - resets the board for the same two players and re-randomizes who
// opens.
func (that *Session) Rematch(intn Intn) error {
	if err := that.AssignMarks(intn); err != nil {
		return err
	}

	that.Board.Reset()
	that.Winner = ""
	that.Status = StatusOngoing

	return nil
}

// Snapshot - deep copy for rendering and delivery outside the room's
// critical section.
func (that *Session) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		Code:   that.Code,
		Board:  that.Board,
		Turn:   that.Turn,
		Status: that.Status,
		Winner: that.Winner,
		Refs:   make(map[string]string, len(that.Refs)),
	}

	for _, player := range that.Players {
		snapshot.Players = append(snapshot.Players, *player)
	}

	for id, ref := range that.Refs {
		snapshot.Refs[id] = ref
	}

	return snapshot
}

// Snapshot is an immutable copy of a session taken under its lock.
type Snapshot struct {
	Code    string            `json:"code"`
	Board   Board             `json:"board"`
	Players []Player          `json:"players,omitempty"`
	Turn    string            `json:"turn,omitempty"`
	Status  string            `json:"status"`
	Winner  string            `json:"winner,omitempty"`
	Refs    map[string]string `json:"-"`
}

func (that *Snapshot) WinnerPlayer() *Player {
	if that.Winner == "" || that.Winner == MarkTie {
		return nil
	}

	for i := range that.Players {
		if that.Players[i].Mark == that.Winner {
			return &that.Players[i]
		}
	}

	return nil
}
