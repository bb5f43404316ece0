package entity

import "time"

// GameResult is the durable record of a finished game.
type GameResult struct {
	Code       string    `json:"code"`
	Winner     string    `json:"winner"` // mark, MarkTie on a draw
	WinnerID   string    `json:"winner_id,omitempty"`
	Players    []Player  `json:"players"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewGameResult(snapshot *Snapshot, finishedAt time.Time) *GameResult {
	result := &GameResult{
		Code:       snapshot.Code,
		Winner:     snapshot.Winner,
		Players:    snapshot.Players,
		FinishedAt: finishedAt,
	}

	if winner := snapshot.WinnerPlayer(); winner != nil {
		result.WinnerID = winner.ID
	}

	return result
}

type PlayerStats struct {
	Wins   int64 `json:"wins"`
	Losses int64 `json:"losses"`
	Draws  int64 `json:"draws"`
}
