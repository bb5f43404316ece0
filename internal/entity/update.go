package entity

const (
	ActionRestart = "restart"
	ActionLeave   = "leave"
)

// GameUpdate is the rendering contract handed to the messaging layer: board
// content, whose move it is and the terminal outcome. The presentation side
// decides layout and markup.
type GameUpdate struct {
	Code    string   `json:"code"`
	Board   Board    `json:"board"`
	Players []Player `json:"players,omitempty"`
	Turn    string   `json:"turn,omitempty"`
	Status  string   `json:"status"`
	Winner  string   `json:"winner,omitempty"`
	Actions []string `json:"actions,omitempty"`
}
