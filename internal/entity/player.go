package entity

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Mark string `json:"mark,omitempty"`
}
