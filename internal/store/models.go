package store

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Duel is the durable record. Status only moves forward; Winner is
// written exactly once, by the conditional completion update.
// Termination deletes the record instead of adding a status.
type Duel struct {
	ID            string   `gorm:"primaryKey" json:"id"`
	Challenger    string   `gorm:"index" json:"challenger"`
	OpponentEmail string   `json:"opponentEmail"`
	Difficulty    string   `json:"difficulty"`
	Questions     []string `gorm:"serializer:json" json:"questions"`
	Status        Status   `gorm:"index" json:"status"`
	Winner        string   `json:"winner,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
