package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the local projection of an account owned by the auth service.
// Only what the leaderboard and organizer checks need is kept here.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Name      string    `json:"name"`
	Username  string    `gorm:"uniqueIndex" json:"username"`
	Role      Role      `gorm:"type:text" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Contest{},
		&Question{},
		&TestCase{},
		&Participant{},
		&ProctoringEvent{},
		&Submission{},
		&AnswerDraft{},
	}
}
