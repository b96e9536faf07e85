package models

import (
	"time"
)

type ParticipantStatus string

const (
	// ParticipantStatusNone is never stored; it stands for "no row yet".
	ParticipantStatusNone         ParticipantStatus = "NOT_REGISTERED"
	ParticipantStatusRegistered   ParticipantStatus = "REGISTERED"
	ParticipantStatusInProgress   ParticipantStatus = "IN_PROGRESS"
	ParticipantStatusSubmitted    ParticipantStatus = "SUBMITTED"
	ParticipantStatusDisqualified ParticipantStatus = "DISQUALIFIED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s ParticipantStatus) IsTerminal() bool {
	return s == ParticipantStatusSubmitted || s == ParticipantStatusDisqualified
}

type FinalizeSource string

const (
	FinalizedManually FinalizeSource = "MANUAL"
	FinalizedByTimer  FinalizeSource = "TIMER"
)

type Participant struct {
	ID        string            `gorm:"primaryKey;type:text" json:"id"`
	ContestID string            `gorm:"type:text;uniqueIndex:idx_contest_user" json:"contestId"`
	UserID    string            `gorm:"type:text;uniqueIndex:idx_contest_user" json:"userId"`
	Status    ParticipantStatus `gorm:"type:text;index" json:"status"`

	StartedAt      *time.Time     `json:"startedAt"`
	SubmittedAt    *time.Time     `json:"submittedAt"`
	DisqualifiedAt *time.Time     `json:"disqualifiedAt"`
	FinalizedBy    FinalizeSource `gorm:"type:text" json:"finalizedBy,omitempty"`

	TabSwitchCount int `json:"tabSwitchCount"`
	Score          int `json:"score"` // written at finalize

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "TAB_SWITCH"
	ViolationFullscreenExit ViolationKind = "FULLSCREEN_EXIT"
	ViolationPasteAttempt   ViolationKind = "PASTE_ATTEMPT"
)

// ProctoringEvent is one integrity signal reported by the contest client.
type ProctoringEvent struct {
	ID            string        `gorm:"primaryKey;type:text" json:"id"`
	ParticipantID string        `gorm:"type:text;index" json:"participantId"`
	Kind          ViolationKind `gorm:"type:text" json:"kind"`
	Details       string        `gorm:"type:text" json:"details"`
	CreatedAt     time.Time     `json:"createdAt"`
}
