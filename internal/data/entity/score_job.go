package entity

import (
	"time"

	"github.com/google/uuid"
)

// LedgerKind names the record a score delta is applied to.
type LedgerKind string

const (
	LedgerUser   LedgerKind = "user"
	LedgerReview LedgerKind = "review"
)

// VoteRecorded is the event emitted when a vote row is created or changed.
type VoteRecorded struct {
	AuthorID      uuid.UUID
	ReviewID      int64
	VoterID       uuid.UUID
	PreviousValue *VoteValue
	NewValue      VoteValue
}

// Delta is the score change the event produces.
func (e VoteRecorded) Delta() int {
	next := e.NewValue
	return Contribution(&next) - Contribution(e.PreviousValue)
}

// ScoreJob is a durable VoteRecorded waiting for the score worker.
type ScoreJob struct {
	BaseSimple
	VoteRecorded
	Attempts    int        `db:"attempts"`
	LastError   *string    `db:"last_error"`
	AvailableAt time.Time  `db:"available_at"`
	ProcessedAt *time.Time `db:"processed_at"`
	DeadAt      *time.Time `db:"dead_at"`
}
