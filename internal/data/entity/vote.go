package entity

import (
	"github.com/google/uuid"
)

type VoteValue string

const (
	VoteFair   VoteValue = "fair"
	VoteUnfair VoteValue = "unfair"
)

func (v VoteValue) Valid() bool {
	return v == VoteFair || v == VoteUnfair
}

// Contribution is the signed weight a vote value adds to a score. A nil
// value (no vote) contributes nothing.
func Contribution(v *VoteValue) int {
	if v == nil {
		return 0
	}
	switch *v {
	case VoteFair:
		return 1
	case VoteUnfair:
		return -1
	}
	return 0
}

type Vote struct {
	BaseSerial
	VoterID  uuid.UUID `db:"voter_id"`
	ReviewID int64     `db:"review_id"`
	Value    VoteValue `db:"value"`
}
