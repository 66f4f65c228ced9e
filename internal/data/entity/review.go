package entity

import (
	"github.com/google/uuid"
)

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusReleased ReviewStatus = "released"
	ReviewStatusDeleted  ReviewStatus = "deleted"
)

// reviewTransitions is the closed set of legal status moves. Deleted has no
// outgoing edge.
var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewStatusPending:  {ReviewStatusReleased, ReviewStatusDeleted},
	ReviewStatusReleased: {ReviewStatusDeleted},
}

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusReleased, ReviewStatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a review in status s may move to next.
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	for _, allowed := range reviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ReviewKind string

const (
	ReviewKindTags     ReviewKind = "tags"
	ReviewKindFreeform ReviewKind = "freeform"
)

func (k ReviewKind) Valid() bool {
	return k == ReviewKindTags || k == ReviewKindFreeform
}

const (
	MinReviewRating = 1.0
	MaxReviewRating = 10.0
	MinTagRating    = 1
	MaxTagRating    = 10

	// MaxActiveReviewsPerMovie caps non-deleted reviews per author per movie.
	MaxActiveReviewsPerMovie = 2
)

// TagRating is one entry of a structured review. TagID comes from the tag
// catalog and is not checked here.
type TagRating struct {
	TagID  int `json:"tag_id"`
	Rating int `json:"rating"`
}

type Review struct {
	BaseSerial
	UserID       uuid.UUID    `db:"user_id"`
	MovieID      int64        `db:"movie_id"`
	Status       ReviewStatus `db:"status"`
	Kind         ReviewKind   `db:"kind"`
	Rating       float64      `db:"rating"`
	Body         *string      `db:"body"`
	Tags         []TagRating  `db:"tags"`
	RejectReason *string      `db:"reject_reason"`
	Score        int          `db:"score"`
}

// ReviewDetail is a review joined with its author's public profile.
type ReviewDetail struct {
	Review
	Author AuthorProfile
}
