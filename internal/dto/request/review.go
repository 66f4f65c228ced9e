package request

import "time"

type TagRatingRequest struct {
	TagID  int `json:"tag_id" validate:"required,gt=0"`
	Rating int `json:"rating" validate:"required,min=1,max=10"`
}

type CreateReviewRequest struct {
	MovieID int64              `json:"movie_id" validate:"required,gt=0"`
	Kind    string             `json:"kind" validate:"required,oneof=tags freeform"`
	Rating  float64            `json:"rating" validate:"required,gte=1,lte=10"`
	Body    *string            `json:"body,omitempty" validate:"omitempty,max=5000"`
	Tags    []TagRatingRequest `json:"tags,omitempty" validate:"omitempty,max=50,dive"`
}

// UpdateReviewRequest replaces the review content. Status and RejectReason
// are moderator fields; the handler decides who may send them.
type UpdateReviewRequest struct {
	Kind         string             `json:"kind" validate:"required,oneof=tags freeform"`
	Rating       float64            `json:"rating" validate:"required,gte=1,lte=10"`
	Body         *string            `json:"body,omitempty" validate:"omitempty,max=5000"`
	Tags         []TagRatingRequest `json:"tags,omitempty" validate:"omitempty,max=50,dive"`
	Status       *string            `json:"status,omitempty" validate:"omitempty,oneof=pending released deleted"`
	RejectReason *string            `json:"reject_reason,omitempty" validate:"omitempty,max=500"`
}

type DeleteReviewRequest struct {
	RejectReason *string `json:"reject_reason,omitempty" validate:"omitempty,max=500"`
}

// ListReviewsRequest carries the optional list filters parsed from the query
// string.
type ListReviewsRequest struct {
	PaginatedRequest
	MovieID     *int64
	AuthorID    *string
	Status      *string
	Kind        *string
	From        *time.Time
	To          *time.Time
	AuthorEmail string
}
