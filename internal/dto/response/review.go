package response

import (
	"time"

	"reelvote/internal/data/entity"
)

type AuthorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Score    int    `json:"score"`
}

type TagRatingResponse struct {
	TagID  int `json:"tag_id"`
	Rating int `json:"rating"`
}

type ReviewResponse struct {
	ID           int64               `json:"id"`
	Author       AuthorResponse      `json:"author"`
	MovieID      int64               `json:"movie_id"`
	Status       string              `json:"status"`
	Kind         string              `json:"kind"`
	Rating       float64             `json:"rating"`
	Body         *string             `json:"body,omitempty"`
	Tags         []TagRatingResponse `json:"tags,omitempty"`
	RejectReason *string             `json:"reject_reason,omitempty"`
	Score        int                 `json:"score"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func ReviewToResponse(detail *entity.ReviewDetail) ReviewResponse {
	review := detail.Review

	var tags []TagRatingResponse
	if len(review.Tags) > 0 {
		tags = make([]TagRatingResponse, len(review.Tags))
		for i, t := range review.Tags {
			tags[i] = TagRatingResponse{TagID: t.TagID, Rating: t.Rating}
		}
	}

	// reasons only surface on deleted reviews
	var rejectReason *string
	if review.Status == entity.ReviewStatusDeleted {
		rejectReason = review.RejectReason
	}

	return ReviewResponse{
		ID: review.ID,
		Author: AuthorResponse{
			ID:       detail.Author.ID.String(),
			Username: detail.Author.Username,
			Score:    detail.Author.Score,
		},
		MovieID:      review.MovieID,
		Status:       string(review.Status),
		Kind:         string(review.Kind),
		Rating:       review.Rating,
		Body:         review.Body,
		Tags:         tags,
		RejectReason: rejectReason,
		Score:        review.Score,
		CreatedAt:    review.CreatedAt,
		UpdatedAt:    review.UpdatedAt,
	}
}
