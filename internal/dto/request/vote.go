package request

type VoteRequest struct {
	Value string `json:"value" validate:"required,oneof=fair unfair"`
}

type BatchVoteStatusRequest struct {
	ReviewIDs []int64 `json:"review_ids" validate:"required,min=1,max=100,dive,gt=0"`
}
