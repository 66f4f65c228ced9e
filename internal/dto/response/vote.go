package response

type VoteStatus struct {
	HasVoted bool    `json:"has_voted"`
	Value    *string `json:"value,omitempty"`
}

type VoteAck struct {
	ReviewID int64  `json:"review_id"`
	Value    string `json:"value"`
	Accepted bool   `json:"accepted"`
}
