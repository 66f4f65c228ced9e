package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContribution(t *testing.T) {
	fair, unfair, junk := VoteFair, VoteUnfair, VoteValue("junk")

	assert.Equal(t, 0, Contribution(nil))
	assert.Equal(t, 1, Contribution(&fair))
	assert.Equal(t, -1, Contribution(&unfair))
	assert.Equal(t, 0, Contribution(&junk))
}

func TestVoteRecordedDelta(t *testing.T) {
	fair, unfair := VoteFair, VoteUnfair

	tests := []struct {
		name     string
		previous *VoteValue
		next     VoteValue
		want     int
	}{
		{"first fair", nil, VoteFair, 1},
		{"first unfair", nil, VoteUnfair, -1},
		{"unfair to fair", &unfair, VoteFair, 2},
		{"fair to unfair", &fair, VoteUnfair, -2},
		{"repeat fair", &fair, VoteFair, 0},
		{"repeat unfair", &unfair, VoteUnfair, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := VoteRecorded{PreviousValue: tt.previous, NewValue: tt.next}
			assert.Equal(t, tt.want, e.Delta())
		})
	}
}
