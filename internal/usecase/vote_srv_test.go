package usecase

import (
	"context"
	"testing"

	"reelvote/internal/data/entity"
	"reelvote/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVote_SelfVoteIsForbidden(t *testing.T) {
	f := newFixture()
	author := f.store.addUser("alice", entity.RoleUser)
	ctx := context.Background()

	review, err := f.reviews.CreateReview(ctx, author.ID, tagged(42, 8))
	require.NoError(t, err)

	for _, value := range []string{"fair", "unfair"} {
		_, err = f.votes.Vote(ctx, author.ID, review.ID, &request.VoteRequest{Value: value})
		requireKind(t, err, KindForbidden)
	}

	assert.Empty(t, f.store.votes)
	assert.Empty(t, f.store.jobs)
}

func TestVote_UnknownReview(t *testing.T) {
	f := newFixture()
	voter := f.store.addUser("bob", entity.RoleUser)

	_, err := f.votes.Vote(context.Background(), voter.ID, 77, &request.VoteRequest{Value: "fair"})
	requireKind(t, err, KindNotFound)
}

func TestVote_DeletedReview(t *testing.T) {
	f := newFixture()
	author := f.store.addUser("alice", entity.RoleUser)
	voter := f.store.addUser("bob", entity.RoleUser)
	ctx := context.Background()

	review, err := f.reviews.CreateReview(ctx, author.ID, tagged(42, 8))
	require.NoError(t, err)
	_, err = f.reviews.DeleteReview(ctx, review.ID, nil)
	require.NoError(t, err)

	_, err = f.votes.Vote(ctx, voter.ID, review.ID, &request.VoteRequest{Value: "fair"})
	requireKind(t, err, KindInvalidState)
	assert.Empty(t, f.store.jobs)
}

func TestVote_InvalidValue(t *testing.T) {
	f := newFixture()
	voter := f.store.addUser("bob", entity.RoleUser)

	_, err := f.votes.Vote(context.Background(), voter.ID, 1, &request.VoteRequest{Value: "meh"})
	requireKind(t, err, KindValidation)
}

func TestVote_EnqueuesEventWithPreviousValue(t *testing.T) {
	f := newFixture()
	author := f.store.addUser("alice", entity.RoleUser)
	voter := f.store.addUser("bob", entity.RoleUser)
	ctx := context.Background()

	review, err := f.reviews.CreateReview(ctx, author.ID, tagged(42, 8))
	require.NoError(t, err)

	ack, err := f.votes.Vote(ctx, voter.ID, review.ID, &request.VoteRequest{Value: "fair"})
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Equal(t, "fair", ack.Value)

	_, err = f.votes.Vote(ctx, voter.ID, review.ID, &request.VoteRequest{Value: "unfair"})
	require.NoError(t, err)

	require.Len(t, f.store.jobs, 2)

	first := f.store.jobs[0]
	assert.Equal(t, author.ID, first.AuthorID)
	assert.Equal(t, review.ID, first.ReviewID)
	assert.Equal(t, voter.ID, first.VoterID)
	assert.Nil(t, first.PreviousValue)
	assert.Equal(t, entity.VoteFair, first.NewValue)

	second := f.store.jobs[1]
	require.NotNil(t, second.PreviousValue)
	assert.Equal(t, entity.VoteFair, *second.PreviousValue)
	assert.Equal(t, entity.VoteUnfair, second.NewValue)
	assert.NotEqual(t, first.ID, second.ID)

	// one row per voter and review
	assert.Len(t, f.store.votes, 1)

	// nothing is scored until the worker runs
	assert.Equal(t, 0, f.store.review(review.ID).Score)
}

func TestBatchVoteStatus_ReportsEveryRequestedID(t *testing.T) {
	f := newFixture()
	author := f.store.addUser("alice", entity.RoleUser)
	voter := f.store.addUser("bob", entity.RoleUser)
	ctx := context.Background()

	voted, err := f.reviews.CreateReview(ctx, author.ID, tagged(42, 8))
	require.NoError(t, err)
	notVoted, err := f.reviews.CreateReview(ctx, author.ID, tagged(43, 8))
	require.NoError(t, err)

	_, err = f.votes.Vote(ctx, voter.ID, voted.ID, &request.VoteRequest{Value: "unfair"})
	require.NoError(t, err)

	status, err := f.votes.BatchVoteStatus(ctx, voter.ID, &request.BatchVoteStatusRequest{
		ReviewIDs: []int64{voted.ID, notVoted.ID, 999},
	})
	require.NoError(t, err)

	require.Len(t, status, 3)
	assert.True(t, status[voted.ID].HasVoted)
	assert.Equal(t, "unfair", *status[voted.ID].Value)
	assert.False(t, status[notVoted.ID].HasVoted)
	assert.Nil(t, status[notVoted.ID].Value)
	assert.False(t, status[999].HasVoted)
}

func TestBatchVoteStatus_RequiresIDs(t *testing.T) {
	f := newFixture()
	voter := f.store.addUser("bob", entity.RoleUser)

	_, err := f.votes.BatchVoteStatus(context.Background(), voter.ID, &request.BatchVoteStatusRequest{})
	requireKind(t, err, KindValidation)

	_, err = f.votes.BatchVoteStatus(context.Background(), voter.ID, &request.BatchVoteStatusRequest{ReviewIDs: []int64{0}})
	requireKind(t, err, KindValidation)
}
