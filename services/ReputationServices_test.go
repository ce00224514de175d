package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
)

func rate(rater, rated, matchID string, positive bool, reason string) RatingInput {
	return RatingInput{RaterUserID: rater, RatedUserID: rated, MatchID: matchID, IsPositive: &positive, Reason: reason}
}

func TestApplyRating_NegativeWithoutReasonIsRejected(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.matchOf("amy", "bo")

	_, err := h.ratings.ApplyRating(h.ctx, rate("amy", "bo", m.ID, false, "  "))
	requireKind(t, err, models.KindValidation)

	bo := h.user("bo")
	assert.Equal(t, 0, bo.TotalRatingsReceived)
	assert.InDelta(t, models.DefaultStarRating, bo.StarRating, 1e-9)
	ratings, err := h.ratings.ListRatings(h.ctx, "bo")
	require.NoError(t, err)
	assert.Empty(t, ratings)
	assert.False(t, h.match(m.ID).User1Rated)
}

func TestApplyRating_RecomputesStarsAndRewardsFP(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	h.addUser("cy")
	h.addUser("di")
	m := h.matchOf("amy", "bo")

	r, err := h.ratings.ApplyRating(h.ctx, rate("amy", "bo", m.ID, true, "ignored"))
	require.NoError(t, err)
	assert.Empty(t, r.Reason)

	bo := h.user("bo")
	assert.Equal(t, 1, bo.TotalRatingsReceived)
	assert.Equal(t, 1, bo.PositiveRatings)
	assert.InDelta(t, 5.0, bo.StarRating, 1e-9)
	assert.Equal(t, models.DefaultFidelityPoints+models.PositiveRatingRatedReward, bo.FidelityPoints)
	assert.Equal(t, models.DefaultFidelityPoints+models.PositiveRatingRaterReward, h.user("amy").FidelityPoints)
	assert.True(t, h.match(m.ID).User1Rated)
	assert.False(t, h.match(m.ID).User2Rated)

	_, err = h.ratings.ApplyRating(h.ctx, rate("cy", "bo", "", false, "rude"))
	require.NoError(t, err)
	_, err = h.ratings.ApplyRating(h.ctx, rate("di", "bo", "", false, "late"))
	require.NoError(t, err)

	bo = h.user("bo")
	assert.Equal(t, 3, bo.TotalRatingsReceived)
	assert.Equal(t, 1, bo.PositiveRatings)
	assert.InDelta(t, float64(1)/3*5, bo.StarRating, 1e-9)
	assert.Equal(t, models.DefaultFidelityPoints, h.user("cy").FidelityPoints, "negative ratings pay nothing")
}

func TestApplyRating_RejectsDuplicatesAndBadPairs(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	h.addUser("cy")
	m := h.matchOf("amy", "bo")

	_, err := h.ratings.ApplyRating(h.ctx, rate("amy", "bo", m.ID, true, ""))
	require.NoError(t, err)
	_, err = h.ratings.ApplyRating(h.ctx, rate("amy", "bo", m.ID, false, "changed my mind"))
	requireKind(t, err, models.KindDuplicate)
	assert.Equal(t, 1, h.user("bo").TotalRatingsReceived)

	_, err = h.ratings.ApplyRating(h.ctx, rate("amy", "amy", "", true, ""))
	requireKind(t, err, models.KindValidation)
	_, err = h.ratings.ApplyRating(h.ctx, rate("cy", "bo", m.ID, true, ""))
	requireKind(t, err, models.KindValidation)
	_, err = h.ratings.ApplyRating(h.ctx, rate("amy", "ghost", "", true, ""))
	requireKind(t, err, models.KindNotFound)
	_, err = h.ratings.ApplyRating(h.ctx, rate("amy", "bo", "nope", true, ""))
	requireKind(t, err, models.KindNotFound)
	_, err = h.ratings.ApplyRating(h.ctx, RatingInput{RaterUserID: "amy", RatedUserID: "bo"})
	requireKind(t, err, models.KindValidation)
}

func TestListRatings_GivenAndReceived(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	h.addUser("cy")

	_, err := h.ratings.ApplyRating(h.ctx, rate("amy", "bo", "", true, ""))
	require.NoError(t, err)
	_, err = h.ratings.ApplyRating(h.ctx, rate("cy", "amy", "", false, "ghosted"))
	require.NoError(t, err)

	ratings, err := h.ratings.ListRatings(h.ctx, "amy")
	require.NoError(t, err)
	assert.Len(t, ratings, 2)

	ratings, err = h.ratings.ListRatings(h.ctx, "bo")
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}

func TestApplyRating_ConcurrentRatersDoNotLoseUpdates(t *testing.T) {
	h := newHarness(t)
	h.addUser("star")
	const raters = 8
	for i := 0; i < raters; i++ {
		h.addUser(fmt.Sprintf("r%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, raters)
	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.ratings.ApplyRating(h.ctx, rate(fmt.Sprintf("r%d", i), "star", "", i%2 == 0, "meh"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	u := h.user("star")
	assert.Equal(t, raters, u.TotalRatingsReceived)
	assert.Equal(t, raters/2, u.PositiveRatings)
	assert.InDelta(t, 2.5, u.StarRating, 1e-9)
	assert.Equal(t, models.DefaultFidelityPoints+raters/2*models.PositiveRatingRatedReward, u.FidelityPoints)
}
