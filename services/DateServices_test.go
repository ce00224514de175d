package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
)

func suggestion(userID string, when time.Time) DateSuggestion {
	return DateSuggestion{
		UserID:       userID,
		Spot:         models.DateSpot{Name: "Blue Bottle", Category: "cafe", PriceLevel: 2},
		ScheduledFor: when,
	}
}

func feedback(userID string, attended, partnerAttended bool, outcome models.FeedbackOutcome) FeedbackInput {
	return FeedbackInput{UserID: userID, Attended: &attended, PartnerAttended: &partnerAttended, Outcome: outcome}
}

// scheduleDate books a confirmed date a day out and moves the clock past it.
func (h *harness) scheduleDate(matchID, proposer, partner string) {
	h.t.Helper()
	_, err := h.dates.SuggestDate(h.ctx, matchID, suggestion(proposer, h.clock.Now().Add(24*time.Hour)))
	require.NoError(h.t, err)
	_, err = h.dates.ConfirmDate(h.ctx, matchID, partner)
	require.NoError(h.t, err)
	h.clock.Advance(25 * time.Hour)
}

func TestSuggestDate_RequiresKnotAndFutureTime(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.matchOf("amy", "bo")

	_, err := h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(24*time.Hour)))
	requireKind(t, err, models.KindValidation)

	m = h.knotted("amy", "bo")
	_, err = h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(-time.Minute)))
	requireKind(t, err, models.KindValidation)

	got, err := h.dates.SuggestDate(h.ctx, m.ID, suggestion("bo", start.Add(24*time.Hour)))
	require.NoError(t, err)
	d := got.ScheduledDate
	require.NotNil(t, d)
	assert.Equal(t, models.DateStatusPending, d.Status)
	assert.Equal(t, "bo", d.ProposedBy)
	assert.False(t, d.User1Confirmed)
	assert.True(t, d.User2Confirmed)
	assert.NotEmpty(t, d.Spot.ID)

	_, err = h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(48*time.Hour)))
	requireKind(t, err, models.KindConflict)
}

func TestConfirmAndCancelDate(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.knotted("amy", "bo")

	_, err := h.dates.ConfirmDate(h.ctx, m.ID, "amy")
	requireKind(t, err, models.KindValidation)

	_, err = h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(24*time.Hour)))
	require.NoError(t, err)
	got, err := h.dates.ConfirmDate(h.ctx, m.ID, "bo")
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusConfirmed, got.ScheduledDate.Status)

	got, err = h.dates.CancelDate(h.ctx, m.ID, "bo")
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusCancelled, got.ScheduledDate.Status)

	_, err = h.dates.SuggestDate(h.ctx, m.ID, suggestion("bo", start.Add(72*time.Hour)))
	require.NoError(t, err, "a cancelled date frees the slot")
	assert.Positive(t, h.notes.count(EventDate))
}

func TestDateFeedback_PartnerNoShowIsForced(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo", func(u *models.User) { u.StarRating = 4.0 })
	m := h.knotted("amy", "bo")
	h.scheduleDate(m.ID, "amy", "bo")

	boBefore := h.user("bo")
	got, err := h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, false, models.OutcomeTiePermanently))
	require.NoError(t, err)

	d := got.ScheduledDate
	require.NotNil(t, d.User1Feedback)
	assert.Equal(t, models.OutcomeNoShowReported, d.User1Feedback.Outcome)
	assert.Equal(t, models.DateStatusNoShow, d.Status)
	assert.True(t, d.User2Penalized)
	assert.Equal(t, models.KnotStatusKnotted, got.KnotStatus)

	bo := h.user("bo")
	assert.InDelta(t, boBefore.StarRating-models.NoShowPenaltyStars, bo.StarRating, 1e-9)
	assert.Equal(t, boBefore.FidelityPoints-models.NoShowPenaltyFP, bo.FidelityPoints)

	// bo owning up afterwards does not charge twice
	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("bo", false, true, ""))
	require.NoError(t, err)
	assert.Equal(t, bo.FidelityPoints, h.user("bo").FidelityPoints)

	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, true, ""))
	requireKind(t, err, models.KindDuplicate)
}

func TestDateFeedback_SelfReportedAbsence(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) { u.FidelityPoints = 0 })
	h.addUser("bo")
	m := h.knotted("amy", "bo")
	h.scheduleDate(m.ID, "amy", "bo")

	got, err := h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", false, true, models.OutcomeNotInterested))
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusNoShow, got.ScheduledDate.Status)
	assert.True(t, got.ScheduledDate.User1Penalized)

	amy := h.user("amy")
	assert.Equal(t, 0, amy.FidelityPoints, "reward 50 minus penalty 50")
	assert.InDelta(t, models.MaxStarRating-models.NoShowPenaltyStars, amy.StarRating, 1e-9)
}

func TestDateFeedback_BothAbsentCancels(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.knotted("amy", "bo")
	h.scheduleDate(m.ID, "amy", "bo")

	got, err := h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("bo", false, false, ""))
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusCancelled, got.ScheduledDate.Status)
	assert.Equal(t, models.OutcomeNotInterested, got.ScheduledDate.User2Feedback.Outcome)
	assert.Equal(t, models.DefaultFidelityPoints+models.KnotRewardFP, h.user("bo").FidelityPoints)
}

func TestDateFeedback_TiePermanentlyAndComplete(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.knotted("amy", "bo")
	_, err := h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = h.dates.ConfirmDate(h.ctx, m.ID, "bo")
	require.NoError(t, err)
	h.clock.Advance(25 * time.Hour)

	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, true, models.OutcomeNoShowReported))
	requireKind(t, err, models.KindValidation)
	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", false, true, models.OutcomeTiePermanently))
	requireKind(t, err, models.KindValidation)
	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, FeedbackInput{UserID: "amy", Outcome: models.OutcomePlanningAnother})
	requireKind(t, err, models.KindValidation)

	got, err := h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, true, models.OutcomeTiePermanently))
	require.NoError(t, err)
	assert.Equal(t, models.KnotStatusPermanentlyKnotted, got.KnotStatus)
	require.NotNil(t, got.PermanentlyKnottedAt)
	assert.Equal(t, models.DateStatusConfirmed, got.ScheduledDate.Status)

	got, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("bo", true, true, models.OutcomePlanningAnother))
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusCompleted, got.ScheduledDate.Status)
	assert.Equal(t, models.KnotStatusPermanentlyKnotted, got.KnotStatus)

	_, err = h.conn.RefuseKnot(h.ctx, m.ID, "bo")
	requireKind(t, err, models.KindValidation)
}

func TestDateFeedback_WaitsForConfirmedDateToStart(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.knotted("amy", "bo")
	_, err := h.dates.SuggestDate(h.ctx, m.ID, suggestion("amy", start.Add(7*24*time.Hour)))
	require.NoError(t, err)
	boBefore := h.user("bo")

	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, false, ""))
	requireKind(t, err, models.KindValidation)

	_, err = h.dates.ConfirmDate(h.ctx, m.ID, "bo")
	require.NoError(t, err)
	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, false, ""))
	requireKind(t, err, models.KindValidation)

	bo := h.user("bo")
	assert.InDelta(t, boBefore.StarRating, bo.StarRating, 1e-9)
	assert.Equal(t, boBefore.FidelityPoints, bo.FidelityPoints)
	assert.Nil(t, h.match(m.ID).ScheduledDate.User1Feedback)

	h.clock.Advance(7*24*time.Hour + time.Hour)
	got, err := h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("amy", true, false, ""))
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusNoShow, got.ScheduledDate.Status)
	assert.Equal(t, boBefore.FidelityPoints-models.NoShowPenaltyFP, h.user("bo").FidelityPoints)
}

func TestDateFeedback_UnconfirmedDateStaysClosedAfterItsTime(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	m := h.knotted("amy", "bo")
	_, err := h.dates.SuggestDate(h.ctx, m.ID, suggestion("bo", start.Add(24*time.Hour)))
	require.NoError(t, err)
	h.clock.Advance(48 * time.Hour)

	_, err = h.dates.SubmitDateFeedback(h.ctx, m.ID, feedback("bo", true, false, ""))
	requireKind(t, err, models.KindValidation)
	assert.Equal(t, models.DefaultFidelityPoints+models.KnotRewardFP, h.user("amy").FidelityPoints)

	got, err := h.dates.CancelDate(h.ctx, m.ID, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.DateStatusCancelled, got.ScheduledDate.Status)
}
