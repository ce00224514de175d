package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
)

func TestConsumeTug_ExhaustedThenResetAfterWindow(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) {
		u.DailyTugsRemaining = 0
		u.StarRating = 4.2
		u.FidelityPoints = 70
	})

	_, err := h.quota.ConsumeTug(h.ctx, "amy")
	requireKind(t, err, models.KindQuotaExceeded)
	assert.Contains(t, err.Error(), "You've used all your tugs for today")

	u := h.user("amy")
	assert.Equal(t, 0, u.DailyTugsRemaining)
	assert.Equal(t, 70, u.FidelityPoints)
	assert.InDelta(t, 4.2, u.StarRating, 1e-9)

	h.clock.Advance(models.TugResetInterval)
	u, err = h.quota.ConsumeTug(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTugs-1, u.DailyTugsRemaining)
	assert.Equal(t, start.Add(models.TugResetInterval), u.LastTugReset)
	assert.Equal(t, models.DefaultDailyTugs-1, h.user("amy").DailyTugsRemaining)
}

func TestResetDailyTugsIfNeeded(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) { u.DailyTugsRemaining = 3 })

	u, err := h.quota.ResetDailyTugsIfNeeded(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, 3, u.DailyTugsRemaining, "window still open")

	h.clock.Advance(23*time.Hour + 59*time.Minute)
	u, err = h.quota.ResetDailyTugsIfNeeded(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, 3, u.DailyTugsRemaining)

	h.clock.Advance(time.Minute)
	u, err = h.quota.ResetDailyTugsIfNeeded(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTugs, u.DailyTugsRemaining)

	_, err = h.quota.ResetDailyTugsIfNeeded(h.ctx, "nobody")
	requireKind(t, err, models.KindNotFound)
}

func TestSpendFP(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) { u.FidelityPoints = 30 })

	u, err := h.quota.SpendFP(h.ctx, "amy", 25)
	require.NoError(t, err)
	assert.Equal(t, 5, u.FidelityPoints)

	_, err = h.quota.SpendFP(h.ctx, "amy", 6)
	requireKind(t, err, models.KindInsufficientFunds)
	assert.Equal(t, 5, h.user("amy").FidelityPoints)

	_, err = h.quota.SpendFP(h.ctx, "amy", -1)
	requireKind(t, err, models.KindValidation)
}

func TestRefillTugs(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) { u.DailyTugsRemaining = 0 })
	h.addUser("bo", func(u *models.User) {
		u.DailyTugsRemaining = 1
		u.FidelityPoints = models.TugRefillCost - 1
	})

	u, err := h.quota.RefillTugs(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTugs, u.DailyTugsRemaining)
	assert.Equal(t, models.DefaultFidelityPoints-models.TugRefillCost, u.FidelityPoints)

	_, err = h.quota.RefillTugs(h.ctx, "bo")
	requireKind(t, err, models.KindInsufficientFunds)
	bo := h.user("bo")
	assert.Equal(t, 1, bo.DailyTugsRemaining)
	assert.Equal(t, models.TugRefillCost-1, bo.FidelityPoints)
}
