package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
	"string_server/store"
)

func TestRadarScan_SpendsFPAndRecordsBoost(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo", func(u *models.User) { u.StarRating = 4.5 })
	h.addUser("cy", func(u *models.User) { u.StarRating = 4.4 })

	res, err := h.radar.Scan(h.ctx, "amy", nil)
	require.NoError(t, err)
	assert.Equal(t, 50, h.user("amy").FidelityPoints)
	assert.Equal(t, models.RadarScanCost, res.Scan.FPSpent)
	assert.Equal(t, res.Scan.ScannedAt.Add(time.Hour), res.Scan.BoostExpiresAt)
	require.Len(t, res.HighRatedUsers, 1)
	assert.Equal(t, "bo", res.HighRatedUsers[0].ID)

	// drain to 10 FP and try again
	err = h.store.WithTransaction(h.ctx, func(tx store.Tx) error {
		u, err := tx.GetUser("amy")
		if err != nil {
			return err
		}
		u.FidelityPoints = 10
		return tx.PutUser(u)
	})
	require.NoError(t, err)

	cost := models.RadarScanCost
	_, err = h.radar.Scan(h.ctx, "amy", &cost)
	requireKind(t, err, models.KindInsufficientFunds)
	assert.Equal(t, 10, h.user("amy").FidelityPoints)

	active, err := h.radar.ActiveScans(h.ctx, "amy")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	h.clock.Advance(models.RadarBoostWindow)
	active, err = h.radar.ActiveScans(h.ctx, "amy")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRadarScan_Validation(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")

	wrong := 30
	_, err := h.radar.Scan(h.ctx, "amy", &wrong)
	requireKind(t, err, models.KindValidation)
	_, err = h.radar.Scan(h.ctx, "ghost", nil)
	requireKind(t, err, models.KindNotFound)
	assert.Equal(t, models.DefaultFidelityPoints, h.user("amy").FidelityPoints)
}
