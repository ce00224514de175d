package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("zed", "amy")
	assert.Equal(t, "amy", a)
	assert.Equal(t, "zed", b)

	a, b = CanonicalPair("amy", "zed")
	assert.Equal(t, "amy", a)
	assert.Equal(t, "zed", b)
}

func TestNewMatch_SetsSlotsAndExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMatch("m1", "u2", "u1", now)

	assert.Equal(t, "u1", m.User1ID)
	assert.Equal(t, "u2", m.User2ID)
	assert.Equal(t, KnotStatusChatting, m.KnotStatus)
	assert.Equal(t, now.Add(72*time.Hour), m.ChatExpiresAt)
	assert.Equal(t, "u2", m.Partner("u1"))
	assert.Equal(t, "", m.Partner("u3"))
	assert.False(t, m.HasUser(""))
}

func TestRecordMessage_RoundsCountTurns(t *testing.T) {
	m := NewMatch("m1", "a", "b", time.Now())
	var msgs []*Message
	for _, sender := range []string{"a", "a", "b", "a", "b", "b", "b"} {
		m.RecordMessage(sender)
		msgs = append(msgs, &Message{SenderID: sender})
	}

	assert.Equal(t, 3, m.User1MessageCount)
	assert.Equal(t, 4, m.User2MessageCount)
	assert.Equal(t, 2, m.User1Rounds)
	assert.Equal(t, 2, m.User2Rounds)
	assert.Equal(t, 7, m.MessageTotal())

	rounds := CountRounds(msgs)
	assert.Equal(t, m.User1Rounds, rounds["a"])
	assert.Equal(t, m.User2Rounds, rounds["b"])
}

func TestCanRequestKnot_Threshold(t *testing.T) {
	m := NewMatch("m1", "a", "b", time.Now())
	for i := 0; i < KnotRoundThreshold-1; i++ {
		m.RecordMessage("a")
		m.RecordMessage("b")
	}
	assert.False(t, m.CanRequestKnot())

	m.RecordMessage("a")
	assert.False(t, m.CanRequestKnot())
	m.RecordMessage("b")
	assert.True(t, m.CanRequestKnot())

	m.KnotStatus = KnotStatusKnotted
	assert.False(t, m.CanRequestKnot())
}

func TestChatExpired(t *testing.T) {
	now := time.Now()
	m := NewMatch("m1", "a", "b", now)

	assert.False(t, m.ChatExpired(now.Add(71*time.Hour)))
	assert.True(t, m.ChatExpired(now.Add(72*time.Hour)))

	m.KnotStatus = KnotStatusKnotted
	assert.False(t, m.ChatExpired(now.Add(100*time.Hour)))
}

func TestUserLedgerBounds(t *testing.T) {
	u := &User{StarRating: 4.95, FidelityPoints: 10}

	u.AdjustStarRating(0.1)
	assert.Equal(t, MaxStarRating, u.StarRating)

	u.StarRating = 0.05
	u.AdjustStarRating(-0.3)
	assert.Equal(t, MinStarRating, u.StarRating)

	u.AdjustFidelityPoints(-50)
	assert.Equal(t, 0, u.FidelityPoints)
	u.AdjustFidelityPoints(25)
	assert.Equal(t, 25, u.FidelityPoints)
}

func TestRecomputeStarRating(t *testing.T) {
	u := &User{StarRating: 3.2}
	u.RecomputeStarRating()
	assert.Equal(t, DefaultStarRating, u.StarRating)

	u.TotalRatingsReceived = 4
	u.PositiveRatings = 3
	u.RecomputeStarRating()
	assert.InDelta(t, 3.75, u.StarRating, 1e-9)
}

func TestErrorKinds(t *testing.T) {
	err := NewQuotaExceededError("You've used all your tugs for today")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindQuotaExceeded, kind)
	assert.Equal(t, "QuotaExceededError: You've used all your tugs for today", err.Error())

	_, ok = KindOf(assert.AnError)
	assert.False(t, ok)
	assert.True(t, IsKind(NewNotFoundError("user", "x"), KindNotFound))
}
