package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
)

func TestUpdateMatch_IsTiedFollowsKnotStatus(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	h.addUser("cy")
	m := h.matchOf("amy", "bo")

	_, err := h.matches.UpdateMatch(h.ctx, m.ID, MatchUpdate{})
	requireKind(t, err, models.KindValidation)

	tied, untied := true, false
	_, err = h.matches.UpdateMatch(h.ctx, m.ID, MatchUpdate{IsTied: &tied})
	requireKind(t, err, models.KindValidation)
	got, err := h.matches.UpdateMatch(h.ctx, m.ID, MatchUpdate{IsTied: &untied})
	require.NoError(t, err)
	assert.False(t, got.IsTied)
	assert.Equal(t, models.KnotStatusChatting, got.KnotStatus)

	k := h.knotted("amy", "cy")
	_, err = h.matches.UpdateMatch(h.ctx, k.ID, MatchUpdate{IsTied: &untied})
	requireKind(t, err, models.KindValidation)
	stored := h.match(k.ID)
	assert.True(t, stored.IsTied)
	got, err = h.matches.UpdateMatch(h.ctx, k.ID, MatchUpdate{IsTied: &tied})
	require.NoError(t, err)
	assert.True(t, got.IsTied)

	_, err = h.matches.UpdateMatch(h.ctx, "missing", MatchUpdate{IsTied: &tied})
	requireKind(t, err, models.KindNotFound)

	h.clock.Advance(models.ChatWindow)
	_, err = h.matches.UpdateMatch(h.ctx, m.ID, MatchUpdate{IsTied: &untied})
	requireKind(t, err, models.KindArchived)
}

func TestListMatches_ExpiresIdleMatches(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")
	h.addUser("cy")
	h.matchOf("amy", "bo")
	h.knotted("amy", "cy")

	h.clock.Advance(models.ChatWindow)
	matches, err := h.matches.ListMatches(h.ctx, "amy")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	statuses := map[string]models.KnotStatus{}
	for _, m := range matches {
		statuses[m.Partner("amy")] = m.KnotStatus
	}
	assert.Equal(t, models.KnotStatusArchived, statuses["bo"])
	assert.Equal(t, models.KnotStatusKnotted, statuses["cy"])

	none, err := h.matches.ListMatches(h.ctx, "cy")
	require.NoError(t, err)
	assert.Len(t, none, 1)

	_, err = h.matches.GetMatch(h.ctx, "missing")
	requireKind(t, err, models.KindNotFound)
}
