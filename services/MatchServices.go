package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// MatchService reads and updates matches, applying the lazy chat expiry first.
type MatchService struct {
	Store store.Store
	Clock Clock
	Log   zerolog.Logger
}

// MatchUpdate is the only field group a client may patch on a match.
type MatchUpdate struct {
	IsTied *bool `json:"isTied"`
}

// archiveExpired archives an idle match and charges both participants the expiry penalty.
func archiveExpired(tx store.Tx, m *models.Match, now time.Time) error {
	for _, id := range []string{m.User1ID, m.User2ID} {
		u, err := tx.GetUser(id)
		if err != nil {
			return lookupErr(err, "user", id)
		}
		u.AdjustStarRating(-models.ChatExpiryStars)
		u.AdjustFidelityPoints(-models.ChatExpiryFP)
		if err := tx.PutUser(u); err != nil {
			return err
		}
	}
	m.KnotStatus = models.KnotStatusArchived
	m.ArchiveReason = models.ArchiveReasonChatExpired
	m.ArchivedAt = &now
	m.KnotRequestedBy = ""
	m.KnotRequestedAt = nil
	return tx.PutMatch(m)
}

// expireIfDue archives the match in its own transaction when its chat window has elapsed.
// It reports whether this call performed the transition.
func expireIfDue(ctx context.Context, st store.Store, log zerolog.Logger, matchID string, now time.Time) (bool, error) {
	var expired bool
	err := st.WithTransaction(ctx, func(tx store.Tx) error {
		expired = false
		m, err := tx.GetMatch(matchID)
		if err != nil {
			return lookupErr(err, "match", matchID)
		}
		if !m.ChatExpired(now) {
			return nil
		}
		if err := archiveExpired(tx, m, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, txErr(err)
	}
	if expired {
		log.Info().Str("match_id", matchID).Msg("⌛ chat expired, match archived")
	}
	return expired, nil
}

// loadActiveMatch reads a match for an action inside tx. An archived match, or one
// whose chat window has passed, is rejected.
func loadActiveMatch(tx store.Tx, matchID string, now time.Time) (*models.Match, error) {
	m, err := tx.GetMatch(matchID)
	if err != nil {
		return nil, lookupErr(err, "match", matchID)
	}
	if m.KnotStatus == models.KnotStatusArchived || m.ChatExpired(now) {
		return nil, models.NewArchivedError("This match has been archived")
	}
	return m, nil
}

// GetMatch returns a match after applying the lazy expiry.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, models.NewValidationError("matchId is required")
	}
	now := s.Clock.Now()
	if _, err := expireIfDue(ctx, s.Store, s.Log, matchID, now); err != nil {
		return nil, err
	}
	var m *models.Match
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMatch(matchID)
		return lookupErr(err, "match", matchID)
	})
	if err != nil {
		return nil, txErr(err)
	}
	return m, nil
}

// ListMatches returns every match the user takes part in, expiring idle ones on the way.
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]*models.Match, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	now := s.Clock.Now()

	var matches []*models.Match
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		matches, err = tx.ListMatchesForUser(userID)
		return err
	})
	if err != nil {
		return nil, txErr(err)
	}

	for i, m := range matches {
		if !m.ChatExpired(now) {
			continue
		}
		fresh, err := s.GetMatch(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		matches[i] = fresh
	}
	return matches, nil
}

// UpdateMatch applies a named update to a match. isTied is owned by the knot
// lifecycle, so only the value it already holds is accepted.
func (s *MatchService) UpdateMatch(ctx context.Context, matchID string, upd MatchUpdate) (*models.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, models.NewValidationError("matchId is required")
	}
	if upd.IsTied == nil {
		return nil, models.NewValidationError("no updatable fields provided")
	}
	now := s.Clock.Now()
	if _, err := expireIfDue(ctx, s.Store, s.Log, matchID, now); err != nil {
		return nil, err
	}

	var out *models.Match
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		m, err := loadActiveMatch(tx, matchID, now)
		if err != nil {
			return err
		}
		if *upd.IsTied != m.IsTied {
			return models.NewValidationError("isTied follows the knot status and is %t for this match", m.IsTied)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	s.Log.Info().Str("match_id", matchID).Bool("is_tied", out.IsTied).Msg("✅ match updated")
	return out, nil
}
