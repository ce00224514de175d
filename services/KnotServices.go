package services

import (
	"context"
	"strings"
	"time"

	"string_server/models"
	"string_server/store"
)

// KnotProgress summarizes how close a conversation is to unlocking the knot.
type KnotProgress struct {
	MatchID           string            `json:"matchId"`
	KnotStatus        models.KnotStatus `json:"knotStatus"`
	User1ID           string            `json:"user1Id"`
	User2ID           string            `json:"user2Id"`
	User1MessageCount int               `json:"user1MessageCount"`
	User2MessageCount int               `json:"user2MessageCount"`
	User1Rounds       int               `json:"user1Rounds"`
	User2Rounds       int               `json:"user2Rounds"`
	RoundsRequired    int               `json:"roundsRequired"`
	CanRequestKnot    bool              `json:"canRequestKnot"`
	KnotRequestedBy   string            `json:"knotRequestedBy,omitempty"`
	ChatExpiresAt     time.Time         `json:"chatExpiresAt"`
}

// KnotProgress reports the round counters and whether a knot can be requested.
func (s *ConnectionService) KnotProgress(ctx context.Context, matchID string) (*KnotProgress, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, models.NewValidationError("matchId is required")
	}
	if _, err := expireIfDue(ctx, s.Store, s.Log, matchID, s.Clock.Now()); err != nil {
		return nil, err
	}

	var p *KnotProgress
	err := s.Store.View(ctx, func(tx store.Tx) error {
		m, err := tx.GetMatch(matchID)
		if err != nil {
			return lookupErr(err, "match", matchID)
		}
		p = &KnotProgress{
			MatchID:           m.ID,
			KnotStatus:        m.KnotStatus,
			User1ID:           m.User1ID,
			User2ID:           m.User2ID,
			User1MessageCount: m.User1MessageCount,
			User2MessageCount: m.User2MessageCount,
			User1Rounds:       m.User1Rounds,
			User2Rounds:       m.User2Rounds,
			RoundsRequired:    models.KnotRoundThreshold,
			CanRequestKnot:    m.CanRequestKnot(),
			KnotRequestedBy:   m.KnotRequestedBy,
			ChatExpiresAt:     m.ChatExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	return p, nil
}

// knotTransition runs step against an active match the user belongs to and notifies
// both participants once the new state is committed.
func (s *ConnectionService) knotTransition(ctx context.Context, matchID, byUserID, action string, step func(tx store.Tx, m *models.Match, now time.Time) error) (*models.Match, error) {
	matchID = strings.TrimSpace(matchID)
	byUserID = strings.TrimSpace(byUserID)
	if matchID == "" || byUserID == "" {
		return nil, models.NewValidationError("matchId and userId are required")
	}
	now := s.Clock.Now()
	if _, err := expireIfDue(ctx, s.Store, s.Log, matchID, now); err != nil {
		return nil, err
	}

	var out *models.Match
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		out = nil
		m, err := loadActiveMatch(tx, matchID, now)
		if err != nil {
			return err
		}
		if !m.HasUser(byUserID) {
			return models.NewValidationError("User %q is not part of match %q", byUserID, matchID)
		}
		if err := step(tx, m, now); err != nil {
			return err
		}
		if err := tx.PutMatch(m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.Log.Info().Str("match_id", matchID).Str("user_id", byUserID).Str("knot_status", string(out.KnotStatus)).Msgf("🪢 knot %s", action)
	notifyAll(s.Notifier, EventKnot, out, out.User1ID, out.User2ID)
	return out, nil
}

// tieKnot accepts a pending request and rewards both participants.
func tieKnot(tx store.Tx, m *models.Match, now time.Time) error {
	for _, id := range []string{m.User1ID, m.User2ID} {
		u, err := tx.GetUser(id)
		if err != nil {
			return lookupErr(err, "user", id)
		}
		rewardKnot(u)
		if err := tx.PutUser(u); err != nil {
			return err
		}
	}
	m.KnotStatus = models.KnotStatusKnotted
	m.KnottedAt = &now
	m.IsTied = true
	return nil
}

// RequestKnot asks the partner to tie the knot. When the partner already asked, it accepts instead.
func (s *ConnectionService) RequestKnot(ctx context.Context, matchID, byUserID string) (*models.Match, error) {
	return s.knotTransition(ctx, matchID, byUserID, "requested", func(tx store.Tx, m *models.Match, now time.Time) error {
		switch m.KnotStatus {
		case models.KnotStatusChatting:
			if !m.CanRequestKnot() {
				return models.NewValidationError("Exchange at least %d rounds each before requesting a knot", models.KnotRoundThreshold)
			}
			m.KnotStatus = models.KnotStatusKnotRequested
			m.KnotRequestedBy = byUserID
			m.KnotRequestedAt = &now
			return nil
		case models.KnotStatusKnotRequested:
			if m.KnotRequestedBy == byUserID {
				return models.NewValidationError("You already requested a knot")
			}
			return tieKnot(tx, m, now)
		}
		return models.NewValidationError("The knot is already tied")
	})
}

// AcceptKnot ties the knot requested by the partner.
func (s *ConnectionService) AcceptKnot(ctx context.Context, matchID, byUserID string) (*models.Match, error) {
	return s.knotTransition(ctx, matchID, byUserID, "accepted", func(tx store.Tx, m *models.Match, now time.Time) error {
		switch m.KnotStatus {
		case models.KnotStatusKnotRequested:
			if m.KnotRequestedBy == byUserID {
				return models.NewValidationError("You cannot accept your own knot request")
			}
			return tieKnot(tx, m, now)
		case models.KnotStatusKnotted, models.KnotStatusPermanentlyKnotted:
			return models.NewConflictError("The knot has already been tied")
		}
		return models.NewValidationError("There is no pending knot request")
	})
}

// RevokeKnot withdraws the caller's pending knot request.
func (s *ConnectionService) RevokeKnot(ctx context.Context, matchID, byUserID string) (*models.Match, error) {
	return s.knotTransition(ctx, matchID, byUserID, "revoked", func(_ store.Tx, m *models.Match, _ time.Time) error {
		if m.KnotStatus != models.KnotStatusKnotRequested {
			return models.NewValidationError("There is no pending knot request")
		}
		if m.KnotRequestedBy != byUserID {
			return models.NewValidationError("Only the requester can revoke a knot request")
		}
		m.KnotStatus = models.KnotStatusChatting
		m.KnotRequestedBy = ""
		m.KnotRequestedAt = nil
		return nil
	})
}

// RefuseKnot declines a pending request, or unties a knotted match at a reputation cost.
func (s *ConnectionService) RefuseKnot(ctx context.Context, matchID, byUserID string) (*models.Match, error) {
	return s.knotTransition(ctx, matchID, byUserID, "refused", func(tx store.Tx, m *models.Match, now time.Time) error {
		switch m.KnotStatus {
		case models.KnotStatusKnotRequested:
			if m.KnotRequestedBy == byUserID {
				return models.NewValidationError("Use revoke to withdraw your own knot request")
			}
			m.KnotStatus = models.KnotStatusChatting
			m.KnotRequestedBy = ""
			m.KnotRequestedAt = nil
			return nil
		case models.KnotStatusKnotted:
			u, err := tx.GetUser(byUserID)
			if err != nil {
				return lookupErr(err, "user", byUserID)
			}
			penalizeKnotRefusal(u)
			if err := tx.PutUser(u); err != nil {
				return err
			}
			m.KnotStatus = models.KnotStatusArchived
			m.ArchiveReason = models.ArchiveReasonKnotRefused
			m.ArchivedAt = &now
			return nil
		case models.KnotStatusPermanentlyKnotted:
			return models.NewValidationError("A permanent knot cannot be refused")
		}
		return models.NewValidationError("There is no knot to refuse")
	})
}
