package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// TugService records tugs and turns mutual tugs into matches.
type TugService struct {
	Store    store.Store
	Clock    Clock
	Log      zerolog.Logger
	Notifier Notifier
}

// TugResult is returned for every tug. Match is set when the tug was mutual.
type TugResult struct {
	Tug      *models.Tug   `json:"tug"`
	IsMutual bool          `json:"isMutual"`
	Match    *models.Match `json:"match,omitempty"`
}

// Tug sends a tug from one user to another, creating the match on the first mutual tug.
func (s *TugService) Tug(ctx context.Context, fromUserID, toUserID string) (*TugResult, error) {
	fromUserID = strings.TrimSpace(fromUserID)
	toUserID = strings.TrimSpace(toUserID)
	if fromUserID == "" || toUserID == "" {
		return nil, models.NewValidationError("fromUserId and toUserId are required")
	}
	if fromUserID == toUserID {
		return nil, models.NewValidationError("You cannot tug yourself")
	}
	now := s.Clock.Now()

	var (
		res     *TugResult
		created bool
	)
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		res, created = nil, false

		from, err := tx.GetUser(fromUserID)
		if err != nil {
			return lookupErr(err, "user", fromUserID)
		}
		if _, err := tx.GetUser(toUserID); err != nil {
			return lookupErr(err, "user", toUserID)
		}
		if err := consumeTug(from, now); err != nil {
			return err
		}
		if err := tx.PutUser(from); err != nil {
			return err
		}

		tug := &models.Tug{ID: uuid.NewString(), FromUserID: fromUserID, ToUserID: toUserID, CreatedAt: now}
		if err := tx.AddTug(tug); err != nil {
			return err
		}

		mutual, err := tx.HasTug(toUserID, fromUserID)
		if err != nil {
			return err
		}
		res = &TugResult{Tug: tug, IsMutual: mutual}
		if !mutual {
			return nil
		}

		m, err := tx.GetMatchByPair(fromUserID, toUserID)
		switch {
		case err == nil:
			res.Match = m
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		m = models.NewMatch(uuid.NewString(), fromUserID, toUserID, now)
		if err := tx.PutMatch(m); err != nil {
			return err
		}
		res.Match = m
		created = true
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	if created {
		s.Log.Info().Str("match_id", res.Match.ID).Str("user1_id", res.Match.User1ID).Str("user2_id", res.Match.User2ID).Msg("💞 new match")
		notifyAll(s.Notifier, EventMatch, res.Match, res.Match.User1ID, res.Match.User2ID)
	}
	return res, nil
}

// ListTugs returns the tugs sent by a user.
func (s *TugService) ListTugs(ctx context.Context, userID string) ([]*models.Tug, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	var tugs []*models.Tug
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		tugs, err = tx.ListTugsFrom(userID)
		return err
	})
	if err != nil {
		return nil, txErr(err)
	}
	return tugs, nil
}

// CheckMutual reports whether both users have tugged each other.
func (s *TugService) CheckMutual(ctx context.Context, userA, userB string) (bool, error) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return false, models.NewValidationError("both user ids are required")
	}
	var mutual bool
	err := s.Store.View(ctx, func(tx store.Tx) error {
		ab, err := tx.HasTug(userA, userB)
		if err != nil || !ab {
			mutual = false
			return err
		}
		mutual, err = tx.HasTug(userB, userA)
		return err
	})
	if err != nil {
		return false, txErr(err)
	}
	return mutual, nil
}
