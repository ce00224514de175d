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

// ReputationService records ratings and keeps the star rating and FP ledgers consistent.
type ReputationService struct {
	Store store.Store
	Clock Clock
	Log   zerolog.Logger
}

// RatingInput is a rating submitted by one user about another.
type RatingInput struct {
	RaterUserID string `json:"raterUserId"`
	RatedUserID string `json:"ratedUserId"`
	MatchID     string `json:"matchId,omitempty"`
	IsPositive  *bool  `json:"isPositive"`
	Reason      string `json:"reason,omitempty"`
}

func (in *RatingInput) validate() error {
	in.RaterUserID = strings.TrimSpace(in.RaterUserID)
	in.RatedUserID = strings.TrimSpace(in.RatedUserID)
	in.MatchID = strings.TrimSpace(in.MatchID)
	in.Reason = strings.TrimSpace(in.Reason)
	switch {
	case in.RaterUserID == "" || in.RatedUserID == "":
		return models.NewValidationError("raterUserId and ratedUserId are required")
	case in.IsPositive == nil:
		return models.NewValidationError("isPositive is required")
	case !*in.IsPositive && in.Reason == "":
		return models.NewValidationError("A reason is required for a negative rating")
	case in.RaterUserID == in.RatedUserID:
		return models.NewValidationError("You cannot rate yourself")
	}
	return nil
}

// rewardKnot applies the mutual knot reward to a participant.
func rewardKnot(u *models.User) {
	u.AdjustStarRating(models.KnotRewardStars)
	u.AdjustFidelityPoints(models.KnotRewardFP)
}

// penalizeNoShow charges a participant who did not show up to a date.
func penalizeNoShow(u *models.User) {
	u.AdjustStarRating(-models.NoShowPenaltyStars)
	u.AdjustFidelityPoints(-models.NoShowPenaltyFP)
}

// penalizeKnotRefusal charges the side that untied a knotted match.
func penalizeKnotRefusal(u *models.User) {
	u.AdjustStarRating(-models.KnotRefusalPenalty)
}

// ApplyRating records a rating and updates the rated user's reputation in one transaction.
func (s *ReputationService) ApplyRating(ctx context.Context, in RatingInput) (*models.Rating, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	positive := *in.IsPositive
	if positive {
		in.Reason = ""
	}
	now := s.Clock.Now()

	var rating *models.Rating
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		rating = nil
		rater, err := tx.GetUser(in.RaterUserID)
		if err != nil {
			return lookupErr(err, "user", in.RaterUserID)
		}
		rated, err := tx.GetUser(in.RatedUserID)
		if err != nil {
			return lookupErr(err, "user", in.RatedUserID)
		}

		var match *models.Match
		if in.MatchID != "" {
			match, err = tx.GetMatch(in.MatchID)
			if err != nil {
				return lookupErr(err, "match", in.MatchID)
			}
			if !match.HasUser(rater.ID) || !match.HasUser(rated.ID) {
				return models.NewValidationError("Both users must belong to match %q", in.MatchID)
			}
		}

		r := &models.Rating{
			ID:          uuid.NewString(),
			RaterUserID: rater.ID,
			RatedUserID: rated.ID,
			MatchID:     in.MatchID,
			IsPositive:  positive,
			Reason:      in.Reason,
			CreatedAt:   now,
		}
		if err := tx.AddRating(r); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return models.NewDuplicateError("You have already rated this user for this match")
			}
			return err
		}

		rated.TotalRatingsReceived++
		if positive {
			rated.PositiveRatings++
			rated.AdjustFidelityPoints(models.PositiveRatingRatedReward)
			rater.AdjustFidelityPoints(models.PositiveRatingRaterReward)
		}
		rated.RecomputeStarRating()

		if err := tx.PutUser(rated); err != nil {
			return err
		}
		if positive {
			if err := tx.PutUser(rater); err != nil {
				return err
			}
		}
		if match != nil {
			match.MarkRated(rater.ID)
			if err := tx.PutMatch(match); err != nil {
				return err
			}
		}
		rating = r
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.Log.Info().
		Str("rater_id", rating.RaterUserID).
		Str("rated_id", rating.RatedUserID).
		Bool("positive", rating.IsPositive).
		Msg("⭐ rating recorded")
	return rating, nil
}

// ListRatings returns the ratings a user gave or received, oldest first.
func (s *ReputationService) ListRatings(ctx context.Context, userID string) ([]*models.Rating, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	var ratings []*models.Rating
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		ratings, err = tx.ListRatingsForUser(userID)
		return err
	})
	if err != nil {
		return nil, txErr(err)
	}
	return ratings, nil
}
