package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// DateService plans dates between knotted matches and settles their outcome.
type DateService struct {
	Store    store.Store
	Clock    Clock
	Log      zerolog.Logger
	Notifier Notifier
}

// DateSuggestion proposes a spot and time for a date.
type DateSuggestion struct {
	UserID       string          `json:"userId"`
	Spot         models.DateSpot `json:"spot"`
	ScheduledFor time.Time       `json:"scheduledFor"`
}

// FeedbackInput is one participant's report after a date.
type FeedbackInput struct {
	UserID          string                 `json:"userId"`
	Attended        *bool                  `json:"attended"`
	PartnerAttended *bool                  `json:"partnerAttended"`
	Outcome         models.FeedbackOutcome `json:"outcome,omitempty"`
	Comments        string                 `json:"comments,omitempty"`
}

// resolveOutcome derives the stored outcome from what the participant reported.
func (in *FeedbackInput) resolveOutcome() (models.FeedbackOutcome, error) {
	attended, partnerAttended := *in.Attended, *in.PartnerAttended
	if attended && !partnerAttended {
		return models.OutcomeNoShowReported, nil
	}
	switch {
	case in.Outcome == "":
		return models.OutcomeNotInterested, nil
	case in.Outcome == models.OutcomeNoShowReported:
		return "", models.NewValidationError("no_show_reported is derived from attendance and cannot be chosen")
	case !in.Outcome.Valid():
		return "", models.NewValidationError("unknown outcome %q", in.Outcome)
	case in.Outcome == models.OutcomeTiePermanently && !(attended && partnerAttended):
		return "", models.NewValidationError("Both of you must have attended to tie the knot permanently")
	}
	return in.Outcome, nil
}

// dateTransition runs step against the match of a participant and notifies both sides after commit.
func (s *DateService) dateTransition(ctx context.Context, matchID, userID, action string, step func(tx store.Tx, m *models.Match, user1 bool, now time.Time) error) (*models.Match, error) {
	matchID = strings.TrimSpace(matchID)
	userID = strings.TrimSpace(userID)
	if matchID == "" || userID == "" {
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
		if !m.HasUser(userID) {
			return models.NewValidationError("User %q is not part of match %q", userID, matchID)
		}
		if err := step(tx, m, m.IsUser1(userID), now); err != nil {
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

	s.Log.Info().
		Str("match_id", matchID).
		Str("user_id", userID).
		Str("date_status", string(out.ScheduledDate.Status)).
		Msgf("📅 date %s", action)
	notifyAll(s.Notifier, EventDate, out, out.User1ID, out.User2ID)
	return out, nil
}

func activeDate(m *models.Match) (*models.ScheduledDate, error) {
	d := m.ScheduledDate
	if d == nil || !d.Status.IsActive() {
		return nil, models.NewValidationError("There is no upcoming date for this match")
	}
	return d, nil
}

// SuggestDate proposes a date. Only knotted matches can plan one, one at a time.
func (s *DateService) SuggestDate(ctx context.Context, matchID string, in DateSuggestion) (*models.Match, error) {
	in.Spot.Name = strings.TrimSpace(in.Spot.Name)
	if in.Spot.Name == "" {
		return nil, models.NewValidationError("spot name is required")
	}
	if in.ScheduledFor.IsZero() {
		return nil, models.NewValidationError("scheduledFor is required")
	}
	if in.Spot.ID == "" {
		in.Spot.ID = uuid.NewString()
	}
	return s.dateTransition(ctx, matchID, in.UserID, "suggested", func(_ store.Tx, m *models.Match, user1 bool, now time.Time) error {
		if m.KnotStatus != models.KnotStatusKnotted && m.KnotStatus != models.KnotStatusPermanentlyKnotted {
			return models.NewValidationError("Tie the knot before planning a date")
		}
		if !in.ScheduledFor.After(now) {
			return models.NewValidationError("A date must be scheduled in the future")
		}
		if m.ScheduledDate != nil && m.ScheduledDate.Status.IsActive() {
			return models.NewConflictError("This match already has an upcoming date")
		}
		m.ScheduledDate = &models.ScheduledDate{
			ID:             uuid.NewString(),
			Spot:           in.Spot,
			ScheduledFor:   in.ScheduledFor.UTC(),
			ProposedBy:     strings.TrimSpace(in.UserID),
			User1Confirmed: user1,
			User2Confirmed: !user1,
			Status:         models.DateStatusPending,
			CreatedAt:      now,
		}
		return nil
	})
}

// ConfirmDate records the caller's confirmation. The date is confirmed once both sides agree.
func (s *DateService) ConfirmDate(ctx context.Context, matchID, userID string) (*models.Match, error) {
	return s.dateTransition(ctx, matchID, userID, "confirmed", func(_ store.Tx, m *models.Match, user1 bool, _ time.Time) error {
		d, err := activeDate(m)
		if err != nil {
			return err
		}
		if user1 {
			d.User1Confirmed = true
		} else {
			d.User2Confirmed = true
		}
		if d.User1Confirmed && d.User2Confirmed {
			d.Status = models.DateStatusConfirmed
		}
		return nil
	})
}

// CancelDate calls off the upcoming date.
func (s *DateService) CancelDate(ctx context.Context, matchID, userID string) (*models.Match, error) {
	return s.dateTransition(ctx, matchID, userID, "cancelled", func(_ store.Tx, m *models.Match, _ bool, _ time.Time) error {
		d, err := activeDate(m)
		if err != nil {
			return err
		}
		d.Status = models.DateStatusCancelled
		return nil
	})
}

// SubmitDateFeedback stores one side's report and applies its reputation effects immediately.
func (s *DateService) SubmitDateFeedback(ctx context.Context, matchID string, in FeedbackInput) (*models.Match, error) {
	if in.Attended == nil || in.PartnerAttended == nil {
		return nil, models.NewValidationError("attended and partnerAttended are required")
	}
	outcome, err := in.resolveOutcome()
	if err != nil {
		return nil, err
	}
	attended, partnerAttended := *in.Attended, *in.PartnerAttended

	return s.dateTransition(ctx, matchID, in.UserID, "feedback", func(tx store.Tx, m *models.Match, user1 bool, now time.Time) error {
		d := m.ScheduledDate
		if d == nil {
			return models.NewValidationError("There is no date for this match")
		}
		if d.Status == models.DateStatusCancelled {
			return models.NewValidationError("This date was cancelled")
		}
		if d.Status == models.DateStatusPending {
			return models.NewValidationError("Both of you need to confirm the date before leaving feedback")
		}
		if now.Before(d.ScheduledFor) {
			return models.NewValidationError("Feedback opens once the date has started")
		}
		if d.FeedbackFor(user1) != nil {
			return models.NewDuplicateError("You already submitted feedback for this date")
		}

		fb := &models.DateFeedback{
			Attended:        attended,
			PartnerAttended: partnerAttended,
			Outcome:         outcome,
			Comments:        strings.TrimSpace(in.Comments),
			SubmittedAt:     now,
		}
		self, partner := m.User1ID, m.User2ID
		if user1 {
			d.User1Feedback = fb
			d.User1Attended = boolPtr(attended)
			if d.User2Feedback == nil {
				d.User2Attended = boolPtr(partnerAttended)
			}
		} else {
			self, partner = partner, self
			d.User2Feedback = fb
			d.User2Attended = boolPtr(attended)
			if d.User1Feedback == nil {
				d.User1Attended = boolPtr(partnerAttended)
			}
		}

		switch {
		case attended && !partnerAttended:
			if err := s.penalize(tx, d, partner, !user1); err != nil {
				return err
			}
			d.Status = models.DateStatusNoShow
		case !attended && partnerAttended:
			if err := s.penalize(tx, d, self, user1); err != nil {
				return err
			}
			d.Status = models.DateStatusNoShow
		case !attended && !partnerAttended:
			d.Status = models.DateStatusCancelled
		default:
			if outcome == models.OutcomeTiePermanently && m.KnotStatus == models.KnotStatusKnotted {
				m.KnotStatus = models.KnotStatusPermanentlyKnotted
				m.PermanentlyKnottedAt = &now
			}
		}

		if d.Status.IsActive() && d.User1Feedback != nil && d.User2Feedback != nil && d.BothAttended() {
			d.Status = models.DateStatusCompleted
		}
		return nil
	})
}

// penalize charges the no-show penalty to the user in the given slot once per date.
func (s *DateService) penalize(tx store.Tx, d *models.ScheduledDate, userID string, user1 bool) error {
	if (user1 && d.User1Penalized) || (!user1 && d.User2Penalized) {
		return nil
	}
	u, err := tx.GetUser(userID)
	if err != nil {
		return lookupErr(err, "user", userID)
	}
	penalizeNoShow(u)
	if err := tx.PutUser(u); err != nil {
		return err
	}
	if user1 {
		d.User1Penalized = true
	} else {
		d.User2Penalized = true
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
