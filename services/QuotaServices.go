package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// QuotaService enforces the daily tug allowance and FP-gated purchases.
type QuotaService struct {
	Store store.Store
	Clock Clock
	Log   zerolog.Logger
}

// resetTugsIfDue refills the daily allowance once a full window has elapsed.
func resetTugsIfDue(u *models.User, now time.Time) bool {
	if now.Sub(u.LastTugReset) < models.TugResetInterval {
		return false
	}
	u.DailyTugsRemaining = models.DefaultDailyTugs
	u.LastTugReset = now
	return true
}

// consumeTug takes one tug from the allowance after the lazy reset.
func consumeTug(u *models.User, now time.Time) error {
	resetTugsIfDue(u, now)
	if u.DailyTugsRemaining <= 0 {
		return models.NewQuotaExceededError("You've used all your tugs for today")
	}
	u.DailyTugsRemaining--
	return nil
}

// spendFP deducts amount from the FP balance.
func spendFP(u *models.User, amount int) error {
	if amount < 0 {
		return models.NewValidationError("amount must not be negative")
	}
	if u.FidelityPoints < amount {
		return models.NewInsufficientFundsError("Not enough fidelity points: you have %d, this costs %d", u.FidelityPoints, amount)
	}
	u.FidelityPoints -= amount
	return nil
}

// updateUser runs mutate against one user inside a transaction and stores it when mutate reports a change.
func (s *QuotaService) updateUser(ctx context.Context, userID string, mutate func(u *models.User, now time.Time) (bool, error)) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	now := s.Clock.Now()
	var out *models.User
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return lookupErr(err, "user", userID)
		}
		changed, err := mutate(u, now)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.PutUser(u); err != nil {
				return err
			}
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	return out, nil
}

// ResetDailyTugsIfNeeded applies the lazy 24h reset and returns the user.
func (s *QuotaService) ResetDailyTugsIfNeeded(ctx context.Context, userID string) (*models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User, now time.Time) (bool, error) {
		return resetTugsIfDue(u, now), nil
	})
}

// ConsumeTug takes one tug from the user's daily allowance.
func (s *QuotaService) ConsumeTug(ctx context.Context, userID string) (*models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User, now time.Time) (bool, error) {
		return true, consumeTug(u, now)
	})
}

// SpendFP deducts amount from the user's FP balance.
func (s *QuotaService) SpendFP(ctx context.Context, userID string, amount int) (*models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User, _ time.Time) (bool, error) {
		return true, spendFP(u, amount)
	})
}

// RefillTugs buys a full daily allowance for TugRefillCost FP.
func (s *QuotaService) RefillTugs(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.updateUser(ctx, userID, func(u *models.User, now time.Time) (bool, error) {
		resetTugsIfDue(u, now)
		if err := spendFP(u, models.TugRefillCost); err != nil {
			return false, err
		}
		u.DailyTugsRemaining = models.DefaultDailyTugs
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().Str("user_id", u.ID).Int("fidelity_points", u.FidelityPoints).Msg("✅ tugs refilled")
	return u, nil
}
