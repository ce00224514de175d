package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// RadarService sells time-boxed visibility boosts that reveal high-rated members.
type RadarService struct {
	Store store.Store
	Clock Clock
	Log   zerolog.Logger
}

// ScanResult is the purchased scan together with the candidates it revealed.
type ScanResult struct {
	Scan           *models.RadarScan `json:"scan"`
	HighRatedUsers []*models.User    `json:"highRatedUsers"`
}

// Scan spends RadarScanCost FP and records a boost in the same transaction.
// fpSpent is optional; when given it must equal the scan price.
func (s *RadarService) Scan(ctx context.Context, userID string, fpSpent *int) (*ScanResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	if fpSpent != nil && *fpSpent != models.RadarScanCost {
		return nil, models.NewValidationError("A radar scan costs %d fidelity points", models.RadarScanCost)
	}
	now := s.Clock.Now()

	var res *ScanResult
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		res = nil
		u, err := tx.GetUser(userID)
		if err != nil {
			return lookupErr(err, "user", userID)
		}
		if err := spendFP(u, models.RadarScanCost); err != nil {
			return err
		}
		if err := tx.PutUser(u); err != nil {
			return err
		}
		scan := &models.RadarScan{
			ID:             uuid.NewString(),
			UserID:         userID,
			FPSpent:        models.RadarScanCost,
			ScannedAt:      now,
			BoostExpiresAt: now.Add(models.RadarBoostWindow),
		}
		if err := tx.AddRadarScan(scan); err != nil {
			return err
		}

		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		highRated := make([]*models.User, 0, len(users))
		for _, c := range users {
			if c.ID != userID && c.StarRating >= models.DefaultRadarMinStarRating {
				highRated = append(highRated, c)
			}
		}
		res = &ScanResult{Scan: scan, HighRatedUsers: highRated}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.Log.Info().Str("user_id", userID).Int("candidates", len(res.HighRatedUsers)).Msg("📡 radar scan")
	return res, nil
}

// ActiveScans returns the user's boosts that have not expired yet.
func (s *RadarService) ActiveScans(ctx context.Context, userID string) ([]*models.RadarScan, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	now := s.Clock.Now()
	var active []*models.RadarScan
	err := s.Store.View(ctx, func(tx store.Tx) error {
		scans, err := tx.ListRadarScans(userID)
		if err != nil {
			return err
		}
		active = make([]*models.RadarScan, 0, len(scans))
		for _, sc := range scans {
			if sc.Active(now) {
				active = append(active, sc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	return active, nil
}
