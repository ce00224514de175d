package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"string_server/models"
	"string_server/store"
)

const minPasswordLength = 8

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

type UserProfileService struct {
	Store store.Store
	Clock Clock
	Log   zerolog.Logger
}

// NewUserInput is the registration payload.
type NewUserInput struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Bio        string `json:"bio,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Location   string `json:"location,omitempty"`
	Distance   int    `json:"distance,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
}

// ProfileUpdate is the profile field group a user may patch. Reputation, FP and quota are not part of it.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Age        *int    `json:"age,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	Location   *string `json:"location,omitempty"`
	Distance   *int    `json:"distance,omitempty"`
	IsVerified *bool   `json:"isVerified,omitempty"`
}

func (in *NewUserInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Username == "":
		return models.NewValidationError("username is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		return models.NewValidationError("password must be at least %d characters", minPasswordLength)
	case len(in.Password) > maxPasswordBytes:
		return models.NewValidationError("password must be at most %d bytes", maxPasswordBytes)
	case in.Name == "":
		return models.NewValidationError("name is required")
	case in.Age < models.MinUserAge:
		return models.NewValidationError("you must be at least %d years old", models.MinUserAge)
	case in.Distance < 0:
		return models.NewValidationError("distance must not be negative")
	}
	return nil
}

// CreateUser registers a member with the default reputation, FP and quota.
func (ups *UserProfileService) CreateUser(ctx context.Context, in NewUserInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := ups.Clock.Now()
	user := &models.User{
		ID:                 uuid.NewString(),
		Username:           in.Username,
		PasswordHash:       string(hash),
		Name:               in.Name,
		Age:                in.Age,
		Bio:                strings.TrimSpace(in.Bio),
		Avatar:             strings.TrimSpace(in.Avatar),
		Location:           strings.TrimSpace(in.Location),
		Distance:           in.Distance,
		IsVerified:         in.IsVerified,
		StarRating:         models.DefaultStarRating,
		FidelityPoints:     models.DefaultFidelityPoints,
		DailyTugsRemaining: models.DefaultDailyTugs,
		LastTugReset:       now,
		CreatedAt:          now,
	}

	err = ups.Store.WithTransaction(ctx, func(tx store.Tx) error {
		user.Version = 0
		if _, err := tx.GetUserByUsername(user.Username); err == nil {
			return models.NewDuplicateError("username %q is already taken", user.Username)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return tx.PutUser(user)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.NewDuplicateError("username %q is already taken", user.Username)
		}
		return nil, txErr(err)
	}

	ups.Log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("✅ user created")
	return user, nil
}

// GetUser returns a user with the daily tug window evaluated at read time.
func (ups *UserProfileService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	var user *models.User
	err := ups.Store.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(userID)
		return lookupErr(err, "user", userID)
	})
	if err != nil {
		return nil, txErr(err)
	}
	resetTugsIfDue(user, ups.Clock.Now())
	return user, nil
}

// ListUsers returns every member except excludeUserID.
func (ups *UserProfileService) ListUsers(ctx context.Context, excludeUserID string) ([]*models.User, error) {
	excludeUserID = strings.TrimSpace(excludeUserID)
	now := ups.Clock.Now()
	var users []*models.User
	err := ups.Store.View(ctx, func(tx store.Tx) error {
		all, err := tx.ListUsers()
		if err != nil {
			return err
		}
		users = make([]*models.User, 0, len(all))
		for _, u := range all {
			if u.ID == excludeUserID {
				continue
			}
			resetTugsIfDue(u, now)
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	return users, nil
}

// UpdateProfile applies a profile patch.
func (ups *UserProfileService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, models.NewValidationError("name must not be empty")
	}
	if upd.Age != nil && *upd.Age < models.MinUserAge {
		return nil, models.NewValidationError("you must be at least %d years old", models.MinUserAge)
	}
	if upd.Distance != nil && *upd.Distance < 0 {
		return nil, models.NewValidationError("distance must not be negative")
	}

	var user *models.User
	err := ups.Store.WithTransaction(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return lookupErr(err, "user", userID)
		}
		if upd.Name != nil {
			u.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Age != nil {
			u.Age = *upd.Age
		}
		if upd.Bio != nil {
			u.Bio = strings.TrimSpace(*upd.Bio)
		}
		if upd.Avatar != nil {
			u.Avatar = strings.TrimSpace(*upd.Avatar)
		}
		if upd.Location != nil {
			u.Location = strings.TrimSpace(*upd.Location)
		}
		if upd.Distance != nil {
			u.Distance = *upd.Distance
		}
		if upd.IsVerified != nil {
			u.IsVerified = *upd.IsVerified
		}
		if err := tx.PutUser(u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}
	ups.Log.Info().Str("user_id", userID).Msg("✅ profile updated")
	return user, nil
}
