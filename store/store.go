// Package store defines the ledger persistence contract shared by every driver.
// Implementations live under store/<driver>/ (memory, sqlite, dynamo).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"string_server/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: version conflict")
	ErrDuplicate = errors.New("store: duplicate key")
	ErrReadOnly  = errors.New("store: read-only transaction")
)

// DefaultMaxRetries bounds how many times a conflicting transaction is attempted.
const DefaultMaxRetries = 5

// Backoff bounds between conflicting attempts.
const (
	RetryBaseInterval = 5 * time.Millisecond
	RetryMaxInterval  = 250 * time.Millisecond
)

// Store is a transactional ledger of users, tugs, matches, messages, ratings and radar scans.
//
// WithTransaction runs fn against a fresh Tx and commits everything it staged atomically.
// Every User and Match read inside fn is version-checked at commit; when another
// transaction won the race fn is run again, so fn must not leak side effects.
type Store interface {
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the read/write surface available inside a transaction. Getters return
// copies: mutate them and hand them back to the matching Put.
type Tx interface {
	Users
	Tugs
	Matches
	Messages
	Ratings
	RadarScans
}

// Users. PutUser with Version 0 creates the user; otherwise Version must be the
// one that was read. PutUser bumps Version on success.
type Users interface {
	GetUser(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	PutUser(u *models.User) error
}

type Tugs interface {
	AddTug(t *models.Tug) error
	ListTugsFrom(userID string) ([]*models.Tug, error)
	HasTug(fromUserID, toUserID string) (bool, error)
}

// Matches follow the same versioning rules as Users. Creating a second match
// for an existing pair fails with ErrConflict.
type Matches interface {
	GetMatch(id string) (*models.Match, error)
	GetMatchByPair(userA, userB string) (*models.Match, error)
	ListMatches() ([]*models.Match, error)
	ListMatchesForUser(userID string) ([]*models.Match, error)
	PutMatch(m *models.Match) error
}

type Messages interface {
	AddMessage(m *models.Message) error
	ListMessages(matchID string) ([]*models.Message, error)
}

// Ratings. AddRating fails with ErrDuplicate when the (rater, rated, match) key exists.
type Ratings interface {
	AddRating(r *models.Rating) error
	ListRatingsForUser(userID string) ([]*models.Rating, error)
}

type RadarScans interface {
	AddRadarScan(s *models.RadarScan) error
	ListRadarScans(userID string) ([]*models.RadarScan, error)
}

// Retry runs attempt until it returns something other than ErrConflict or
// maxAttempts is reached. Conflicting attempts back off exponentially with jitter.
func Retry(ctx context.Context, maxAttempts int, attempt func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRetries
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = RetryBaseInterval
	exp.MaxInterval = RetryMaxInterval
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), ctx)
	err := backoff.Retry(func() error {
		if cerr := ctx.Err(); cerr != nil {
			return backoff.Permanent(cerr)
		}
		err := attempt()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("gave up after %d attempts: %w", maxAttempts, err)
	}
	return err
}

// PairKey is the storage key of an unordered user pair.
func PairKey(userA, userB string) string {
	u1, u2 := models.CanonicalPair(userA, userB)
	return u1 + "#" + u2
}

// TugKey is the storage key of a directed tug edge.
func TugKey(fromUserID, toUserID string) string {
	return fromUserID + ">" + toUserID
}
