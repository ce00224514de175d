// Package storetest holds the compliance suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"string_server/models"
	"string_server/store"
)

// Run exercises the store.Store contract. makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("Users", func(t *testing.T) { testUsers(t, makeStore(t)) })
	t.Run("StaleWriteConflicts", func(t *testing.T) { testStaleWrite(t, makeStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, makeStore(t)) })
	t.Run("ReadOnlyView", func(t *testing.T) { testView(t, makeStore(t)) })
	t.Run("Tugs", func(t *testing.T) { testTugs(t, makeStore(t)) })
	t.Run("Matches", func(t *testing.T) { testMatches(t, makeStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, makeStore(t)) })
	t.Run("Ratings", func(t *testing.T) { testRatings(t, makeStore(t)) })
	t.Run("RadarScans", func(t *testing.T) { testRadarScans(t, makeStore(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, makeStore(t)) })
}

var base = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

// NewUser returns a user with registration defaults and a unique id and username.
func NewUser(name string) *models.User {
	id := uuid.NewString()
	return &models.User{
		ID:                 id,
		Username:           name + "-" + id[:8],
		PasswordHash:       "x",
		Name:               name,
		Age:                30,
		StarRating:         models.DefaultStarRating,
		FidelityPoints:     models.DefaultFidelityPoints,
		DailyTugsRemaining: models.DefaultDailyTugs,
		LastTugReset:       base,
		CreatedAt:          base,
	}
}

// Seed commits the given users in one transaction.
func Seed(t *testing.T, s store.Store, users ...*models.User) {
	t.Helper()
	err := s.WithTransaction(context.Background(), func(tx store.Tx) error {
		for _, u := range users {
			c := *u
			if err := tx.PutUser(&c); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func getUser(t *testing.T, s store.Store, id string) *models.User {
	t.Helper()
	var u *models.User
	err := s.View(context.Background(), func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(id)
		return err
	})
	require.NoError(t, err)
	return u
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := NewUser("alice")
	Seed(t, s, alice)

	got := getUser(t, s, alice.ID)
	assert.Equal(t, alice.Username, got.Username)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, models.DefaultFidelityPoints, got.FidelityPoints)

	err := s.View(ctx, func(tx store.Tx) error {
		byName, err := tx.GetUserByUsername(alice.Username)
		if err != nil {
			return err
		}
		assert.Equal(t, alice.ID, byName.ID)
		_, err = tx.GetUser("missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.GetUserByUsername("missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	// Same username under another id.
	clash := NewUser("clash")
	clash.Username = alice.Username
	err = s.WithTransaction(ctx, func(tx store.Tx) error { return tx.PutUser(clash) })
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = s.WithTransaction(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(alice.ID)
		if err != nil {
			return err
		}
		u.FidelityPoints = 42
		u.StarRating = 0
		return tx.PutUser(u)
	})
	require.NoError(t, err)

	got = getUser(t, s, alice.ID)
	assert.Equal(t, 42, got.FidelityPoints)
	assert.Equal(t, 0.0, got.StarRating)
	assert.Equal(t, int64(2), got.Version)

	bob := NewUser("bob")
	Seed(t, s, bob)
	err = s.View(ctx, func(tx store.Tx) error {
		all, err := tx.ListUsers()
		assert.Len(t, all, 2)
		return err
	})
	require.NoError(t, err)
}

func testStaleWrite(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("stale")
	Seed(t, s, u)
	stale := getUser(t, s, u.ID)

	err := s.WithTransaction(ctx, func(tx store.Tx) error {
		fresh, err := tx.GetUser(u.ID)
		if err != nil {
			return err
		}
		fresh.FidelityPoints += 10
		return tx.PutUser(fresh)
	})
	require.NoError(t, err)

	attempts := 0
	err = s.WithTransaction(ctx, func(tx store.Tx) error {
		attempts++
		c := *stale
		c.FidelityPoints = 1
		return tx.PutUser(&c)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Greater(t, attempts, 1)
	assert.Equal(t, models.DefaultFidelityPoints+10, getUser(t, s, u.ID).FidelityPoints)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("rollback")
	Seed(t, s, u)

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx store.Tx) error {
		cur, err := tx.GetUser(u.ID)
		if err != nil {
			return err
		}
		cur.FidelityPoints = 0
		if err := tx.PutUser(cur); err != nil {
			return err
		}
		again, err := tx.GetUser(u.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, again.FidelityPoints, "reads see staged writes")
		if err := tx.AddRadarScan(&models.RadarScan{ID: uuid.NewString(), UserID: u.ID, FPSpent: 50, ScannedAt: base, BoostExpiresAt: base.Add(time.Hour)}); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, models.DefaultFidelityPoints, getUser(t, s, u.ID).FidelityPoints)

	err = s.View(ctx, func(tx store.Tx) error {
		scans, err := tx.ListRadarScans(u.ID)
		assert.Empty(t, scans)
		return err
	})
	require.NoError(t, err)
}

func testView(t *testing.T, s store.Store) {
	u := NewUser("viewer")
	err := s.View(context.Background(), func(tx store.Tx) error { return tx.PutUser(u) })
	assert.ErrorIs(t, err, store.ErrReadOnly)
	err = s.View(context.Background(), func(tx store.Tx) error {
		return tx.AddTug(&models.Tug{ID: uuid.NewString(), FromUserID: "a", ToUserID: "b", CreatedAt: base})
	})
	assert.ErrorIs(t, err, store.ErrReadOnly)
	require.NoError(t, s.Ping(context.Background()))
}

func testTugs(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := NewUser("a"), NewUser("b")
	Seed(t, s, a, b)

	for i := 0; i < 2; i++ {
		err := s.WithTransaction(ctx, func(tx store.Tx) error {
			return tx.AddTug(&models.Tug{ID: uuid.NewString(), FromUserID: a.ID, ToUserID: b.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		})
		require.NoError(t, err)
	}

	err := s.View(ctx, func(tx store.Tx) error {
		ok, err := tx.HasTug(a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.HasTug(b.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		fromA, err := tx.ListTugsFrom(a.ID)
		require.NoError(t, err)
		assert.Len(t, fromA, 2)
		fromB, err := tx.ListTugsFrom(b.ID)
		require.NoError(t, err)
		assert.Empty(t, fromB)
		return nil
	})
	require.NoError(t, err)
}

func newMatch(a, b *models.User) *models.Match {
	return models.NewMatch(uuid.NewString(), a.ID, b.ID, base)
}

func testMatches(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b, c := NewUser("a"), NewUser("b"), NewUser("c")
	Seed(t, s, a, b, c)

	m := newMatch(a, b)
	require.NoError(t, s.WithTransaction(ctx, func(tx store.Tx) error {
		mc := m.Clone()
		return tx.PutMatch(mc)
	}))

	// A second match for the same pair is rejected.
	err := s.WithTransaction(ctx, func(tx store.Tx) error { return tx.PutMatch(newMatch(b, a)) })
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.WithTransaction(ctx, func(tx store.Tx) error {
		got, err := tx.GetMatchByPair(b.ID, a.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, int64(1), got.Version)
		got.KnotStatus = models.KnotStatusKnotted
		now := base.Add(time.Hour)
		got.KnottedAt = &now
		got.ScheduledDate = &models.ScheduledDate{
			ID:           "d1",
			Spot:         models.DateSpot{ID: "s1", Name: "Cafe"},
			ScheduledFor: base.Add(48 * time.Hour),
			ProposedBy:   a.ID,
			Status:       models.DateStatusPending,
		}
		return tx.PutMatch(got)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx store.Tx) error {
		got, err := tx.GetMatch(m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.KnotStatusKnotted, got.KnotStatus)
		assert.Equal(t, int64(2), got.Version)
		require.NotNil(t, got.KnottedAt)
		require.NotNil(t, got.ScheduledDate)
		assert.Equal(t, "Cafe", got.ScheduledDate.Spot.Name)
		assert.Nil(t, got.ScheduledDate.User1Attended)

		_, err = tx.GetMatchByPair(a.ID, c.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.GetMatch("missing")
		assert.ErrorIs(t, err, store.ErrNotFound)

		forA, err := tx.ListMatchesForUser(a.ID)
		require.NoError(t, err)
		assert.Len(t, forA, 1)
		forC, err := tx.ListMatchesForUser(c.ID)
		require.NoError(t, err)
		assert.Empty(t, forC)
		all, err := tx.ListMatches()
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	})
	require.NoError(t, err)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := NewUser("a"), NewUser("b")
	Seed(t, s, a, b)
	m := newMatch(a, b)
	require.NoError(t, s.WithTransaction(ctx, func(tx store.Tx) error { return tx.PutMatch(m.Clone()) }))

	senders := []string{a.ID, b.ID, b.ID}
	for i, sender := range senders {
		err := s.WithTransaction(ctx, func(tx store.Tx) error {
			return tx.AddMessage(&models.Message{
				ID:        uuid.NewString(),
				MatchID:   m.ID,
				SenderID:  sender,
				Content:   fmt.Sprintf("msg %d", i+1),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
				Seq:       i + 1,
			})
		})
		require.NoError(t, err)
	}

	err := s.View(ctx, func(tx store.Tx) error {
		msgs, err := tx.ListMessages(m.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i, msg := range msgs {
			assert.Equal(t, i+1, msg.Seq)
			assert.Equal(t, senders[i], msg.SenderID)
		}
		none, err := tx.ListMessages("other")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testRatings(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b, c := NewUser("a"), NewUser("b"), NewUser("c")
	Seed(t, s, a, b, c)

	rate := func(rater, rated *models.User, matchID string) error {
		return s.WithTransaction(ctx, func(tx store.Tx) error {
			return tx.AddRating(&models.Rating{ID: uuid.NewString(), RaterUserID: rater.ID, RatedUserID: rated.ID, MatchID: matchID, IsPositive: true, CreatedAt: base})
		})
	}
	require.NoError(t, rate(a, b, "m1"))
	assert.ErrorIs(t, rate(a, b, "m1"), store.ErrDuplicate)
	require.NoError(t, rate(a, b, "m2"))
	require.NoError(t, rate(b, a, "m1"))
	require.NoError(t, rate(c, b, ""))

	err := s.View(ctx, func(tx store.Tx) error {
		forB, err := tx.ListRatingsForUser(b.ID)
		require.NoError(t, err)
		assert.Len(t, forB, 4)
		forC, err := tx.ListRatingsForUser(c.ID)
		require.NoError(t, err)
		assert.Len(t, forC, 1)
		return nil
	})
	require.NoError(t, err)
}

func testRadarScans(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("scanner")
	Seed(t, s, u)
	for i := 0; i < 2; i++ {
		at := base.Add(time.Duration(i) * 2 * time.Hour)
		require.NoError(t, s.WithTransaction(ctx, func(tx store.Tx) error {
			return tx.AddRadarScan(&models.RadarScan{ID: uuid.NewString(), UserID: u.ID, FPSpent: models.RadarScanCost, ScannedAt: at, BoostExpiresAt: at.Add(models.RadarBoostWindow)})
		}))
	}
	err := s.View(ctx, func(tx store.Tx) error {
		scans, err := tx.ListRadarScans(u.ID)
		require.NoError(t, err)
		assert.Len(t, scans, 2)
		return nil
	})
	require.NoError(t, err)
}

func testConcurrentIncrements(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("counter")
	Seed(t, s, u)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTransaction(ctx, func(tx store.Tx) error {
				cur, err := tx.GetUser(u.ID)
				if err != nil {
					return err
				}
				cur.FidelityPoints++
				return tx.PutUser(cur)
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, store.ErrConflict)
		}()
	}
	wg.Wait()

	require.Greater(t, successes, 0)
	assert.Equal(t, models.DefaultFidelityPoints+successes, getUser(t, s, u.ID).FidelityPoints)
}
