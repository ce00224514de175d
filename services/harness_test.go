package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"string_server/models"
	"string_server/store"
	"string_server/store/memory"
)

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type event struct {
	userID string
	name   string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Notify(userID, name string, _ interface{}) {
	r.mu.Lock()
	r.events = append(r.events, event{userID: userID, name: name})
	r.mu.Unlock()
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.name == name {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	store store.Store
	clock *fakeClock
	notes *recorder

	users   *UserProfileService
	quota   *QuotaService
	tugs    *TugService
	matches *MatchService
	conn    *ConnectionService
	dates   *DateService
	ratings *ReputationService
	radar   *RadarService
	sweeper *ExpirySweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memory.New(memory.WithMaxAttempts(4 * store.DefaultMaxRetries))
	fc := &fakeClock{now: start}
	clock := Clock(fc.Now)
	log := zerolog.Nop()
	notes := &recorder{}
	return &harness{
		t:       t,
		ctx:     context.Background(),
		store:   st,
		clock:   fc,
		notes:   notes,
		users:   &UserProfileService{Store: st, Clock: clock, Log: log},
		quota:   &QuotaService{Store: st, Clock: clock, Log: log},
		tugs:    &TugService{Store: st, Clock: clock, Log: log, Notifier: notes},
		matches: &MatchService{Store: st, Clock: clock, Log: log},
		conn:    &ConnectionService{Store: st, Clock: clock, Log: log, Notifier: notes},
		dates:   &DateService{Store: st, Clock: clock, Log: log, Notifier: notes},
		ratings: &ReputationService{Store: st, Clock: clock, Log: log},
		radar:   &RadarService{Store: st, Clock: clock, Log: log},
		sweeper: &ExpirySweeper{Store: st, Clock: clock, Log: log},
	}
}

// addUser seeds a member whose id is the given name.
func (h *harness) addUser(id string, mutate ...func(u *models.User)) *models.User {
	h.t.Helper()
	u := &models.User{
		ID:                 id,
		Username:           id,
		PasswordHash:       "x",
		Name:               id,
		Age:                30,
		StarRating:         models.DefaultStarRating,
		FidelityPoints:     models.DefaultFidelityPoints,
		DailyTugsRemaining: models.DefaultDailyTugs,
		LastTugReset:       start,
		CreatedAt:          start,
	}
	for _, m := range mutate {
		m(u)
	}
	err := h.store.WithTransaction(h.ctx, func(tx store.Tx) error { return tx.PutUser(u) })
	require.NoError(h.t, err)
	return u
}

func (h *harness) user(id string) *models.User {
	h.t.Helper()
	var u *models.User
	err := h.store.View(h.ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(id)
		return err
	})
	require.NoError(h.t, err)
	return u
}

func (h *harness) match(id string) *models.Match {
	h.t.Helper()
	var m *models.Match
	err := h.store.View(h.ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMatch(id)
		return err
	})
	require.NoError(h.t, err)
	return m
}

func (h *harness) allMatches() []*models.Match {
	h.t.Helper()
	var ms []*models.Match
	err := h.store.View(h.ctx, func(tx store.Tx) error {
		var err error
		ms, err = tx.ListMatches()
		return err
	})
	require.NoError(h.t, err)
	return ms
}

// matchOf makes a and b tug each other and returns their match.
func (h *harness) matchOf(a, b string) *models.Match {
	h.t.Helper()
	_, err := h.tugs.Tug(h.ctx, a, b)
	require.NoError(h.t, err)
	res, err := h.tugs.Tug(h.ctx, b, a)
	require.NoError(h.t, err)
	require.True(h.t, res.IsMutual)
	require.NotNil(h.t, res.Match)
	return res.Match
}

// chat alternates messages so each side takes the given number of rounds.
func (h *harness) chat(m *models.Match, rounds int) {
	h.t.Helper()
	for i := 0; i < rounds; i++ {
		_, err := h.conn.SendMessage(h.ctx, m.ID, m.User1ID, "hi")
		require.NoError(h.t, err)
		_, err = h.conn.SendMessage(h.ctx, m.ID, m.User2ID, "hello")
		require.NoError(h.t, err)
	}
}

// knotted returns a match of a and b whose knot is already tied.
func (h *harness) knotted(a, b string) *models.Match {
	h.t.Helper()
	m := h.matchOf(a, b)
	h.chat(m, models.KnotRoundThreshold)
	_, err := h.conn.RequestKnot(h.ctx, m.ID, m.User1ID)
	require.NoError(h.t, err)
	out, err := h.conn.AcceptKnot(h.ctx, m.ID, m.User2ID)
	require.NoError(h.t, err)
	require.Equal(h.t, models.KnotStatusKnotted, out.KnotStatus)
	return out
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	k, ok := models.KindOf(err)
	require.True(t, ok, "expected a %s, got %v", kind, err)
	require.Equal(t, kind, k, err.Error())
}
