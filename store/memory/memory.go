// Package memory is the in-process ledger driver used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"string_server/models"
	"string_server/store"
)

// Store keeps every entity in maps. Transactions read without holding the lock
// and validate their read set under a short exclusive lock at commit. View holds
// the read lock for the whole callback, so it sees a single committed snapshot.
type Store struct {
	mu          sync.RWMutex
	maxAttempts int

	users     map[string]*models.User
	usernames map[string]string
	tugs      []*models.Tug
	tugEdges  map[string]bool
	matches   map[string]*models.Match
	pairs     map[string]string
	messages  map[string][]*models.Message
	ratings   []*models.Rating
	ratingKey map[string]bool
	scans     map[string][]*models.RadarScan
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts overrides store.DefaultMaxRetries.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		maxAttempts: store.DefaultMaxRetries,
		users:       map[string]*models.User{},
		usernames:   map[string]string{},
		tugEdges:    map[string]bool{},
		matches:     map[string]*models.Match{},
		pairs:       map[string]string{},
		messages:    map[string][]*models.Message{},
		ratingKey:   map[string]bool{},
		scans:       map[string][]*models.RadarScan{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.Retry(ctx, s.maxAttempts, func() error {
		t := newTx(s, false)
		if err := fn(t); err != nil {
			return err
		}
		return s.commit(t)
	})
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s, true)
	t.held = true
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(t)
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) userVersion(id string) int64 {
	if u, ok := s.users[id]; ok {
		return u.Version
	}
	return 0
}

func (s *Store) matchVersion(id string) int64 {
	if m, ok := s.matches[id]; ok {
		return m.Version
	}
	return 0
}

// commit validates t against committed state and applies its writes.
func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range t.userReads {
		if s.userVersion(id) != v {
			return store.ErrConflict
		}
	}
	for id, v := range t.matchReads {
		if s.matchVersion(id) != v {
			return store.ErrConflict
		}
	}
	for key, id := range t.pairReads {
		if s.pairs[key] != id {
			return store.ErrConflict
		}
	}
	for key, seen := range t.tugReads {
		if s.tugEdges[key] != seen {
			return store.ErrConflict
		}
	}

	for id, base := range t.userBase {
		cur, exists := s.users[id]
		if base == 0 && exists {
			return store.ErrDuplicate
		}
		if base != 0 && (!exists || cur.Version != base) {
			return store.ErrConflict
		}
		u := t.users[id]
		if owner, taken := s.usernames[u.Username]; taken && owner != id {
			return store.ErrDuplicate
		}
	}
	if err := t.checkStagedUsernames(); err != nil {
		return err
	}
	for id, base := range t.matchBase {
		cur, exists := s.matches[id]
		m := t.matches[id]
		if base == 0 {
			if exists {
				return store.ErrDuplicate
			}
			if _, taken := s.pairs[store.PairKey(m.User1ID, m.User2ID)]; taken {
				return store.ErrConflict
			}
			continue
		}
		if !exists || cur.Version != base {
			return store.ErrConflict
		}
	}
	for _, r := range t.ratings {
		if s.ratingKey[r.Key()] {
			return store.ErrDuplicate
		}
	}

	for id, u := range t.users {
		if prev, ok := s.users[id]; ok && prev.Username != u.Username {
			delete(s.usernames, prev.Username)
		}
		c := *u
		s.users[id] = &c
		s.usernames[u.Username] = id
	}
	for id, m := range t.matches {
		s.matches[id] = m.Clone()
		s.pairs[store.PairKey(m.User1ID, m.User2ID)] = id
	}
	for _, tg := range t.tugs {
		c := *tg
		s.tugs = append(s.tugs, &c)
		s.tugEdges[store.TugKey(tg.FromUserID, tg.ToUserID)] = true
	}
	for _, msg := range t.messages {
		c := *msg
		s.messages[msg.MatchID] = append(s.messages[msg.MatchID], &c)
	}
	for _, r := range t.ratings {
		c := *r
		s.ratings = append(s.ratings, &c)
		s.ratingKey[r.Key()] = true
	}
	for _, sc := range t.scans {
		c := *sc
		s.scans[sc.UserID] = append(s.scans[sc.UserID], &c)
	}
	return nil
}

type tx struct {
	s        *Store
	readOnly bool
	held     bool // View already holds s.mu for reading

	// read set: observed committed versions (0 = absent)
	userReads  map[string]int64
	matchReads map[string]int64
	pairReads  map[string]string
	tugReads   map[string]bool

	// write set
	userBase  map[string]int64
	users     map[string]*models.User
	matchBase map[string]int64
	matches   map[string]*models.Match
	tugs      []*models.Tug
	messages  []*models.Message
	ratings   []*models.Rating
	scans     []*models.RadarScan
}

func newTx(s *Store, readOnly bool) *tx {
	return &tx{
		s:          s,
		readOnly:   readOnly,
		userReads:  map[string]int64{},
		matchReads: map[string]int64{},
		pairReads:  map[string]string{},
		tugReads:   map[string]bool{},
		userBase:   map[string]int64{},
		users:      map[string]*models.User{},
		matchBase:  map[string]int64{},
		matches:    map[string]*models.Match{},
	}
}

func (t *tx) rlock() {
	if !t.held {
		t.s.mu.RLock()
	}
}

func (t *tx) runlock() {
	if !t.held {
		t.s.mu.RUnlock()
	}
}

func (t *tx) checkStagedUsernames() error {
	seen := map[string]string{}
	for id, u := range t.users {
		if other, ok := seen[u.Username]; ok && other != id {
			return store.ErrDuplicate
		}
		seen[u.Username] = id
	}
	return nil
}

func (t *tx) GetUser(id string) (*models.User, error) {
	if u, ok := t.users[id]; ok {
		c := *u
		return &c, nil
	}
	t.rlock()
	u, ok := t.s.users[id]
	var c models.User
	if ok {
		c = *u
	}
	t.runlock()
	if _, seen := t.userReads[id]; !seen {
		t.userReads[id] = c.Version
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (t *tx) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range t.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	t.rlock()
	id, ok := t.s.usernames[username]
	t.runlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.GetUser(id)
}

func (t *tx) ListUsers() ([]*models.User, error) {
	t.rlock()
	out := make([]*models.User, 0, len(t.s.users)+len(t.users))
	for id, u := range t.s.users {
		if _, staged := t.users[id]; staged {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	t.runlock()
	for _, u := range t.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *tx) PutUser(u *models.User) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if staged, ok := t.users[u.ID]; ok {
		if u.Version != staged.Version {
			return store.ErrConflict
		}
		c := *u
		t.users[u.ID] = &c
		return nil
	}
	t.userBase[u.ID] = u.Version
	u.Version++
	c := *u
	t.users[u.ID] = &c
	return nil
}

func (t *tx) AddTug(tg *models.Tug) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *tg
	t.tugs = append(t.tugs, &c)
	return nil
}

func (t *tx) ListTugsFrom(userID string) ([]*models.Tug, error) {
	var out []*models.Tug
	t.rlock()
	for _, tg := range t.s.tugs {
		if tg.FromUserID == userID {
			c := *tg
			out = append(out, &c)
		}
	}
	t.runlock()
	for _, tg := range t.tugs {
		if tg.FromUserID == userID {
			c := *tg
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) HasTug(fromUserID, toUserID string) (bool, error) {
	for _, tg := range t.tugs {
		if tg.FromUserID == fromUserID && tg.ToUserID == toUserID {
			return true, nil
		}
	}
	key := store.TugKey(fromUserID, toUserID)
	t.rlock()
	seen := t.s.tugEdges[key]
	t.runlock()
	if _, ok := t.tugReads[key]; !ok {
		t.tugReads[key] = seen
	}
	return seen, nil
}

func (t *tx) GetMatch(id string) (*models.Match, error) {
	if m, ok := t.matches[id]; ok {
		return m.Clone(), nil
	}
	t.rlock()
	m, ok := t.s.matches[id]
	var c *models.Match
	if ok {
		c = m.Clone()
	}
	t.runlock()
	if _, seen := t.matchReads[id]; !seen {
		var v int64
		if c != nil {
			v = c.Version
		}
		t.matchReads[id] = v
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (t *tx) GetMatchByPair(userA, userB string) (*models.Match, error) {
	key := store.PairKey(userA, userB)
	for _, m := range t.matches {
		if store.PairKey(m.User1ID, m.User2ID) == key {
			return m.Clone(), nil
		}
	}
	t.rlock()
	id := t.s.pairs[key]
	t.runlock()
	if _, seen := t.pairReads[key]; !seen {
		t.pairReads[key] = id
	}
	if id == "" {
		return nil, store.ErrNotFound
	}
	return t.GetMatch(id)
}

func (t *tx) ListMatches() ([]*models.Match, error) {
	return t.listMatches(func(*models.Match) bool { return true }), nil
}

func (t *tx) ListMatchesForUser(userID string) ([]*models.Match, error) {
	return t.listMatches(func(m *models.Match) bool { return m.HasUser(userID) }), nil
}

func (t *tx) listMatches(keep func(*models.Match) bool) []*models.Match {
	var out []*models.Match
	t.rlock()
	for id, m := range t.s.matches {
		if _, staged := t.matches[id]; staged || !keep(m) {
			continue
		}
		out = append(out, m.Clone())
	}
	t.runlock()
	for _, m := range t.matches {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchedAt.Equal(out[j].MatchedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].MatchedAt.Before(out[j].MatchedAt)
	})
	return out
}

func (t *tx) PutMatch(m *models.Match) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if staged, ok := t.matches[m.ID]; ok {
		if m.Version != staged.Version {
			return store.ErrConflict
		}
		t.matches[m.ID] = m.Clone()
		return nil
	}
	t.matchBase[m.ID] = m.Version
	m.Version++
	t.matches[m.ID] = m.Clone()
	return nil
}

func (t *tx) AddMessage(m *models.Message) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *m
	t.messages = append(t.messages, &c)
	return nil
}

func (t *tx) ListMessages(matchID string) ([]*models.Message, error) {
	var out []*models.Message
	t.rlock()
	for _, m := range t.s.messages[matchID] {
		c := *m
		out = append(out, &c)
	}
	t.runlock()
	for _, m := range t.messages {
		if m.MatchID == matchID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) AddRating(r *models.Rating) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	for _, staged := range t.ratings {
		if staged.Key() == r.Key() {
			return store.ErrDuplicate
		}
	}
	c := *r
	t.ratings = append(t.ratings, &c)
	return nil
}

func (t *tx) ListRatingsForUser(userID string) ([]*models.Rating, error) {
	var out []*models.Rating
	t.rlock()
	for _, r := range t.s.ratings {
		if r.RaterUserID == userID || r.RatedUserID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	t.runlock()
	for _, r := range t.ratings {
		if r.RaterUserID == userID || r.RatedUserID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) AddRadarScan(sc *models.RadarScan) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *sc
	t.scans = append(t.scans, &c)
	return nil
}

func (t *tx) ListRadarScans(userID string) ([]*models.RadarScan, error) {
	var out []*models.RadarScan
	t.rlock()
	for _, sc := range t.s.scans[userID] {
		c := *sc
		out = append(out, &c)
	}
	t.runlock()
	for _, sc := range t.scans {
		if sc.UserID == userID {
			c := *sc
			out = append(out, &c)
		}
	}
	return out, nil
}
