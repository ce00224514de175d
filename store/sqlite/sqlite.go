// Package sqlite is the single-node durable ledger driver built on gorm and a pure-Go SQLite engine.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"string_server/models"
	"string_server/store"
)

// Store persists the ledger in one SQLite file. A single writer connection
// serializes transactions; version guards still reject stale writes.
type Store struct {
	db          *gorm.DB
	maxAttempts int
}

var _ store.Store = (*Store)(nil)

// Open creates the database file if needed and migrates the schema.
func Open(path string, maxAttempts int, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			&log,
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Tug{},
		&models.Match{},
		&models.Message{},
		&models.Rating{},
		&models.RadarScan{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, maxAttempts: maxAttempts}, nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.Retry(ctx, s.maxAttempts, func() error {
		return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(&tx{db: gtx})
		})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(&tx{db: s.db.WithContext(ctx), readOnly: true})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type tx struct {
	db       *gorm.DB
	readOnly bool
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (t *tx) GetUser(id string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (t *tx) GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (t *tx) ListUsers() ([]*models.User, error) {
	var out []*models.User
	err := t.db.Order("created_at, id").Find(&out).Error
	return out, err
}

func (t *tx) PutUser(u *models.User) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	old := u.Version
	next := *u
	next.Version = old + 1
	if old == 0 {
		if err := t.db.Create(&next).Error; err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicate
			}
			return fmt.Errorf("insert user: %w", err)
		}
		u.Version = next.Version
		return nil
	}
	res := t.db.Model(&next).Where("version = ?", old).Select("*").Updates(&next)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrConflict
	}
	u.Version = next.Version
	return nil
}

func (t *tx) AddTug(tg *models.Tug) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return t.db.Create(tg).Error
}

func (t *tx) ListTugsFrom(userID string) ([]*models.Tug, error) {
	var out []*models.Tug
	err := t.db.Where("from_user_id = ?", userID).Order("created_at, id").Find(&out).Error
	return out, err
}

func (t *tx) HasTug(fromUserID, toUserID string) (bool, error) {
	var n int64
	err := t.db.Model(&models.Tug{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (t *tx) GetMatch(id string) (*models.Match, error) {
	var m models.Match
	if err := t.db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (t *tx) GetMatchByPair(userA, userB string) (*models.Match, error) {
	u1, u2 := models.CanonicalPair(userA, userB)
	var m models.Match
	if err := t.db.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (t *tx) ListMatches() ([]*models.Match, error) {
	var out []*models.Match
	err := t.db.Order("matched_at, id").Find(&out).Error
	return out, err
}

func (t *tx) ListMatchesForUser(userID string) ([]*models.Match, error) {
	var out []*models.Match
	err := t.db.Where("user1_id = ? OR user2_id = ?", userID, userID).Order("matched_at, id").Find(&out).Error
	return out, err
}

func (t *tx) PutMatch(m *models.Match) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	old := m.Version
	next := m.Clone()
	next.Version = old + 1
	if old == 0 {
		if err := t.db.Create(next).Error; err != nil {
			if isUniqueViolation(err) {
				if _, perr := t.GetMatchByPair(m.User1ID, m.User2ID); perr == nil {
					return store.ErrConflict
				}
				return store.ErrDuplicate
			}
			return fmt.Errorf("insert match: %w", err)
		}
		m.Version = next.Version
		return nil
	}
	res := t.db.Model(next).Where("version = ?", old).Select("*").Updates(next)
	if res.Error != nil {
		return fmt.Errorf("update match: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrConflict
	}
	m.Version = next.Version
	return nil
}

func (t *tx) AddMessage(m *models.Message) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return t.db.Create(m).Error
}

func (t *tx) ListMessages(matchID string) ([]*models.Message, error) {
	var out []*models.Message
	err := t.db.Where("match_id = ?", matchID).Order("seq, created_at").Find(&out).Error
	return out, err
}

func (t *tx) AddRating(r *models.Rating) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if err := t.db.Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (t *tx) ListRatingsForUser(userID string) ([]*models.Rating, error) {
	var out []*models.Rating
	err := t.db.Where("rater_user_id = ? OR rated_user_id = ?", userID, userID).Order("created_at, id").Find(&out).Error
	return out, err
}

func (t *tx) AddRadarScan(sc *models.RadarScan) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return t.db.Create(sc).Error
}

func (t *tx) ListRadarScans(userID string) ([]*models.RadarScan, error) {
	var out []*models.RadarScan
	err := t.db.Where("user_id = ?", userID).Order("scanned_at, id").Find(&out).Error
	return out, err
}
