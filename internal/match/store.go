package match

import (
	"errors"
	"strings"
	"time"

	"wordclash/backend/internal/database"
	"wordclash/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("match not found")
	// ErrDuplicateID reports a short-id collision on insert.
	ErrDuplicateID = errors.New("duplicate match id")
)

// Store is the transactional surface for match documents. Update applies fn
// to the current document inside one transaction, so two clients mutating the
// same match serialize on the row and partial writes cannot interleave.
type Store interface {
	Create(m *models.Match) error
	Get(id string) (*models.Match, error)
	Update(id string, fn func(*models.Match) error) (*models.Match, error)
	// ExpiredIDs lists matches whose earliest advisory deadline has passed,
	// for the sweeper.
	ExpiredIDs(now time.Time, limit int) ([]string, error)
}

// GormStore implements Store over postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(m *models.Match) error {
	err := s.db.Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		(err != nil && strings.Contains(err.Error(), "duplicate key value")) {
		return ErrDuplicateID
	}
	return err
}

func (s *GormStore) Get(id string) (*models.Match, error) {
	var m models.Match
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) Update(id string, fn func(*models.Match) error) (*models.Match, error) {
	var updated *models.Match
	// Serialization failures and deadlocks on the row lock are retried.
	err := database.WithRetry(func() error {
		return s.update(id, fn, &updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) update(id string, fn func(*models.Match) error, updated **models.Match) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Match
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		*updated = &m
		return nil
	})
}

func (s *GormStore) ExpiredIDs(now time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Match{}).
		Where("status <> ?", models.MatchCompleted).
		Where(
			s.db.Where("inactivity_closes_at IS NOT NULL AND inactivity_closes_at <= ?", now).
				Or("lobby_closes_at IS NOT NULL AND lobby_closes_at <= ?", now).
				Or("match_hard_stop_at IS NOT NULL AND match_hard_stop_at <= ?", now),
		).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
