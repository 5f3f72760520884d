package sessionlock

import (
	"errors"
	"time"

	"wordclash/backend/internal/models"

	"gorm.io/gorm"
)

// GormStore implements Store on the transactional document store. The guard
// conditions ride in the WHERE clause, so every mutation is a single
// conditional write checked through RowsAffected.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(userID uint) (*models.SessionLock, error) {
	var lock models.SessionLock
	err := s.db.First(&lock, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (s *GormStore) Insert(lock *models.SessionLock) error {
	err := s.db.Create(lock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrLockExists
	}
	return err
}

func (s *GormStore) Replace(userID uint, expectSessionID string, expectSeen int64, lock *models.SessionLock) error {
	res := s.db.Model(&models.SessionLock{}).
		Where("user_id = ? AND session_id = ? AND last_seen_at = ?", userID, expectSessionID, expectSeen).
		Updates(map[string]interface{}{
			"session_id":   lock.SessionID,
			"last_seen_at": lock.LastSeenAt,
			"device_label": lock.DeviceLabel,
			"origin":       lock.Origin,
			"expires_at":   lock.ExpiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSuperseded
	}
	return nil
}

func (s *GormStore) Touch(userID uint, sessionID string, seenAt int64, expiresAt time.Time) error {
	res := s.db.Model(&models.SessionLock{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Updates(map[string]interface{}{
			"last_seen_at": seenAt,
			"expires_at":   expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSuperseded
	}
	return nil
}

func (s *GormStore) Delete(userID uint, sessionID string) error {
	return s.db.Where("user_id = ? AND session_id = ?", userID, sessionID).
		Delete(&models.SessionLock{}).Error
}
