package chat

import (
	"errors"
	"time"

	"wordclash/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMessageNotFound    = errors.New("message not found")
)

// Store is the transactional surface for chat rooms, memberships, and
// messages.
type Store interface {
	GetRoom(id string) (*models.ChatRoom, error)
	// EnsureRoom idempotently creates a room with its initial memberships;
	// concurrent calls for the same id converge on one row.
	EnsureRoom(room *models.ChatRoom, memberships []models.ChatMembership) error
	EnsureMembership(m *models.ChatMembership) error
	GetMembership(roomID string, userID uint) (*models.ChatMembership, error)
	// AppendMessage persists msg, bumps the room's lastMessageAt, and stamps
	// the sender's read receipt, all in one transaction.
	AppendMessage(msg *models.ChatMessage) error
	// MarkRead advances the member's read cursor monotonically; it reports
	// false when at is not newer than the stored value.
	MarkRead(roomID string, userID uint, at time.Time) (bool, error)
	UpdateMessage(id uint, fn func(*models.ChatMessage) error) (*models.ChatMessage, error)
	ListMessages(roomID string, limit int) ([]models.ChatMessage, error)
	// UpgradeSharedMemberships flips both users' memberships to persistent
	// in every room they share. Called when the two befriend.
	UpgradeSharedMemberships(a, b uint) error
}

// GormStore implements Store over postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetRoom(id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *GormStore) EnsureRoom(room *models.ChatRoom, memberships []models.ChatMembership) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(room).Error; err != nil {
			return err
		}
		if len(memberships) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberships).Error
	})
}

func (s *GormStore) EnsureMembership(m *models.ChatMembership) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (s *GormStore) GetMembership(roomID string, userID uint) (*models.ChatMembership, error) {
	var m models.ChatMembership
	err := s.db.First(&m, "room_id = ? AND user_id = ?", roomID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) AppendMessage(msg *models.ChatMessage) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		var room models.ChatRoom
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", msg.RoomID).Error; err != nil {
			return err
		}
		room.LastMessageAt = &msg.SentAt
		if room.ReadReceipts == nil {
			room.ReadReceipts = map[uint]time.Time{}
		}
		// Sending implies having read up to the send instant.
		room.ReadReceipts[msg.SenderID] = msg.SentAt
		if err := tx.Save(&room).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatMembership{}).
			Where("room_id = ? AND user_id = ?", msg.RoomID, msg.SenderID).
			Where("last_read_at IS NULL OR last_read_at < ?", msg.SentAt).
			Update("last_read_at", msg.SentAt).Error
	})
}

func (s *GormStore) MarkRead(roomID string, userID uint, at time.Time) (bool, error) {
	var updated bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatMembership{}).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			Where("last_read_at IS NULL OR last_read_at < ?", at).
			Update("last_read_at", at)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected > 0
		if !updated {
			return nil
		}
		var room models.ChatRoom
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", roomID).Error; err != nil {
			return err
		}
		if room.ReadReceipts == nil {
			room.ReadReceipts = map[uint]time.Time{}
		}
		if prev, ok := room.ReadReceipts[userID]; !ok || prev.Before(at) {
			room.ReadReceipts[userID] = at
		}
		return tx.Save(&room).Error
	})
	return updated, err
}

func (s *GormStore) UpdateMessage(id uint, fn func(*models.ChatMessage) error) (*models.ChatMessage, error) {
	var updated *models.ChatMessage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var msg models.ChatMessage
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&msg, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(&msg); err != nil {
			return err
		}
		if err := tx.Save(&msg).Error; err != nil {
			return err
		}
		updated = &msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) ListMessages(roomID string, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.Where("room_id = ?", roomID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (s *GormStore) UpgradeSharedMemberships(a, b uint) error {
	shared := s.db.Model(&models.ChatMembership{}).
		Select("room_id").
		Where("user_id = ?", b)
	return s.db.Model(&models.ChatMembership{}).
		Where("user_id IN ?", []uint{a, b}).
		Where("room_id IN (?)", shared).
		Update("temporary", false).Error
}
