package sessionlock

import (
	"errors"
	"time"

	"wordclash/backend/internal/models"
)

var (
	// ErrNotFound means no lock row exists for the account.
	ErrNotFound = errors.New("session lock not found")
	// ErrLockExists is returned by Insert when another claim won the race.
	ErrLockExists = errors.New("session lock already exists")
	// ErrSuperseded means the guarded write lost: the lock no longer belongs
	// to the session (or was rewritten since it was read).
	ErrSuperseded = errors.New("session superseded")
)

// Store is the minimal transactional surface the lock service needs. Every
// mutating call is a compare-and-swap: it succeeds only if the row still
// matches the stated expectation.
type Store interface {
	Get(userID uint) (*models.SessionLock, error)
	Insert(lock *models.SessionLock) error
	// Replace overwrites the lock only while it still carries
	// (expectSessionID, expectSeen).
	Replace(userID uint, expectSessionID string, expectSeen int64, lock *models.SessionLock) error
	// Touch bumps the heartbeat only while sessionID still holds the lock.
	Touch(userID uint, sessionID string, seenAt int64, expiresAt time.Time) error
	// Delete releases the lock only if sessionID still holds it; releasing a
	// lock someone else took over is a silent no-op.
	Delete(userID uint, sessionID string) error
}
