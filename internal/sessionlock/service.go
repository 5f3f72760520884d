package sessionlock

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"wordclash/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Metadata describes the client claiming a lock, shown to whoever gets
// blocked by it.
type Metadata struct {
	DeviceLabel string
	Origin      string
}

// ClaimResult is the outcome of a claim attempt. When Granted is false, Lock
// carries the current holder's record for display. Disabled marks the
// degraded locks-off mode.
type ClaimResult struct {
	Granted  bool
	Disabled bool
	Lock     *models.SessionLock
}

// Service enforces exclusive session occupancy per account. A lock is active
// while its holder heartbeated within the active grace window, and stale
// (free to take over) once the holder has been silent past the stale window.
type Service struct {
	store       Store
	activeGrace time.Duration
	staleAfter  time.Duration

	disabled atomic.Bool
	warnOnce sync.Once
	now      func() time.Time
}

func NewService(store Store, activeGrace, staleAfter time.Duration, disabled bool) *Service {
	s := &Service{
		store:       store,
		activeGrace: activeGrace,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
	s.disabled.Store(disabled)
	return s
}

// Claim attempts a single atomic read-modify-write granting sessionID
// exclusive occupancy of userID's account. A conflicting claim wins only if
// the existing holder is the same session, stale, or outside its active
// grace window.
func (s *Service) Claim(userID uint, sessionID string, meta Metadata) (ClaimResult, error) {
	if s.disabled.Load() {
		return ClaimResult{Granted: true, Disabled: true}, nil
	}

	now := s.now()
	fresh := &models.SessionLock{
		UserID:      userID,
		SessionID:   sessionID,
		LastSeenAt:  now.UnixMilli(),
		DeviceLabel: meta.DeviceLabel,
		Origin:      meta.Origin,
		ExpiresAt:   now.Add(s.staleAfter),
	}

	// One retry after a lost race; the second loser is genuinely blocked.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.store.Get(userID)
		if err != nil && err != ErrNotFound {
			if s.degradeOn(err) {
				return ClaimResult{Granted: true, Disabled: true}, nil
			}
			return ClaimResult{}, err
		}

		if existing == nil {
			err = s.store.Insert(fresh)
			if err == ErrLockExists {
				continue
			}
			if err != nil {
				if s.degradeOn(err) {
					return ClaimResult{Granted: true, Disabled: true}, nil
				}
				return ClaimResult{}, err
			}
			return ClaimResult{Granted: true, Lock: fresh}, nil
		}

		if !s.canTakeOver(existing, sessionID, now) {
			return ClaimResult{Granted: false, Lock: existing}, nil
		}

		err = s.store.Replace(userID, existing.SessionID, existing.LastSeenAt, fresh)
		if err == ErrSuperseded {
			continue
		}
		if err != nil {
			if s.degradeOn(err) {
				return ClaimResult{Granted: true, Disabled: true}, nil
			}
			return ClaimResult{}, err
		}
		return ClaimResult{Granted: true, Lock: fresh}, nil
	}

	current, err := s.store.Get(userID)
	if err != nil && err != ErrNotFound {
		return ClaimResult{}, err
	}
	return ClaimResult{Granted: false, Lock: current}, nil
}

// Heartbeat bumps the holder's last-seen timestamp. ErrSuperseded means the
// session lost the lock; callers treat that as a forced logout.
func (s *Service) Heartbeat(userID uint, sessionID string) error {
	if s.disabled.Load() {
		return nil
	}
	now := s.now()
	return s.store.Touch(userID, sessionID, now.UnixMilli(), now.Add(s.staleAfter))
}

// Release deletes the lock if sessionID still holds it. Releasing after a
// takeover is a no-op so a stale tab cannot evict the new holder.
func (s *Service) Release(userID uint, sessionID string) error {
	if s.disabled.Load() {
		return nil
	}
	return s.store.Delete(userID, sessionID)
}

func (s *Service) canTakeOver(existing *models.SessionLock, sessionID string, now time.Time) bool {
	if existing.SessionID == sessionID {
		return true
	}
	age := existing.Age(now)
	return age > s.staleAfter || age > s.activeGrace
}

// degradeOn switches the service into locks-disabled mode on backend
// misconfiguration, trading strictness for availability instead of bricking
// every sign-in.
func (s *Service) degradeOn(err error) bool {
	if !isConfigError(err) {
		return false
	}
	s.warnOnce.Do(func() {
		logrus.WithError(err).Warn("session locks disabled: store misconfigured")
	})
	s.disabled.Store(true)
	return true
}

func isConfigError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"permission denied",
		"does not exist",
		"undefined_table",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
