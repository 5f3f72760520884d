package chatview

import (
	"sync"
	"time"
)

const (
	// Typing frames go out at most this often while the user keeps typing.
	typingSendInterval = 2 * time.Second
	// A peer who stops sending frames is considered done after this long.
	typingExpiry = 4 * time.Second
)

// TypingThrottle rate-limits outbound typing indicators to one frame per
// interval regardless of keystroke rate.
type TypingThrottle struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewTypingThrottle() *TypingThrottle {
	return &TypingThrottle{now: time.Now}
}

// ShouldSend reports whether a typing frame should go out for this
// keystroke, consuming the interval when it does.
func (t *TypingThrottle) ShouldSend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if now.Sub(t.last) < typingSendInterval {
		return false
	}
	t.last = now
	return true
}

// TypingSet tracks which peers are currently typing, expiring entries that
// go silent so a dropped stop-frame cannot wedge the indicator on.
type TypingSet struct {
	mu    sync.Mutex
	peers map[uint]time.Time
	now   func() time.Time
}

func NewTypingSet() *TypingSet {
	return &TypingSet{peers: map[uint]time.Time{}, now: time.Now}
}

// Observe folds one typing frame into the set.
func (s *TypingSet) Observe(userID uint, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isTyping {
		s.peers[userID] = s.now()
	} else {
		delete(s.peers, userID)
	}
}

// Active returns the peers typing right now, pruning stale entries.
func (s *TypingSet) Active() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-typingExpiry)
	var out []uint
	for id, seen := range s.peers {
		if seen.Before(cutoff) {
			delete(s.peers, id)
			continue
		}
		out = append(out, id)
	}
	return out
}
