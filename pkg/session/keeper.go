// Package session implements the client side of the exclusive-session
// protocol: claim the account lock, keep it alive with heartbeats, and back
// off cleanly when another session takes over.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by API implementations when another session now
// holds the lock.
var ErrSuperseded = errors.New("session superseded")

// State of the keeper's occupancy claim.
type State int

const (
	StateIdle State = iota
	StatePending
	StateActive
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateBlocked:
		return "blocked"
	default:
		return "idle"
	}
}

// Metadata identifies this client to whoever it blocks.
type Metadata struct {
	DeviceLabel string
	Origin      string
}

// ClaimOutcome is the server's answer to a claim attempt.
type ClaimOutcome struct {
	Granted  bool
	Disabled bool
	// HolderLabel describes the blocking session when Granted is false.
	HolderLabel string
}

// API is the transport to the lock service, typically an HTTP client against
// the /session endpoints.
type API interface {
	Claim(ctx context.Context, sessionID string, meta Metadata) (ClaimOutcome, error)
	Heartbeat(ctx context.Context, sessionID string) error
	Release(ctx context.Context, sessionID string) error
}

// A heartbeat can fail transiently; only this many in a row demote the
// session.
const maxConsecutiveFailures = 3

// Keeper drives one session's occupancy lifecycle:
// idle -> pending -> active or blocked. Active sessions heartbeat on an
// interval; blocked sessions stay read-only until the user retries.
type Keeper struct {
	api       API
	sessionID string
	meta      Metadata
	interval  time.Duration

	mu       sync.Mutex
	state    State
	holder   string
	failures int
	onChange func(State)
}

func NewKeeper(api API, sessionID string, meta Metadata, heartbeatInterval time.Duration) *Keeper {
	return &Keeper{
		api:       api,
		sessionID: sessionID,
		meta:      meta,
		interval:  heartbeatInterval,
		state:     StateIdle,
	}
}

// OnChange registers a callback invoked outside the lock whenever the state
// changes. UI layers use it to flip between playing and read-only.
func (k *Keeper) OnChange(fn func(State)) {
	k.mu.Lock()
	k.onChange = fn
	k.mu.Unlock()
}

// State returns the current occupancy state.
func (k *Keeper) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Holder describes the blocking session, when blocked.
func (k *Keeper) Holder() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.holder
}

// Claim attempts to take the lock. Safe to call again from blocked to retry
// a takeover after the active grace window.
func (k *Keeper) Claim(ctx context.Context) (State, error) {
	k.transition(StatePending, "")

	outcome, err := k.api.Claim(ctx, k.sessionID, k.meta)
	if err != nil {
		k.transition(StateIdle, "")
		return StateIdle, err
	}
	if !outcome.Granted {
		k.transition(StateBlocked, outcome.HolderLabel)
		return StateBlocked, nil
	}
	k.mu.Lock()
	k.failures = 0
	k.mu.Unlock()
	k.transition(StateActive, "")
	return StateActive, nil
}

// Beat sends one heartbeat. A superseded response blocks immediately; other
// failures only block after several in a row, so a flaky network does not
// bounce the session.
func (k *Keeper) Beat(ctx context.Context) State {
	if k.State() != StateActive {
		return k.State()
	}

	err := k.api.Heartbeat(ctx, k.sessionID)
	if err == nil {
		k.mu.Lock()
		k.failures = 0
		k.mu.Unlock()
		return StateActive
	}
	if errors.Is(err, ErrSuperseded) {
		k.transition(StateBlocked, "")
		return StateBlocked
	}

	k.mu.Lock()
	k.failures++
	demote := k.failures >= maxConsecutiveFailures
	k.mu.Unlock()
	if demote {
		k.transition(StateBlocked, "")
		return StateBlocked
	}
	return StateActive
}

// Release gives the lock up and returns to idle. Best effort: the server
// treats a lost release as staleness.
func (k *Keeper) Release(ctx context.Context) {
	_ = k.api.Release(ctx, k.sessionID)
	k.transition(StateIdle, "")
}

// Run claims and then heartbeats until ctx is cancelled, releasing on exit.
func (k *Keeper) Run(ctx context.Context) error {
	if _, err := k.Claim(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Use a fresh context so the release still goes out.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			k.Release(releaseCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if k.Beat(ctx) == StateBlocked {
				return ErrSuperseded
			}
		}
	}
}

func (k *Keeper) transition(next State, holder string) {
	k.mu.Lock()
	changed := k.state != next
	k.state = next
	k.holder = holder
	fn := k.onChange
	k.mu.Unlock()

	if changed && fn != nil {
		fn(next)
	}
}
