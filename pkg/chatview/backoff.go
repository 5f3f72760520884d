package chatview

import "time"

const (
	backoffInitial = time.Second
	backoffMax     = 30 * time.Second
)

// Backoff schedules resubscribe attempts after a dropped connection or a
// rejected subscription: exponential doubling, capped, reset on success.
type Backoff struct {
	next time.Duration
}

func NewBackoff() *Backoff {
	return &Backoff{next: backoffInitial}
}

// Next returns the wait before the next attempt and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > backoffMax {
		b.next = backoffMax
	}
	return d
}

// Reset restores the initial delay after a successful subscribe.
func (b *Backoff) Reset() {
	b.next = backoffInitial
}
