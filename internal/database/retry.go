package database

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	retryAttempts = 3
	retryBase     = 50 * time.Millisecond
)

// WithRetry runs fn, retrying transient store failures with bounded
// exponential backoff. Non-transient errors propagate immediately.
func WithRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBase << (attempt - 1))
		}
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		logrus.WithError(err).WithField("attempt", attempt+1).Warn("transient store error, retrying")
	}
	return err
}

// IsTransient reports whether err looks like an aborted/unavailable store
// failure worth retrying rather than surfacing.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"serialization failure",
		"deadlock detected",
		"connection reset",
		"connection refused",
		"failed precondition",
		"unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
