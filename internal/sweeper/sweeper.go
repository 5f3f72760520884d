package sweeper

import (
	"time"

	"wordclash/backend/internal/match"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const (
	sweepEvery = 30 * time.Second
	sweepBatch = 200
)

// Sweeper settles matches whose advisory deadlines have passed, so stale
// lobbies and abandoned games are closed even when nobody reads them again.
type Sweeper struct {
	matches *match.Service
	sched   gocron.Scheduler
}

func New(matches *match.Service) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{matches: matches, sched: sched}, nil
}

// Start registers the sweep job and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(s.sweep),
	)
	if err != nil {
		return err
	}
	s.sched.Start()
	logrus.WithField("interval", sweepEvery).Info("Match sweeper started")
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		logrus.WithError(err).Warn("sweeper shutdown")
	}
}

func (s *Sweeper) sweep() {
	closed := s.matches.SweepExpired(sweepBatch)
	if closed > 0 {
		logrus.WithField("closed", closed).Info("Swept expired matches")
	}
}
