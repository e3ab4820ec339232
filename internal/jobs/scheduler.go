// Package jobs runs the background maintenance schedule.
package jobs

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/pzse-platform/iebc-backend/internal/letters"
)

// Scheduler owns the cron instance. Today the only job is the nightly
// scratch-directory sweep; signed downloads clean up after themselves
// but a crashed render can leave files behind.
type Scheduler struct {
	cron    *cron.Cron
	scratch *letters.Scratch
}

func NewScheduler(scratch *letters.Scratch) *Scheduler {
	return &Scheduler{cron: cron.New(), scratch: scratch}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.scratch.Clean(); err != nil {
			log.Printf("scratch sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
