package auditor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler audits every registered field once a day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *Service
	at        string
	timeout   time.Duration
}

// NewScheduler runs the daily audit at "HH:MM" in loc.
func NewScheduler(service *Service, at string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		service:   service,
		at:        at,
		timeout:   5 * time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Day().At(s.at).Do(s.RunOnce); err != nil {
		return fmt.Errorf("schedule daily audit at %s: %w", s.at, err)
	}
	s.scheduler.StartAsync()
	log.Printf("scheduler: daily audit at %s (%s)", s.at, s.scheduler.Location())
	return nil
}

// RunOnce audits all fields now.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log.Printf("scheduler: running audit of %d fields", len(s.service.Fields().All()))
	n, err := s.service.AuditAll(ctx)
	if err != nil {
		log.Printf("scheduler: %d audits done, failures: %v", n, err)
		return
	}
	log.Printf("scheduler: %d audits done", n)
}

func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
