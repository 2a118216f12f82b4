// Package scheduler runs periodic universe scans on cron schedules and
// persists each run's results.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/basehunter/basehunter/internal/persistence"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
	"github.com/basehunter/basehunter/internal/universe"
)

// Job is one scheduled scan.
type Job struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron format, e.g. "30 21 * * 1-5"
	Enabled  bool   `yaml:"enabled"`
}

// Config holds the scheduler's job table.
type Config struct {
	Jobs []Job `yaml:"jobs"`
}

// DefaultConfig scans every weekday evening after the US close.
func DefaultConfig() Config {
	return Config{
		Jobs: []Job{
			{Name: "post_close", Schedule: "30 21 * * 1-5", Enabled: true},
		},
	}
}

// Status reports the scheduler's current state.
type Status struct {
	Running     bool      `json:"running"`
	EnabledJobs int       `json:"enabled_jobs"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastError   string    `json:"last_error,omitempty"`
}

// Scheduler drives scans from the cron table. The repo is optional;
// without one, runs are only logged.
type Scheduler struct {
	config   Config
	scanner  *pipeline.Scanner
	universe *universe.Manager
	repo     persistence.ScanRepo
	cron     *cron.Cron

	mu        sync.Mutex
	running   bool
	lastRun   time.Time
	lastError error
}

// New builds a scheduler around a scanner and universe.
func New(config Config, scanner *pipeline.Scanner, uni *universe.Manager, repo persistence.ScanRepo) *Scheduler {
	return &Scheduler{
		config:   config,
		scanner:  scanner,
		universe: uni,
		repo:     repo,
		cron:     cron.New(),
	}
}

// Start registers the enabled jobs and launches the cron loop. The
// context bounds every scan the scheduler triggers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	registered := 0
	for _, job := range s.config.Jobs {
		if !job.Enabled {
			continue
		}
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			s.runJob(ctx, job.Name)
		})
		if err != nil {
			return fmt.Errorf("register job %s (%q): %w", job.Name, job.Schedule, err)
		}
		registered++
		log.Info().Str("job", job.Name).Str("schedule", job.Schedule).Msg("scan job registered")
	}

	if registered == 0 {
		return fmt.Errorf("no enabled jobs to schedule")
	}

	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish. The
// drain must happen outside the lock: an in-flight job takes s.mu to
// record its outcome.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunOnce triggers a single scan immediately, outside the cron table.
func (s *Scheduler) RunOnce(ctx context.Context, trigger string) error {
	return s.runJob(ctx, trigger)
}

// Status reports the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running: s.running,
		LastRun: s.lastRun,
	}
	for _, job := range s.config.Jobs {
		if job.Enabled {
			status.EnabledJobs++
		}
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	if s.running {
		for _, entry := range s.cron.Entries() {
			if status.NextRun.IsZero() || entry.Next.Before(status.NextRun) {
				status.NextRun = entry.Next
			}
		}
	}
	return status
}

func (s *Scheduler) runJob(ctx context.Context, trigger string) error {
	start := time.Now()
	log.Info().Str("trigger", trigger).Msg("scheduled scan starting")

	results, summary, err := s.scanner.Scan(ctx, s.universe.Symbols())

	s.mu.Lock()
	s.lastRun = start
	s.lastError = err
	s.mu.Unlock()

	if err != nil {
		log.Error().Str("trigger", trigger).Err(err).Msg("scheduled scan failed")
		return err
	}

	if s.repo != nil {
		record := persistence.NewScanRecord(trigger, s.universe.Name(), summary)
		scanID, saveErr := s.repo.SaveScan(ctx, record, results)
		if saveErr != nil {
			log.Error().Str("trigger", trigger).Err(saveErr).Msg("scan persistence failed")
			s.mu.Lock()
			s.lastError = saveErr
			s.mu.Unlock()
			return saveErr
		}
		log.Info().Int64("scan_id", scanID).Int("setups", summary.SetupsFound).Msg("scan persisted")
	}

	log.Info().
		Str("trigger", trigger).
		Int("setups", summary.SetupsFound).
		Int("breakouts", summary.BreakoutsFound).
		Dur("duration", summary.Duration).
		Msg("scheduled scan complete")
	return nil
}
