package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"staffdesk/internal/platform/metrics"
)

const (
	JobIdempotencyPurge = "idempotency_purge"
	JobAuditRetention   = "audit_retention"
)

// RunFunc does one unit of housekeeping and returns details for the run log.
type RunFunc func(ctx context.Context) (any, error)

type schedule struct {
	jobType  string
	interval time.Duration
	run      RunFunc
}

type job struct {
	Type string
	Run  RunFunc
}

// Service runs housekeeping jobs on a single worker so that runs never overlap.
type Service struct {
	Metrics *metrics.Collector

	mu        sync.Mutex
	schedules []schedule
	queue     chan job
}

func New(collector *metrics.Collector) *Service {
	return &Service{
		Metrics: collector,
		queue:   make(chan job, 32),
	}
}

// Schedule registers run every interval once Start is called. A non-positive
// interval disables the job.
func (s *Service) Schedule(jobType string, interval time.Duration, run RunFunc) {
	if interval <= 0 {
		slog.Info("job disabled", "jobType", jobType)
		return
	}
	s.mu.Lock()
	s.schedules = append(s.schedules, schedule{jobType: jobType, interval: interval, run: run})
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range s.schedules {
		go s.tick(ctx, sched)
	}
}

func (s *Service) Enqueue(jobType string, run RunFunc) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) tick(ctx context.Context, sched schedule) {
	ticker := time.NewTicker(sched.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sched.jobType, sched.run)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	s.Metrics.Outcome("job_"+j.Type, status)
	slog.Info("job run finished",
		"jobType", j.Type,
		"status", status,
		"durationMs", time.Since(started).Milliseconds(),
		"details", details,
	)
	return details, err
}
