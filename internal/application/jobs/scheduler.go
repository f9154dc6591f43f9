package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Status is the outcome of a job's last run.
type Status struct {
	Job      string        `json:"job"`
	LastRun  time.Time     `json:"last_run"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Scheduler runs jobs on cron specs. Overlapping runs of one job are skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	jobs map[string]Job

	mu     sync.Mutex
	status map[string]Status
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		log:    log,
		jobs:   map[string]Job{},
		status: map[string]Status{},
	}
}

// Add registers j. An empty spec registers it for RunOnce only.
func (s *Scheduler) Add(ctx context.Context, spec string, j Job) error {
	s.jobs[j.Name()] = j
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(ctx, j.Name()); err != nil {
			s.log.Error("scheduled job failed", zap.String("job", j.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", j.Name(), err)
	}
	s.log.Info("job scheduled", zap.String("job", j.Name()), zap.String("spec", spec))
	return nil
}

// Start runs the cron loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("scheduler stopped")
}

// RunOnce runs the named job synchronously.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	start := time.Now()
	err := j.Run(ctx)
	st := Status{Job: name, LastRun: start, Duration: time.Since(start)}
	if err != nil {
		st.Error = err.Error()
	}
	s.mu.Lock()
	s.status[name] = st
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s run failed: %w", name, err)
	}
	return nil
}

// Names lists registered jobs.
func (s *Scheduler) Names() []string {
	out := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Statuses returns the last outcome of every job that has run.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
