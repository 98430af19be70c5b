package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work. An empty Schedule registers it for
// on-demand runs only.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules. A job never
// overlaps with itself.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job

	ctx    context.Context
	cancel context.CancelFunc
	locks  sync.Map
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand job", job.Name())
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	v, _ := s.locks.LoadOrStore(job.Name(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		log.Printf("⏭️ [%s] Previous run still in progress, skipping", job.Name())
		return nil
	}
	defer mu.Unlock()

	log.Printf("🤖 [%s] Starting job...", job.Name())
	if err := job.Run(ctx); err != nil {
		log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		return err
	}
	log.Printf("✅ [%s] Job completed", job.Name())
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on demand", name)
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
