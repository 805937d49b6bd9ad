package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// creationJobPrefix marks the daily creation triggers so they can be
// replaced as a group when posting times change.
const creationJobPrefix = "creation_"

// JobInfo describes one scheduled job for the status surface.
type JobInfo struct {
	ID      string    `json:"id"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	Paused  bool      `json:"paused"`
}

type scheduledJob struct {
	entry  cron.EntryID
	spec   string
	paused bool
}

// scheduler wraps a cron instance with named, individually pausable jobs.
// Pausing keeps the cron entries registered; the wrapper skips the work.
type scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]*scheduledJob
	paused bool
	logger *slog.Logger
}

func newScheduler(tz string, logger *slog.Logger) (*scheduler, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, types.WrapError(types.SCHEDULE_INVALID,
				fmt.Sprintf("unknown timezone %q", tz), err)
		}
	}
	return &scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		jobs:   make(map[string]*scheduledJob),
		logger: logger,
	}, nil
}

func (s *scheduler) start() { s.cron.Start() }

// stop halts the cron loop and returns after in-flight jobs finish.
func (s *scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// addDaily registers fn to run every day at hour:minute under the given id,
// replacing any job already registered under it.
func (s *scheduler) addDaily(id string, hour, minute int, fn func()) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.jobs[id]; ok {
		s.cron.Remove(old.entry)
	}

	job := &scheduledJob{spec: spec}
	entry, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		skip := s.paused || job.paused
		s.mu.Unlock()
		if skip {
			s.logger.Debug("skipping paused job", "job", id)
			return
		}
		fn()
	})
	if err != nil {
		return types.WrapError(types.SCHEDULE_INVALID,
			fmt.Sprintf("invalid schedule for job %s", id), err)
	}
	job.entry = entry
	s.jobs[id] = job
	return nil
}

// removeByPrefix drops every job whose id starts with prefix and returns
// how many were removed.
func (s *scheduler) removeByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if strings.HasPrefix(id, prefix) {
			s.cron.Remove(job.entry)
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *scheduler) pauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	for _, job := range s.jobs {
		job.paused = true
	}
}

func (s *scheduler) resumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	for _, job := range s.jobs {
		job.paused = false
	}
}

func (s *scheduler) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// jobInfos returns a stable snapshot of the schedule.
func (s *scheduler) jobInfos() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for id, job := range s.jobs {
		infos = append(infos, JobInfo{
			ID:      id,
			Spec:    job.spec,
			NextRun: s.cron.Entry(job.entry).Next,
			Paused:  s.paused || job.paused,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// validatePostingTimes parses every HH:MM string up front so a rescheduling
// request with one bad entry leaves the existing schedule untouched.
func validatePostingTimes(times []string) ([][2]int, error) {
	parsed := make([][2]int, 0, len(times))
	for _, t := range times {
		hour, minute, err := config.ParsePostingTime(t)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, [2]int{hour, minute})
	}
	return parsed, nil
}
