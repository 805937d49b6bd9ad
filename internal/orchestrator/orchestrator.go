// Package orchestrator drives the content agent: it runs creation and
// learning cycles, holds the registry of executions suspended for human
// approval, schedules daily triggers, and resumes threads when a decision
// arrives, including decisions deferred to a later publish time.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/events"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

const threadTimeLayout = "20060102_150405"

// Notifier delivers pipeline output to the human approver. The bot package
// provides the production implementation.
type Notifier interface {
	// SendPipelineReport is best effort; a delivery failure never fails
	// the cycle.
	SendPipelineReport(ctx context.Context, report string) error

	// SendApprovalRequest presents a suspended post for a decision.
	SendApprovalRequest(ctx context.Context, threadID string, payload pipeline.ApprovalPayload) error
}

// PendingInterrupt is one execution suspended at the approval gate.
type PendingInterrupt struct {
	ThreadID  string                   `json:"thread_id"`
	Payload   pipeline.ApprovalPayload `json:"payload"`
	CreatedAt time.Time                `json:"created_at"`
}

// Orchestrator owns the two pipeline runners and everything around them.
type Orchestrator struct {
	cfg      *config.Config
	creation *graph.Runner[pipeline.CreationState, pipeline.HumanDecision]
	learning *graph.Runner[pipeline.LearningState, pipeline.HumanDecision]
	deferred *deferredStore
	sched    *scheduler
	bus      *events.Bus
	notifier Notifier
	logger   *slog.Logger
	closers  []io.Closer

	mu             sync.Mutex
	creationCycles int
	learningCycles int
	pending        map[string]PendingInterrupt
	resuming       map[string]struct{}
	timers         map[string]*time.Timer
	inFlight       int
	stopped        bool

	tasks sync.WaitGroup
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the approval notifier. Without one, suspensions are
// only logged and surfaced through PendingApprovals.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithBus sets the event bus for progress events.
func WithBus(bus *events.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClosers registers adapters to close on Stop.
func WithClosers(closers ...io.Closer) Option {
	return func(o *Orchestrator) { o.closers = append(o.closers, closers...) }
}

// New wires the orchestrator over shared pipeline dependencies, the
// checkpoint store, and the database holding deferred jobs.
func New(cfg *config.Config, deps pipeline.Deps, db *database.DB, store graph.CheckpointStore, opts ...Option) (*Orchestrator, error) {
	creationGraph, err := pipeline.NewCreationGraph(deps)
	if err != nil {
		return nil, err
	}
	learningGraph, err := pipeline.NewLearningGraph(deps)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		creation: graph.NewRunner(creationGraph, store),
		learning: graph.NewRunner(learningGraph, store),
		deferred: newDeferredStore(db),
		logger:   slog.Default(),
		pending:  make(map[string]PendingInterrupt),
		resuming: make(map[string]struct{}),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.sched, err = newScheduler(cfg.Scheduler.Timezone, o.logger)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// SetNotifier installs the approval notifier after construction. The bot
// needs the orchestrator to handle decisions, so the two are wired in this
// order: orchestrator, bot, then SetNotifier.
func (o *Orchestrator) SetNotifier(n Notifier) { o.notifier = n }

// Start installs the daily triggers, reloads persisted deferred jobs, and
// starts the scheduler.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.ReschedulePostingTimes(o.cfg.Scheduler.PostingTimes); err != nil {
		return err
	}
	if lt := o.cfg.Scheduler.LearningTime; lt != "" {
		hour, minute, err := config.ParsePostingTime(lt)
		if err != nil {
			return err
		}
		if err := o.sched.addDaily("learning_daily", hour, minute, func() {
			o.runScheduledLearning()
		}); err != nil {
			return err
		}
	}

	jobs, err := o.deferred.list(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		o.scheduleDeferred(job)
	}
	if len(jobs) > 0 {
		o.logger.Info("reloaded deferred jobs", "count", len(jobs))
	}

	o.sched.start()
	return nil
}

// Stop shuts the scheduler, stops pending timers, waits for in-flight
// background runs until ctx expires, then closes the registered adapters.
// In-flight runs are never cancelled.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	o.stopped = true
	for id, timer := range o.timers {
		if timer.Stop() {
			// The callback will never run; release its task slot.
			o.tasks.Done()
		}
		delete(o.timers, id)
	}
	o.mu.Unlock()

	o.sched.stop()

	done := make(chan struct{})
	go func() {
		o.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("stop timed out waiting for background tasks")
	}

	var errs []string
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RunCreationCycle executes one creation cycle to its first terminal or
// suspended point. A suspension registers a pending interrupt and notifies
// the approver.
func (o *Orchestrator) RunCreationCycle(ctx context.Context) (graph.Execution[pipeline.CreationState], error) {
	o.mu.Lock()
	o.creationCycles++
	cycle := o.creationCycles
	o.mu.Unlock()

	threadID := fmt.Sprintf("creation_%d_%s", cycle, time.Now().UTC().Format(threadTimeLayout))
	o.publish(ctx, events.CycleStarted, threadID, fmt.Sprintf("creation cycle %d started", cycle), nil)
	o.logger.Info("creation cycle starting", "cycle", cycle, "thread_id", threadID)

	exec, err := o.creation.Run(ctx, threadID, pipeline.CreationState{
		TargetFollowerCount: o.cfg.Core.TargetFollowers,
		CycleNumber:         cycle,
	})
	if err != nil {
		o.publish(ctx, events.CycleFailed, threadID, err.Error(), nil)
		return exec, err
	}

	switch exec.Status {
	case graph.StatusAwaitingApproval:
		o.handleSuspension(ctx, threadID, exec)
	case graph.StatusDone:
		o.publish(ctx, events.CycleCompleted, threadID, "creation cycle completed", map[string]any{
			"published": exec.State.PublishedPost != nil,
			"errors":    len(exec.State.Errors),
		})
		o.sendReport(ctx, creationReport(threadID, exec.State))
	}
	return exec, nil
}

// RunLearningCycle executes one learning cycle. Learning never suspends.
func (o *Orchestrator) RunLearningCycle(ctx context.Context) (graph.Execution[pipeline.LearningState], error) {
	o.mu.Lock()
	o.learningCycles++
	cycle := o.learningCycles
	o.mu.Unlock()

	threadID := fmt.Sprintf("learning_%d_%s", cycle, time.Now().UTC().Format(threadTimeLayout))
	o.publish(ctx, events.CycleStarted, threadID, fmt.Sprintf("learning cycle %d started", cycle), nil)

	exec, err := o.learning.Run(ctx, threadID, pipeline.LearningState{CycleNumber: cycle})
	if err != nil {
		o.publish(ctx, events.CycleFailed, threadID, err.Error(), nil)
		return exec, err
	}

	o.publish(ctx, events.LearningCompleted, threadID, "learning cycle completed", map[string]any{
		"collected": len(exec.State.CollectedMetrics),
		"errors":    len(exec.State.Errors),
	})
	o.sendReport(ctx, learningReport(threadID, exec.State))
	return exec, nil
}

// ResumeCreation applies a human decision to a suspended creation thread.
//
// A decision with a future PublishAt is not applied now: it is persisted as
// a deferred job, a one-shot timer is armed, and the interrupt stays
// registered unchanged. When the resumed execution suspends again the
// interrupt is re-registered and the approver re-notified. When the resume
// itself fails the interrupt is re-registered before the error propagates,
// so the thread stays resumable.
//
// A thread is claimed for the whole resume: a second concurrent call for the
// same thread fails with RESUME_IN_PROGRESS instead of applying the decision
// twice. This covers double-pressed approval buttons and a deferred timer
// firing while the approver decides.
func (o *Orchestrator) ResumeCreation(ctx context.Context, threadID string, decision pipeline.HumanDecision) (graph.Execution[pipeline.CreationState], error) {
	o.mu.Lock()
	if _, busy := o.resuming[threadID]; busy {
		o.mu.Unlock()
		return graph.Execution[pipeline.CreationState]{Status: graph.StatusFailed},
			types.NewErrorf(types.RESUME_IN_PROGRESS, "thread %s is already being resumed", threadID)
	}
	o.resuming[threadID] = struct{}{}
	entry, registered := o.pending[threadID]
	delete(o.pending, threadID)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.resuming, threadID)
		o.mu.Unlock()
	}()

	if decision.PublishAt != nil && decision.PublishAt.After(time.Now()) {
		return o.deferResume(ctx, threadID, entry, registered, decision)
	}

	exec, err := o.creation.Resume(ctx, threadID, decision)
	if err != nil {
		if registered {
			o.register(entry)
		}
		o.publish(ctx, events.CycleFailed, threadID, err.Error(), nil)
		return exec, err
	}

	switch exec.Status {
	case graph.StatusAwaitingApproval:
		o.handleSuspension(ctx, threadID, exec)
	case graph.StatusDone:
		o.publish(ctx, events.CycleResumed, threadID, "creation cycle resumed to completion", map[string]any{
			"decision":  decision.Normalized().Decision,
			"published": exec.State.PublishedPost != nil,
		})
		o.sendReport(ctx, creationReport(threadID, exec.State))
	}
	return exec, nil
}

// deferResume persists the decision for later and leaves the thread
// suspended.
func (o *Orchestrator) deferResume(ctx context.Context, threadID string, entry PendingInterrupt, registered bool, decision pipeline.HumanDecision) (graph.Execution[pipeline.CreationState], error) {
	restore := func() {
		if registered {
			o.register(entry)
		}
	}

	if !registered {
		// Crash recovery: only checkpointed suspensions can be deferred.
		if _, err := o.creation.LoadAwaiting(ctx, threadID); err != nil {
			return graph.Execution[pipeline.CreationState]{Status: graph.StatusFailed}, err
		}
	}

	runAt := decision.PublishAt.UTC()
	deferredDecision := decision
	deferredDecision.PublishAt = nil

	job := DeferredJob{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Decision: deferredDecision,
		RunAt:    runAt,
	}
	if err := o.deferred.save(ctx, job); err != nil {
		restore()
		return graph.Execution[pipeline.CreationState]{Status: graph.StatusFailed}, err
	}

	restore()
	o.scheduleDeferred(job)
	o.publish(ctx, events.PublishScheduled, threadID,
		fmt.Sprintf("decision deferred until %s", runAt.Format(time.RFC3339)), nil)
	o.logger.Info("decision deferred", "thread_id", threadID, "run_at", runAt)

	return graph.Execution[pipeline.CreationState]{
		Status:  graph.StatusAwaitingApproval,
		Payload: entry.Payload,
	}, nil
}

// scheduleDeferred arms exactly one timer for the job. Jobs already past
// due fire immediately.
func (o *Orchestrator) scheduleDeferred(job DeferredJob) {
	delay := time.Until(job.RunAt)
	if delay < 0 {
		delay = 0
	}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.tasks.Add(1)
	o.timers[job.ID] = time.AfterFunc(delay, func() {
		defer o.tasks.Done()
		o.fireDeferred(job)
	})
	o.mu.Unlock()
}

func (o *Orchestrator) fireDeferred(job DeferredJob) {
	o.mu.Lock()
	delete(o.timers, job.ID)
	o.mu.Unlock()

	ctx := context.Background()
	if err := o.deferred.delete(ctx, job.ID); err != nil {
		o.logger.Error("failed to delete deferred job", "job_id", job.ID, "error", err)
	}
	if _, err := o.ResumeCreation(ctx, job.ThreadID, job.Decision); err != nil {
		o.logger.Error("deferred resume failed", "thread_id", job.ThreadID, "error", err)
	}
}

// ForceCreation starts a creation cycle in the background. It refuses while
// an approval is pending or when too many background tasks are in flight.
func (o *Orchestrator) ForceCreation(ctx context.Context) error {
	o.mu.Lock()
	if len(o.pending) > 0 {
		o.mu.Unlock()
		return types.NewError(types.FORCE_RUN_REFUSED, "an approval is already pending")
	}
	limit := o.cfg.Scheduler.MaxBackgroundTasks
	if limit > 0 && o.inFlight >= limit {
		o.mu.Unlock()
		return types.NewErrorf(types.FORCE_RUN_REFUSED, "too many background tasks (%d in flight)", o.inFlight)
	}
	if o.stopped {
		o.mu.Unlock()
		return types.NewError(types.FORCE_RUN_REFUSED, "orchestrator is stopping")
	}
	o.inFlight++
	o.tasks.Add(1)
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			o.inFlight--
			o.mu.Unlock()
			o.tasks.Done()
		}()
		if _, err := o.RunCreationCycle(context.Background()); err != nil {
			o.logger.Error("forced creation cycle failed", "error", err)
		}
	}()
	return nil
}

// ForceLearning starts a learning cycle in the background under the same
// task bound as ForceCreation.
func (o *Orchestrator) ForceLearning(ctx context.Context) error {
	o.mu.Lock()
	limit := o.cfg.Scheduler.MaxBackgroundTasks
	if limit > 0 && o.inFlight >= limit {
		o.mu.Unlock()
		return types.NewErrorf(types.FORCE_RUN_REFUSED, "too many background tasks (%d in flight)", o.inFlight)
	}
	if o.stopped {
		o.mu.Unlock()
		return types.NewError(types.FORCE_RUN_REFUSED, "orchestrator is stopping")
	}
	o.inFlight++
	o.tasks.Add(1)
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			o.inFlight--
			o.mu.Unlock()
			o.tasks.Done()
		}()
		if _, err := o.RunLearningCycle(context.Background()); err != nil {
			o.logger.Error("forced learning cycle failed", "error", err)
		}
	}()
	return nil
}

// ReschedulePostingTimes replaces every daily creation trigger with one per
// given HH:MM. An invalid entry leaves the current schedule untouched.
func (o *Orchestrator) ReschedulePostingTimes(times []string) error {
	parsed, err := validatePostingTimes(times)
	if err != nil {
		return err
	}

	o.sched.removeByPrefix(creationJobPrefix)
	for _, hm := range parsed {
		id := fmt.Sprintf("%s%02d%02d", creationJobPrefix, hm[0], hm[1])
		if err := o.sched.addDaily(id, hm[0], hm[1], o.runScheduledCreation); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runScheduledCreation() {
	o.mu.Lock()
	if len(o.pending) > 0 {
		o.mu.Unlock()
		o.logger.Info("skipping scheduled creation: approval pending")
		return
	}
	o.mu.Unlock()

	if _, err := o.RunCreationCycle(context.Background()); err != nil {
		o.logger.Error("scheduled creation cycle failed", "error", err)
	}
}

func (o *Orchestrator) runScheduledLearning() {
	if _, err := o.RunLearningCycle(context.Background()); err != nil {
		o.logger.Error("scheduled learning cycle failed", "error", err)
	}
}

// PauseAll suspends every scheduled trigger; in-flight runs and pending
// approvals are untouched.
func (o *Orchestrator) PauseAll(ctx context.Context) {
	o.sched.pauseAll()
	o.publish(ctx, events.SchedulerPaused, "", "scheduler paused", nil)
}

// ResumeAll reactivates every scheduled trigger.
func (o *Orchestrator) ResumeAll(ctx context.Context) {
	o.sched.resumeAll()
	o.publish(ctx, events.SchedulerResumed, "", "scheduler resumed", nil)
}

// IsPaused reports whether the schedule is paused.
func (o *Orchestrator) IsPaused() bool { return o.sched.isPaused() }

// Jobs returns the current schedule.
func (o *Orchestrator) Jobs() []JobInfo { return o.sched.jobInfos() }

// PendingApprovals lists suspended executions, oldest first.
func (o *Orchestrator) PendingApprovals() []PendingInterrupt {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]PendingInterrupt, 0, len(o.pending))
	for _, p := range o.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CycleCounts returns how many creation and learning cycles have started.
func (o *Orchestrator) CycleCounts() (creation, learning int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creationCycles, o.learningCycles
}

func (o *Orchestrator) handleSuspension(ctx context.Context, threadID string, exec graph.Execution[pipeline.CreationState]) {
	payload, _ := exec.Payload.(pipeline.ApprovalPayload)
	entry := PendingInterrupt{
		ThreadID:  threadID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	o.register(entry)

	o.publish(ctx, events.AwaitingApproval, threadID, "post awaiting approval", map[string]any{
		"cycle":     payload.CycleNumber,
		"composite": payload.SelectedPost.CompositeScore,
	})
	o.logger.Info("awaiting approval",
		"thread_id", threadID,
		"cycle", payload.CycleNumber,
		"alternatives", len(payload.Alternatives),
	)

	o.sendReport(ctx, creationReport(threadID, exec.State))
	if o.notifier != nil {
		if err := o.notifier.SendApprovalRequest(ctx, threadID, payload); err != nil {
			o.logger.Error("failed to send approval request", "thread_id", threadID, "error", err)
		}
	}
}

func (o *Orchestrator) register(entry PendingInterrupt) {
	o.mu.Lock()
	o.pending[entry.ThreadID] = entry
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ctx context.Context, typ events.EventType, threadID, message string, data map[string]any) {
	if o.bus == nil {
		return
	}
	_ = o.bus.Publish(ctx, events.Event{
		Type:     typ,
		ThreadID: threadID,
		Message:  message,
		Data:     data,
	})
}

func (o *Orchestrator) sendReport(ctx context.Context, report string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.SendPipelineReport(ctx, report); err != nil {
		o.logger.Warn("failed to send pipeline report", "error", err)
	}
}

func creationReport(threadID string, s pipeline.CreationState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Creation cycle %d (%s)\n", s.CycleNumber, threadID)
	fmt.Fprintf(&sb, "Followers: %d / %d\n", s.CurrentFollowerCount, s.TargetFollowerCount)
	if s.GoalReached {
		sb.WriteString("Follower goal reached, cycle skipped.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Researched %d posts, extracted %d patterns, ranked %d variants.\n",
		len(s.ViralPosts), len(s.ExtractedPatterns), len(s.RankedPosts))
	if s.PublishedPost != nil {
		fmt.Fprintf(&sb, "Published %s (composite %.1f).\n",
			s.PublishedPost.PostID, s.PublishedPost.CompositeScore)
	} else if s.SelectedPost != nil {
		fmt.Fprintf(&sb, "Top candidate scored %.1f, awaiting decision.\n", s.SelectedPost.CompositeScore)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&sb, "Warnings: %s\n", strings.Join(s.Errors, "; "))
	}
	return sb.String()
}

func learningReport(threadID string, s pipeline.LearningState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Learning cycle %d (%s)\n", s.CycleNumber, threadID)
	fmt.Fprintf(&sb, "Checked %d posts, collected %d metric sets.\n",
		len(s.PostsToCheck), len(s.CollectedMetrics))
	if s.NewStrategy != nil {
		fmt.Fprintf(&sb, "Strategy advanced to iteration %d.\n", s.NewStrategy.Iteration)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&sb, "Warnings: %s\n", strings.Join(s.Errors, "; "))
	}
	return sb.String()
}
