// Package orchestrator coordinates plan requests across replicas. It
// deduplicates identical requests through a fingerprint cache, ensures
// at most one optimization runs per fingerprint via a store-backed
// lock, and tracks task lifecycle records that survive the submitting
// process.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/menuforge/menuforge/pkg/catalog"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/optimizer"
	"github.com/menuforge/menuforge/pkg/telemetry"
	"github.com/menuforge/menuforge/pkg/worker"
)

// Store is the key-value surface the orchestrator needs. Implemented
// by store.Gateway.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Dispatcher runs optimization jobs. Implemented by worker.Pool.
type Dispatcher interface {
	Run(ctx context.Context, job *worker.Job) ([]menu.MenuPlan, error)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// LockTTL bounds how long a crashed task can block its
	// fingerprint. It must exceed the worst-case optimization time.
	LockTTL time.Duration `yaml:"lock_ttl"`

	// TaskTTL is how long finished task records stay pollable.
	TaskTTL time.Duration `yaml:"task_ttl"`

	// PlanCacheTTL is how long completed plans are served from cache.
	PlanCacheTTL time.Duration `yaml:"plan_cache_ttl"`

	// LockRetryWait is the pause before re-reading the cache after
	// losing a lock race.
	LockRetryWait time.Duration `yaml:"lock_retry_wait"`

	MemThresholdPercent float64 `yaml:"mem_threshold_percent"`
	CPUThresholdPercent float64 `yaml:"cpu_threshold_percent"`

	// ExcludedCategories are dropped from every catalog before
	// optimization.
	ExcludedCategories []string `yaml:"excluded_categories"`

	Optimizer optimizer.Config `yaml:"optimizer"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		LockTTL:             10 * time.Minute,
		TaskTTL:             time.Hour,
		PlanCacheTTL:        24 * time.Hour,
		LockRetryWait:       150 * time.Millisecond,
		MemThresholdPercent: 85,
		CPUThresholdPercent: 0,
		ExcludedCategories:  catalog.DefaultExcludedCategories,
		Optimizer:           optimizer.DefaultConfig(),
	}
}

// SubmitResult is the immediate answer to a submission: either plans
// straight from cache, or a task to poll.
type SubmitResult struct {
	Status TaskStatus
	TaskID string
	Plans  []menu.MenuPlan
}

// Orchestrator ties the store, the worker pool and admission control
// into the submit/poll lifecycle.
type Orchestrator struct {
	store   Store
	pool    Dispatcher
	sampler LoadSampler
	cfg     Config
	log     *telemetry.Logger
	metrics *telemetry.Metrics

	// now is swappable for tests.
	now func() time.Time
}

// New creates an orchestrator. A nil sampler disables admission
// control; nil metrics disable instrumentation.
func New(st Store, pool Dispatcher, sampler LoadSampler, cfg Config, log *telemetry.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Orchestrator{
		store:   st,
		pool:    pool,
		sampler: sampler,
		cfg:     cfg,
		log:     log.Component("orchestrator"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Submit runs the cache/lock admission sequence for a plan request.
// It returns cached plans when an identical request already finished,
// joins an in-flight task when one holds the lock, and otherwise
// starts a new background task and returns it as PENDING.
func (o *Orchestrator) Submit(ctx context.Context, req *menu.Request) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IgnoreCache {
		if err := o.admit(); err != nil {
			o.countSubmit("rejected")
			return nil, err
		}
		res, err := o.startTask(ctx, req, uuid.New().String(), "")
		if err == nil {
			o.countSubmit("bypass")
		}
		return res, err
	}

	key := cacheKey(Fingerprint(req))

	raw, found, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		entry, ok := parseCacheEntry(raw)
		switch {
		case !ok:
			// Unreadable entry: drop it and treat the key as absent.
			o.countLookup("malformed")
			if derr := o.store.Delete(ctx, key); derr != nil {
				o.log.Warn().Err(derr).Str("key", key).Msg("failed to evict malformed cache entry")
			}
		case len(entry.Plans) > 0:
			o.countLookup("result")
			o.countSubmit("cached")
			return &SubmitResult{Status: StatusSuccess, Plans: entry.Plans}, nil
		default:
			o.countLookup("lock")
			o.countSubmit("joined")
			return &SubmitResult{Status: StatusPending, TaskID: entry.TaskID}, nil
		}
	} else {
		o.countLookup("miss")
	}

	if err := o.admit(); err != nil {
		o.countSubmit("rejected")
		return nil, err
	}

	taskID := uuid.New().String()
	marker, _ := json.Marshal(cacheEntry{TaskID: taskID})
	won, err := o.store.SetIfAbsent(ctx, key, string(marker), o.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !won {
		o.countLock("lost")
		return o.joinAfterLostRace(ctx, key)
	}
	o.countLock("acquired")

	res, err := o.startTask(ctx, req, taskID, key)
	if err != nil {
		// Task record could not be persisted; release the lock so the
		// fingerprint is not blocked until the TTL expires.
		if derr := o.store.Delete(ctx, key); derr != nil {
			o.log.Warn().Err(derr).Str("key", key).Msg("failed to release lock after start failure")
		}
		return nil, err
	}
	o.countSubmit("pending")
	return res, nil
}

// joinAfterLostRace re-reads the cache entry written by whoever won
// the lock. The brief wait covers the winner's follow-up task write.
func (o *Orchestrator) joinAfterLostRace(ctx context.Context, key string) (*SubmitResult, error) {
	select {
	case <-time.After(o.cfg.LockRetryWait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	raw, found, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		if entry, ok := parseCacheEntry(raw); ok {
			if len(entry.Plans) > 0 {
				o.countSubmit("cached")
				return &SubmitResult{Status: StatusSuccess, Plans: entry.Plans}, nil
			}
			o.countSubmit("joined")
			return &SubmitResult{Status: StatusPending, TaskID: entry.TaskID}, nil
		}
	}
	return nil, menu.NewConflictError("lost lock race and winner's task is not visible, retry the request", nil).
		WithCode(menu.ErrCodeLockUnresolvable)
}

// startTask persists the PROCESSING record and launches the background
// run. cacheEntryKey is empty when the cache is bypassed; otherwise
// taskID matches the id embedded in the lock marker, so pollers that
// joined via the cache see the same task.
func (o *Orchestrator) startTask(ctx context.Context, req *menu.Request, taskID, cacheEntryKey string) (*SubmitResult, error) {
	record := TaskRecord{
		TaskID:    taskID,
		Status:    StatusProcessing,
		CreatedAt: o.now().UTC(),
		UpdatedAt: o.now().UTC(),
	}
	if err := o.writeTask(ctx, record); err != nil {
		return nil, err
	}

	go o.run(req, taskID, cacheEntryKey)

	return &SubmitResult{Status: StatusPending, TaskID: taskID}, nil
}

// run executes the optimization in the background. It deliberately
// uses a fresh context: the submitting request finishing or failing
// must not cancel work other pollers may be waiting on.
func (o *Orchestrator) run(req *menu.Request, taskID, cacheEntryKey string) {
	ctx := context.Background()
	log := o.log.WithTaskID(taskID)

	if o.metrics != nil {
		o.metrics.InFlightTasks.Inc()
		defer o.metrics.InFlightTasks.Dec()
	}

	dishes, err := catalog.Preprocess(req.Dishes, req, o.cfg.ExcludedCategories)
	if err != nil {
		o.fail(ctx, log, taskID, cacheEntryKey, err)
		return
	}

	job := &worker.Job{
		TaskID: taskID,
		Dishes: dishes,
		Constraints: optimizer.Constraints{
			DinerCount:  req.DinerCount,
			TotalBudget: req.TotalBudget,
		},
		Config: o.cfg.Optimizer,
	}

	started := o.now()
	plans, err := o.pool.Run(ctx, job)
	if o.metrics != nil {
		o.metrics.OptimizeSeconds.Observe(o.now().Sub(started).Seconds())
	}
	if err != nil {
		o.fail(ctx, log, taskID, cacheEntryKey, err)
		return
	}

	record := TaskRecord{
		TaskID:    taskID,
		Status:    StatusSuccess,
		Plans:     plans,
		CreatedAt: started.UTC(),
		UpdatedAt: o.now().UTC(),
	}
	if err := o.writeTask(ctx, record); err != nil {
		log.Error().Err(err).Msg("failed to persist success record")
	}

	if cacheEntryKey != "" {
		payload, _ := json.Marshal(cacheEntry{Plans: plans})
		if err := o.store.Set(ctx, cacheEntryKey, string(payload), o.cfg.PlanCacheTTL); err != nil {
			// Lock TTL bounds how long the stale marker lingers.
			log.Warn().Err(err).Msg("failed to overwrite lock with result")
		}
	}

	o.countTask("success")
	log.Info().Int("plans", len(plans)).Msg("task succeeded")
}

// fail records the terminal failure and frees the fingerprint so a
// later identical request can retry immediately.
func (o *Orchestrator) fail(ctx context.Context, log *telemetry.Logger, taskID, cacheEntryKey string, cause error) {
	record := TaskRecord{
		TaskID:    taskID,
		Status:    StatusFailed,
		Error:     cause.Error(),
		CreatedAt: o.now().UTC(),
		UpdatedAt: o.now().UTC(),
	}
	var merr *menu.Error
	if errors.As(cause, &merr) {
		record.ErrorCode = merr.Code
	}
	if err := o.writeTask(ctx, record); err != nil {
		log.Error().Err(err).Msg("failed to persist failure record")
	}
	if cacheEntryKey != "" {
		if err := o.store.Delete(ctx, cacheEntryKey); err != nil {
			log.Warn().Err(err).Msg("failed to release lock after task failure")
		}
	}
	o.countTask("failed")
	log.Warn().Err(cause).Msg("task failed")
}

// Poll returns the persisted task record. An absent record reports
// PROCESSING: expired or never-written records are indistinguishable
// from slow tasks, and PROCESSING keeps well-behaved clients polling
// rather than erroring out.
func (o *Orchestrator) Poll(ctx context.Context, taskID string) (*TaskRecord, error) {
	raw, found, err := o.store.Get(ctx, taskKey(taskID))
	if err != nil {
		return nil, err
	}
	if !found {
		return &TaskRecord{TaskID: taskID, Status: StatusProcessing}, nil
	}
	var record TaskRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, menu.NewInternalError("task record is corrupt", err)
	}
	return &record, nil
}

func (o *Orchestrator) writeTask(ctx context.Context, record TaskRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return menu.NewInternalError("failed to encode task record", err)
	}
	return o.store.Set(ctx, taskKey(record.TaskID), string(payload), o.cfg.TaskTTL)
}

func (o *Orchestrator) countSubmit(outcome string) {
	if o.metrics != nil {
		o.metrics.SubmitsTotal.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) countLookup(result string) {
	if o.metrics != nil {
		o.metrics.CacheHitsTotal.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) countLock(result string) {
	if o.metrics != nil {
		o.metrics.LocksTotal.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) countTask(status string) {
	if o.metrics != nil {
		o.metrics.TasksTotal.WithLabelValues(status).Inc()
	}
}
