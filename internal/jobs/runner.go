package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

var (
	// ErrUnknownExecutor is returned when enqueueing a job for an executor
	// that is not registered.
	ErrUnknownExecutor = errors.New("unknown executor")
	// ErrNotRunnable is returned when running a job that is not pending.
	ErrNotRunnable = errors.New("job is not pending")
)

// Lookup resolves executors by full name. *factory.Factory implements it.
type Lookup interface {
	GetExecutor(fullName string) (executor.Executor, error)
}

// Runner enqueues jobs and executes them.
type Runner struct {
	store       Store
	lookup      Lookup
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each execution. Zero means no bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithConcurrency bounds how many jobs RunPending executes at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner returns a runner storing jobs in store and resolving executors through lookup.
func NewRunner(store Store, lookup Lookup, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:       store,
		lookup:      lookup,
		concurrency: 4,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue stores a pending job for executorName. The executor must be
// resolvable at enqueue time.
func (r *Runner) Enqueue(ctx context.Context, executorName, data string) (*Job, error) {
	e, err := r.lookup.GetExecutor(executorName)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, executorName)
	}

	j := &Job{
		ID:       uuid.NewString(),
		Enqueued: r.now().UTC(),
		Status:   StatusPending,
		Executor: executorName,
		Data:     data,
	}
	if err := r.store.Add(ctx, j); err != nil {
		return nil, fmt.Errorf("storing job: %w", err)
	}
	r.logger.Debug("job enqueued", zap.String("job", j.ID), zap.String("executor", executorName))
	return j, nil
}

// Run executes the pending job id and returns its final state. Executor
// failures are recorded on the job, not returned; the error covers store
// problems, unknown IDs and jobs that are not pending.
func (r *Runner) Run(ctx context.Context, id string) (*Job, error) {
	j, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotRunnable, id, j.Status)
	}

	j.Status = StatusRunning
	j.Attempt++
	if err := r.store.Update(ctx, j); err != nil {
		return nil, err
	}

	start := r.now()
	res := r.execute(ctx, j)
	j.Duration = r.now().Sub(start)

	if res.Success {
		j.Status = StatusSuccess
		if res.JobData != "" {
			j.Data = res.JobData
		}
		j.Message = ""
	} else {
		j.Status = StatusFailed
		j.Message = res.Error
	}

	if err := r.store.Update(ctx, j); err != nil {
		return nil, err
	}
	r.logger.Info("job finished",
		zap.String("job", j.ID),
		zap.String("executor", j.Executor),
		zap.Stringer("status", j.Status),
		zap.Duration("duration", j.Duration),
	)
	return j, nil
}

func (r *Runner) execute(ctx context.Context, j *Job) (res executor.Result) {
	e, err := r.lookup.GetExecutor(j.Executor)
	if err != nil {
		return executor.Failed(err.Error())
	}
	if e == nil {
		return executor.Failed(fmt.Sprintf("executor %q is not available", j.Executor))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("executor panicked",
				zap.String("job", j.ID),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			res = executor.Failed(fmt.Sprintf("executor panicked: %v", p))
		}
	}()

	ec := &executor.ExecutionContext{
		JobID:    j.ID,
		FullName: j.Executor,
		Enqueued: j.Enqueued,
		Attempt:  j.Attempt,
	}
	res = e.Execute(ctx, ec, j.Data)
	if !res.Success && res.Error == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Error = ctxErr.Error()
		} else {
			res.Error = "executor reported failure without a message"
		}
	}
	return res
}

// RunPending runs every pending job with bounded concurrency and returns
// the finished jobs in enqueue order. It stops starting new jobs once ctx
// is done.
func (r *Runner) RunPending(ctx context.Context) ([]*Job, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var pending []*Job
	for _, j := range all {
		if j.Status == StatusPending {
			pending = append(pending, j)
		}
	}

	results := make([]*Job, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, j := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			done, err := r.Run(gctx, j.ID)
			if err != nil {
				return fmt.Errorf("running job %s: %w", j.ID, err)
			}
			results[i] = done
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return compact(results), err
	}
	return compact(results), ctx.Err()
}

func compact(jobs []*Job) []*Job {
	out := jobs[:0]
	for _, j := range jobs {
		if j != nil {
			out = append(out, j)
		}
	}
	return out
}
