package task

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/term"
)

// Outcome names reported by Result.Outcome.
const (
	OutcomeDone  = "done"
	OutcomeError = "error"
)

// Result is the outcome of a Run.
type Result struct {
	OK bool
	// FailedTask is the name of the step that stopped the run.
	FailedTask string
	// Cause is why FailedTask failed: a *DispatchError, an *ExitError,
	// ErrUnknownOperation or a context error.
	Cause error
}

// Outcome returns OutcomeDone or OutcomeError.
func (r Result) Outcome() string {
	if r.OK {
		return OutcomeDone
	}
	return OutcomeError
}

// Code returns the close code of the run: 0 on success, 1 otherwise.
func (r Result) Code() int {
	if r.OK {
		return 0
	}
	return 1
}

// Planner chooses the steps of a run once the run has started.
type Planner func(ctx context.Context) (List, error)

// Engine executes lists of operations from a Table.
type Engine struct {
	table *Table
}

// NewEngine creates an Engine that dispatches through table.
func NewEngine(table *Table) *Engine {
	return &Engine{table: table}
}

// Table returns the engine's operation table.
func (e *Engine) Table() *Table {
	return e.table
}

// Run starts executing list in order on a new goroutine.
func (e *Engine) Run(ctx context.Context, list List) *Run {
	return e.start(ctx, func(ctx context.Context) Result {
		return e.execute(ctx, list)
	})
}

// Plan starts a run whose list is produced by planner on the run's
// goroutine. A planner error fails the run with name as the failed task.
func (e *Engine) Plan(ctx context.Context, name string, planner Planner) *Run {
	return e.start(ctx, func(ctx context.Context) Result {
		list, err := planner(ctx)
		if err != nil {
			return Result{FailedTask: name, Cause: err}
		}
		return e.execute(ctx, list)
	})
}

func (e *Engine) start(parent context.Context, body func(context.Context) Result) *Run {
	ctx, cancel := context.WithCancel(parent)
	r := &Run{
		id:     uuid.NewString(),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		res := body(ctx)
		report(r.id, res)

		r.mu.Lock()
		r.result = res
		r.mu.Unlock()
		close(r.done)
	}()

	return r
}

func (e *Engine) execute(ctx context.Context, list List) Result {
	for _, d := range list {
		if err := ctx.Err(); err != nil {
			return Result{FailedTask: d.Name, Cause: err}
		}

		clog.Debug("task: dispatching %s", d)
		aw, err := e.table.Dispatch(ctx, d.Name, d.Args)
		if err != nil {
			return Result{FailedTask: d.Name, Cause: err}
		}
		if aw == nil {
			continue
		}

		select {
		case <-aw.Done():
		case <-ctx.Done():
			if c, ok := aw.(canceler); ok {
				_ = c.Cancel()
				<-aw.Done()
			}
			return Result{FailedTask: d.Name, Cause: ctx.Err()}
		}

		if Cancelled(aw) {
			return Result{FailedTask: d.Name, Cause: ErrCancelled}
		}
		if code := aw.ExitCode(); code != 0 {
			return Result{FailedTask: d.Name, Cause: &ExitError{Task: d.Name, Code: code}}
		}
	}
	return Result{OK: true}
}

func report(id string, res Result) {
	log := clog.With("run", id)
	if res.OK {
		term.Success("All tasks completed successfully")
		log.Info("all tasks completed successfully")
		term.Notice("Tasks completed without errors")
		return
	}

	term.Warn("The task %q was cancelled or encountered an error!", res.FailedTask)
	log.Info("task %q failed: %v", res.FailedTask, res.Cause)
	term.Notice("Tasks completed with errors")
}

// Run is one execution of a List. It is an Awaitable, so a run can itself
// be returned by a Handler.
type Run struct {
	id     string
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	result    Result
	cancelled bool
}

// ID returns the run's unique identifier.
func (r *Run) ID() string {
	return r.id
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome. It is the zero Result until Done is closed.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// ExitCode returns the run's close code once Done is closed.
func (r *Run) ExitCode() int {
	return r.Result().Code()
}

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	return r.Result()
}

// Cancel stops the run. The current step is cancelled when it supports
// cancellation, and no further steps start.
func (r *Run) Cancel() error {
	select {
	case <-r.done:
		return nil
	default:
	}
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.cancel()
	return nil
}

// Cancelled reports whether Cancel was called before the run finished.
func (r *Run) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}
