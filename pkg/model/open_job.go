package model

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
)

// jobState is the lifecycle of a single load attempt.
type jobState int32

const (
	jobScheduled jobState = iota
	jobRunning
	jobCompleted
	jobFailed
	jobCancelled
)

func (s jobState) String() string {
	switch s {
	case jobScheduled:
		return "SCHEDULED"
	case jobRunning:
		return "RUNNING"
	case jobCompleted:
		return "COMPLETED"
	case jobFailed:
		return "FAILED"
	case jobCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("jobState(%d)", int32(s))
	}
}

// openJob loads the info of one element.  Concurrent jobs for the same
// element serialize on the element location; the first to get the lock
// creates the info and the others find it in the cache.
type openJob struct {
	model   *Model
	element Element
	opened  atomic.Bool
	state   atomic.Int32
}

func newOpenJob(m *Model, e Element) *openJob {
	return &openJob{model: m, element: e}
}

func (j *openJob) State() jobState {
	return jobState(j.state.Load())
}

func (j *openJob) transition(from, to jobState) {
	if !j.state.CompareAndSwap(int32(from), int32(to)) {
		log.Panicf("model: open job for %s: invalid transition %s -> %s (state is %s)", j.element, from, to, j.State())
	}
}

// open runs the job.  It may only be called once.
func (j *openJob) open(ctx context.Context) (Info, error) {
	if !j.opened.CompareAndSwap(false, true) {
		log.Panicf("model: open job for %s opened twice", j.element)
	}

	// parent info is always loaded before the child lock is taken.
	var parentInfo Info
	if parent := j.element.Parent(); parent != nil && parent.Kind() != ModelKind {
		info, err := j.model.getInfo(ctx, parent)
		if err != nil {
			return nil, j.fail(ctx, err)
		}
		parentInfo = info
	}

	unlock, err := j.model.locks.Lock(ctx, j.element.Location())
	if err != nil {
		j.transition(jobScheduled, jobCancelled)
		return nil, &CanceledError{Element: j.element, Err: err}
	}
	defer unlock()

	j.transition(jobScheduled, jobRunning)

	if info, ok := j.model.cache.GetIfPresent(j.element); ok {
		j.transition(jobRunning, jobCompleted)
		return info, nil
	}

	j.model.logger.Debug().Str("element", j.element.String()).Msg("loading info")

	info, err := j.element.createInfo(ctx, parentInfo)
	if err != nil {
		return nil, j.fail(ctx, err)
	}

	info = j.model.cache.PutOrGetCached(j.element, info)
	j.transition(jobRunning, jobCompleted)
	return info, nil
}

// fail records the terminal state for err and returns the error to report.
func (j *openJob) fail(ctx context.Context, err error) error {
	from := j.State()

	var canceled *CanceledError
	if errors.As(err, &canceled) {
		j.transition(from, jobCancelled)
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		j.transition(from, jobCancelled)
		return &CanceledError{Element: j.element, Err: err}
	}

	j.transition(from, jobFailed)

	var loadErr *LoadError
	if from == jobScheduled && errors.As(err, &loadErr) {
		// a parent failed to load; report it as is.
		return err
	}
	return &LoadError{Element: j.element, Err: err}
}
