// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"time"
)

// Job represents a scheduled task that never overlaps with itself (singleton mode). The
// interval is evaluated again before every tick, so a job can speed up or slow down while it
// runs.
type Job struct {
	interval func() time.Duration
	task     func(context.Context)
}

// New creates a new Job with a fixed interval and task.
func New(interval time.Duration, task func(context.Context)) *Job {
	return NewAdaptive(func() time.Duration { return interval }, task)
}

// NewAdaptive creates a new Job whose interval is returned by interval.
func NewAdaptive(interval func() time.Duration, task func(context.Context)) *Job {
	return &Job{
		interval: interval,
		task:     task,
	}
}

// Start begins executing the job on the given context. It returns when the context is cancelled
// or the interval is no longer positive. If a tick fires while a previous run is still
// executing, that tick is skipped.
func (j *Job) Start(ctx context.Context) {
	if j.task == nil || j.interval == nil {
		return
	}

	// sem is a 1-slot semaphore that guards "is a run in progress?"
	sem := make(chan struct{}, 1)
	for {
		wait := j.interval()
		if wait <= 0 {
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case sem <- struct{}{}:
			go func() {
				defer func() { <-sem }()
				runCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				j.task(runCtx)
			}()
		default:
		}
	}
}
