package poller

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/slok/jobwatch/internal/model"
)

// inFlightFlag drops ticks while the previous listing hasn't resolved.
type inFlightFlag struct {
	v atomic.Bool
}

func (f *inFlightFlag) acquire() bool { return f.v.CompareAndSwap(false, true) }
func (f *inFlightFlag) release()      { f.v.Store(false) }

// run fires an immediate tick and then one tick on every interval until the session
// context is cancelled. Ticks are fixed on the wall clock, they don't wait for slow listings.
func (o *Orchestrator) run(s *session) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	o.fire(s)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			o.fire(s)
		}
	}
}

func (o *Orchestrator) fire(s *session) {
	if !s.inFlight.acquire() {
		s.logger.Debugf("Previous listing still in flight, dropping tick")
		return
	}

	go func() {
		defer s.inFlight.release()
		o.tick(s)
	}()
}

// tick lists the jobs, reconciles the store and moves the session state machine.
func (o *Orchestrator) tick(s *session) {
	seq := o.startListing()
	jobs, err := o.lister.ListJobs(s.ctx, 1, o.pageSize)

	o.mu.Lock()
	// The session could have been stopped while the listing was in flight.
	if o.session != s || s.ctx.Err() != nil {
		o.mu.Unlock()
		s.logger.Debugf("Discarding listing of a finished session")
		return
	}

	// A newer listing (e.g. a refresh) was applied while this one was in flight.
	if err == nil && !o.applyListingLocked(seq) {
		o.mu.Unlock()
		s.logger.Debugf("Discarding out of order listing")
		return
	}

	if s.state == model.SessionStateStarting {
		s.state = model.SessionStateActive
	}

	var calls []func()
	if err != nil {
		s.logger.Warningf("Could not list jobs: %s", err)
		err = fmt.Errorf("could not list jobs: %w", err)
		for _, l := range s.listenerList() {
			if l.OnError != nil {
				calls = append(calls, func() { l.OnError(err) })
			}
		}
		calls = append(calls, o.retryLocked(s)...)
		o.mu.Unlock()

		runAll(calls)
		return
	}

	prev, wasTracked := o.store.Task(s.taskID)
	changes := o.store.UpsertFromListing(jobs)
	calls = append(calls, o.handleChangesLocked(changes)...)

	listed := false
	for _, j := range jobs {
		if j.ID == s.taskID {
			listed = true
			break
		}
	}
	task, tracked := o.store.Task(s.taskID)

	switch {
	// Absence is not evidence of failure.
	case !listed:
		o.store.RemoveTask(s.taskID)
		o.endLocked(s, model.SessionStateStopped)
		s.logger.Infof("Task vanished from the job listing, polling stopped")

	case tracked && task.Status == model.TaskStatusCompleted:
		calls = append(calls, statusChangeCalls(s, prev, wasTracked, task)...)
		o.endLocked(s, model.SessionStateSucceeded)
		s.logger.Infof("Task completed")
		for _, l := range s.listenerList() {
			if l.OnSuccess != nil {
				calls = append(calls, func() { l.OnSuccess(task) })
			}
		}

	case tracked && task.Status == model.TaskStatusFailed:
		calls = append(calls, statusChangeCalls(s, prev, wasTracked, task)...)
		o.endLocked(s, model.SessionStateFailed)
		s.logger.Warningf("Task failed")
		err := fmt.Errorf("task %s: %w", task.ID, model.ErrJobFailed)
		for _, l := range s.listenerList() {
			if l.OnError != nil {
				calls = append(calls, func() { l.OnError(err) })
			}
		}

	default:
		if tracked {
			calls = append(calls, statusChangeCalls(s, prev, wasTracked, task)...)
		}
		calls = append(calls, o.retryLocked(s)...)
	}
	o.mu.Unlock()

	runAll(calls)
}

// retryLocked counts a non terminal tick, when the retries reach the maximum the session
// times out and the task is kept with its last known status.
func (o *Orchestrator) retryLocked(s *session) []func() {
	s.retries++
	if s.retries < s.maxRetries {
		return nil
	}

	o.parked[s.taskID] = struct{}{}
	o.endLocked(s, model.SessionStateTimedOut)
	s.logger.Warningf("Polling timed out after %d retries", s.retries)

	var calls []func()
	for _, l := range s.listenerList() {
		if l.OnTimeout != nil {
			calls = append(calls, func() { l.OnTimeout(s.taskID) })
		}
	}

	return calls
}

func statusChangeCalls(s *session, prev model.Task, wasTracked bool, task model.Task) []func() {
	if wasTracked && prev.Status == task.Status && prev.Progress == task.Progress {
		return nil
	}

	var calls []func()
	for _, l := range s.listenerList() {
		if l.OnStatusChange != nil {
			calls = append(calls, func() { l.OnStatusChange(task) })
		}
	}

	return calls
}
