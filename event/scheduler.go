// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package event is a single-threaded discrete-event scheduler working in virtual time.
package event

import (
	"container/heap"
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

// Id identifies a scheduled event. The zero Id never refers to an event.
type Id uint64

const NoId Id = 0

// Clock gives the current virtual time.
type Clock interface {
	Now() time.Duration
}

// Scheduler executes events in non-decreasing virtual-time order. Events scheduled for the same
// time execute in the order they were scheduled. A cancelled event never executes.
type Scheduler struct {
	now      time.Duration
	q        eventQueue
	pending  map[Id]*scheduledEvent
	nextId   Id
	seq      uint64
	stopped  bool
	err      error
	executed uint64
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		q:       eventQueue{},
		pending: map[Id]*scheduledEvent{},
		nextId:  1,
	}
	heap.Init(&s.q)
	return s
}

// Now returns the current virtual time, counted from the start of the simulation.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Schedule runs fn after the given delay and returns the handle of the new event.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) Id {
	if delay < 0 {
		logger.Panicf("negative event delay %v", delay)
	}
	return s.ScheduleAt(s.now+delay, fn)
}

// ScheduleNow runs fn at the current time, after all events already scheduled for now.
func (s *Scheduler) ScheduleNow(fn func()) Id {
	return s.ScheduleAt(s.now, fn)
}

// ScheduleAt runs fn at absolute virtual time t, which must not be in the past.
func (s *Scheduler) ScheduleAt(t time.Duration, fn func()) Id {
	logger.AssertTrue(t >= s.now, "event scheduled in the past")
	logger.AssertNotNil(fn)

	e := &scheduledEvent{
		Id:        s.nextId,
		Timestamp: t,
		seq:       s.seq,
		fn:        fn,
	}
	s.nextId++
	s.seq++
	heap.Push(&s.q, e)
	s.pending[e.Id] = e
	return e.Id
}

// Cancel removes a pending event. Cancelling NoId, an executed or an already cancelled event does nothing.
func (s *Scheduler) Cancel(id Id) {
	e, ok := s.pending[id]
	if !ok {
		return
	}
	heap.Remove(&s.q, e.index)
	delete(s.pending, id)
}

// IsPending returns true if the event is still waiting to execute.
func (s *Scheduler) IsPending(id Id) bool {
	_, ok := s.pending[id]
	return ok
}

// IsExpired returns true if the event executed, was cancelled, or never existed.
func (s *Scheduler) IsExpired(id Id) bool {
	return !s.IsPending(id)
}

// DelayLeft returns the time until a pending event executes, or 0 if it is not pending.
func (s *Scheduler) DelayLeft(id Id) time.Duration {
	if e, ok := s.pending[id]; ok {
		return e.Timestamp - s.now
	}
	return 0
}

// NextTimestamp returns the time of the next event, or Ever if none is pending.
func (s *Scheduler) NextTimestamp() time.Duration {
	if len(s.q) == 0 {
		return Ever
	}
	return s.q[0].Timestamp
}

// PendingCount returns the number of scheduled events.
func (s *Scheduler) PendingCount() int {
	return len(s.q)
}

// ExecutedCount returns the number of events that executed so far.
func (s *Scheduler) ExecutedCount() uint64 {
	return s.executed
}

// Stop makes a running Run/RunUntil return after the current event.
func (s *Scheduler) Stop() {
	s.stopped = true
}

// Fail aborts the run with err after the current event. Only the first error is kept.
func (s *Scheduler) Fail(err error) {
	if err == nil {
		return
	}
	if s.err == nil {
		s.err = err
	}
	s.stopped = true
}

// Err returns the error passed to Fail, if any.
func (s *Scheduler) Err() error {
	return s.err
}

// Run executes events until the queue drains, Stop or Fail is called, or ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	return s.RunUntil(ctx, Ever)
}

// RunUntil executes all events with a timestamp up to and including t. When the run was not stopped,
// virtual time is advanced to t afterwards (unless t is Ever).
func (s *Scheduler) RunUntil(ctx context.Context, t time.Duration) error {
	if t < s.now {
		return errors.Errorf("cannot run until %v: current time is %v", t, s.now)
	}
	s.stopped = false
	for !s.stopped {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if len(s.q) == 0 || s.q[0].Timestamp > t {
			if t != Ever {
				s.now = t
			}
			break
		}

		e := heap.Pop(&s.q).(*scheduledEvent)
		delete(s.pending, e.Id)
		s.now = e.Timestamp
		s.executed++
		e.fn()
	}
	return s.err
}
