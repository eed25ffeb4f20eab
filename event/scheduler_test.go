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

package event

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestScheduleOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	s.Schedule(3*time.Microsecond, func() { order = append(order, 3) })
	s.Schedule(time.Microsecond, func() { order = append(order, 1) })
	s.Schedule(2*time.Microsecond, func() { order = append(order, 2) })

	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 3*time.Microsecond, s.Now())
	assert.Equal(t, uint64(3), s.ExecutedCount())
}

func TestSameTimeFifo(t *testing.T) {
	s := NewScheduler()
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		s.Schedule(time.Millisecond, func() { order = append(order, i) })
	}
	s.Schedule(0, func() {
		s.ScheduleNow(func() { order = append(order, -2) })
		order = append(order, -1)
	})
	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, -1, order[0])
	assert.Equal(t, -2, order[1])
	for i := 0; i < 20; i++ {
		assert.Equal(t, i, order[i+2])
	}
}

func TestCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	id := s.Schedule(time.Second, func() { fired = true })
	assert.True(t, s.IsPending(id))
	assert.Equal(t, time.Second, s.DelayLeft(id))

	s.Schedule(500*time.Millisecond, func() { s.Cancel(id) })
	assert.Nil(t, s.Run(context.Background()))
	assert.False(t, fired)
	assert.True(t, s.IsExpired(id))
	assert.Equal(t, time.Duration(0), s.DelayLeft(id))

	// cancelling twice or cancelling NoId is harmless
	s.Cancel(id)
	s.Cancel(NoId)
}

func TestRunUntil(t *testing.T) {
	s := NewScheduler()
	cnt := 0
	s.Schedule(time.Second, func() { cnt++ })
	s.Schedule(2*time.Second, func() { cnt++ })

	assert.Nil(t, s.RunUntil(context.Background(), time.Second))
	assert.Equal(t, 1, cnt)
	assert.Equal(t, time.Second, s.Now())

	assert.Nil(t, s.RunUntil(context.Background(), 1500*time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, s.Now())
	assert.Equal(t, 1, s.PendingCount())
	assert.Equal(t, 2*time.Second, s.NextTimestamp())

	assert.NotNil(t, s.RunUntil(context.Background(), time.Second))
}

func TestFailAndStop(t *testing.T) {
	s := NewScheduler()
	errBad := errors.New("bad config")
	after := false
	s.Schedule(time.Millisecond, func() { s.Fail(errBad) })
	s.Schedule(2*time.Millisecond, func() { after = true })

	err := s.Run(context.Background())
	assert.Equal(t, errBad, err)
	assert.False(t, after)
	assert.Equal(t, time.Millisecond, s.Now())

	s2 := NewScheduler()
	s2.Schedule(time.Millisecond, s2.Stop)
	s2.Schedule(2*time.Millisecond, func() {})
	assert.Nil(t, s2.Run(context.Background()))
	assert.Equal(t, 1, s2.PendingCount())
}

func TestContextCancel(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	var reschedule func()
	reschedule = func() {
		if s.Now() >= 10*time.Millisecond {
			cancel()
		}
		s.Schedule(time.Millisecond, reschedule)
	}
	s.ScheduleNow(reschedule)
	assert.Equal(t, context.Canceled, s.Run(ctx))
}
