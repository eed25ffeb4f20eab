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

package access

import (
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/event"
	. "github.com/openthread/ot-lbtsim/types"
)

// DutyCycle grants the channel for the on-part of a fixed period, regardless of what is sensed.
type DutyCycle struct {
	*Base
	period      time.Duration
	onDuration  time.Duration
	startOffset time.Duration
	grant       event.Id
}

func NewDutyCycle(id NodeId, sched *event.Scheduler) *DutyCycle {
	return &DutyCycle{
		Base:        newBase(id, KindDutyCycle, sched),
		period:      DefaultDutyCyclePeriod,
		onDuration:  DefaultDutyCycleOnDuration,
		startOffset: DefaultDutyCycleStartOffset,
	}
}

// SetCycle sets the period, the on-duration at the start of each period and the offset of the first period.
func (m *DutyCycle) SetCycle(period, onDuration, startOffset time.Duration) error {
	if period <= 0 || onDuration <= 0 || onDuration > period || startOffset < 0 {
		return errors.Errorf("invalid duty cycle: period %v, on %v, offset %v", period, onDuration, startOffset)
	}
	m.period, m.onDuration, m.startOffset = period, onDuration, startOffset
	return nil
}

func (m *DutyCycle) Period() time.Duration {
	return m.period
}

func (m *DutyCycle) OnDuration() time.Duration {
	return m.onDuration
}

// NextOnStart returns the start of the first on-period at or after now.
func (m *DutyCycle) NextOnStart() time.Duration {
	now := m.sched.Now()
	if now <= m.startOffset {
		return m.startOffset
	}
	n := (now - m.startOffset + m.period - 1) / m.period
	return m.startOffset + n*m.period
}

func (m *DutyCycle) RequestAccess() error {
	if err := m.enqueue(); err != nil {
		return err
	}
	if m.sched.IsPending(m.grant) {
		return nil
	}
	m.grant = m.sched.ScheduleAt(m.NextOnStart(), func() {
		m.grant = event.NoId
		m.grantAll(m.onDuration)
	})
	return nil
}

var _ Manager = (*DutyCycle)(nil)
