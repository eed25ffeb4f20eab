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
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
)

// BasicLbt grants as soon as the PHY is idle. While the PHY is busy it re-checks when the busy period ends.
type BasicLbt struct {
	*Base
	phy   *phy.Phy
	check event.Id
}

func NewBasicLbt(id NodeId, sched *event.Scheduler) *BasicLbt {
	return &BasicLbt{Base: newBase(id, KindBasicLbt, sched)}
}

// SetWifiPhy attaches the PHY that senses the channel and sets its CCA threshold to the ED threshold.
func (m *BasicLbt) SetWifiPhy(p *phy.Phy) {
	m.phy = p
	p.SetCcaMode1Threshold(m.edThreshold)
}

func (m *BasicLbt) SetEnergyDetectionThreshold(dbm DbValue) error {
	if err := m.Base.SetEnergyDetectionThreshold(dbm); err != nil {
		return err
	}
	if m.phy != nil {
		m.phy.SetCcaMode1Threshold(dbm)
	}
	return nil
}

func (m *BasicLbt) RequestAccess() error {
	if m.phy == nil {
		return ErrNoPhy
	}
	if err := m.enqueue(); err != nil {
		return err
	}
	if !m.sched.IsPending(m.check) {
		m.evaluate()
	}
	return nil
}

func (m *BasicLbt) evaluate() {
	m.check = event.NoId
	if m.phy.State() == PhyIdle {
		m.grantAll(m.grantDuration)
		return
	}
	delay := m.phy.DelayUntilIdle()
	if delay <= 0 {
		// asleep: no known end of the busy period
		delay = slotTime
	}
	m.log.Tracef("basic-lbt: channel %s, re-check in %v", m.phy.State(), delay)
	m.check = m.sched.Schedule(delay, m.evaluate)
}

var _ Manager = (*BasicLbt)(nil)
