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

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/phy"
	"github.com/openthread/ot-lbtsim/prng"
	. "github.com/openthread/ot-lbtsim/types"
)

const (
	sifs      = 16 * time.Microsecond
	slotTime  = 9 * time.Microsecond
	deferSlot = 3
	// DeferDuration is the idle time sensed before the backoff count down starts.
	DeferDuration = sifs + deferSlot*slotTime

	DefaultCwMin = 15
	DefaultCwMax = 1023
)

type LbtState byte

const (
	LbtIdle LbtState = iota
	LbtBusy
)

func (s LbtState) String() string {
	if s == LbtIdle {
		return "IDLE"
	}
	return "BUSY"
}

// LbtManager is a listen-before-talk access manager: the channel must be sensed idle for a defer period and
// a random number of backoff slots before a grant. The backoff counter freezes while the channel is busy.
// The contention window doubles on each reported failure and resets on success.
type LbtManager struct {
	*Base
	phy    *phy.Phy
	random *prng.Uniform

	cwMin   int
	cwMax   int
	cw      int
	backoff int

	active     bool
	timer      event.Id
	phaseStart time.Duration
	busyUntil  time.Duration
	lastBusy   time.Duration
}

func NewLbtManager(id NodeId, sched *event.Scheduler) *LbtManager {
	return &LbtManager{
		Base:     newBase(id, KindLbt, sched),
		random:   prng.NewUniform(prng.NewAccessRandomSeed()),
		cwMin:    DefaultCwMin,
		cwMax:    DefaultCwMax,
		cw:       DefaultCwMin,
		lastBusy: -1,
	}
}

// SetWifiPhy attaches the PHY that senses the channel and sets the PHY CCA threshold to the ED threshold.
// Call it again after changing the ED threshold.
func (m *LbtManager) SetWifiPhy(p *phy.Phy) {
	if m.phy != p {
		if m.phy != nil {
			m.phy.UnregisterListener(m)
		}
		p.RegisterListener(m)
		m.phy = p
	}
	p.SetCcaMode1Threshold(m.edThreshold)
}

// SetContentionWindow sets the contention window bounds, in slots.
func (m *LbtManager) SetContentionWindow(cwMin, cwMax int) {
	if cwMin < 0 {
		cwMin = 0
	}
	if cwMax < cwMin {
		cwMax = cwMin
	}
	m.cwMin, m.cwMax, m.cw = cwMin, cwMax, cwMin
}

func (m *LbtManager) ContentionWindow() int {
	return m.cw
}

// BackoffSlots returns the backoff slots left in the running procedure.
func (m *LbtManager) BackoffSlots() int {
	return m.backoff
}

// LbtState is BUSY whenever the PHY is not idle.
func (m *LbtManager) LbtState() LbtState {
	if m.phy == nil || m.phy.State() == PhyIdle {
		return LbtIdle
	}
	return LbtBusy
}

// NotifyTxSuccess resets the contention window after a successful transmission in a grant.
func (m *LbtManager) NotifyTxSuccess() {
	m.cw = m.cwMin
}

// NotifyTxFailure doubles the contention window, up to its maximum.
func (m *LbtManager) NotifyTxFailure() {
	m.cw = 2*(m.cw+1) - 1
	if m.cw > m.cwMax {
		m.cw = m.cwMax
	}
}

func (m *LbtManager) RequestAccess() error {
	if m.phy == nil {
		return ErrNoPhy
	}
	if err := m.enqueue(); err != nil {
		return err
	}
	if !m.active {
		m.active = true
		m.backoff = m.random.Intn(m.cw + 1)
		m.log.Debugf("lbt: backoff %d slots (cw %d)", m.backoff, m.cw)
		m.resume()
	}
	return nil
}

// resume starts a defer period if the channel is idle, or waits for the end of the busy period.
func (m *LbtManager) resume() {
	m.sched.Cancel(m.timer)
	m.timer = event.NoId
	if m.phy.State() != PhyIdle {
		if delay := m.phy.DelayUntilIdle(); delay > 0 {
			m.timer = m.sched.Schedule(delay, m.resume)
		}
		// asleep: NotifyWakeup resumes
		return
	}
	m.phaseStart = m.sched.Now()
	m.timer = m.sched.Schedule(DeferDuration, m.endDefer)
}

func (m *LbtManager) busySince(t time.Duration) bool {
	return m.lastBusy >= t || m.busyUntil > t
}

func (m *LbtManager) endDefer() {
	m.timer = event.NoId
	if m.busySince(m.phaseStart) || m.phy.State() != PhyIdle {
		m.resume()
		return
	}
	m.nextSlot()
}

func (m *LbtManager) nextSlot() {
	if m.backoff == 0 {
		m.active = false
		m.grantAll(m.grantDuration)
		return
	}
	m.phaseStart = m.sched.Now()
	m.timer = m.sched.Schedule(slotTime, m.endSlot)
}

func (m *LbtManager) endSlot() {
	m.timer = event.NoId
	if m.busySince(m.phaseStart) || m.phy.State() != PhyIdle {
		// frozen: the remaining slots count down after the next defer period
		m.resume()
		return
	}
	m.backoff--
	m.nextSlot()
}

// onBusy records a busy period and suspends a running count down until it ends.
func (m *LbtManager) onBusy(duration time.Duration) {
	now := m.sched.Now()
	m.lastBusy = now
	if now+duration > m.busyUntil {
		m.busyUntil = now + duration
	}
	if !m.active {
		return
	}
	m.sched.Cancel(m.timer)
	m.timer = m.sched.Schedule(m.busyUntil-now, m.resume)
}

// onIdleHint re-evaluates a waiting procedure once a PHY state change has been applied.
func (m *LbtManager) onIdleHint() {
	if !m.active {
		return
	}
	m.sched.Cancel(m.timer)
	m.timer = m.sched.ScheduleNow(m.resume)
}

func (m *LbtManager) NotifyRxStart(duration time.Duration) {
	m.onBusy(duration)
}

func (m *LbtManager) NotifyRxEndOk() {
	m.busyUntil = m.sched.Now()
	m.onIdleHint()
}

func (m *LbtManager) NotifyRxEndError() {
	m.busyUntil = m.sched.Now()
	m.onIdleHint()
}

func (m *LbtManager) NotifyTxStart(duration time.Duration, txPowerDbm DbValue) {
	m.onBusy(duration)
}

func (m *LbtManager) NotifyMaybeCcaBusyStart(duration time.Duration) {
	m.onBusy(duration)
}

func (m *LbtManager) NotifySwitchingStart(duration time.Duration) {
	m.onBusy(duration)
}

func (m *LbtManager) NotifySleep() {
	m.lastBusy = m.sched.Now()
	if m.active {
		m.sched.Cancel(m.timer)
		m.timer = event.NoId
	}
}

func (m *LbtManager) NotifyWakeup() {
	m.onIdleHint()
}

var (
	_ Manager      = (*LbtManager)(nil)
	_ phy.Listener = (*LbtManager)(nil)
)
