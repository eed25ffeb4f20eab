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

package phy

import (
	"time"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

// Listener is notified of PHY state changes. Durations are how long the new state is expected to last.
type Listener interface {
	NotifyRxStart(duration time.Duration)
	NotifyRxEndOk()
	NotifyRxEndError()
	NotifyTxStart(duration time.Duration, txPowerDbm DbValue)
	NotifyMaybeCcaBusyStart(duration time.Duration)
	NotifySwitchingStart(duration time.Duration)
	NotifySleep()
	NotifyWakeup()
}

// StateLogger receives every closed interval spent in a state.
type StateLogger func(start time.Duration, duration time.Duration, state PhyState)

// StateHelper tracks the PHY state. TX, SWITCHING and CCA_BUSY end by themselves when their end time passes;
// RX and SLEEP end only by explicit calls.
type StateHelper struct {
	clock     event.Clock
	listeners []Listener
	logState  StateLogger

	sleeping       bool
	rxing          bool
	endTx          time.Duration
	endRx          time.Duration
	endCcaBusy     time.Duration
	endSwitching   time.Duration
	startTx        time.Duration
	startRx        time.Duration
	startCcaBusy   time.Duration
	startSwitching time.Duration
	startSleep     time.Duration

	loggedState PhyState
	loggedSince time.Duration
}

func NewStateHelper(clock event.Clock) *StateHelper {
	return &StateHelper{
		clock:       clock,
		loggedState: PhyIdle,
		loggedSince: clock.Now(),
	}
}

func (sh *StateHelper) RegisterListener(l Listener) {
	sh.listeners = append(sh.listeners, l)
}

func (sh *StateHelper) UnregisterListener(l Listener) {
	for i, x := range sh.listeners {
		if x == l {
			sh.listeners = append(sh.listeners[:i], sh.listeners[i+1:]...)
			return
		}
	}
}

func (sh *StateHelper) SetStateLogger(l StateLogger) {
	sh.logState = l
}

func (sh *StateHelper) State() PhyState {
	return sh.stateAt(sh.clock.Now())
}

func (sh *StateHelper) stateAt(t time.Duration) PhyState {
	switch {
	case sh.sleeping:
		return PhySleep
	case sh.endTx > t:
		return PhyTx
	case sh.rxing:
		return PhyRx
	case sh.endSwitching > t:
		return PhySwitching
	case sh.endCcaBusy > t:
		return PhyCcaBusy
	default:
		return PhyIdle
	}
}

func (sh *StateHelper) IsIdle() bool {
	return sh.State() == PhyIdle
}

// IsMediumBusy is true in every state but IDLE.
func (sh *StateHelper) IsMediumBusy() bool {
	return sh.State() != PhyIdle
}

// DelayUntilIdle returns how long until the current state ends. It is 0 in IDLE and SLEEP.
func (sh *StateHelper) DelayUntilIdle() time.Duration {
	now := sh.clock.Now()
	switch sh.State() {
	case PhyRx:
		return sh.endRx - now
	case PhyTx:
		return sh.endTx - now
	case PhyCcaBusy:
		return sh.endCcaBusy - now
	case PhySwitching:
		return sh.endSwitching - now
	default:
		return 0
	}
}

// StateDuration returns how long the PHY has been in its current state.
func (sh *StateHelper) StateDuration() time.Duration {
	now := sh.clock.Now()
	sh.settle(now)
	return now - sh.loggedSince
}

func (sh *StateHelper) LastRxStartTime() time.Duration {
	return sh.startRx
}

func (sh *StateHelper) CcaBusyEnd() time.Duration {
	return sh.endCcaBusy
}

// naturalEnd returns when state st ends without an explicit transition.
func (sh *StateHelper) naturalEnd(st PhyState) time.Duration {
	switch st {
	case PhyTx:
		return sh.endTx
	case PhySwitching:
		return sh.endSwitching
	case PhyCcaBusy:
		return sh.endCcaBusy
	default:
		return Ever
	}
}

// settle logs the states that ended by themselves up to now.
func (sh *StateHelper) settle(now time.Duration) {
	for {
		end := sh.naturalEnd(sh.loggedState)
		if end > now {
			return
		}
		if end < sh.loggedSince {
			end = sh.loggedSince
		}
		sh.emit(sh.loggedState, sh.loggedSince, end)
		sh.loggedState = sh.stateAt(end)
		sh.loggedSince = end
	}
}

func (sh *StateHelper) emit(st PhyState, from, to time.Duration) {
	if sh.logState != nil && to > from {
		sh.logState(from, to-from, st)
	}
}

// change applies a state mutation and logs the state that it closed.
func (sh *StateHelper) change(mutate func()) {
	now := sh.clock.Now()
	sh.settle(now)
	mutate()
	after := sh.State()
	if after != sh.loggedState {
		sh.emit(sh.loggedState, sh.loggedSince, now)
		sh.loggedState = after
		sh.loggedSince = now
	}
}

// FlushStateLog logs the time spent in the current state so far, e.g. at the end of a simulation.
func (sh *StateHelper) FlushStateLog() {
	now := sh.clock.Now()
	sh.settle(now)
	sh.emit(sh.loggedState, sh.loggedSince, now)
	sh.loggedSince = now
}

func (sh *StateHelper) SwitchToTx(duration time.Duration, txPowerDbm DbValue) {
	for _, l := range sh.listeners {
		l.NotifyTxStart(duration, txPowerDbm)
	}
	sh.change(func() {
		now := sh.clock.Now()
		if sh.rxing {
			sh.rxing = false
			sh.endRx = now
		}
		sh.startTx = now
		sh.endTx = now + duration
	})
}

func (sh *StateHelper) SwitchToRx(duration time.Duration) {
	st := sh.State()
	logger.AssertTrue(st == PhyIdle || st == PhyCcaBusy, "SwitchToRx in state %s", st)
	for _, l := range sh.listeners {
		l.NotifyRxStart(duration)
	}
	sh.change(func() {
		now := sh.clock.Now()
		sh.rxing = true
		sh.startRx = now
		sh.endRx = now + duration
	})
}

func (sh *StateHelper) SwitchToChannelSwitching(duration time.Duration) {
	for _, l := range sh.listeners {
		l.NotifySwitchingStart(duration)
	}
	sh.change(func() {
		now := sh.clock.Now()
		if sh.rxing {
			sh.rxing = false
			sh.endRx = now
		}
		if sh.endCcaBusy > now {
			sh.endCcaBusy = now
		}
		sh.startSwitching = now
		sh.endSwitching = now + duration
	})
}

func (sh *StateHelper) SwitchFromRxEndOk() {
	logger.AssertTrue(sh.rxing, "SwitchFromRxEndOk while not receiving")
	for _, l := range sh.listeners {
		l.NotifyRxEndOk()
	}
	sh.endReception()
}

func (sh *StateHelper) SwitchFromRxEndError() {
	logger.AssertTrue(sh.rxing, "SwitchFromRxEndError while not receiving")
	for _, l := range sh.listeners {
		l.NotifyRxEndError()
	}
	sh.endReception()
}

func (sh *StateHelper) endReception() {
	sh.change(func() {
		sh.rxing = false
		sh.endRx = sh.clock.Now()
	})
}

// SwitchMaybeToCcaBusy extends the CCA busy period to at least duration from now. The state only shows
// CCA_BUSY if nothing of higher precedence is going on.
func (sh *StateHelper) SwitchMaybeToCcaBusy(duration time.Duration) {
	for _, l := range sh.listeners {
		l.NotifyMaybeCcaBusyStart(duration)
	}
	sh.change(func() {
		now := sh.clock.Now()
		if sh.State() != PhyCcaBusy {
			sh.startCcaBusy = now
		}
		if now+duration > sh.endCcaBusy {
			sh.endCcaBusy = now + duration
		}
	})
}

func (sh *StateHelper) SwitchToSleep() {
	st := sh.State()
	logger.AssertTrue(st == PhyIdle || st == PhyCcaBusy, "SwitchToSleep in state %s", st)
	for _, l := range sh.listeners {
		l.NotifySleep()
	}
	sh.change(func() {
		sh.sleeping = true
		sh.startSleep = sh.clock.Now()
	})
}

// SwitchFromSleep wakes the PHY up. If energy is still on the medium for duration, it comes back CCA_BUSY.
func (sh *StateHelper) SwitchFromSleep(duration time.Duration) {
	logger.AssertTrue(sh.sleeping, "SwitchFromSleep while awake")
	for _, l := range sh.listeners {
		l.NotifyWakeup()
	}
	now := sh.clock.Now()
	sh.change(func() {
		sh.sleeping = false
		if now+duration > sh.endCcaBusy {
			sh.startCcaBusy = now
			sh.endCcaBusy = now + duration
		}
	})
	if sh.endCcaBusy > now {
		for _, l := range sh.listeners {
			l.NotifyMaybeCcaBusyStart(sh.endCcaBusy - now)
		}
	}
}
