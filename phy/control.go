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
	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
)

// SetChannelNumber switches to another channel. Before Initialize it only records the channel. While
// transmitting or switching, the switch is retried when the current state ends; while asleep it is ignored.
func (p *Phy) SetChannelNumber(ch ChannelNumber) error {
	if !spectrum.IsValidChannel(ch) {
		return errors.Wrapf(spectrum.ErrUnsupportedChannel, "channel %d", ch)
	}
	if !p.initialized {
		p.cfg.ChannelNumber = ch
		return nil
	}

	st := p.state.State()
	switch classifyChannelSwitch(st) {
	case Defer:
		delay := p.state.DelayUntilIdle()
		p.log.Debugf("channel switch to %d deferred by %v (%s)", ch, delay, st)
		p.sched.Schedule(delay, func() {
			if err := p.SetChannelNumber(ch); err != nil {
				p.fail(err, "deferred channel switch")
			}
		})
	case Apply:
		if st == PhyRx {
			p.log.Debugf("channel switch aborts reception")
			p.abortRx()
		}
		p.state.SwitchToChannelSwitching(p.cfg.ChannelSwitchDelay)
		p.interference.EraseEvents()
		if err := p.tune(ch); err != nil {
			return err
		}
		p.log.Infof("switched to channel %d (%d MHz)", ch, p.channelFreqMhz)
	default:
		p.log.Debugf("channel switch to %d ignored while sleeping", ch)
	}
	return nil
}

// SetSleepMode puts the PHY to sleep, once the current TX, RX or switch ends.
func (p *Phy) SetSleepMode() {
	st := p.state.State()
	switch classifySleep(st) {
	case Defer:
		delay := p.state.DelayUntilIdle()
		p.log.Debugf("sleep deferred by %v (%s)", delay, st)
		p.sched.Schedule(delay, p.SetSleepMode)
	case Apply:
		p.log.Debugf("sleep")
		p.state.SwitchToSleep()
	default:
		p.log.Debugf("already sleeping")
	}
}

// ResumeFromSleep wakes the PHY up. It comes back CCA_BUSY if energy above the CCA threshold is on the medium.
func (p *Phy) ResumeFromSleep() {
	st := p.state.State()
	if classifyResume(st) != Apply {
		p.log.Debugf("resume ignored in state %s", st)
		return
	}
	p.log.Debugf("resume from sleep")
	p.state.SwitchFromSleep(p.CcaBusyDuration())
}
