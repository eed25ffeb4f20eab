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

package channel

import (
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/access"
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/phy"
	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
)

// InterfererConfig describes a periodic non-Wi-Fi source, such as an LTE-U or LAA eNB.
type InterfererConfig struct {
	Id            NodeId
	Position      Position
	ChannelNumber ChannelNumber
	TxPowerDbm    DbValue
	OnTime        time.Duration
	Period        time.Duration
	StartOffset   time.Duration
}

// Interferer transmits bursts of energy that Wi-Fi PHYs cannot decode. With an access manager, each burst
// waits for a grant and lasts at most the granted duration.
type Interferer struct {
	cfg     InterfererConfig
	sched   *event.Scheduler
	channel phy.Channel
	manager access.Manager
	psd     *spectrum.Value
	log     *logger.PhyLogger

	running    bool
	next       event.Id
	burstCount uint64
	airtime    time.Duration
}

func NewInterferer(cfg InterfererConfig, sched *event.Scheduler, ch phy.Channel) (*Interferer, error) {
	if cfg.OnTime <= 0 || cfg.Period < cfg.OnTime {
		return nil, errors.Errorf("interferer %d: invalid on-time %v for period %v", cfg.Id, cfg.OnTime, cfg.Period)
	}
	psd, err := spectrum.TxPowerSpectralDensity(DbmToW(cfg.TxPowerDbm), cfg.ChannelNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "interferer %d", cfg.Id)
	}
	return &Interferer{
		cfg:     cfg,
		sched:   sched,
		channel: ch,
		psd:     psd,
		log:     logger.GetPhyLogger(cfg.Id),
	}, nil
}

// SetAccessManager gates the bursts on channel access grants.
func (it *Interferer) SetAccessManager(m access.Manager) {
	it.manager = m
	m.SetAccessGrantedCallback(it.onGranted)
}

func (it *Interferer) Id() NodeId {
	return it.cfg.Id
}

func (it *Interferer) BurstCount() uint64 {
	return it.burstCount
}

func (it *Interferer) Airtime() time.Duration {
	return it.airtime
}

func (it *Interferer) Start() {
	if it.running {
		return
	}
	it.running = true
	it.next = it.sched.Schedule(it.cfg.StartOffset, it.cycle)
}

func (it *Interferer) Stop() {
	it.running = false
	it.sched.Cancel(it.next)
}

func (it *Interferer) cycle() {
	if !it.running {
		return
	}
	if it.manager == nil {
		it.burst(it.cfg.OnTime)
		it.next = it.sched.Schedule(it.cfg.Period, it.cycle)
		return
	}
	if err := it.manager.RequestAccess(); err != nil {
		it.sched.Fail(errors.Wrapf(err, "interferer %d", it.cfg.Id))
	}
}

func (it *Interferer) onGranted(d time.Duration) {
	if !it.running {
		return
	}
	if d > it.cfg.OnTime {
		d = it.cfg.OnTime
	}
	it.burst(d)
	it.next = it.sched.Schedule(it.cfg.Period, it.cycle)
}

func (it *Interferer) burst(d time.Duration) {
	it.burstCount++
	it.airtime += d
	it.log.Tracef("interferer burst %v at %.1f dBm", d, it.cfg.TxPowerDbm)
	it.channel.Transmit(phy.SignalParams{
		Psd:      it.psd.Copy(),
		Duration: d,
		SenderId: it.cfg.Id,
	})
}
