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

	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

type DropReason byte

const (
	DropForeignSignal DropReason = iota
	DropReceptionDisabled
	DropTooManyStreams
	DropSwitching
	DropBusyRx
	DropBusyTx
	DropSleeping
	DropSyncFailed
	DropNoPreamble
	DropNoPlcp
	DropHeaderFailed
	DropUnsupportedMode
	DropPayloadFailed
	DropIncompleteAggregate
)

func (r DropReason) String() string {
	switch r {
	case DropForeignSignal:
		return "foreign-signal"
	case DropReceptionDisabled:
		return "reception-disabled"
	case DropTooManyStreams:
		return "too-many-streams"
	case DropSwitching:
		return "switching"
	case DropBusyRx:
		return "busy-rx"
	case DropBusyTx:
		return "busy-tx"
	case DropSleeping:
		return "sleeping"
	case DropSyncFailed:
		return "sync-failed"
	case DropNoPreamble:
		return "no-preamble"
	case DropNoPlcp:
		return "no-plcp"
	case DropHeaderFailed:
		return "header-failed"
	case DropUnsupportedMode:
		return "unsupported-mode"
	case DropPayloadFailed:
		return "payload-failed"
	case DropIncompleteAggregate:
		return "incomplete-aggregate"
	default:
		return "invalid"
	}
}

// MonitorInfo is what a monitor-mode sniffer sees of a transmitted or received frame.
type MonitorInfo struct {
	Frame           *WifiFrame
	Tx              bool
	Timestamp       time.Duration
	FrequencyMhz    uint16
	ChannelNumber   ChannelNumber
	DataRate500Kbps uint32
	TxVector        wifimode.TxVector
	MpduRef         uint32
	SignalDbm       DbValue
	NoiseDbm        DbValue
}

// Hooks are optional observers of PHY activity. Nil fields are skipped.
type Hooks struct {
	SignalArrival  func(wifi bool, sender NodeId, rxPowerDbm DbValue, duration time.Duration)
	RxBegin        func(frame *WifiFrame)
	RxEnd          func(frame *WifiFrame)
	RxDrop         func(frame *WifiFrame, reason DropReason)
	TxBegin        func(frame *WifiFrame)
	TxDrop         func(frame *WifiFrame)
	MonitorSniffRx func(info MonitorInfo)
	MonitorSniffTx func(info MonitorInfo)
}

func (p *Phy) AddHooks(h Hooks) {
	p.hooks = append(p.hooks, h)
}

func (p *Phy) notifySignalArrival(wifi bool, sender NodeId, rxPowerDbm DbValue, duration time.Duration) {
	for _, h := range p.hooks {
		if h.SignalArrival != nil {
			h.SignalArrival(wifi, sender, rxPowerDbm, duration)
		}
	}
}

func (p *Phy) notifyRxBegin(frame *WifiFrame) {
	for _, h := range p.hooks {
		if h.RxBegin != nil {
			h.RxBegin(frame)
		}
	}
}

func (p *Phy) notifyRxEnd(frame *WifiFrame) {
	for _, h := range p.hooks {
		if h.RxEnd != nil {
			h.RxEnd(frame)
		}
	}
}

func (p *Phy) notifyRxDrop(frame *WifiFrame, reason DropReason) {
	p.log.Debugf("rx drop %s: %s", reason, frame)
	for _, h := range p.hooks {
		if h.RxDrop != nil {
			h.RxDrop(frame, reason)
		}
	}
}

func (p *Phy) notifyTxBegin(frame *WifiFrame) {
	for _, h := range p.hooks {
		if h.TxBegin != nil {
			h.TxBegin(frame)
		}
	}
}

func (p *Phy) notifyTxDrop(frame *WifiFrame) {
	p.log.Debugf("tx drop: %s", frame)
	for _, h := range p.hooks {
		if h.TxDrop != nil {
			h.TxDrop(frame)
		}
	}
}

func (p *Phy) notifyMonitorSniff(info MonitorInfo) {
	for _, h := range p.hooks {
		if info.Tx && h.MonitorSniffTx != nil {
			h.MonitorSniffTx(info)
		} else if !info.Tx && h.MonitorSniffRx != nil {
			h.MonitorSniffRx(info)
		}
	}
}
