// Copyright (c) 2020-2024, The OTNS Authors.
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

package types

import (
	"math"
	"time"
)

type NodeId = int
type ChannelNumber = uint16

const (
	InvalidNodeId   NodeId = 0
	BroadcastNodeId NodeId = -1
)

const (
	// Ever is a virtual time that is never reached by the simulation.
	Ever time.Duration = math.MaxInt64
)

// PhyState is the state of a Wi-Fi PHY. A PHY is always in exactly one of these.
type PhyState byte

const (
	PhyIdle      PhyState = 0
	PhyCcaBusy   PhyState = 1
	PhyTx        PhyState = 2
	PhyRx        PhyState = 3
	PhySwitching PhyState = 4
	PhySleep     PhyState = 5
)

// AllPhyStates lists the PHY states in display order.
var AllPhyStates = []PhyState{PhyIdle, PhyCcaBusy, PhyTx, PhyRx, PhySwitching, PhySleep}

func (s PhyState) String() string {
	switch s {
	case PhyIdle:
		return "IDLE"
	case PhyCcaBusy:
		return "CCA_BUSY"
	case PhyTx:
		return "TX"
	case PhyRx:
		return "RX"
	case PhySwitching:
		return "SWITCHING"
	case PhySleep:
		return "SLEEP"
	default:
		return "INVALID"
	}
}

// Preamble is the PLCP preamble type of a transmitted frame.
type Preamble byte

const (
	PreambleLong  Preamble = 0
	PreambleShort Preamble = 1
	PreambleHtMf  Preamble = 2
	PreambleHtGf  Preamble = 3
	PreambleNone  Preamble = 4
)

func (p Preamble) String() string {
	switch p {
	case PreambleLong:
		return "long"
	case PreambleShort:
		return "short"
	case PreambleHtMf:
		return "ht-mf"
	case PreambleHtGf:
		return "ht-gf"
	case PreambleNone:
		return "none"
	default:
		return "invalid"
	}
}

// MpduType tells whether an MPDU is sent on its own or as a sub-frame of an A-MPDU.
type MpduType byte

const (
	NormalMpdu          MpduType = 0
	MpduInAggregate     MpduType = 1
	LastMpduInAggregate MpduType = 2
)

func (t MpduType) String() string {
	switch t {
	case NormalMpdu:
		return "normal"
	case MpduInAggregate:
		return "in-aggregate"
	case LastMpduInAggregate:
		return "last-in-aggregate"
	default:
		return "invalid"
	}
}

// IsEndOfFrame returns true if an MPDU of type t, sent with the given preamble, completes a PHY frame.
func IsEndOfFrame(t MpduType, preamble Preamble) bool {
	return (t == NormalMpdu && preamble != PreambleNone) || (t == LastMpduInAggregate && preamble == PreambleNone)
}
