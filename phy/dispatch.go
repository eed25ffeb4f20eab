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
	. "github.com/openthread/ot-lbtsim/types"
)

// Outcome is what the PHY does with an arriving signal or a control request in its current state.
type Outcome byte

const (
	// Decode starts synchronizing to the frame.
	Decode Outcome = iota
	// DropAndAccumulate drops the frame but counts its energy toward CCA.
	DropAndAccumulate
	// Drop drops the frame or ignores the request.
	Drop
	// Defer re-issues the request once the current state ends.
	Defer
	// Apply carries out a control request now.
	Apply
)

func (o Outcome) String() string {
	switch o {
	case Decode:
		return "decode"
	case DropAndAccumulate:
		return "drop-accumulate"
	case Drop:
		return "drop"
	case Defer:
		return "defer"
	case Apply:
		return "apply"
	default:
		return "invalid"
	}
}

// classifyArrival decides on a decodable Wi-Fi frame arriving in state st. outlastsBusy tells whether the
// frame ends after the current state does.
func classifyArrival(st PhyState, outlastsBusy bool) Outcome {
	switch st {
	case PhyIdle, PhyCcaBusy:
		return Decode
	case PhyRx, PhyTx, PhySwitching:
		if outlastsBusy {
			return DropAndAccumulate
		}
		return Drop
	default:
		return Drop
	}
}

func classifyChannelSwitch(st PhyState) Outcome {
	switch st {
	case PhyIdle, PhyCcaBusy, PhyRx:
		return Apply
	case PhyTx, PhySwitching:
		return Defer
	default:
		return Drop
	}
}

func classifySleep(st PhyState) Outcome {
	switch st {
	case PhyIdle, PhyCcaBusy:
		return Apply
	case PhyTx, PhyRx, PhySwitching:
		return Defer
	default:
		return Drop
	}
}

func classifyResume(st PhyState) Outcome {
	if st == PhySleep {
		return Apply
	}
	return Drop
}

// dropReasonFor returns why a frame arriving in a busy state is dropped.
func dropReasonFor(st PhyState) DropReason {
	switch st {
	case PhyRx:
		return DropBusyRx
	case PhyTx:
		return DropBusyTx
	case PhySwitching:
		return DropSwitching
	default:
		return DropSleeping
	}
}
