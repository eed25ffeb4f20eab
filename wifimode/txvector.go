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

package wifimode

import (
	"fmt"

	. "github.com/openthread/ot-lbtsim/types"
)

// TxVector holds the transmission parameters the PHY needs to send a frame, and a receiver to decode it.
type TxVector struct {
	Mode               WifiMode
	TxPowerLevel       uint8
	Preamble           Preamble
	ChannelWidth       uint16 // MHz
	ShortGuardInterval bool
	Nss                uint8
	Ness               uint8
	Aggregation        bool
}

// NewTxVector returns a 20 MHz, long guard interval TX vector for the mode.
func NewTxVector(mode WifiMode, powerLevel uint8, preamble Preamble) TxVector {
	return TxVector{
		Mode:         mode,
		TxPowerLevel: powerLevel,
		Preamble:     preamble,
		ChannelWidth: 20,
		Nss:          mode.Nss(),
	}
}

func (tx TxVector) String() string {
	return fmt.Sprintf("mode=%s power=%d preamble=%s width=%d sgi=%v nss=%d agg=%v", tx.Mode, tx.TxPowerLevel,
		tx.Preamble, tx.ChannelWidth, tx.ShortGuardInterval, tx.Nss, tx.Aggregation)
}
