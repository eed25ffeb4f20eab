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
	"fmt"
	"time"

	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// WifiFrame is a PSDU as handed from the MAC to the PHY and back.
type WifiFrame struct {
	Packet   []byte
	TxVector wifimode.TxVector
	MpduType MpduType
	// AmpduMpdus is the number of MPDUs the aggregate still carries, this one included. 0 if not aggregated.
	AmpduMpdus uint8
}

func (f *WifiFrame) Size() int {
	return len(f.Packet)
}

func (f *WifiFrame) String() string {
	return fmt.Sprintf("frame{%dB %s %s ampdu=%d}", len(f.Packet), f.TxVector.Mode, f.MpduType, f.AmpduMpdus)
}

// clone returns a copy that does not share the packet buffer.
func (f *WifiFrame) clone() *WifiFrame {
	c := *f
	c.Packet = append([]byte(nil), f.Packet...)
	return &c
}

// SignalParams describes one signal put on the channel. Frame is nil for non-Wi-Fi signals.
// The PSD and the frame must not be modified once transmitted.
type SignalParams struct {
	Psd      *spectrum.Value
	Duration time.Duration
	SenderId NodeId
	Frame    *WifiFrame
}

// Channel carries transmitted signals to the other PHYs. StartRx is called on every attached PHY;
// signals with no power inside a receiver's band are ignored there.
type Channel interface {
	Transmit(params SignalParams)
}
