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
	"github.com/openthread/ot-lbtsim/wifimode"
)

// SendPacket transmits a frame. A reception in progress is aborted. Frames that cannot be sent (PHY asleep,
// too many spatial streams) are dropped silently; sending while transmitting or switching is an error.
func (p *Phy) SendPacket(frame WifiFrame) error {
	st := p.state.State()
	if st == PhyTx || st == PhySwitching {
		return errors.Wrapf(ErrTxInvalidState, "node %d in state %s", p.id, st)
	}
	if !p.initialized {
		return errors.Errorf("node %d: PHY not initialized", p.id)
	}
	f := frame.clone()
	tx := f.TxVector
	if st == PhySleep {
		p.notifyTxDrop(f)
		return nil
	}
	if tx.Nss > p.cfg.TxAntennas {
		p.notifyTxDrop(f)
		return nil
	}

	duration := wifimode.CalculateTxDuration(f.Size(), tx, f.MpduType)
	if st == PhyRx {
		p.log.Debugf("tx aborts reception")
		p.abortRx()
	}
	p.notifyTxBegin(f)
	if f.MpduType == MpduInAggregate && tx.Preamble != PreambleNone {
		p.rx.txMpduRef++
	}

	powerDbm := p.PowerDbm(tx.TxPowerLevel)
	p.notifyMonitorSniff(MonitorInfo{
		Frame:           f,
		Tx:              true,
		Timestamp:       p.sched.Now(),
		FrequencyMhz:    p.channelFreqMhz,
		ChannelNumber:   p.cfg.ChannelNumber,
		DataRate500Kbps: dataRate500Kbps(tx),
		TxVector:        tx,
		MpduRef:         p.rx.txMpduRef,
		SignalDbm:       powerDbm + p.cfg.TxGainDb,
	})
	p.state.SwitchToTx(duration, powerDbm)

	psd, err := spectrum.TxPowerSpectralDensity(DbmToW(powerDbm+p.cfg.TxGainDb), p.cfg.ChannelNumber)
	if err != nil {
		return err
	}
	p.log.Debugf("tx %s for %v at %.2f dBm", f, duration, powerDbm)
	if p.channel != nil {
		p.channel.Transmit(SignalParams{
			Psd:      psd,
			Duration: duration,
			SenderId: p.id,
			Frame:    f,
		})
	}
	return nil
}
