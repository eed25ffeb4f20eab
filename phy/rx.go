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
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/interference"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// StartRx handles a signal arriving from the channel.
func (p *Phy) StartRx(params SignalParams) {
	if !p.initialized {
		p.log.Debugf("signal from %d ignored: PHY not initialized", params.SenderId)
		return
	}
	rxPowerW := params.Psd.Multiply(p.rxFilter).Integral() * DbToRatio(p.cfg.RxGainDb)
	if rxPowerW <= 0 {
		// nothing passed the receive filter, e.g. a transmission on another channel
		p.log.Tracef("signal from %d out of band", params.SenderId)
		return
	}
	frame := params.Frame
	p.notifySignalArrival(frame != nil, params.SenderId, WToDbm(rxPowerW), params.Duration)

	reason, decodable := p.decodable(frame)
	if !decodable {
		p.log.Tracef("energy only from %d: %.2f dBm for %v", params.SenderId, WToDbm(rxPowerW), params.Duration)
		p.interference.AddForeignSignal(params.Duration, rxPowerW)
		if frame != nil {
			p.notifyRxDrop(frame, reason)
		}
		p.maybeCcaBusy()
		return
	}

	handle := p.interference.Add(frame.Size(), frame.TxVector, frame.MpduType, params.Duration, rxPowerW)
	st := p.state.State()
	switch classifyArrival(st, params.Duration > p.state.DelayUntilIdle()) {
	case Decode:
		p.startSync(frame, handle, params)
	case DropAndAccumulate:
		p.dropBusy(frame, st)
		p.maybeCcaBusy()
	case Drop:
		p.dropBusy(frame, st)
	}
}

func (p *Phy) decodable(frame *WifiFrame) (DropReason, bool) {
	switch {
	case frame == nil:
		return DropForeignSignal, false
	case p.cfg.DisableWifiReception:
		return DropReceptionDisabled, false
	case frame.TxVector.Nss > p.cfg.RxAntennas:
		return DropTooManyStreams, false
	default:
		return 0, true
	}
}

func (p *Phy) dropBusy(frame *WifiFrame, st PhyState) {
	p.notifyRxDrop(frame, dropReasonFor(st))
	if st == PhySwitching || st == PhySleep {
		p.rx.plcpSuccess = false
	}
}

// startSync draws frame synchronization and, on success, starts receiving the frame.
func (p *Phy) startSync(frame *WifiFrame, handle interference.Handle, params SignalParams) {
	snrDb := RatioToDb(p.interference.AvgSyncFieldSnir(handle))
	ser, err := p.frameSync.FrameSyncErrorRate(snrDb)
	if err != nil {
		p.fail(err, "frame sync lookup at %.2f dB", snrDb)
		return
	}
	if p.random.Float64() <= ser {
		p.log.Debugf("sync failed at %.2f dB (ser %.4f)", snrDb, ser)
		p.notifyRxDrop(frame, DropSyncFailed)
		p.rx.plcpSuccess = false
		p.maybeCcaBusy()
		return
	}

	if !p.trackAggregate(frame) {
		p.maybeCcaBusy()
		return
	}

	tx := frame.TxVector
	p.log.Debugf("rx start from %d: %s for %v", params.SenderId, frame, params.Duration)
	p.state.SwitchToRx(params.Duration)
	p.notifyRxBegin(frame)
	p.interference.NotifyRxStart(handle)
	p.rx.current = handle
	if tx.Preamble != PreambleNone {
		p.endPlcpRxEvent = p.sched.Schedule(wifimode.PreambleAndHeaderDuration(tx), func() {
			p.endPlcpHeader(frame, handle)
		})
	}
	p.endRxEvent = p.sched.Schedule(params.Duration, func() {
		p.endReceive(frame, handle)
	})
}

// trackAggregate updates the A-MPDU bookkeeping for a synchronized frame. It returns false if the frame
// cannot be received.
func (p *Phy) trackAggregate(frame *WifiFrame) bool {
	preamble := frame.TxVector.Preamble
	aggregated := frame.AmpduMpdus > 0
	switch {
	case preamble == PreambleNone && p.rx.mpdusNum == 0:
		p.notifyRxDrop(frame, DropNoPreamble)
		return false
	case preamble == PreambleNone && !p.rx.plcpSuccess:
		p.notifyRxDrop(frame, DropNoPlcp)
		return false
	case preamble != PreambleNone && aggregated && p.rx.mpdusNum == 0:
		p.rx.mpdusNum = frame.AmpduMpdus - 1
		p.rx.rxMpduRef++
	case preamble == PreambleNone && aggregated:
		if frame.AmpduMpdus < p.rx.mpdusNum {
			p.log.Warnf("missed %d MPDUs of the current aggregate", p.rx.mpdusNum-frame.AmpduMpdus)
			p.rx.mpdusNum = frame.AmpduMpdus
		} else {
			p.rx.mpdusNum--
		}
	case preamble != PreambleNone && p.rx.mpdusNum > 0:
		p.log.Warnf("new PHY frame with %d MPDUs of the previous aggregate missing", p.rx.mpdusNum)
		p.rx.mpdusNum = 0
		p.rx.desynced = true
	}
	return true
}

// endPlcpHeader decides whether the PLCP preamble and header were received.
func (p *Phy) endPlcpHeader(frame *WifiFrame, handle interference.Handle) {
	p.endPlcpRxEvent = event.NoId
	snrPer, err := p.interference.PlcpHeaderSnrPer(handle)
	if err != nil {
		p.fail(err, "PLCP header error rate of %s", frame)
		return
	}
	if p.random.Float64() <= snrPer.Per {
		p.notifyRxDrop(frame, DropHeaderFailed)
		p.rx.plcpSuccess = false
		return
	}
	if !p.isSupported(frame.TxVector.Mode) {
		p.notifyRxDrop(frame, DropUnsupportedMode)
		p.rx.plcpSuccess = false
		return
	}
	p.rx.plcpSuccess = true
}

// endReceive completes the reception of a frame.
func (p *Phy) endReceive(frame *WifiFrame, handle interference.Handle) {
	p.endRxEvent = event.NoId
	tx := frame.TxVector
	rxPowerW := p.interference.RxPowerW(handle)
	snrPer, err := p.interference.PlcpPayloadSnrPer(handle)
	p.interference.NotifyRxEnd()
	p.rx.current = interference.NoHandle
	if err != nil {
		p.state.SwitchFromRxEndError()
		p.fail(err, "payload error rate of %s", frame)
		return
	}

	endOfFrame := IsEndOfFrame(frame.MpduType, tx.Preamble)
	success := false
	if p.rx.desynced && p.rx.plcpSuccess {
		p.notifyRxDrop(frame, DropIncompleteAggregate)
		p.rx.plcpSuccess = false
	}
	p.rx.desynced = false
	switch {
	case !p.rx.plcpSuccess:
		p.state.SwitchFromRxEndError()
		if endOfFrame && p.receiveError != nil {
			p.receiveError(*frame, snrPer.Snr)
		}
	case p.random.Float64() > snrPer.Per:
		success = true
		p.notifyMonitorSniff(MonitorInfo{
			Frame:           frame,
			Timestamp:       p.sched.Now(),
			FrequencyMhz:    p.channelFreqMhz,
			ChannelNumber:   p.cfg.ChannelNumber,
			DataRate500Kbps: dataRate500Kbps(tx),
			TxVector:        tx,
			MpduRef:         p.rx.rxMpduRef,
			SignalDbm:       RatioToDb(rxPowerW) + 30,
			NoiseDbm:        RatioToDb(rxPowerW/snrPer.Snr) - p.cfg.RxNoiseFigureDb + 30,
		})
		p.state.SwitchFromRxEndOk()
		if frame.MpduType != MpduInAggregate {
			p.log.Debugf("rx ok: %s snr %.2f dB", frame, RatioToDb(snrPer.Snr))
			p.notifyRxEnd(frame)
			if p.receiveOk != nil {
				p.receiveOk(*frame, snrPer.Snr)
			}
		}
	default:
		p.notifyRxDrop(frame, DropPayloadFailed)
		p.state.SwitchFromRxEndError()
		if endOfFrame && p.receiveError != nil {
			p.receiveError(*frame, snrPer.Snr)
		}
	}
	if p.receiveComplete != nil {
		p.receiveComplete(success)
	}
	if tx.Preamble == PreambleNone && frame.MpduType == LastMpduInAggregate {
		p.rx.plcpSuccess = false
	}
	p.maybeCcaBusy()
}

// abortRx cancels the reception in progress, e.g. to transmit or switch channel.
func (p *Phy) abortRx() {
	p.sched.Cancel(p.endPlcpRxEvent)
	p.sched.Cancel(p.endRxEvent)
	p.endPlcpRxEvent = event.NoId
	p.endRxEvent = event.NoId
	p.interference.NotifyRxEnd()
	p.rx.current = interference.NoHandle
	p.rx.desynced = false
}
