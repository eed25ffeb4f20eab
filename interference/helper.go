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

// Package interference accumulates the energy of signals on the medium. It answers how long the energy stays
// above a CCA threshold, and computes the SINR and error rates of the frame being received.
package interference

import (
	"math"
	"sort"
	"time"

	"github.com/openthread/ot-lbtsim/errormodel"
	"github.com/openthread/ot-lbtsim/event"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// Handle refers to a signal added to a Helper. The zero Handle refers to no signal.
type Handle int

const NoHandle Handle = 0

type signal struct {
	handle   Handle
	wifi     bool
	size     int
	tx       wifimode.TxVector
	mpduType MpduType
	start    time.Duration
	end      time.Duration
	rxPowerW float64
}

// SnrPer is the SNR (linear) and packet error rate of a part of a frame.
type SnrPer struct {
	Snr float64
	Per float64
}

type Helper struct {
	clock       event.Clock
	errorModel  errormodel.Model
	noiseFigure float64 // linear
	signals     []*signal
	nextHandle  Handle
	rxing       bool
	rxStart     time.Duration
	current     Handle
}

func NewHelper(clock event.Clock, errorModel errormodel.Model) *Helper {
	return &Helper{
		clock:       clock,
		errorModel:  errorModel,
		noiseFigure: 1,
		nextHandle:  1,
	}
}

// SetNoiseFigure sets the receiver noise figure in dB.
func (h *Helper) SetNoiseFigure(nfDb DbValue) {
	h.noiseFigure = DbToRatio(nfDb)
}

func (h *Helper) NoiseFigure() DbValue {
	return RatioToDb(h.noiseFigure)
}

func (h *Helper) SetErrorModel(m errormodel.Model) {
	h.errorModel = m
}

// Add records a Wi-Fi signal starting now and returns its handle.
func (h *Helper) Add(size int, tx wifimode.TxVector, mpduType MpduType, duration time.Duration, rxPowerW float64) Handle {
	return h.add(&signal{
		wifi:     true,
		size:     size,
		tx:       tx,
		mpduType: mpduType,
		end:      h.clock.Now() + duration,
		rxPowerW: rxPowerW,
	})
}

// AddForeignSignal records energy that cannot be decoded, starting now.
func (h *Helper) AddForeignSignal(duration time.Duration, rxPowerW float64) Handle {
	return h.add(&signal{
		end:      h.clock.Now() + duration,
		rxPowerW: rxPowerW,
	})
}

func (h *Helper) add(s *signal) Handle {
	h.expire()
	s.handle = h.nextHandle
	s.start = h.clock.Now()
	h.nextHandle++
	h.signals = append(h.signals, s)
	return s.handle
}

// expire drops signals that can no longer affect CCA or the current reception: those that ended before now,
// or before the start of the current reception.
func (h *Helper) expire() {
	cutoff := h.clock.Now()
	if h.rxing {
		cutoff = h.rxStart
	}
	kept := h.signals[:0]
	for _, s := range h.signals {
		if s.end > cutoff || s.handle == h.current {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(h.signals); i++ {
		h.signals[i] = nil
	}
	h.signals = kept
}

func (h *Helper) get(handle Handle) *signal {
	for _, s := range h.signals {
		if s.handle == handle {
			return s
		}
	}
	return nil
}

// RxPowerW returns the received power of a signal, or 0 if it is no longer known.
func (h *Helper) RxPowerW(handle Handle) float64 {
	if s := h.get(handle); s != nil {
		return s.rxPowerW
	}
	return 0
}

// NumSignals returns the number of signals currently kept.
func (h *Helper) NumSignals() int {
	return len(h.signals)
}

// powerAt sums the power of all signals on the medium at time t, except the excluded one.
func (h *Helper) powerAt(t time.Duration, exclude Handle) float64 {
	p := 0.0
	for _, s := range h.signals {
		if s.handle != exclude && s.start <= t && t < s.end {
			p += s.rxPowerW
		}
	}
	return p
}

// breakpoints returns the sorted distinct signal start and end times in (from, to).
func (h *Helper) breakpoints(from, to time.Duration, exclude Handle) []time.Duration {
	var bp []time.Duration
	for _, s := range h.signals {
		if s.handle == exclude {
			continue
		}
		if s.start > from && s.start < to {
			bp = append(bp, s.start)
		}
		if s.end > from && s.end < to {
			bp = append(bp, s.end)
		}
	}
	sort.Slice(bp, func(i, j int) bool { return bp[i] < bp[j] })
	out := bp[:0]
	for i, t := range bp {
		if i == 0 || t != bp[i-1] {
			out = append(out, t)
		}
	}
	return out
}

// EnergyDuration returns how long, from now, the summed energy on the medium stays at or above thresholdW.
// It returns 0 if the energy is below the threshold now.
func (h *Helper) EnergyDuration(thresholdW float64) time.Duration {
	h.expire()
	now := h.clock.Now()
	if h.powerAt(now, NoHandle) < thresholdW {
		return 0
	}
	for _, t := range h.breakpoints(now, Ever, NoHandle) {
		if h.powerAt(t, NoHandle) < thresholdW {
			return t - now
		}
	}
	return 0
}

// NotifyRxStart marks the start of the reception of a signal. Signals overlapping it are kept until
// NotifyRxEnd.
func (h *Helper) NotifyRxStart(handle Handle) {
	h.rxing = true
	h.rxStart = h.clock.Now()
	h.current = handle
}

// NotifyRxEnd marks the end (or abort) of the current reception.
func (h *Helper) NotifyRxEnd() {
	h.rxing = false
	h.current = NoHandle
	h.expire()
}

// EraseEvents forgets all signals, e.g. after a channel switch.
func (h *Helper) EraseEvents() {
	h.signals = nil
	h.rxing = false
	h.current = NoHandle
}

// ThermalNoiseW returns the noise power kTB at 290 K, raised by the noise figure.
func (h *Helper) ThermalNoiseW(channelWidthMhz uint16) float64 {
	return BoltzmannConstant * 290.0 * float64(channelWidthMhz) * 1e6 * h.noiseFigure
}

// sinrAt returns the SINR of signal s at time t.
func (h *Helper) sinrAt(s *signal, t time.Duration) float64 {
	noise := h.ThermalNoiseW(s.tx.ChannelWidth) + h.powerAt(t, s.handle)
	return s.rxPowerW / noise
}

// averageSinr returns the time-weighted average SINR of signal s over [from, to).
func (h *Helper) averageSinr(s *signal, from, to time.Duration) float64 {
	if to <= from {
		return h.sinrAt(s, from)
	}
	sum := 0.0
	t := from
	for _, b := range append(h.breakpoints(from, to, s.handle), to) {
		sum += h.sinrAt(s, t) * float64(b-t)
		t = b
	}
	return sum / float64(to-from)
}

// AvgSyncFieldSnir returns the average SINR (linear) over the sync field at the start of the signal.
func (h *Helper) AvgSyncFieldSnir(handle Handle) float64 {
	s := h.get(handle)
	if s == nil {
		return 0
	}
	end := s.start + wifimode.SyncFieldDuration
	if end > s.end {
		end = s.end
	}
	return h.averageSinr(s, s.start, end)
}

// chunkSuccessRate integrates the chunk success probability of [from, to) sent with mode, splitting
// at every change of interference.
func (h *Helper) chunkSuccessRate(s *signal, mode wifimode.WifiMode, from, to time.Duration) (float64, error) {
	psr := 1.0
	rate := float64(mode.DataRate(s.tx.ChannelWidth, s.tx.ShortGuardInterval))
	t := from
	for _, b := range append(h.breakpoints(from, to, s.handle), to) {
		nbits := uint64((b - t).Seconds() * rate)
		if nbits > 0 {
			p, err := h.errorModel.ChunkSuccessRate(mode, s.tx, h.sinrAt(s, t), nbits)
			if err != nil {
				return 0, err
			}
			psr *= p
		}
		t = b
	}
	return psr, nil
}

// PlcpHeaderSnrPer returns the SINR and error rate of the PLCP header (L-SIG and HT-SIG) of a signal.
func (h *Helper) PlcpHeaderSnrPer(handle Handle) (SnrPer, error) {
	s := h.get(handle)
	if s == nil {
		return SnrPer{Per: 1}, nil
	}
	lsigStart := s.start + wifimode.PreambleDuration(s.tx)
	htStart := lsigStart + wifimode.HeaderDuration(s.tx)
	htEnd := htStart + wifimode.HtSigDuration(s.tx) + wifimode.HtTrainingDuration(s.tx)

	psr, err := h.chunkSuccessRate(s, wifimode.HeaderMode(s.tx), lsigStart, htStart)
	if err != nil {
		return SnrPer{}, err
	}
	if htEnd > htStart {
		psrHt, err := h.chunkSuccessRate(s, wifimode.HtSigMode(s.tx), htStart, htEnd)
		if err != nil {
			return SnrPer{}, err
		}
		psr *= psrHt
	}
	return SnrPer{Snr: h.sinrAt(s, s.start), Per: 1 - psr}, nil
}

// PlcpPayloadSnrPer returns the SINR and error rate of the payload of a signal.
func (h *Helper) PlcpPayloadSnrPer(handle Handle) (SnrPer, error) {
	s := h.get(handle)
	if s == nil {
		return SnrPer{Per: 1}, nil
	}
	payloadStart := s.start + wifimode.PreambleAndHeaderDuration(s.tx)
	psr, err := h.chunkSuccessRate(s, s.tx.Mode, payloadStart, s.end)
	if err != nil {
		return SnrPer{}, err
	}
	return SnrPer{Snr: h.averageSinr(s, payloadStart, s.end), Per: 1 - psr}, nil
}

// CurrentInterferenceW returns the power on the medium now, excluding the signal being received.
func (h *Helper) CurrentInterferenceW() float64 {
	return h.powerAt(h.clock.Now(), h.current)
}

// ToDbm is a convenience for trace output of powers that may be zero.
func ToDbm(w float64) DbValue {
	if w <= 0 {
		return math.Inf(-1)
	}
	return WToDbm(w)
}
