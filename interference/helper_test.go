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

package interference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/ot-lbtsim/errormodel"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

type testClock struct {
	now time.Duration
}

func (c *testClock) Now() time.Duration {
	return c.now
}

func newTestHelper() (*Helper, *testClock) {
	clock := &testClock{}
	h := NewHelper(clock, errormodel.NewFreqSelective(1))
	h.SetNoiseFigure(7)
	return h, clock
}

const us = time.Microsecond

func TestEnergyDurationSingleSignal(t *testing.T) {
	h, clock := newTestHelper()
	thr := DbmToW(-62)

	assert.Equal(t, time.Duration(0), h.EnergyDuration(thr))
	h.AddForeignSignal(1292*us, 1e-9)
	assert.Equal(t, 1292*us, h.EnergyDuration(thr))

	clock.now = 1000 * us
	assert.Equal(t, 292*us, h.EnergyDuration(thr))

	clock.now = 1292 * us
	assert.Equal(t, time.Duration(0), h.EnergyDuration(thr))
	assert.Equal(t, 0, h.NumSignals())
}

func TestEnergyDurationThreshold(t *testing.T) {
	h, clock := newTestHelper()
	thr := DbmToW(-62)

	h.AddForeignSignal(1292*us, DbmToW(-63))
	assert.Equal(t, time.Duration(0), h.EnergyDuration(thr))

	clock.now = 10 * time.Millisecond
	h.AddForeignSignal(1292*us, thr)
	assert.Equal(t, 1292*us, h.EnergyDuration(thr))
}

func TestEnergyDurationCombined(t *testing.T) {
	h, clock := newTestHelper()
	thr := DbmToW(-62)

	h.AddForeignSignal(1292*us, 5e-10)
	assert.Equal(t, time.Duration(0), h.EnergyDuration(thr))
	clock.now = 1 * us
	h.AddForeignSignal(1292*us, 5e-10)
	// busy until the first signal ends
	assert.Equal(t, 1291*us, h.EnergyDuration(thr))

	clock.now = 1292 * us
	assert.Equal(t, time.Duration(0), h.EnergyDuration(thr))
}

func TestEnergyDurationStaircase(t *testing.T) {
	h, clock := newTestHelper()
	thr := 1e-9

	h.AddForeignSignal(100*us, 1e-9)
	h.AddForeignSignal(300*us, 1e-9)
	clock.now = 50 * us
	h.AddForeignSignal(100*us, 1e-9)
	// the medium stays at or above 1e-9 W until the 300 us signal ends
	assert.Equal(t, 250*us, h.EnergyDuration(thr))
	assert.Equal(t, 50*us, h.EnergyDuration(2.5e-9))
}

func TestExpiryDuringReception(t *testing.T) {
	h, clock := newTestHelper()
	tx := wifimode.NewTxVector(wifimode.HtModes[0], 0, PreambleHtMf)

	rx := h.Add(1000, tx, NormalMpdu, 1*time.Millisecond, DbmToW(-60))
	h.NotifyRxStart(rx)
	clock.now = 10 * us
	h.AddForeignSignal(10*us, DbmToW(-80))
	clock.now = 50 * us
	h.AddForeignSignal(10*us, DbmToW(-80))
	// the first interferer overlaps the reception and is kept
	assert.Equal(t, 3, h.NumSignals())

	clock.now = 1 * time.Millisecond
	h.NotifyRxEnd()
	assert.Equal(t, 0, h.NumSignals())

	clock.now = 2 * time.Millisecond
	h.AddForeignSignal(10*us, DbmToW(-80))
	h.EraseEvents()
	assert.Equal(t, 0, h.NumSignals())
}

func TestSyncFieldSnir(t *testing.T) {
	h, clock := newTestHelper()
	tx := wifimode.NewTxVector(wifimode.HtModes[0], 0, PreambleHtMf)
	noise := h.ThermalNoiseW(20)
	assert.InDelta(t, -94.0, WToDbm(noise), 0.1)

	p := DbmToW(-70)
	rx := h.Add(100, tx, NormalMpdu, 200*us, p)
	assert.InDelta(t, p/noise, h.AvgSyncFieldSnir(rx), 1e-9*p/noise)

	// interference during the second half of the sync field
	clock.now = 1 * time.Millisecond
	rx2 := h.Add(100, tx, NormalMpdu, 200*us, p)
	clock.now += 8 * us
	h.AddForeignSignal(100*us, p)
	expected := 0.5*p/noise + 0.5*p/(noise+p)
	assert.InDelta(t, expected, h.AvgSyncFieldSnir(rx2), 1e-9*expected)
}

func TestPlcpErrorRates(t *testing.T) {
	h, _ := newTestHelper()
	tx := wifimode.NewTxVector(wifimode.HtModes[0], 0, PreambleHtMf)

	strong := h.Add(1000, tx, NormalMpdu, wifimode.CalculateTxDuration(1000, tx, NormalMpdu), DbmToW(-50))
	header, err := h.PlcpHeaderSnrPer(strong)
	assert.Nil(t, err)
	assert.InDelta(t, 0.0, header.Per, 1e-6)
	payload, err := h.PlcpPayloadSnrPer(strong)
	assert.Nil(t, err)
	assert.InDelta(t, 0.0, payload.Per, 1e-6)
	assert.Greater(t, RatioToDb(payload.Snr), 40.0)

	h.EraseEvents()
	weak := h.Add(1000, tx, NormalMpdu, wifimode.CalculateTxDuration(1000, tx, NormalMpdu), DbmToW(-100))
	payload, err = h.PlcpPayloadSnrPer(weak)
	assert.Nil(t, err)
	assert.Equal(t, 1.0, payload.Per)
}

func TestPayloadPerWithInterference(t *testing.T) {
	h, clock := newTestHelper()
	tx := wifimode.NewTxVector(wifimode.HtModes[4], 0, PreambleHtMf)
	duration := wifimode.CalculateTxDuration(1500, tx, NormalMpdu)

	clean := h.Add(1500, tx, NormalMpdu, duration, DbmToW(-75))
	cleanPer, err := h.PlcpPayloadSnrPer(clean)
	assert.Nil(t, err)

	clock.now = 1 * time.Millisecond
	h.EraseEvents()
	noisy := h.Add(1500, tx, NormalMpdu, duration, DbmToW(-75))
	clock.now += 100 * us
	h.AddForeignSignal(100*us, DbmToW(-80))
	noisyPer, err := h.PlcpPayloadSnrPer(noisy)
	assert.Nil(t, err)
	assert.Greater(t, noisyPer.Per, cleanPer.Per)
}
