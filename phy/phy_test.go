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
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/framesync"
	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// testChannel delivers every signal at once to all other PHYs, attenuated by lossDb.
type testChannel struct {
	phys   []*Phy
	lossDb DbValue
}

func (c *testChannel) Transmit(params SignalParams) {
	for _, p := range c.phys {
		if p.Id() == params.SenderId {
			continue
		}
		rx := params
		rx.Psd = params.Psd.Copy().Scale(DbToRatio(-c.lossDb))
		p.StartRx(rx)
	}
}

func newTestPhy(t *testing.T, id NodeId, sched *event.Scheduler, ch *testChannel, mutate func(cfg *Config)) *Phy {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	var channel Channel
	if ch != nil {
		channel = ch
	}
	p, err := NewPhy(id, cfg, sched, channel)
	require.NoError(t, err)
	require.NoError(t, p.Initialize())
	if ch != nil {
		ch.phys = append(ch.phys, p)
	}
	return p
}

func testFrame(size int, mode wifimode.WifiMode, preamble Preamble) WifiFrame {
	return WifiFrame{
		Packet:   make([]byte, size),
		TxVector: wifimode.NewTxVector(mode, 0, preamble),
		MpduType: NormalMpdu,
	}
}

// at schedules fn at absolute virtual time t.
func at(sched *event.Scheduler, t time.Duration, fn func()) {
	sched.ScheduleAt(t, fn)
}

func run(t *testing.T, sched *event.Scheduler, until time.Duration) {
	require.NoError(t, sched.RunUntil(context.Background(), until))
}

func foreignSignal(t *testing.T, powerW float64, d time.Duration) SignalParams {
	psd, err := spectrum.TxPowerSpectralDensity(powerW, 36)
	require.NoError(t, err)
	return SignalParams{Psd: psd, Duration: d, SenderId: 99}
}

func TestPhyDefaults(t *testing.T) {
	sched := event.NewScheduler()
	p := newTestPhy(t, 1, sched, nil, nil)
	assert.Equal(t, PhyIdle, p.State())
	assert.Equal(t, ChannelNumber(36), p.ChannelNumber())
	assert.Equal(t, uint16(5180), p.ChannelFrequencyMhz())
	assert.InDelta(t, 16.0206, p.PowerDbm(0), 1e-9)
	assert.Len(t, p.SupportedModes(), 3)
	assert.Len(t, p.SupportedMcs(), 8)
	assert.Equal(t, []ChannelNumber{48, 44, 40, 36}, p.OperationalChannelList())

	require.NoError(t, p.ConfigureStandard(Standard80211a))
	assert.Len(t, p.SupportedModes(), 8)
	assert.Len(t, p.SupportedMcs(), 0)
	assert.True(t, p.IsModeSupported(wifimode.OfdmRate54Mbps))
}

func TestPhyMcsSetTwoAntennas(t *testing.T) {
	p := newTestPhy(t, 1, event.NewScheduler(), nil, func(cfg *Config) { cfg.RxAntennas = 2 })
	assert.Len(t, p.SupportedMcs(), 16)
	assert.True(t, p.IsMcsSupported(wifimode.HtModes[15]))
}

func TestPowerLevels(t *testing.T) {
	p := newTestPhy(t, 1, event.NewScheduler(), nil, func(cfg *Config) {
		cfg.TxPowerLevels = 3
		cfg.TxPowerStartDbm = 10
		cfg.TxPowerEndDbm = 20
	})
	assert.InDelta(t, 10.0, p.PowerDbm(0), 1e-9)
	assert.InDelta(t, 15.0, p.PowerDbm(1), 1e-9)
	assert.InDelta(t, 20.0, p.PowerDbm(2), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChannelNumber = 37
	_, err := NewPhy(1, cfg, event.NewScheduler(), nil)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, "ChannelNumber", cerr.Field)

	cfg = DefaultConfig()
	cfg.TxPowerEndDbm = 20
	_, err = NewPhy(1, cfg, event.NewScheduler(), nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.RxAntennas = 3
	_, err = NewPhy(1, cfg, event.NewScheduler(), nil)
	assert.Error(t, err)
}

func TestSendPacketDuration(t *testing.T) {
	sched := event.NewScheduler()
	p := newTestPhy(t, 1, sched, nil, nil)
	var txDrops int
	p.AddHooks(Hooks{TxDrop: func(*WifiFrame) { txDrops++ }})

	at(sched, time.Second, func() {
		assert.NoError(t, p.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleLong)))
		assert.Equal(t, PhyTx, p.State())
		assert.Equal(t, 1292*time.Microsecond, p.DelayUntilIdle())

		err := p.SendPacket(testFrame(100, wifimode.HtModes[0], PreambleLong))
		assert.Equal(t, ErrTxInvalidState, errors.Cause(err))
	})
	at(sched, time.Second+1291*time.Microsecond, func() {
		assert.Equal(t, PhyTx, p.State())
	})
	at(sched, time.Second+1292*time.Microsecond, func() {
		assert.Equal(t, PhyIdle, p.State())
	})
	run(t, sched, 2*time.Second)
	assert.Equal(t, 0, txDrops)
}

func TestSendPacketDropped(t *testing.T) {
	sched := event.NewScheduler()
	p := newTestPhy(t, 1, sched, nil, nil)
	var txDrops int
	p.AddHooks(Hooks{TxDrop: func(*WifiFrame) { txDrops++ }})

	// two spatial streams on one antenna
	assert.NoError(t, p.SendPacket(testFrame(100, wifimode.HtModes[8], PreambleHtMf)))
	assert.Equal(t, PhyIdle, p.State())

	p.SetSleepMode()
	assert.NoError(t, p.SendPacket(testFrame(100, wifimode.HtModes[0], PreambleHtMf)))
	assert.Equal(t, PhySleep, p.State())
	assert.Equal(t, 2, txDrops)
}

func TestReceiveOk(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	var received []WifiFrame
	var snrs []float64
	var completions []bool
	rx.SetReceiveOkCallback(func(frame WifiFrame, snr float64) {
		received = append(received, frame)
		snrs = append(snrs, snr)
	})
	rx.SetReceiveErrorCallback(func(frame WifiFrame, snr float64) {
		t.Fatalf("unexpected rx error")
	})
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })
	var sniffed []MonitorInfo
	rx.AddHooks(Hooks{MonitorSniffRx: func(info MonitorInfo) { sniffed = append(sniffed, info) }})

	frame := testFrame(1030, wifimode.HtModes[0], PreambleHtMf)
	frame.Packet[0] = 0x88
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(frame))
		assert.Equal(t, PhyRx, rx.State())
	})
	run(t, sched, time.Second)

	require.Len(t, received, 1)
	assert.Equal(t, byte(0x88), received[0].Packet[0])
	assert.Equal(t, []bool{true}, completions)
	// 17.02 dBm - 60 dB + 1 dB against -94 dBm of noise
	assert.InDelta(t, 52.0, RatioToDb(snrs[0]), 0.5)
	require.Len(t, sniffed, 1)
	assert.Equal(t, uint32(128), sniffed[0].DataRate500Kbps)
	assert.InDelta(t, -41.98, sniffed[0].SignalDbm, 0.1)
	assert.Equal(t, PhyIdle, rx.State())
}

func TestReceiveBelowNoiseFails(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 115}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	okCount, errCount := 0, 0
	var completions []bool
	rx.SetReceiveOkCallback(func(WifiFrame, float64) { okCount++ })
	rx.SetReceiveErrorCallback(func(WifiFrame, float64) { errCount++ })
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })

	for i := 0; i < 20; i++ {
		at(sched, time.Duration(i+1)*10*time.Millisecond, func() {
			require.NoError(t, tx.SendPacket(testFrame(1500, wifimode.HtModes[7], PreambleHtMf)))
		})
	}
	run(t, sched, time.Second)
	assert.Equal(t, 0, okCount)
	for _, c := range completions {
		assert.False(t, c)
	}
	assert.Equal(t, len(completions), errCount)
}

func TestForeignSignalCcaBusy(t *testing.T) {
	sched := event.NewScheduler()
	p := newTestPhy(t, 1, sched, nil, func(cfg *Config) { cfg.RxGainDb = 0 })

	at(sched, time.Second, func() {
		p.StartRx(foreignSignal(t, DbmToW(-50), 500*time.Microsecond))
		assert.Equal(t, PhyCcaBusy, p.State())
	})
	at(sched, time.Second+499*time.Microsecond, func() {
		assert.Equal(t, PhyCcaBusy, p.State())
	})
	at(sched, time.Second+500*time.Microsecond, func() {
		assert.Equal(t, PhyIdle, p.State())
	})
	// below the -62 dBm threshold
	at(sched, 2*time.Second, func() {
		p.StartRx(foreignSignal(t, DbmToW(-65), 500*time.Microsecond))
		assert.Equal(t, PhyIdle, p.State())
	})
	run(t, sched, 3*time.Second)
}

func TestArrivalDuringTxDropped(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	a := newTestPhy(t, 1, sched, ch, nil)
	b := newTestPhy(t, 2, sched, ch, nil)

	var reasons []DropReason
	a.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})

	at(sched, time.Millisecond, func() {
		require.NoError(t, a.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
	})
	// b was receiving from a; sending aborts that reception
	at(sched, time.Millisecond+100*time.Microsecond, func() {
		require.NoError(t, b.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
		assert.Equal(t, PhyTx, b.State())
	})
	// b outlasts a's TX, so a is CCA_BUSY once its TX ends
	at(sched, time.Millisecond+1400*time.Microsecond, func() {
		assert.Equal(t, PhyCcaBusy, a.State())
	})
	run(t, sched, time.Second)
	assert.Equal(t, []DropReason{DropBusyTx}, reasons)
	assert.Equal(t, PhyIdle, a.State())
}

func TestTooManyStreamsAccumulates(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, func(cfg *Config) { cfg.TxAntennas = 2 })
	rx := newTestPhy(t, 2, sched, ch, nil)

	var reasons []DropReason
	rx.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(500, wifimode.HtModes[8], PreambleHtMf)))
		assert.Equal(t, PhyCcaBusy, rx.State())
	})
	run(t, sched, time.Second)
	assert.Equal(t, []DropReason{DropTooManyStreams}, reasons)
}

func TestReceptionDisabled(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, func(cfg *Config) { cfg.DisableWifiReception = true })

	var arrivals []bool
	rx.AddHooks(Hooks{SignalArrival: func(wifi bool, sender NodeId, _ DbValue, _ time.Duration) {
		arrivals = append(arrivals, wifi)
		assert.Equal(t, NodeId(1), sender)
	}})
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(500, wifimode.HtModes[0], PreambleHtMf)))
		assert.Equal(t, PhyCcaBusy, rx.State())
	})
	run(t, sched, time.Second)
	assert.Equal(t, []bool{true}, arrivals)
}

func TestAggregateReportedOnce(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	okCount := 0
	var completions []bool
	rx.SetReceiveOkCallback(func(frame WifiFrame, _ float64) {
		okCount++
		assert.Equal(t, LastMpduInAggregate, frame.MpduType)
	})
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })

	subframes := make([]WifiFrame, 3)
	for i := range subframes {
		f := testFrame(400, wifimode.HtModes[3], PreambleHtMf)
		f.TxVector.Aggregation = true
		f.MpduType = MpduInAggregate
		f.AmpduMpdus = uint8(3 - i)
		if i > 0 {
			f.TxVector.Preamble = PreambleNone
		}
		subframes[i] = f
	}
	subframes[2].MpduType = LastMpduInAggregate

	var send func(i int)
	send = func(i int) {
		require.NoError(t, tx.SendPacket(subframes[i]))
		if i+1 < len(subframes) {
			sched.Schedule(tx.DelayUntilIdle(), func() { send(i + 1) })
		}
	}
	at(sched, time.Millisecond, func() { send(0) })
	run(t, sched, time.Second)

	assert.Equal(t, 1, okCount)
	assert.Equal(t, []bool{true, true, true}, completions)
	assert.False(t, rx.rx.plcpSuccess)
	assert.Equal(t, uint8(0), rx.rx.mpdusNum)
	assert.Equal(t, uint32(0), rx.rx.rxMpduRef)
	assert.Equal(t, uint32(0), tx.rx.txMpduRef)
}

func TestAggregateCounterResync(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	okCount, errCount := 0, 0
	var completions []bool
	var reasons []DropReason
	rx.SetReceiveOkCallback(func(WifiFrame, float64) { okCount++ })
	rx.SetReceiveErrorCallback(func(WifiFrame, float64) { errCount++ })
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })
	rx.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})

	// the aggregate announces 3 MPDUs, but the second one already says it is the last
	first := testFrame(400, wifimode.HtModes[3], PreambleHtMf)
	first.TxVector.Aggregation = true
	first.MpduType = MpduInAggregate
	first.AmpduMpdus = 3
	last := testFrame(400, wifimode.HtModes[3], PreambleNone)
	last.TxVector.Aggregation = true
	last.MpduType = LastMpduInAggregate
	last.AmpduMpdus = 1
	frames := []WifiFrame{
		first,
		last,
		testFrame(400, wifimode.HtModes[3], PreambleHtMf),
		testFrame(400, wifimode.HtModes[3], PreambleHtMf),
	}

	var send func(i int)
	send = func(i int) {
		require.NoError(t, tx.SendPacket(frames[i]))
		if i == 1 {
			sched.Schedule(tx.DelayUntilIdle(), func() {
				assert.Equal(t, uint8(1), rx.rx.mpdusNum)
				send(2)
			})
			return
		}
		if i+1 < len(frames) {
			sched.Schedule(tx.DelayUntilIdle(), func() { send(i + 1) })
		}
	}
	at(sched, time.Millisecond, func() { send(0) })
	run(t, sched, time.Second)

	// the frame after the incomplete aggregate is lost, the next one gets through
	assert.Equal(t, 2, okCount)
	assert.Equal(t, 1, errCount)
	assert.Equal(t, []bool{true, true, false, true}, completions)
	assert.Equal(t, []DropReason{DropIncompleteAggregate}, reasons)
	assert.Equal(t, uint8(0), rx.rx.mpdusNum)
	assert.False(t, rx.rx.desynced)
}

func TestHeaderFailure(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 160}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, func(cfg *Config) { cfg.FrameSyncModel = framesync.ChannelNone })

	rxBegins, errCount := 0, 0
	var completions []bool
	var reasons []DropReason
	rx.SetReceiveOkCallback(func(WifiFrame, float64) { t.Errorf("unexpected rx ok") })
	rx.SetReceiveErrorCallback(func(WifiFrame, float64) { errCount++ })
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })
	rx.AddHooks(Hooks{
		RxBegin: func(*WifiFrame) { rxBegins++ },
		RxDrop:  func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) },
	})

	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
		assert.Equal(t, PhyRx, rx.State())
	})
	run(t, sched, time.Second)

	assert.Equal(t, 1, rxBegins)
	assert.Equal(t, []DropReason{DropHeaderFailed}, reasons)
	assert.Equal(t, 1, errCount)
	assert.Equal(t, []bool{false}, completions)
	assert.False(t, rx.rx.plcpSuccess)
	assert.Equal(t, PhyIdle, rx.State())
}

func TestUnsupportedModeDroppedAfterHeader(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)
	require.NoError(t, rx.ConfigureStandard(Standard80211a))

	errCount := 0
	var completions []bool
	var reasons []DropReason
	rx.SetReceiveErrorCallback(func(WifiFrame, float64) { errCount++ })
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })
	rx.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})

	frame := testFrame(1030, wifimode.HtModes[0], PreambleHtMf)
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(frame))
	})
	// still in RX after the header: the frame is dropped but its airtime is not
	at(sched, time.Millisecond+wifimode.PreambleAndHeaderDuration(frame.TxVector)+time.Microsecond, func() {
		assert.Equal(t, PhyRx, rx.State())
		assert.Equal(t, []DropReason{DropUnsupportedMode}, reasons)
	})
	run(t, sched, time.Second)

	assert.Equal(t, []DropReason{DropUnsupportedMode}, reasons)
	assert.Equal(t, 1, errCount)
	assert.Equal(t, []bool{false}, completions)
}

func TestArrivalDuringRxOutlastingFoldsIntoCca(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	a := newTestPhy(t, 1, sched, ch, nil)
	b := newTestPhy(t, 2, sched, ch, nil)
	c := newTestPhy(t, 3, sched, ch, nil)

	l := &recordingListener{}
	b.RegisterListener(l)
	var reasons []DropReason
	b.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})

	long := testFrame(1030, wifimode.HtModes[0], PreambleHtMf)
	short := testFrame(100, wifimode.HtModes[0], PreambleHtMf)
	longDuration := wifimode.CalculateTxDuration(long.Size(), long.TxVector, NormalMpdu)
	aEnd := time.Millisecond + longDuration

	at(sched, time.Millisecond, func() {
		require.NoError(t, a.SendPacket(long))
		assert.Equal(t, PhyRx, b.State())
	})
	// ends before b's reception: plain drop
	at(sched, 1100*time.Microsecond, func() {
		require.NoError(t, c.SendPacket(short))
		assert.Equal(t, PhyRx, b.State())
		assert.Equal(t, []string{"rx-start"}, l.events)
	})
	// outlasts b's reception: its energy extends CCA busy
	at(sched, 1500*time.Microsecond, func() {
		require.NoError(t, c.SendPacket(long))
		assert.Equal(t, PhyRx, b.State())
		assert.Equal(t, []string{"rx-start", "cca-busy"}, l.events)
	})
	at(sched, aEnd+100*time.Microsecond, func() {
		assert.Equal(t, PhyCcaBusy, b.State())
	})
	run(t, sched, time.Second)

	assert.Equal(t, []DropReason{DropBusyRx, DropBusyRx}, reasons)
	assert.Equal(t, PhyIdle, b.State())
}

func TestSleepDeferredDuringRx(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	var completions []bool
	rx.SetReceiveCompleteCallback(func(success bool) { completions = append(completions, success) })

	frame := testFrame(1030, wifimode.HtModes[0], PreambleHtMf)
	end := time.Millisecond + wifimode.CalculateTxDuration(frame.Size(), frame.TxVector, NormalMpdu)
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(frame))
	})
	at(sched, 1100*time.Microsecond, func() {
		rx.SetSleepMode()
		assert.Equal(t, PhyRx, rx.State())
	})
	at(sched, end-time.Microsecond, func() {
		assert.Equal(t, PhyRx, rx.State())
	})
	at(sched, end+time.Microsecond, func() {
		assert.Equal(t, PhySleep, rx.State())
	})
	run(t, sched, time.Second)

	assert.Equal(t, []bool{true}, completions)
	assert.Equal(t, PhySleep, rx.State())
}

func TestOtherChannelIgnored(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	noSync := func(cfg *Config) { cfg.FrameSyncModel = framesync.ChannelNone }
	tx := newTestPhy(t, 1, sched, ch, noSync)
	rx := newTestPhy(t, 2, sched, ch, func(cfg *Config) {
		noSync(cfg)
		cfg.ChannelNumber = 40
	})

	arrivals, rxBegins := 0, 0
	rx.AddHooks(Hooks{
		SignalArrival: func(bool, NodeId, DbValue, time.Duration) { arrivals++ },
		RxBegin:       func(*WifiFrame) { rxBegins++ },
	})
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(1000, wifimode.HtModes[0], PreambleHtMf)))
		assert.Equal(t, PhyIdle, rx.State())
		rx.StartRx(foreignSignal(t, DbmToW(-30), time.Millisecond))
		assert.Equal(t, PhyIdle, rx.State())
	})
	run(t, sched, time.Second)

	assert.Equal(t, 0, arrivals)
	assert.Equal(t, 0, rxBegins)
	assert.Equal(t, 0, rx.interference.NumSignals())
}

func TestNewPhyRejectsNilChannelPointer(t *testing.T) {
	_, err := NewPhy(1, DefaultConfig(), event.NewScheduler(), (*testChannel)(nil))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "Channel", cerr.Field)

	p, err := NewPhy(1, DefaultConfig(), event.NewScheduler(), nil)
	require.NoError(t, err)
	p.StartRx(foreignSignal(t, DbmToW(-30), time.Millisecond))
	assert.Equal(t, PhyIdle, p.State())
}

func TestSubframeWithoutPreambleDropped(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	var reasons []DropReason
	rx.AddHooks(Hooks{RxDrop: func(_ *WifiFrame, r DropReason) { reasons = append(reasons, r) }})
	f := testFrame(400, wifimode.HtModes[3], PreambleNone)
	f.MpduType = LastMpduInAggregate
	f.AmpduMpdus = 1
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(f))
		assert.Equal(t, PhyCcaBusy, rx.State())
	})
	run(t, sched, time.Second)
	assert.Equal(t, []DropReason{DropNoPreamble}, reasons)
}

func TestSleepAndResume(t *testing.T) {
	sched := event.NewScheduler()
	p := newTestPhy(t, 1, sched, nil, func(cfg *Config) { cfg.RxGainDb = 0 })

	at(sched, time.Millisecond, func() {
		require.NoError(t, p.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleLong)))
		p.SetSleepMode()
		assert.Equal(t, PhyTx, p.State())
	})
	at(sched, time.Millisecond+1293*time.Microsecond, func() {
		assert.Equal(t, PhySleep, p.State())
	})
	at(sched, 10*time.Millisecond, func() {
		p.StartRx(foreignSignal(t, DbmToW(-40), time.Millisecond))
		assert.Equal(t, PhySleep, p.State())
		p.ResumeFromSleep()
		assert.Equal(t, PhyCcaBusy, p.State())
		assert.Equal(t, time.Millisecond, p.DelayUntilIdle())
	})
	at(sched, 20*time.Millisecond, func() {
		p.ResumeFromSleep()
		assert.Equal(t, PhyIdle, p.State())
	})
	run(t, sched, time.Second)
}

func TestChannelSwitch(t *testing.T) {
	sched := event.NewScheduler()
	cfg := DefaultConfig()
	p, err := NewPhy(1, cfg, sched, nil)
	require.NoError(t, err)

	require.NoError(t, p.SetChannelNumber(40))
	assert.Equal(t, PhyIdle, p.State())
	require.NoError(t, p.Initialize())
	assert.Equal(t, ChannelNumber(40), p.ChannelNumber())
	assert.Equal(t, uint16(5200), p.ChannelFrequencyMhz())

	assert.Error(t, p.SetChannelNumber(41))

	at(sched, time.Millisecond, func() {
		require.NoError(t, p.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleLong)))
		require.NoError(t, p.SetChannelNumber(44))
		assert.Equal(t, ChannelNumber(40), p.ChannelNumber())
	})
	at(sched, time.Millisecond+1293*time.Microsecond, func() {
		assert.Equal(t, PhySwitching, p.State())
		assert.Equal(t, ChannelNumber(44), p.ChannelNumber())
		assert.Equal(t, 249*time.Microsecond, p.DelayUntilIdle())
	})
	at(sched, time.Millisecond+1542*time.Microsecond, func() {
		assert.Equal(t, PhyIdle, p.State())
	})
	run(t, sched, time.Second)
}

func TestChannelSwitchAbortsReception(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	completions := 0
	rx.SetReceiveCompleteCallback(func(bool) { completions++ })
	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
	})
	at(sched, time.Millisecond+100*time.Microsecond, func() {
		assert.Equal(t, PhyRx, rx.State())
		require.NoError(t, rx.SetChannelNumber(40))
		assert.Equal(t, PhySwitching, rx.State())
	})
	run(t, sched, time.Second)
	assert.Equal(t, 0, completions)
	assert.Equal(t, PhyIdle, rx.State())
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) NotifyRxStart(time.Duration) { l.events = append(l.events, "rx-start") }
func (l *recordingListener) NotifyRxEndOk() { l.events = append(l.events, "rx-ok") }
func (l *recordingListener) NotifyRxEndError() { l.events = append(l.events, "rx-error") }
func (l *recordingListener) NotifyTxStart(time.Duration, DbValue) { l.events = append(l.events, "tx-start") }
func (l *recordingListener) NotifyMaybeCcaBusyStart(time.Duration) { l.events = append(l.events, "cca-busy") }
func (l *recordingListener) NotifySwitchingStart(time.Duration) { l.events = append(l.events, "switching") }
func (l *recordingListener) NotifySleep() { l.events = append(l.events, "sleep") }
func (l *recordingListener) NotifyWakeup() { l.events = append(l.events, "wakeup") }

func TestListenerAndStateLog(t *testing.T) {
	sched := event.NewScheduler()
	ch := &testChannel{lossDb: 60}
	tx := newTestPhy(t, 1, sched, ch, nil)
	rx := newTestPhy(t, 2, sched, ch, nil)

	l := &recordingListener{}
	rx.RegisterListener(l)
	total := map[PhyState]time.Duration{}
	rx.SetStateLogger(func(start, d time.Duration, st PhyState) { total[st] += d })

	at(sched, time.Millisecond, func() {
		require.NoError(t, tx.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
	})
	at(sched, 5*time.Millisecond, func() {
		require.NoError(t, rx.SendPacket(testFrame(1030, wifimode.HtModes[0], PreambleHtMf)))
	})
	at(sched, 10*time.Millisecond, func() {
		rx.SetSleepMode()
		rx.UnregisterListener(l)
		rx.ResumeFromSleep()
	})
	run(t, sched, 20*time.Millisecond)
	rx.FlushStateLog()

	assert.Equal(t, []string{"rx-start", "rx-ok", "tx-start", "sleep"}, l.events)
	sum := time.Duration(0)
	for _, d := range total {
		sum += d
	}
	assert.Equal(t, 20*time.Millisecond, sum)
	txDuration := wifimode.CalculateTxDuration(1030, wifimode.NewTxVector(wifimode.HtModes[0], 0, PreambleHtMf), NormalMpdu)
	assert.Equal(t, txDuration, total[PhyRx])
	assert.Equal(t, txDuration, total[PhyTx])
}
