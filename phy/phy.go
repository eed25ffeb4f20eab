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
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/errormodel"
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/framesync"
	"github.com/openthread/ot-lbtsim/interference"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/prng"
	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// ReceiveOkCallback gets a frame that was received without error, with the payload SNR (linear).
type ReceiveOkCallback func(frame WifiFrame, snr float64)

// ReceiveErrorCallback gets a frame whose reception failed at the end of the PHY frame.
type ReceiveErrorCallback func(frame WifiFrame, snr float64)

// reception is the bookkeeping of the frame being received and of the current A-MPDU.
type reception struct {
	current     interference.Handle
	plcpSuccess bool
	desynced    bool // a new PHY frame arrived before the previous aggregate was complete
	mpdusNum    uint8
	rxMpduRef   uint32
	txMpduRef   uint32
}

// Phy is a spectrum Wi-Fi PHY on one node.
type Phy struct {
	id           NodeId
	cfg          Config
	sched        *event.Scheduler
	channel      Channel
	state        *StateHelper
	interference *interference.Helper
	errorModel   *errormodel.FreqSelective
	frameSync    *framesync.Lookup
	random       *prng.Uniform
	log          *logger.PhyLogger
	hooks        []Hooks

	initialized    bool
	channelFreqMhz uint16
	rxFilter       *spectrum.Value
	rates          []wifimode.WifiMode
	mcs            []wifimode.WifiMode

	endPlcpRxEvent event.Id
	endRxEvent     event.Id
	rx             reception

	receiveOk       ReceiveOkCallback
	receiveError    ReceiveErrorCallback
	receiveComplete func(success bool)
}

// NewPhy creates a PHY from a validated config. It must be initialized before it sends or receives.
// channel may be nil, in which case transmissions reach nobody.
func NewPhy(id NodeId, cfg Config, sched *event.Scheduler, channel Channel) (*Phy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if channel != nil {
		if v := reflect.ValueOf(channel); v.Kind() == reflect.Ptr && v.IsNil() {
			return nil, configErrorf("Channel", "nil %T", channel)
		}
	}
	em := errormodel.NewFreqSelective(cfg.RxAntennas)
	p := &Phy{
		id:           id,
		cfg:          cfg,
		sched:        sched,
		channel:      channel,
		state:        NewStateHelper(sched),
		interference: interference.NewHelper(sched, em),
		errorModel:   em,
		frameSync:    framesync.NewLookup(cfg.FrameSyncModel),
		random:       prng.NewUniform(prng.NewPhyRandomSeed()),
		log:          logger.GetPhyLogger(id),
		rx: reception{
			rxMpduRef: 0xffffffff,
			txMpduRef: 0xffffffff,
		},
	}
	p.log.SetClock(sched.Now)
	p.interference.SetNoiseFigure(cfg.RxNoiseFigureDb)
	p.rates, p.mcs = deviceModes(&cfg)
	return p, nil
}

// Initialize tunes the receiver to the configured channel and makes the PHY operational.
func (p *Phy) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := p.tune(p.cfg.ChannelNumber); err != nil {
		return err
	}
	p.initialized = true
	p.log.Debugf("initialized: %s channel %d (%d MHz)", p.cfg.Standard, p.cfg.ChannelNumber, p.channelFreqMhz)
	return nil
}

func (p *Phy) tune(ch ChannelNumber) error {
	freq, err := spectrum.FrequencyForChannel(ch)
	if err != nil {
		return err
	}
	filter, err := spectrum.RfFilter(ch)
	if err != nil {
		return err
	}
	p.cfg.ChannelNumber = ch
	p.channelFreqMhz = freq
	p.rxFilter = filter
	return nil
}

func (p *Phy) Id() NodeId {
	return p.id
}

func (p *Phy) Config() Config {
	return p.cfg
}

func (p *Phy) Now() time.Duration {
	return p.sched.Now()
}

func (p *Phy) State() PhyState {
	return p.state.State()
}

func (p *Phy) StateHelper() *StateHelper {
	return p.state
}

func (p *Phy) IsInitialized() bool {
	return p.initialized
}

func (p *Phy) ChannelNumber() ChannelNumber {
	return p.cfg.ChannelNumber
}

func (p *Phy) ChannelFrequencyMhz() uint16 {
	return p.channelFreqMhz
}

func (p *Phy) ChannelWidth() uint16 {
	return p.cfg.ChannelWidth
}

// OperationalChannelList returns the 20 MHz channels covered by the current channel.
func (p *Phy) OperationalChannelList() []ChannelNumber {
	return spectrum.OperationalChannelList(p.cfg.ChannelNumber)
}

func (p *Phy) DelayUntilIdle() time.Duration {
	return p.state.DelayUntilIdle()
}

func (p *Phy) LastRxStartTime() time.Duration {
	return p.state.LastRxStartTime()
}

func (p *Phy) CcaMode1ThresholdDbm() DbValue {
	return p.cfg.CcaMode1ThresholdDbm
}

// SetCcaMode1Threshold sets the energy level at or above which the medium is sensed busy.
func (p *Phy) SetCcaMode1Threshold(dbm DbValue) {
	p.log.Debugf("CCA mode 1 threshold %.1f dBm", dbm)
	p.cfg.CcaMode1ThresholdDbm = dbm
}

// SetRxGain sets the receive antenna gain. Only signals arriving afterwards are affected.
func (p *Phy) SetRxGain(db DbValue) {
	p.cfg.RxGainDb = db
}

func (p *Phy) SetTxGain(db DbValue) {
	p.cfg.TxGainDb = db
}

func (p *Phy) SetDisableWifiReception(disable bool) {
	p.cfg.DisableWifiReception = disable
}

// SetRxNoiseFigure sets the receiver noise figure in dB.
func (p *Phy) SetRxNoiseFigure(db DbValue) {
	p.cfg.RxNoiseFigureDb = db
	p.interference.SetNoiseFigure(db)
}

// FrameSync returns the frame synchronization table, e.g. to add user datapoints before the first reception.
func (p *Phy) FrameSync() *framesync.Lookup {
	return p.frameSync
}

func (p *Phy) RegisterListener(l Listener) {
	p.state.RegisterListener(l)
}

func (p *Phy) UnregisterListener(l Listener) {
	p.state.UnregisterListener(l)
}

func (p *Phy) SetStateLogger(l StateLogger) {
	p.state.SetStateLogger(l)
}

func (p *Phy) SetReceiveOkCallback(cb ReceiveOkCallback) {
	p.receiveOk = cb
}

func (p *Phy) SetReceiveErrorCallback(cb ReceiveErrorCallback) {
	p.receiveError = cb
}

// SetReceiveCompleteCallback sets a callback that fires at the end of every reception attempt.
func (p *Phy) SetReceiveCompleteCallback(cb func(success bool)) {
	p.receiveComplete = cb
}

// PowerDbm returns the nominal TX power of a power level, before antenna gain.
func (p *Phy) PowerDbm(level uint8) DbValue {
	logger.AssertTrue(level < p.cfg.TxPowerLevels, "power level %d out of range", level)
	if p.cfg.TxPowerLevels > 1 {
		step := (p.cfg.TxPowerEndDbm - p.cfg.TxPowerStartDbm) / DbValue(p.cfg.TxPowerLevels-1)
		return p.cfg.TxPowerStartDbm + DbValue(level)*step
	}
	return p.cfg.TxPowerStartDbm
}

// ConfigureStandard selects the standard, which sets the supported rate and MCS sets.
func (p *Phy) ConfigureStandard(std Standard) error {
	if std != Standard80211a && std != Standard80211n5GHz {
		return configErrorf("Standard", "unsupported standard %d", std)
	}
	p.cfg.Standard = std
	p.rates, p.mcs = deviceModes(&p.cfg)
	return nil
}

// IsModeSupported reports whether a non-HT rate is in the device rate set.
func (p *Phy) IsModeSupported(mode wifimode.WifiMode) bool {
	for _, m := range p.rates {
		if m.Name == mode.Name {
			return true
		}
	}
	return false
}

// IsMcsSupported reports whether an HT MCS is in the device MCS set.
func (p *Phy) IsMcsSupported(mode wifimode.WifiMode) bool {
	for _, m := range p.mcs {
		if m.Name == mode.Name {
			return true
		}
	}
	return false
}

func (p *Phy) isSupported(mode wifimode.WifiMode) bool {
	if mode.IsHt() {
		return p.IsMcsSupported(mode)
	}
	return p.IsModeSupported(mode)
}

func (p *Phy) SupportedModes() []wifimode.WifiMode {
	return append([]wifimode.WifiMode(nil), p.rates...)
}

func (p *Phy) SupportedMcs() []wifimode.WifiMode {
	return append([]wifimode.WifiMode(nil), p.mcs...)
}

// CalculateSnr returns the SNR (linear) at which tx reaches the given bit error rate.
func (p *Phy) CalculateSnr(tx wifimode.TxVector, ber float64) (float64, error) {
	return errormodel.CalculateSnr(p.errorModel, tx, ber)
}

// CcaBusyDuration returns how long the energy on the medium stays at or above the CCA threshold.
func (p *Phy) CcaBusyDuration() time.Duration {
	return p.interference.EnergyDuration(DbmToW(p.cfg.CcaMode1ThresholdDbm))
}

// maybeCcaBusy extends CCA_BUSY while the energy on the medium is at or above the CCA threshold.
func (p *Phy) maybeCcaBusy() {
	if d := p.CcaBusyDuration(); d != 0 {
		p.state.SwitchMaybeToCcaBusy(d)
	}
}

// fail aborts the simulation with an error raised inside an event.
func (p *Phy) fail(err error, format string, args ...interface{}) {
	err = errors.Wrapf(err, format, args...)
	p.log.Error(err)
	p.sched.Fail(err)
}

// dataRate500Kbps returns the data rate as reported to a monitor: the MCS plus 128 for HT, else the rate
// in units of 500 kbit/s.
func dataRate500Kbps(tx wifimode.TxVector) uint32 {
	if tx.Mode.IsHt() {
		return 128 + uint32(tx.Mode.Mcs)
	}
	return uint32(tx.Mode.DataRate(tx.ChannelWidth, tx.ShortGuardInterval) * uint64(tx.Nss) / 500000)
}

// FlushStateLog logs the time spent in the current state so far.
func (p *Phy) FlushStateLog() {
	p.state.FlushStateLog()
}

// Close releases the PHY log file.
func (p *Phy) Close() {
	p.log.Close()
}
