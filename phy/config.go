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
	"strings"
	"time"

	"github.com/openthread/ot-lbtsim/framesync"
	"github.com/openthread/ot-lbtsim/spectrum"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

type Standard byte

const (
	Standard80211a Standard = iota
	Standard80211n5GHz
)

func (s Standard) String() string {
	switch s {
	case Standard80211a:
		return "802.11a"
	case Standard80211n5GHz:
		return "802.11n-5GHz"
	default:
		return "invalid"
	}
}

// ParseStandard accepts the names returned by Standard.String and the short forms "a" and "n".
func ParseStandard(s string) (Standard, error) {
	switch strings.ToLower(s) {
	case "802.11a", "a", "80211a":
		return Standard80211a, nil
	case "802.11n-5ghz", "802.11n", "n", "80211n":
		return Standard80211n5GHz, nil
	default:
		return Standard80211a, configErrorf("Standard", "unknown standard %q", s)
	}
}

// Config holds the PHY attributes. Use DefaultConfig as a starting point.
type Config struct {
	Standard             Standard
	ChannelNumber        ChannelNumber
	CcaMode1ThresholdDbm DbValue
	DisableWifiReception bool
	TxGainDb             DbValue
	RxGainDb             DbValue
	TxPowerLevels        uint8
	TxPowerStartDbm      DbValue
	TxPowerEndDbm        DbValue
	RxNoiseFigureDb      DbValue
	ChannelSwitchDelay   time.Duration
	ChannelWidth         uint16
	TxAntennas           uint8
	RxAntennas           uint8
	ShortGuardInterval   bool
	FrameSyncModel       framesync.ChannelModel
}

func DefaultConfig() Config {
	return Config{
		Standard:             Standard80211n5GHz,
		ChannelNumber:        36,
		CcaMode1ThresholdDbm: -62.0,
		TxGainDb:             1.0,
		RxGainDb:             1.0,
		TxPowerLevels:        1,
		TxPowerStartDbm:      16.0206,
		TxPowerEndDbm:        16.0206,
		RxNoiseFigureDb:      7,
		ChannelSwitchDelay:   250 * time.Microsecond,
		ChannelWidth:         20,
		TxAntennas:           1,
		RxAntennas:           1,
		FrameSyncModel:       framesync.ChannelAwgn,
	}
}

// Validate checks the config for combinations the PHY cannot model.
func (c *Config) Validate() error {
	if !spectrum.IsValidChannel(c.ChannelNumber) {
		return configErrorf("ChannelNumber", "unsupported channel %d", c.ChannelNumber)
	}
	if c.ChannelWidth != 20 {
		return configErrorf("ChannelWidth", "only 20 MHz supported, got %d", c.ChannelWidth)
	}
	if c.TxPowerLevels == 0 {
		return configErrorf("TxPowerLevels", "must be at least 1")
	}
	if c.TxPowerStartDbm > c.TxPowerEndDbm {
		return configErrorf("TxPowerStartDbm", "start %.4f dBm above end %.4f dBm", c.TxPowerStartDbm, c.TxPowerEndDbm)
	}
	if c.TxPowerLevels == 1 && c.TxPowerStartDbm != c.TxPowerEndDbm {
		return configErrorf("TxPowerEndDbm", "cannot differ from TxPowerStartDbm with a single power level")
	}
	if c.RxAntennas < 1 || c.RxAntennas > 2 {
		return configErrorf("RxAntennas", "only 1 or 2 supported, got %d", c.RxAntennas)
	}
	if c.TxAntennas < 1 {
		return configErrorf("TxAntennas", "must be at least 1")
	}
	if c.ChannelSwitchDelay < 0 {
		return configErrorf("ChannelSwitchDelay", "negative delay %v", c.ChannelSwitchDelay)
	}
	if c.Standard != Standard80211a && c.Standard != Standard80211n5GHz {
		return configErrorf("Standard", "unsupported standard %d", c.Standard)
	}
	return nil
}

// deviceModes returns the non-HT rates and the HT MCSs supported for the standard.
func deviceModes(c *Config) (rates []wifimode.WifiMode, mcs []wifimode.WifiMode) {
	switch c.Standard {
	case Standard80211a:
		rates = append(rates, wifimode.OfdmModes...)
	case Standard80211n5GHz:
		rates = []wifimode.WifiMode{wifimode.OfdmRate6Mbps, wifimode.OfdmRate12Mbps, wifimode.OfdmRate24Mbps}
		mcs = append(mcs, wifimode.HtModes[:8]...)
		if c.RxAntennas == 2 {
			mcs = append(mcs, wifimode.HtModes[8:]...)
		}
	}
	return
}
