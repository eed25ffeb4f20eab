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

// Package wifimode holds the OFDM and HT transmission modes, the TX vector, and the PLCP duration rules.
package wifimode

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

type ModulationClass byte

const (
	ModClassOfdm ModulationClass = iota
	ModClassHt
)

func (c ModulationClass) String() string {
	if c == ModClassHt {
		return "HT"
	}
	return "OFDM"
}

// CodeRate is a convolutional code rate.
type CodeRate byte

const (
	CodeRate1_2 CodeRate = iota
	CodeRate2_3
	CodeRate3_4
	CodeRate5_6
)

func (r CodeRate) Ratio() float64 {
	switch r {
	case CodeRate1_2:
		return 1.0 / 2
	case CodeRate2_3:
		return 2.0 / 3
	case CodeRate3_4:
		return 3.0 / 4
	case CodeRate5_6:
		return 5.0 / 6
	default:
		return 0
	}
}

// WifiMode is a PHY transmission mode. Modes are compared by value.
type WifiMode struct {
	Name          string
	Class         ModulationClass
	Mcs           uint8
	Constellation uint16
	CodeRate      CodeRate
	// data rate in bps of a 20 MHz OFDM channel; HT rates are derived from the MCS
	ofdmRate uint64
}

var ErrUnknownMode = errors.New("unknown wifi mode")

func (m WifiMode) String() string {
	return m.Name
}

func (m WifiMode) IsHt() bool {
	return m.Class == ModClassHt
}

// Nss returns the number of spatial streams implied by the mode (HT MCS 8-15 use two).
func (m WifiMode) Nss() uint8 {
	if m.IsHt() {
		return m.Mcs/8 + 1
	}
	return 1
}

// BitsPerSubcarrier returns log2 of the constellation size.
func (m WifiMode) BitsPerSubcarrier() float64 {
	return math.Log2(float64(m.Constellation))
}

// DataRate returns the data rate in bps for the given channel width (MHz) and guard interval.
func (m WifiMode) DataRate(channelWidth uint16, shortGuardInterval bool) uint64 {
	if !m.IsHt() {
		if channelWidth == 20 || channelWidth == 0 {
			return m.ofdmRate
		}
		return m.ofdmRate * uint64(channelWidth) / 20
	}
	return uint64(math.Round(m.BitsPerSymbol(channelWidth) / SymbolDuration(m, shortGuardInterval).Seconds()))
}

// BitsPerSymbol returns the data bits carried by one OFDM symbol, over all spatial streams.
func (m WifiMode) BitsPerSymbol(channelWidth uint16) float64 {
	var bits float64
	if !m.IsHt() {
		bits = float64(m.DataRate(channelWidth, false)) * 4e-6
	} else {
		bits = float64(dataSubcarriers(channelWidth)) * m.BitsPerSubcarrier() * m.CodeRate.Ratio() * float64(m.Nss())
	}
	return math.Round(bits*1000) / 1000
}

func dataSubcarriers(channelWidth uint16) int {
	if channelWidth == 40 {
		return 108
	}
	return 52
}

func newOfdm(rateMbps float64, constellation uint16, cr CodeRate) WifiMode {
	return WifiMode{
		Name:          fmt.Sprintf("OfdmRate%gMbps", rateMbps),
		Class:         ModClassOfdm,
		Constellation: constellation,
		CodeRate:      cr,
		ofdmRate:      uint64(rateMbps * 1e6),
	}
}

func newHt(mcs uint8) WifiMode {
	constellations := []uint16{2, 4, 4, 16, 16, 64, 64, 64}
	rates := []CodeRate{CodeRate1_2, CodeRate1_2, CodeRate3_4, CodeRate1_2, CodeRate3_4, CodeRate2_3, CodeRate3_4, CodeRate5_6}
	return WifiMode{
		Name:          fmt.Sprintf("HtMcs%d", mcs),
		Class:         ModClassHt,
		Mcs:           mcs,
		Constellation: constellations[mcs%8],
		CodeRate:      rates[mcs%8],
	}
}

var (
	OfdmRate6Mbps  = newOfdm(6, 2, CodeRate1_2)
	OfdmRate9Mbps  = newOfdm(9, 2, CodeRate3_4)
	OfdmRate12Mbps = newOfdm(12, 4, CodeRate1_2)
	OfdmRate18Mbps = newOfdm(18, 4, CodeRate3_4)
	OfdmRate24Mbps = newOfdm(24, 16, CodeRate1_2)
	OfdmRate36Mbps = newOfdm(36, 16, CodeRate3_4)
	OfdmRate48Mbps = newOfdm(48, 64, CodeRate2_3)
	OfdmRate54Mbps = newOfdm(54, 64, CodeRate3_4)

	OfdmModes = []WifiMode{OfdmRate6Mbps, OfdmRate9Mbps, OfdmRate12Mbps, OfdmRate18Mbps,
		OfdmRate24Mbps, OfdmRate36Mbps, OfdmRate48Mbps, OfdmRate54Mbps}
	HtModes = makeHtModes()
)

func makeHtModes() []WifiMode {
	modes := make([]WifiMode, 16)
	for i := range modes {
		modes[i] = newHt(uint8(i))
	}
	return modes
}

// HtMcs returns the HT mode of the given MCS index (0-15).
func HtMcs(mcs uint8) (WifiMode, error) {
	if int(mcs) >= len(HtModes) {
		return WifiMode{}, errors.Wrapf(ErrUnknownMode, "HT MCS %d", mcs)
	}
	return HtModes[mcs], nil
}

// ByName finds a mode by its name, e.g. "OfdmRate6Mbps" or "HtMcs7".
func ByName(name string) (WifiMode, error) {
	for _, m := range OfdmModes {
		if m.Name == name {
			return m, nil
		}
	}
	for _, m := range HtModes {
		if m.Name == name {
			return m, nil
		}
	}
	return WifiMode{}, errors.Wrapf(ErrUnknownMode, "%s", name)
}
