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

// Package spectrum models power spectral densities over the 5 GHz Wi-Fi band.
package spectrum

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	. "github.com/openthread/ot-lbtsim/types"
)

const (
	NumBands       = 145
	BandWidthHz    = 5e6
	StartFreqHz    = 5140e6
	ChannelWidth   = 20 // MHz
	bandsPerChan   = ChannelWidth * 1e6 / BandWidthHz
	baseFreqMhz    = 5000
	channelStepMhz = 5
)

var ErrUnsupportedChannel = errors.New("unsupported channel")

// Band is one frequency band of a Model, in Hz.
type Band struct {
	Fl, Fc, Fh float64
}

// Model is a set of contiguous frequency bands.
type Model struct {
	Bands  []Band
	widths []float64
}

// Wifi5GHz spans channels 36 to 165, including guard bands: 145 bands of 5 MHz from 5140 MHz.
var Wifi5GHz = newWifi5GHzModel()

func newWifi5GHzModel() *Model {
	m := &Model{
		Bands:  make([]Band, NumBands),
		widths: make([]float64, NumBands),
	}
	for i := range m.Bands {
		fl := StartFreqHz + float64(i)*BandWidthHz
		m.Bands[i] = Band{Fl: fl, Fc: fl + BandWidthHz/2, Fh: fl + BandWidthHz}
		m.widths[i] = BandWidthHz
	}
	return m
}

func (m *Model) NumBands() int {
	return len(m.Bands)
}

// IsValidChannel returns true for the 20 MHz channels 36-64, 100-144 and 149-165.
func IsValidChannel(ch ChannelNumber) bool {
	switch {
	case ch >= 36 && ch <= 64:
		return ch%4 == 0
	case ch >= 100 && ch <= 144:
		return ch%4 == 0
	case ch >= 149 && ch <= 165:
		return (ch-149)%4 == 0
	default:
		return false
	}
}

// FrequencyForChannel returns the center frequency of a 20 MHz channel in MHz.
func FrequencyForChannel(ch ChannelNumber) (uint16, error) {
	if !IsValidChannel(ch) {
		return 0, errors.Wrapf(ErrUnsupportedChannel, "channel %d", ch)
	}
	return baseFreqMhz + channelStepMhz*ch, nil
}

// firstBand returns the index of the lowest 5 MHz band covered by the channel.
func firstBand(ch ChannelNumber) (int, error) {
	fc, err := FrequencyForChannel(ch)
	if err != nil {
		return 0, err
	}
	return (int(fc) - ChannelWidth/2 - int(StartFreqHz/1e6)) / (BandWidthHz / 1e6), nil
}

// OperationalChannelList returns the 20 MHz channels that make up the operating channel.
func OperationalChannelList(ch ChannelNumber) []ChannelNumber {
	if ch >= 36 && ch <= 48 {
		return []ChannelNumber{48, 44, 40, 36}
	}
	return []ChannelNumber{ch}
}

// TxPowerSpectralDensity spreads txPowerW evenly over the four 5 MHz bands of channel ch.
func TxPowerSpectralDensity(txPowerW float64, ch ChannelNumber) (*Value, error) {
	first, err := firstBand(ch)
	if err != nil {
		return nil, err
	}
	v := NewValue(Wifi5GHz)
	perBand := txPowerW / bandsPerChan
	for i := first; i < first+bandsPerChan; i++ {
		b := Wifi5GHz.Bands[i]
		v.vals[i] = perBand / (b.Fh - b.Fl)
	}
	return v, nil
}

// RfFilter is a perfect 20 MHz window over channel ch.
func RfFilter(ch ChannelNumber) (*Value, error) {
	first, err := firstBand(ch)
	if err != nil {
		return nil, err
	}
	v := NewValue(Wifi5GHz)
	for i := first; i < first+bandsPerChan; i++ {
		v.vals[i] = 1
	}
	return v, nil
}

// NoisePowerSpectralDensity is the thermal noise PSD kT (at 290 K), raised by the receiver noise figure.
func NoisePowerSpectralDensity(noiseFigureDb DbValue) *Value {
	v := NewValue(Wifi5GHz)
	floats.AddConst(DbmToW(ThermalNoiseDbmPerHz)*DbToRatio(noiseFigureDb), v.vals)
	return v
}
