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

package errormodel

import (
	"math"

	"github.com/pkg/errors"

	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// berCurve is a log-linear BER curve: ber = 10^(p1*snrDb + p2) at or above minSnrDb, 1 below it.
type berCurve struct {
	minSnrDb float64
	p1, p2   float64
}

func (c berCurve) ber(snrDb float64) float64 {
	if snrDb < c.minSnrDb {
		return 1
	}
	return math.Pow(10, c.p1*snrDb+c.p2)
}

var (
	// HT MCS 0-7 with 1 spatial stream, and MCS 8-15 with 2 spatial streams, received on 2 antennas.
	htCurves2Rx = []berCurve{
		{-5.1, -0.300827, -3.756085},
		{-1.6, -0.309238, -2.965011},
		{1.4, -0.237281, -2.405734},
		{3.3, -0.359498, -1.821525},
		{7.3, -0.246839, -1.573179},
		{11.3, -0.239672, -0.664214},
		{12.6, -0.249975, -0.241742},
		{14.8, -0.250718, 0.350541},
		{6.0, -0.331433, -1.707058},
		{9.0, -0.327923, -0.512829},
		{12.0, -0.250134, -0.312513},
		{15.0, -0.293255, 1.055878},
		{18.0, -0.225802, 0.830230},
		{24.0, -0.265136, 2.807394},
		{24.0, -0.229463, 2.290292},
		{27.0, -0.159535, 0.688334},
	}
	// HT MCS 0-7, 1 spatial stream, 1 rx antenna.
	htCurves1Rx = []berCurve{
		{-1.0, -0.187098, -2.378001},
		{3.0, -0.184590, -1.973042},
		{6.0, -0.137791, -1.841526},
		{7.0, -0.223005, -1.841909},
		{11.0, -0.164868, -1.540567},
		{15.0, -0.152820, -1.347143},
		{17.0, -0.151264, -1.188952},
		{19.0, -0.161418, -0.353079},
	}
)

// FreqSelective uses link-simulation BER curves for HT modes on 20 MHz channels, and the Nist model
// for all other modes.
type FreqSelective struct {
	numRxAntennas uint8
	fallback      Nist
}

func NewFreqSelective(numRxAntennas uint8) *FreqSelective {
	return &FreqSelective{
		numRxAntennas: numRxAntennas,
	}
}

func (fs *FreqSelective) SetNumRxAntennas(n uint8) {
	fs.numRxAntennas = n
}

func (fs *FreqSelective) NumRxAntennas() uint8 {
	return fs.numRxAntennas
}

func (fs *FreqSelective) ChunkSuccessRate(mode wifimode.WifiMode, tx wifimode.TxVector, snr float64, nbits uint64) (float64, error) {
	if !mode.IsHt() {
		return fs.fallback.ChunkSuccessRate(mode, tx, snr, nbits)
	}
	if tx.ChannelWidth != 20 {
		return 0, errors.Wrapf(ErrUnsupportedWidth, "width %d MHz", tx.ChannelWidth)
	}
	if snr <= 0 {
		return 0, errors.Wrapf(ErrNonPositiveSnr, "snr=%g", snr)
	}
	if tx.Nss > 2 {
		return 0, errors.Wrapf(ErrUnsupportedNss, "no support for %d spatial streams", tx.Nss)
	}
	ber, err := fs.BitErrorRate(RatioToDb(snr), mode)
	if err != nil {
		return 0, err
	}
	return math.Pow(1-ber, float64(nbits)), nil
}

// BitErrorRate looks up the BER curve of an HT mode for the configured number of rx antennas.
func (fs *FreqSelective) BitErrorRate(snrDb float64, mode wifimode.WifiMode) (float64, error) {
	var curves []berCurve
	switch fs.numRxAntennas {
	case 1:
		curves = htCurves1Rx
	case 2:
		curves = htCurves2Rx
	default:
		return 0, errors.Wrapf(ErrUnsupportedRxAntennas, "%d rx antennas, only 1 or 2 supported", fs.numRxAntennas)
	}
	if !mode.IsHt() || int(mode.Mcs) >= len(curves) {
		return 0, errors.Wrapf(ErrUnsupportedMcs, "%s with %d rx antennas", mode, fs.numRxAntennas)
	}
	return curves[mode.Mcs].ber(snrDb), nil
}
