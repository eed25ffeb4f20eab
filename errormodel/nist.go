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

	"github.com/openthread/ot-lbtsim/wifimode"
)

// Nist is the generic OFDM error model: uncoded BER of the constellation, bounded for the convolutional
// code rate.
type Nist struct{}

func (n Nist) ChunkSuccessRate(mode wifimode.WifiMode, tx wifimode.TxVector, snr float64, nbits uint64) (float64, error) {
	var ber float64
	switch mode.Constellation {
	case 2:
		ber = bpskBer(snr)
	case 4:
		ber = qpskBer(snr)
	case 16:
		ber = qam16Ber(snr)
	case 64:
		ber = qam64Ber(snr)
	default:
		return 0, errors.Wrapf(ErrUnsupportedModulation, "constellation size %d", mode.Constellation)
	}
	return fecSuccessRate(ber, mode.CodeRate, nbits), nil
}

func bpskBer(snr float64) float64 {
	return 0.5 * math.Erfc(math.Sqrt(snr))
}

func qpskBer(snr float64) float64 {
	return 0.5 * math.Erfc(math.Sqrt(snr/2.0))
}

func qam16Ber(snr float64) float64 {
	return 0.75 * 0.5 * math.Erfc(math.Sqrt(snr/(5.0*2.0)))
}

func qam64Ber(snr float64) float64 {
	return 7.0 / 12.0 * 0.5 * math.Erfc(math.Sqrt(snr/(21.0*2.0)))
}

func fecSuccessRate(ber float64, rate wifimode.CodeRate, nbits uint64) float64 {
	if ber == 0.0 {
		return 1.0
	}
	pe := math.Min(codedErrorBound(ber, rate), 1.0)
	return math.Pow(1-pe, float64(nbits))
}

// weights of the union bound terms D^d, starting at the free distance of each code.
var (
	weights1_2 = []float64{36, 211, 1404, 11633, 77433, 502690, 3322763, 21292910, 134365911}
	weights2_3 = []float64{3, 70, 285, 1276, 6160, 27128, 117019, 498860, 2103891, 8784123}
	weights3_4 = []float64{42, 201, 1492, 10469, 62935, 379644, 2253373, 13073811, 75152755, 428005675}
	weights5_6 = []float64{92, 528, 8694, 79453, 792114, 7375573, 67884974, 610875423, 5427275376, 47664215639}
)

// codedErrorBound is the first-event error probability of the punctured rate-1/2 K=7 code.
func codedErrorBound(p float64, rate wifimode.CodeRate) float64 {
	d := math.Sqrt(4.0 * p * (1.0 - p))
	sum := func(weights []float64, firstExp int, step int) float64 {
		pe := 0.0
		for i, w := range weights {
			pe += w * math.Pow(d, float64(firstExp+i*step))
		}
		return pe
	}
	switch rate {
	case wifimode.CodeRate1_2:
		return 0.5 * sum(weights1_2, 10, 2)
	case wifimode.CodeRate2_3:
		return 1.0 / (2.0 * 2.0) * sum(weights2_3, 6, 1)
	case wifimode.CodeRate3_4:
		return 1.0 / (2.0 * 3.0) * sum(weights3_4, 5, 1)
	case wifimode.CodeRate5_6:
		return 1.0 / (2.0 * 5.0) * sum(weights5_6, 4, 1)
	default:
		return 1.0
	}
}
