// Copyright (c) 2020-2024, The OTNS Authors.
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

package channel

import (
	"math"

	. "github.com/openthread/ot-lbtsim/types"
)

// pathLossDb returns the propagation loss over dist position units.
func pathLossDb(dist float64, params *ModelParams) DbValue {
	switch params.Model {
	case PathLossFixed:
		return params.FixedLossDb
	case PathLossItu:
		return pathLossItu(dist, params)
	default:
		return pathLoss3gpp(dist, params)
	}
}

// pathLossItu uses a simple indoor exponent loss model.
// See https://en.wikipedia.org/wiki/ITU_model_for_indoor_attenuation
func pathLossItu(dist float64, params *ModelParams) DbValue {
	pathloss := 0.0
	distMeters := dist * params.MeterPerUnit
	if distMeters >= 0.01 {
		pathloss = params.ExponentDb*math.Log10(distMeters) + params.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
	}
	return pathloss
}

// pathLoss3gpp uses the Indoor/Office model of 3GPP TR 38.901 V17.0.0, Table 7.4.1-1, taking the larger
// of the LOS and NLOS losses.
func pathLoss3gpp(dist float64, params *ModelParams) DbValue {
	pathloss := 0.0
	distMeters := dist * params.MeterPerUnit
	if distMeters >= 0.01 {
		pathloss = params.ExponentDb*math.Log10(distMeters) + params.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
		if params.NlosExponentDb > 0.0 {
			pathlossNLOS := params.NlosExponentDb*math.Log10(distMeters) + params.NlosFixedLossDb
			pathloss = math.Max(pathloss, pathlossNLOS)
		}
	}
	return pathloss
}
