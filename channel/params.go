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
	"strings"

	"github.com/pkg/errors"

	. "github.com/openthread/ot-lbtsim/types"
)

const (
	defaultMeterPerUnit float64 = 1.0 // default distance in meters of one position unit.
	carrierFreqGhz      float64 = 5.18
)

var ErrUnknownPathLossModel = errors.New("unknown path loss model")

type PathLossModel byte

const (
	PathLossLogDistance PathLossModel = iota
	PathLossItu
	PathLossFixed
)

func (m PathLossModel) String() string {
	switch m {
	case PathLossLogDistance:
		return "3gpp"
	case PathLossItu:
		return "itu"
	case PathLossFixed:
		return "fixed"
	default:
		return "invalid"
	}
}

func ParsePathLossModel(s string) (PathLossModel, error) {
	for _, m := range []PathLossModel{PathLossLogDistance, PathLossItu, PathLossFixed} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return PathLossLogDistance, errors.Wrapf(ErrUnknownPathLossModel, "%q", s)
}

// ModelParams stores the propagation model parameters of a channel.
type ModelParams struct {
	Model                PathLossModel
	MeterPerUnit         float64 // the distance in meters of a single position unit
	ExponentDb           DbValue // the exponent (dB) in the regular/LOS model
	FixedLossDb          DbValue // the fixed loss (dB) term in the regular/LOS model
	NlosExponentDb       DbValue // the exponent (dB) in the NLOS model
	NlosFixedLossDb      DbValue // the fixed loss (dB) term in the NLOS model
	ShadowFadingSigmaDb  DbValue // sigma (stddev) of Shadow Fading (SF), in dB
	TimeFadingSigmaMaxDb DbValue // max sigma (stddev) of time-variant fading, in dB
	MeanTimeFadingChange float64 // mean time in sec between changes of the time-variant fading.
}

// NewModelParams returns the parameters of a path loss model at the 5 GHz carrier. Fading is off; enable it
// by setting the sigma values.
func NewModelParams(model PathLossModel) *ModelParams {
	params := &ModelParams{
		Model:        model,
		MeterPerUnit: defaultMeterPerUnit,
	}
	switch model {
	case PathLossLogDistance:
		setIndoorModelParams3gpp(params)
	case PathLossItu:
		setIndoorModelParamsItu(params)
	case PathLossFixed:
		params.FixedLossDb = 0
	}
	return params
}

// NewFixedModelParams returns a model with the same loss on every link.
func NewFixedModelParams(lossDb DbValue) *ModelParams {
	params := NewModelParams(PathLossFixed)
	params.FixedLossDb = lossDb
	return params
}

// ITU-R P.1238 indoor model, office.
func setIndoorModelParamsItu(params *ModelParams) {
	params.ExponentDb = 31.0
	params.FixedLossDb = paround(20.0*math.Log10(carrierFreqGhz*1000) - 28.0)
}

// see 3GPP TR 38.901 V17.0.0, Table 7.4.1-1: Pathloss models, Indoor-Office.
func setIndoorModelParams3gpp(params *ModelParams) {
	params.ExponentDb = 17.3
	params.FixedLossDb = paround(32.4 + 20*math.Log10(carrierFreqGhz))
	params.NlosExponentDb = 38.3
	params.NlosFixedLossDb = paround(17.3 + 24.9*math.Log10(carrierFreqGhz))
}

// custom parameter rounding function
func paround(param float64) float64 {
	return math.Round(param*100.0) / 100.0
}
