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

// Package errormodel computes the probability that a chunk of bits is received without error, given its SNR.
package errormodel

import (
	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/wifimode"
)

var (
	ErrUnsupportedMcs         = errors.New("unsupported MCS for bit error rate lookup")
	ErrUnsupportedWidth       = errors.New("only 20 MHz channel width supported")
	ErrUnsupportedNss         = errors.New("unsupported number of spatial streams")
	ErrUnsupportedRxAntennas  = errors.New("unsupported number of rx antennas")
	ErrUnsupportedModulation  = errors.New("unsupported modulation")
	ErrNonPositiveSnr         = errors.New("SNR ratio must be greater than 0")
	ErrInvalidTargetErrorRate = errors.New("target bit error rate must be in (0, 1)")
)

// Model computes chunk success probabilities. snr is a linear ratio, nbits the chunk size in bits.
type Model interface {
	ChunkSuccessRate(mode wifimode.WifiMode, tx wifimode.TxVector, snr float64, nbits uint64) (float64, error)
}

const (
	snrSearchLow       = 1e-25
	snrSearchHigh      = 1e25
	snrSearchPrecision = 1e-12
)

// CalculateSnr returns the SNR (linear ratio) at which a single bit of tx.Mode is received with the given
// bit error rate. It bisects over the model's chunk success rate.
func CalculateSnr(m Model, tx wifimode.TxVector, ber float64) (float64, error) {
	if ber <= 0 || ber >= 1 {
		return 0, errors.Wrapf(ErrInvalidTargetErrorRate, "ber=%g", ber)
	}
	low, high := snrSearchLow, snrSearchHigh
	for (high-low)/low > snrSearchPrecision {
		middle := low + (high-low)/2
		psr, err := m.ChunkSuccessRate(tx.Mode, tx, middle, 1)
		if err != nil {
			return 0, err
		}
		if 1-psr > ber {
			low = middle
		} else {
			high = middle
		}
	}
	return low, nil
}
