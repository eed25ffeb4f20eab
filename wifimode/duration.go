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

package wifimode

import (
	"math"
	"time"

	. "github.com/openthread/ot-lbtsim/types"
)

const (
	// serviceBits and tailBits are added to the PSDU of each PHY frame.
	serviceBits = 16
	tailBits    = 6

	// SyncFieldDuration is the L-STF plus L-LTF training field used for frame synchronization.
	SyncFieldDuration = 16 * time.Microsecond
)

// SymbolDuration returns the OFDM symbol duration including guard interval.
func SymbolDuration(mode WifiMode, shortGuardInterval bool) time.Duration {
	if mode.IsHt() && shortGuardInterval {
		return 3600 * time.Nanosecond
	}
	return 4 * time.Microsecond
}

// PreambleDuration is the duration of the legacy training field.
func PreambleDuration(tx TxVector) time.Duration {
	if tx.Preamble == PreambleNone {
		return 0
	}
	return SyncFieldDuration
}

// HeaderDuration is the duration of the L-SIG field.
func HeaderDuration(tx TxVector) time.Duration {
	switch tx.Preamble {
	case PreambleNone, PreambleHtGf:
		return 0
	default:
		return 4 * time.Microsecond
	}
}

// HtSigDuration is the duration of the HT-SIG field.
func HtSigDuration(tx TxVector) time.Duration {
	switch tx.Preamble {
	case PreambleHtMf, PreambleHtGf:
		return 8 * time.Microsecond
	default:
		return 0
	}
}

func numHtLtf(nss uint8) int {
	switch nss {
	case 0, 1:
		return 1
	case 2:
		return 2
	default:
		return 4
	}
}

// HtTrainingDuration is the duration of the HT-STF and HT-LTF fields.
func HtTrainingDuration(tx TxVector) time.Duration {
	nltf := numHtLtf(tx.Nss)
	switch tx.Preamble {
	case PreambleHtMf:
		return time.Duration(4+4*nltf+4*int(tx.Ness)) * time.Microsecond
	case PreambleHtGf:
		return time.Duration(4*nltf+4*int(tx.Ness)) * time.Microsecond
	default:
		return 0
	}
}

// PreambleAndHeaderDuration is everything that precedes the payload.
func PreambleAndHeaderDuration(tx TxVector) time.Duration {
	return PreambleDuration(tx) + HeaderDuration(tx) + HtSigDuration(tx) + HtTrainingDuration(tx)
}

// PayloadBits returns the number of coded-in data bits for an MPDU of the given size. An aggregate
// carries the service bits on its first sub-frame and the tail bits on its last.
func PayloadBits(size int, tx TxVector, mpduType MpduType) int {
	bits := 8 * size
	switch {
	case mpduType == NormalMpdu:
		bits += serviceBits + tailBits
	case mpduType == MpduInAggregate && tx.Preamble != PreambleNone:
		bits += serviceBits
	case mpduType == LastMpduInAggregate:
		bits += tailBits
	}
	return bits
}

// PayloadDuration returns the duration of the payload symbols for an MPDU of the given size in bytes.
func PayloadDuration(size int, tx TxVector, mpduType MpduType) time.Duration {
	bitsPerSymbol := tx.Mode.BitsPerSymbol(tx.ChannelWidth)
	numSymbols := math.Ceil(float64(PayloadBits(size, tx, mpduType)) / bitsPerSymbol)
	return time.Duration(numSymbols) * SymbolDuration(tx.Mode, tx.ShortGuardInterval)
}

// CalculateTxDuration returns the on-air duration of an MPDU of the given size.
func CalculateTxDuration(size int, tx TxVector, mpduType MpduType) time.Duration {
	return PreambleAndHeaderDuration(tx) + PayloadDuration(size, tx, mpduType)
}

// HeaderMode is the mode used to send the L-SIG field.
func HeaderMode(tx TxVector) WifiMode {
	return OfdmRate6Mbps
}

// HtSigMode is the mode used to send the HT-SIG field.
func HtSigMode(tx TxVector) WifiMode {
	return HtModes[0]
}
