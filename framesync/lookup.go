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

// Package framesync maps the SNR of a frame's sync field to the probability that the receiver fails to
// synchronize to it.
package framesync

import (
	"math"
	"slices"

	"github.com/pkg/errors"
)

type ChannelModel byte

const (
	ChannelAwgn ChannelModel = iota
	ChannelD
	ChannelUser
	// ChannelNone always synchronizes.
	ChannelNone
)

func (c ChannelModel) String() string {
	switch c {
	case ChannelAwgn:
		return "awgn"
	case ChannelD:
		return "d"
	case ChannelUser:
		return "user"
	case ChannelNone:
		return "none"
	default:
		return "invalid"
	}
}

// ParseChannelModel parses the names returned by ChannelModel.String.
func ParseChannelModel(s string) (ChannelModel, error) {
	for _, c := range []ChannelModel{ChannelAwgn, ChannelD, ChannelUser, ChannelNone} {
		if c.String() == s {
			return c, nil
		}
	}
	return ChannelAwgn, errors.Errorf("unknown frame sync channel model: %s", s)
}

var (
	ErrNotUserModel       = errors.New("channel model must be 'user' to configure datapoints")
	ErrDecimalsNotSet     = errors.New("number of SNR decimal places must be set before adding datapoints")
	ErrSpacingNotSet      = errors.New("SNR datapoint spacing must be set for a 'user' channel model")
	ErrNoDatapoints       = errors.New("at least one datapoint must be added for a 'user' channel model")
	ErrDuplicateDatapoint = errors.New("duplicate SNR datapoint")
	ErrFrozen             = errors.New("frame sync table is frozen after the first lookup")
	ErrMissingDatapoint   = errors.New("no frame sync error rate stored for SNR")
	ErrInvalidParameter   = errors.New("invalid frame sync parameter")
)

// gridHitTolerance is the relative distance, in grid steps, below which an SNR counts as on the grid.
const gridHitTolerance = 1e-9

// Lookup is a frame synchronization error rate table. Keys are SNRs in dB scaled by 10^decimals and
// rounded, kept sorted. The table is built lazily and frozen by the first lookup.
type Lookup struct {
	model ChannelModel

	keys   []int64
	values []float64

	decimals    int
	decimalsSet bool
	spacing     float64
	spacingSet  bool
	snrMin      float64
	snrMax      float64
	offset      float64
	frozen      bool
}

func NewLookup(model ChannelModel) *Lookup {
	return &Lookup{
		model:   model,
		spacing: 1,
	}
}

func (l *Lookup) Model() ChannelModel {
	return l.model
}

// SetDecimalPlaces sets the precision of user-supplied SNR datapoints.
func (l *Lookup) SetDecimalPlaces(n int) error {
	if err := l.checkUserEditable(); err != nil {
		return err
	}
	if n < 0 || n > 9 {
		return errors.Wrapf(ErrInvalidParameter, "decimal places %d", n)
	}
	if len(l.keys) > 0 {
		return errors.Wrapf(ErrInvalidParameter, "decimal places cannot change after datapoints were added")
	}
	l.decimals = n
	l.decimalsSet = true
	return nil
}

// SetSnrSpacing sets the constant distance (dB) between user-supplied SNR datapoints.
func (l *Lookup) SetSnrSpacing(spacing float64) error {
	if err := l.checkUserEditable(); err != nil {
		return err
	}
	if spacing <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "SNR spacing %g", spacing)
	}
	l.spacing = spacing
	l.spacingSet = true
	return nil
}

// AddDatapoint adds a user-supplied (SNR dB, sync error rate) pair.
func (l *Lookup) AddDatapoint(snr float64, ser float64) error {
	if err := l.checkUserEditable(); err != nil {
		return err
	}
	if !l.decimalsSet {
		return ErrDecimalsNotSet
	}
	if ser < 0 || ser > 1 {
		return errors.Wrapf(ErrInvalidParameter, "sync error rate %g", ser)
	}
	return l.insert(snr, ser)
}

func (l *Lookup) checkUserEditable() error {
	if l.model != ChannelUser {
		return errors.Wrapf(ErrNotUserModel, "model is '%s'", l.model)
	}
	if l.frozen {
		return ErrFrozen
	}
	return nil
}

func (l *Lookup) insert(snr float64, ser float64) error {
	key := l.key(snr)
	pos, found := slices.BinarySearch(l.keys, key)
	if found {
		return errors.Wrapf(ErrDuplicateDatapoint, "snr %g (key %d) already has value %g", snr, key, l.values[pos])
	}
	if len(l.keys) == 0 {
		l.snrMin, l.snrMax = snr, snr
	} else {
		l.snrMin = math.Min(l.snrMin, snr)
		l.snrMax = math.Max(l.snrMax, snr)
	}
	l.keys = slices.Insert(l.keys, pos, key)
	l.values = slices.Insert(l.values, pos, ser)
	return nil
}

// key scales an SNR to the table's integer key, rounding half away from zero.
func (l *Lookup) key(snr float64) int64 {
	for i := 0; i < l.decimals; i++ {
		snr *= 10
	}
	return int64(math.Round(snr))
}

func (l *Lookup) build() error {
	var table builtinTable
	switch l.model {
	case ChannelAwgn:
		table = tableAwgn
	case ChannelD:
		table = tableTgnD
	case ChannelUser:
		if len(l.keys) == 0 {
			return ErrNoDatapoints
		}
		if !l.decimalsSet {
			return ErrDecimalsNotSet
		}
		if !l.spacingSet {
			return ErrSpacingNotSet
		}
		l.determineOffset()
		l.frozen = true
		return nil
	default:
		return errors.Errorf("unsupported frame sync channel model %d", l.model)
	}

	l.decimals = table.decimals
	l.spacing = table.spacing
	for i, snr := range table.snrs {
		if err := l.insert(snr, table.sers[i]); err != nil {
			return err
		}
	}
	l.determineOffset()
	l.frozen = true
	return nil
}

// determineOffset finds the grid point nearest to zero, walking from the minimum SNR towards zero.
func (l *Lookup) determineOffset() {
	tolerance := 0.0001
	for i := 0; i < l.decimals; i++ {
		tolerance /= 10
	}
	snr := l.snrMin
	switch {
	case l.snrMin < 0:
		for snr < 0 {
			snr += l.spacing
		}
	case l.snrMin > 0:
		for snr > 0 {
			snr -= l.spacing
		}
	}
	if math.Abs(snr) <= tolerance {
		snr = 0
	}
	l.offset = snr
}

// Offset returns the phase of the SNR grid relative to 0 dB.
func (l *Lookup) Offset() float64 {
	return l.offset
}

func (l *Lookup) valueAt(snr float64) (float64, error) {
	key := l.key(snr)
	pos, found := slices.BinarySearch(l.keys, key)
	if !found {
		return 0, errors.Wrapf(ErrMissingDatapoint, "snr %g (key %d)", snr, key)
	}
	return l.values[pos], nil
}

// FrameSyncErrorRate returns the probability of failing to synchronize to a frame whose sync field has the
// given SNR (dB). SNRs outside the table return the edge value; others are interpolated linearly between
// the two surrounding grid points.
func (l *Lookup) FrameSyncErrorRate(snr float64) (float64, error) {
	if l.model == ChannelNone {
		return 0, nil
	}
	if !l.frozen {
		if err := l.build(); err != nil {
			return 0, err
		}
	}

	if snr <= l.snrMin {
		return l.valueAt(l.snrMin)
	}
	if snr >= l.snrMax {
		return l.valueAt(l.snrMax)
	}

	steps := (snr - l.offset) / l.spacing
	if math.Abs(steps-math.Round(steps)) < gridHitTolerance {
		return l.valueAt(l.offset + math.Round(steps)*l.spacing)
	}
	lo := l.offset + math.Floor(steps)*l.spacing
	hi := lo + l.spacing
	fq1, err := l.valueAt(lo)
	if err != nil {
		return 0, err
	}
	fq2, err := l.valueAt(hi)
	if err != nil {
		return 0, err
	}
	return fq1*(hi-snr)/(hi-lo) + fq2*(snr-lo)/(hi-lo), nil
}
