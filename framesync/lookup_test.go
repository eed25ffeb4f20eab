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

package framesync

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwgnInterpolation(t *testing.T) {
	l := NewLookup(ChannelAwgn)
	ser, err := l.FrameSyncErrorRate(-9.5)
	assert.Nil(t, err)
	assert.InDelta(t, 0.995, ser, 1e-12)
	assert.Equal(t, 0.0, l.Offset())
}

func TestClamping(t *testing.T) {
	for _, model := range []ChannelModel{ChannelAwgn, ChannelD} {
		l := NewLookup(model)
		for _, snr := range []float64{-10, -10.001, -25, -1000} {
			ser, err := l.FrameSyncErrorRate(snr)
			assert.Nil(t, err)
			assert.Equal(t, 1.0, ser)
		}
		for _, snr := range []float64{17, 17.3, 40} {
			ser, err := l.FrameSyncErrorRate(snr)
			assert.Nil(t, err)
			assert.Equal(t, 0.0, ser)
		}
	}
}

func TestGridHits(t *testing.T) {
	tables := map[ChannelModel]builtinTable{ChannelAwgn: tableAwgn, ChannelD: tableTgnD}
	for model, table := range tables {
		l := NewLookup(model)
		for i, snr := range table.snrs {
			ser, err := l.FrameSyncErrorRate(snr)
			assert.Nil(t, err)
			assert.InDelta(t, table.sers[i], ser, 1e-12, "model %s snr %g", model, snr)
		}
	}
}

func TestLinearInterpolation(t *testing.T) {
	l := NewLookup(ChannelD)
	for i := 0; i+1 < len(tableTgnD.snrs); i++ {
		s1, s2 := tableTgnD.snrs[i], tableTgnD.snrs[i+1]
		v1, v2 := tableTgnD.sers[i], tableTgnD.sers[i+1]
		for _, f := range []float64{0.25, 0.5, 0.9} {
			ser, err := l.FrameSyncErrorRate(s1*f + s2*(1-f))
			assert.Nil(t, err)
			assert.InDelta(t, v1*f+v2*(1-f), ser, 1e-9)
		}
	}
}

func TestNoneModel(t *testing.T) {
	l := NewLookup(ChannelNone)
	ser, err := l.FrameSyncErrorRate(-30)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, ser)
}

func TestUserModel(t *testing.T) {
	l := NewLookup(ChannelUser)
	assert.True(t, errors.Is(l.AddDatapoint(1, 0.5), ErrDecimalsNotSet))
	_, err := l.FrameSyncErrorRate(0)
	assert.True(t, errors.Is(err, ErrNoDatapoints))

	require.Nil(t, l.SetDecimalPlaces(2))
	require.Nil(t, l.AddDatapoint(-0.75, 0.8))
	require.Nil(t, l.AddDatapoint(0.75, 0.2))
	require.Nil(t, l.AddDatapoint(-0.25, 0.6))
	require.Nil(t, l.AddDatapoint(0.25, 0.4))
	assert.True(t, errors.Is(l.AddDatapoint(0.251, 0.1), ErrDuplicateDatapoint))
	assert.NotNil(t, l.SetDecimalPlaces(1))
	assert.NotNil(t, l.AddDatapoint(1.5, 1.5))

	_, err = l.FrameSyncErrorRate(0)
	assert.True(t, errors.Is(err, ErrSpacingNotSet))

	require.Nil(t, l.SetSnrSpacing(0.5))
	ser, err := l.FrameSyncErrorRate(0)
	assert.Nil(t, err)
	assert.InDelta(t, 0.5, ser, 1e-12)
	assert.InDelta(t, 0.25, l.Offset(), 1e-12)

	ser, err = l.FrameSyncErrorRate(-0.25)
	assert.Nil(t, err)
	assert.InDelta(t, 0.6, ser, 1e-12)
	ser, err = l.FrameSyncErrorRate(-2)
	assert.Nil(t, err)
	assert.Equal(t, 0.8, ser)

	// frozen after the first lookup
	assert.True(t, errors.Is(l.AddDatapoint(1.25, 0.1), ErrFrozen))
	assert.True(t, errors.Is(l.SetSnrSpacing(1), ErrFrozen))
}

func TestUserModelMissingPoint(t *testing.T) {
	l := NewLookup(ChannelUser)
	require.Nil(t, l.SetDecimalPlaces(0))
	require.Nil(t, l.SetSnrSpacing(1))
	require.Nil(t, l.AddDatapoint(0, 1))
	require.Nil(t, l.AddDatapoint(3, 0))
	_, err := l.FrameSyncErrorRate(1.5)
	assert.True(t, errors.Is(err, ErrMissingDatapoint))
}

func TestBuiltinNotEditable(t *testing.T) {
	l := NewLookup(ChannelAwgn)
	assert.True(t, errors.Is(l.SetDecimalPlaces(1), ErrNotUserModel))
	assert.True(t, errors.Is(l.AddDatapoint(1, 0.1), ErrNotUserModel))

	m, err := ParseChannelModel("d")
	assert.Nil(t, err)
	assert.Equal(t, ChannelD, m)
	_, err = ParseChannelModel("rayleigh")
	assert.NotNil(t, err)
}
