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

package spectrum

import (
	"gonum.org/v1/gonum/floats"

	"github.com/openthread/ot-lbtsim/logger"
)

// Value is a power spectral density in W/Hz, one value per band of its Model.
// Operations return new values; a Value handed to another component is never modified.
type Value struct {
	model *Model
	vals  []float64
}

func NewValue(m *Model) *Value {
	return &Value{
		model: m,
		vals:  make([]float64, m.NumBands()),
	}
}

func (v *Value) Model() *Model {
	return v.model
}

// Values returns a copy of the per-band values.
func (v *Value) Values() []float64 {
	return append([]float64(nil), v.vals...)
}

func (v *Value) Copy() *Value {
	return &Value{model: v.model, vals: v.Values()}
}

func (v *Value) checkModel(o *Value) {
	logger.AssertTrue(v.model == o.model, "spectrum values of different models")
}

// Multiply returns the band-wise product of v and o.
func (v *Value) Multiply(o *Value) *Value {
	v.checkModel(o)
	r := NewValue(v.model)
	floats.MulTo(r.vals, v.vals, o.vals)
	return r
}

// Add returns the band-wise sum of v and o.
func (v *Value) Add(o *Value) *Value {
	v.checkModel(o)
	r := NewValue(v.model)
	floats.AddTo(r.vals, v.vals, o.vals)
	return r
}

// Scale returns v multiplied by f.
func (v *Value) Scale(f float64) *Value {
	r := NewValue(v.model)
	floats.ScaleTo(r.vals, f, v.vals)
	return r
}

// Integral returns the total power in W: the sum over bands of value times band width.
func (v *Value) Integral() float64 {
	return floats.Dot(v.vals, v.model.widths)
}
