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
	"time"

	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/prng"
	. "github.com/openthread/ot-lbtsim/types"
)

const (
	initialCacheSize = 1000
	maxCacheSize     = 1000000
)

type linkFading struct {
	shadow     DbValue
	tvSigma    DbValue
	tv         DbValue
	nextTvFade time.Duration
}

type fadingModel struct {
	rndSeed int64
	random  *prng.Uniform
	links   map[int64]*linkFading
}

func newFadingModel() *fadingModel {
	seed := prng.NewFadingRandomSeed()
	return &fadingModel{
		rndSeed: int64(seed),
		random:  prng.NewUniform(seed),
		links:   make(map[int64]*linkFading, initialCacheSize),
	}
}

// computeFading calculates shadow fading (SF) and time-variant fading (TVF) for a link.
//
// SF models a fixed, position-dependent attenuation (SF>0) or gain (SF<0) due to multipath and static
// obstacles, normal in the dB domain (mu=0, sigma). The link is symmetric: swapping transmitter and receiver
// gives the same SF. See 3GPP TR 38.901 V17.0.0, section 7.4.1 and 7.4.4.
//
// TVF is redrawn at exponentially distributed times with a per-link sigma.
func (sf *fadingModel) computeFading(src, dst Position, now time.Duration, params *ModelParams) DbValue {
	if params.ShadowFadingSigmaDb <= 0 && params.TimeFadingSigmaMaxDb <= 0 {
		return 0
	}
	seed := sf.rndSeed + calcLinkUID(src, dst, params.MeterPerUnit)

	lf, ok := sf.links[seed]
	if !ok {
		if len(sf.links) > maxCacheSize {
			sf.clearCaches()
		}
		// reproducible per link
		rnd := prng.NewUniform(prng.RandomSeed(seed))
		lf = &linkFading{
			shadow:  rnd.NormFloat64() * math.Max(params.ShadowFadingSigmaDb, 0),
			tvSigma: rnd.Float64() * math.Max(params.TimeFadingSigmaMaxDb, 0),
		}
		sf.links[seed] = lf
		sf.redrawTimeFading(lf, now, params)
	} else if now > lf.nextTvFade {
		sf.redrawTimeFading(lf, now, params)
	}
	return lf.shadow + lf.tv
}

func (sf *fadingModel) redrawTimeFading(lf *linkFading, now time.Duration, params *ModelParams) {
	lf.tv = sf.random.NormFloat64() * lf.tvSigma
	if params.MeanTimeFadingChange > 0 {
		next := sf.random.ExpFloat64() * params.MeanTimeFadingChange
		lf.nextTvFade = now + time.Duration(next*float64(time.Second))
	} else {
		lf.nextTvFade = Ever
	}
}

func (sf *fadingModel) clearCaches() {
	logger.Debugf("channel fading model: purging link cache")
	sf.links = make(map[int64]*linkFading, initialCacheSize)
}

// calcLinkUID gives each pair of 5 m grid cells its own id, the same in both directions.
func calcLinkUID(src, dst Position, meterPerUnit float64) int64 {
	x1 := uint16(math.Round(src.X*meterPerUnit*0.2) + 32768)
	y1 := uint16(math.Round(src.Y*meterPerUnit*0.2) + 32768)
	x2 := uint16(math.Round(dst.X*meterPerUnit*0.2) + 32768)
	y2 := uint16(math.Round(dst.Y*meterPerUnit*0.2) + 32768)
	xL, yL, xR, yR := x2, y2, x1, y1

	// use left-most node (and in case of doubt, top-most)
	if x1 < x2 || (x1 == x2 && y1 < y2) {
		xL, yL, xR, yR = x1, y1, x2, y2
	}
	return int64(xL) + int64(yL)<<16 + int64(xR)<<32 + int64(yR)<<48
}
