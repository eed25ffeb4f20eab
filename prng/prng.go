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

package prng

import (
	"math/rand"
	"time"
)

type RandomSeed int64

var (
	newPhyRandSeedGenerator     *rand.Rand
	newAccessRandSeedGenerator  *rand.Rand
	newFadingRandSeedGenerator  *rand.Rand
	newTrafficRandSeedGenerator *rand.Rand
)

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))

	newPhyRandSeedGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	newAccessRandSeedGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	newFadingRandSeedGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	newTrafficRandSeedGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
}

func init() {
	Init(1)
}

// NewPhyRandomSeed generates unique random-seeds for newly created PHYs.
func NewPhyRandomSeed() RandomSeed {
	return RandomSeed(newPhyRandSeedGenerator.Int63())
}

// NewAccessRandomSeed generates unique random-seeds for channel-access managers (backoff draws).
func NewAccessRandomSeed() RandomSeed {
	return RandomSeed(newAccessRandSeedGenerator.Int63())
}

// NewFadingRandomSeed generates unique random-seeds for shadow-fading models.
func NewFadingRandomSeed() RandomSeed {
	return RandomSeed(newFadingRandSeedGenerator.Int63())
}

// NewTrafficRandomSeed generates unique random-seeds for traffic flows.
func NewTrafficRandomSeed() RandomSeed {
	return RandomSeed(newTrafficRandSeedGenerator.Int63())
}

// Uniform is a seeded, reproducible random stream owned by one simulated component.
type Uniform struct {
	seed RandomSeed
	r    *rand.Rand
}

func NewUniform(seed RandomSeed) *Uniform {
	return &Uniform{
		seed: seed,
		r:    rand.New(rand.NewSource(int64(seed))),
	}
}

func (u *Uniform) Seed() RandomSeed {
	return u.seed
}

// Float64 returns a uniform variate in [0, 1).
func (u *Uniform) Float64() float64 {
	return u.r.Float64()
}

// Intn returns a uniform integer in [0, n).
func (u *Uniform) Intn(n int) int {
	return u.r.Intn(n)
}

// NormFloat64 returns a standard normal variate.
func (u *Uniform) NormFloat64() float64 {
	return u.r.NormFloat64()
}

// ExpFloat64 returns an exponential variate with rate 1.
func (u *Uniform) ExpFloat64() float64 {
	return u.r.ExpFloat64()
}
