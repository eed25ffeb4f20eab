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

package access

import (
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
)

// Config selects and parameterizes an access manager. Zero durations and thresholds take the defaults.
type Config struct {
	Kind            Kind
	EdThresholdDbm  DbValue
	GrantDuration   time.Duration
	DutyCyclePeriod time.Duration
	DutyCycleOn     time.Duration
	DutyCycleOffset time.Duration
	CwMin           int
	CwMax           int
}

func DefaultConfig() Config {
	return Config{
		Kind:            KindBase,
		EdThresholdDbm:  DefaultEdThresholdDbm,
		GrantDuration:   DefaultGrantDuration,
		DutyCyclePeriod: DefaultDutyCyclePeriod,
		DutyCycleOn:     DefaultDutyCycleOnDuration,
		CwMin:           DefaultCwMin,
		CwMax:           DefaultCwMax,
	}
}

// NewManager builds the manager of cfg.Kind for node id. The LBT kinds sense the channel through p.
func NewManager(id NodeId, cfg Config, sched *event.Scheduler, p *phy.Phy) (Manager, error) {
	def := DefaultConfig()
	if cfg.EdThresholdDbm == 0 {
		cfg.EdThresholdDbm = def.EdThresholdDbm
	}
	if cfg.GrantDuration == 0 {
		cfg.GrantDuration = def.GrantDuration
	}

	var m Manager
	switch cfg.Kind {
	case KindBase:
		m = NewBase(id, sched)
	case KindBasicLbt:
		m = NewBasicLbt(id, sched)
	case KindLbt:
		lbt := NewLbtManager(id, sched)
		if cfg.CwMin != 0 || cfg.CwMax != 0 {
			lbt.SetContentionWindow(cfg.CwMin, cfg.CwMax)
		}
		m = lbt
	case KindDutyCycle:
		dc := NewDutyCycle(id, sched)
		period, on := cfg.DutyCyclePeriod, cfg.DutyCycleOn
		if period == 0 {
			period = def.DutyCyclePeriod
		}
		if on == 0 {
			on = def.DutyCycleOn
		}
		if err := dc.SetCycle(period, on, cfg.DutyCycleOffset); err != nil {
			return nil, err
		}
		m = dc
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "kind %d", cfg.Kind)
	}

	if err := m.SetEnergyDetectionThreshold(cfg.EdThresholdDbm); err != nil {
		return nil, err
	}
	m.SetGrantDuration(cfg.GrantDuration)

	switch mm := m.(type) {
	case *BasicLbt:
		if p == nil {
			return nil, errors.Wrapf(ErrNoPhy, "node %d (%s)", id, cfg.Kind)
		}
		mm.SetWifiPhy(p)
	case *LbtManager:
		if p == nil {
			return nil, errors.Wrapf(ErrNoPhy, "node %d (%s)", id, cfg.Kind)
		}
		mm.SetWifiPhy(p)
	}
	return m, nil
}
