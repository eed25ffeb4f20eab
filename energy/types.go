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

package energy

import (
	"time"

	. "github.com/openthread/ot-lbtsim/types"
)

// Default supply and per-state currents of a 5 GHz Wi-Fi chipset. Energy is reported in mJ.
const (
	DefaultSupplyVoltage     float64 = 3.0
	DefaultIdleCurrentA      float64 = 0.273
	DefaultCcaBusyCurrentA   float64 = 0.273
	DefaultTxCurrentA        float64 = 0.380
	DefaultRxCurrentA        float64 = 0.313
	DefaultSwitchingCurrentA float64 = 0.273
	DefaultSleepCurrentA     float64 = 0.033
)

const (
	ComputePeriod = 30 * time.Second
)

// CurrentModel gives the current drawn in each PHY state.
type CurrentModel struct {
	VoltageV float64
	CurrentA map[PhyState]float64
}

func DefaultCurrentModel() CurrentModel {
	return CurrentModel{
		VoltageV: DefaultSupplyVoltage,
		CurrentA: map[PhyState]float64{
			PhyIdle:      DefaultIdleCurrentA,
			PhyCcaBusy:   DefaultCcaBusyCurrentA,
			PhyTx:        DefaultTxCurrentA,
			PhyRx:        DefaultRxCurrentA,
			PhySwitching: DefaultSwitchingCurrentA,
			PhySleep:     DefaultSleepCurrentA,
		},
	}
}

// EnergyMj returns the energy in mJ spent during d in state st.
func (m CurrentModel) EnergyMj(st PhyState, d time.Duration) float64 {
	return m.VoltageV * m.CurrentA[st] * d.Seconds() * 1000
}

type RadioStatus struct {
	Spent      map[PhyState]time.Duration
	LastLogged time.Duration
}

type NodeConsumption struct {
	NodeId   NodeId
	EnergyMj map[PhyState]float64
}

func (nc NodeConsumption) TotalMj() float64 {
	total := 0.0
	for _, e := range nc.EnergyMj {
		total += e
	}
	return total
}

type NetworkConsumption struct {
	Timestamp time.Duration
	// average energy per node
	EnergyMj map[PhyState]float64
}
