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

	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

type NodeEnergy struct {
	nodeId NodeId
	radio  RadioStatus
}

// LogState adds a closed state interval. It has the signature of the PHY state logger.
func (node *NodeEnergy) LogState(start time.Duration, duration time.Duration, state PhyState) {
	logger.AssertTrue(duration >= 0, "node %d: negative %v interval", node.nodeId, state)
	node.radio.Spent[state] += duration
	if end := start + duration; end > node.radio.LastLogged {
		node.radio.LastLogged = end
	}
}

func (node *NodeEnergy) Id() NodeId {
	return node.nodeId
}

// TimeIn returns the logged time spent in state st.
func (node *NodeEnergy) TimeIn(st PhyState) time.Duration {
	return node.radio.Spent[st]
}

// LoggedUntil returns the end of the last logged interval.
func (node *NodeEnergy) LoggedUntil() time.Duration {
	return node.radio.LastLogged
}

func (node *NodeEnergy) Consumption(model CurrentModel) NodeConsumption {
	nc := NodeConsumption{
		NodeId:   node.nodeId,
		EnergyMj: make(map[PhyState]float64, len(AllPhyStates)),
	}
	for _, st := range AllPhyStates {
		nc.EnergyMj[st] = model.EnergyMj(st, node.radio.Spent[st])
	}
	return nc
}

func newNode(nodeID NodeId) *NodeEnergy {
	return &NodeEnergy{
		nodeId: nodeID,
		radio: RadioStatus{
			Spent: make(map[PhyState]time.Duration, len(AllPhyStates)),
		},
	}
}
