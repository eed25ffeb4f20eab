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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

type Analyser struct {
	model                CurrentModel
	nodes                map[NodeId]*NodeEnergy
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeConsumption
	title                string
}

// AddNode returns the energy record of a node, creating it if needed.
func (e *Analyser) AddNode(nodeID NodeId) *NodeEnergy {
	if node, ok := e.nodes[nodeID]; ok {
		return node
	}
	node := newNode(nodeID)
	e.nodes[nodeID] = node
	return node
}

func (e *Analyser) DeleteNode(nodeID NodeId) {
	delete(e.nodes, nodeID)

	if len(e.nodes) == 0 {
		e.ClearEnergyData()
	}
}

func (e *Analyser) GetNode(nodeID NodeId) *NodeEnergy {
	return e.nodes[nodeID]
}

func (e *Analyser) Model() CurrentModel {
	return e.model
}

func (e *Analyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

func (e *Analyser) GetEnergyHistoryByNodes() [][]NodeConsumption {
	return e.energyHistoryByNodes
}

func (e *Analyser) GetLatestEnergyOfNodes() []NodeConsumption {
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

func (e *Analyser) sortedIds() []NodeId {
	ids := make([]NodeId, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StoreNetworkEnergy takes a snapshot of what the nodes have logged so far. Callers flush the PHY state
// logs first.
func (e *Analyser) StoreNetworkEnergy(timestamp time.Duration) {
	nodesSnapshot := make([]NodeConsumption, 0, len(e.nodes))
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
		EnergyMj:  make(map[PhyState]float64, len(AllPhyStates)),
	}

	netSize := float64(len(e.nodes))
	for _, id := range e.sortedIds() {
		nc := e.nodes[id].Consumption(e.model)
		for st, mj := range nc.EnergyMj {
			networkSnapshot.EnergyMj[st] += mj / netSize
		}
		nodesSnapshot = append(nodesSnapshot, nc)
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesSnapshot)
}

// SaveEnergyDataToFile writes <name>_nodes.txt and <name>.txt into dir.
func (e *Analyser) SaveEnergyDataToFile(dir string, name string, timestamp time.Duration) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	path := filepath.Join(dir, name)
	fileNodes, err := os.Create(path + "_nodes.txt")
	if err != nil {
		return err
	}
	defer fileNodes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return err
	}
	defer fileNetwork.Close()

	e.writeEnergyByNodes(fileNodes, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Infof("energy data saved to %s", path)
	return nil
}

func writeHeader(w io.Writer, first string, timestamp time.Duration) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", timestamp.Milliseconds())
	fmt.Fprintf(w, "%s", first)
	for _, st := range AllPhyStates {
		fmt.Fprintf(w, "\t%s (mJ)", st)
	}
	fmt.Fprintln(w)
}

func (e *Analyser) writeEnergyByNodes(w io.Writer, timestamp time.Duration) {
	writeHeader(w, "ID", timestamp)
	for _, id := range e.sortedIds() {
		nc := e.nodes[id].Consumption(e.model)
		fmt.Fprintf(w, "%d", id)
		for _, st := range AllPhyStates {
			fmt.Fprintf(w, "\t%f", nc.EnergyMj[st])
		}
		fmt.Fprintln(w)
	}
}

func (e *Analyser) writeNetworkEnergy(w io.Writer, timestamp time.Duration) {
	writeHeader(w, "Time (ms)", timestamp)
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(w, "%d", snapshot.Timestamp.Milliseconds())
		for _, st := range AllPhyStates {
			fmt.Fprintf(w, "\t%f", snapshot.EnergyMj[st])
		}
		fmt.Fprintln(w)
	}
}

func (e *Analyser) ClearEnergyData() {
	logger.Debugf("Node's energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByNodes = make([][]NodeConsumption, 0, 3600)
}

func (e *Analyser) SetTitle(title string) {
	e.title = title
}

func NewAnalyser(model CurrentModel) *Analyser {
	return &Analyser{
		model:                model,
		nodes:                make(map[NodeId]*NodeEnergy),
		networkHistory:       make([]NetworkConsumption, 0, 3600),
		energyHistoryByNodes: make([][]NodeConsumption, 0, 3600),
	}
}
