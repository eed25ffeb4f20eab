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

package simulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startTime     time.Duration
	startCounters NodeCountersStore
	startStates   stateTimeStore
	startEnergy   map[NodeId]float64
	startBursts   map[NodeId]uint64
	startAirtime  map[NodeId]time.Duration
	isRunning     bool
}

type NodeCountersStore map[NodeId]NodeCounters
type stateTimeStore map[NodeId]map[PhyState]time.Duration

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager(sim *Simulation) *KpiManager {
	logger.AssertNotNil(sim)
	return &KpiManager{
		sim:  sim,
		data: &Kpi{Status: "ok", Seed: sim.cfg.Seed},
	}
}

// Start begins a KPI period at the current virtual time.
func (km *KpiManager) Start() {
	km.sim.FlushStateLogs()
	km.startTime = km.sim.Now()
	km.startCounters = km.retrieveNodeCounters()
	km.startStates = km.retrieveStateTimes()
	km.startEnergy = km.retrieveEnergy()
	km.startBursts = make(map[NodeId]uint64)
	km.startAirtime = make(map[NodeId]time.Duration)
	for _, it := range km.sim.interferers {
		km.startBursts[it.Id()] = it.BurstCount()
		km.startAirtime[it.Id()] = it.Airtime()
	}
	km.data = &Kpi{Status: "ok", Seed: km.sim.cfg.Seed}
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.calculateKpis()
		km.isRunning = false
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs, recalculated up to now if the period is still running.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.calculateKpis()
	}
	return km.data
}

func (km *KpiManager) SaveDefaultFile() error {
	return km.SaveFile(km.getDefaultSaveFileName())
}

func (km *KpiManager) SaveFile(fn string) error {
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshal KPI JSON data")
	}
	if err = os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return err
	}
	if err = os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "write KPI JSON file %s", fn)
	}
	logger.Debugf("KPIs saved to %s", fn)
	return nil
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	store := make(NodeCountersStore, len(km.sim.nodes))
	for _, id := range km.sim.nodeIds {
		store[id] = km.sim.nodes[id].Counters()
	}
	return store
}

func (km *KpiManager) retrieveStateTimes() stateTimeStore {
	store := make(stateTimeStore, len(km.sim.nodes))
	for _, id := range km.sim.nodeIds {
		times := make(map[PhyState]time.Duration, len(AllPhyStates))
		for _, st := range AllPhyStates {
			times[st] = km.sim.nodes[id].energy.TimeIn(st)
		}
		store[id] = times
	}
	return store
}

func (km *KpiManager) retrieveEnergy() map[NodeId]float64 {
	res := make(map[NodeId]float64, len(km.sim.nodes))
	model := km.sim.energyAnalyser.Model()
	for _, id := range km.sim.nodeIds {
		res[id] = km.sim.nodes[id].energy.Consumption(model).TotalMj()
	}
	return res
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		ret[k] = v - startCtr[k] // counters unknown at start count from 0
	}
	return ret
}

func percentOf(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return 100.0 * float64(part) / float64(whole)
}

func (km *KpiManager) calculateKpis() {
	km.sim.FlushStateLogs()
	now := km.sim.Now()
	passed := now - km.startTime

	// time
	km.data.TimeUs.StartTimeUs = uint64(km.startTime / time.Microsecond)
	km.data.TimeUs.EndTimeUs = uint64(now / time.Microsecond)
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = km.startTime.Seconds()
	km.data.TimeSec.EndTimeSec = now.Seconds()
	km.data.TimeSec.PeriodSec = passed.Seconds()

	curCounters := km.retrieveNodeCounters()
	curStates := km.retrieveStateTimes()
	curEnergy := km.retrieveEnergy()

	km.data.Counters = make(map[NodeId]NodeCounters, len(curCounters))
	km.data.Nodes = make(map[NodeId]KpiNode, len(curCounters))
	km.data.Channels = make(map[ChannelNumber]KpiChannel)
	for _, id := range km.sim.nodeIds {
		node := km.sim.nodes[id]
		counters := getCountersDiff(curCounters[id], km.startCounters[id])
		km.data.Counters[id] = counters

		spent := func(st PhyState) time.Duration {
			return curStates[id][st] - km.startStates[id][st]
		}
		rxPpdus := counters[CtrRxPpduOk] + counters[CtrRxPpduError]
		loss := 0.0
		if rxPpdus > 0 {
			loss = 100.0 * float64(counters[CtrRxPpduError]) / float64(rxPpdus)
		}
		throughput := 0.0
		if passed > 0 {
			throughput = 8 * float64(counters[CtrRxBytes]) / passed.Seconds() / 1e6
		}
		km.data.Nodes[id] = KpiNode{
			CcaBusyPercentage: percentOf(spent(PhyCcaBusy), passed),
			RxPercentage:      percentOf(spent(PhyRx), passed),
			TxPercentage:      percentOf(spent(PhyTx), passed),
			SleepPercentage:   percentOf(spent(PhySleep), passed),
			PpduLossPercent:   loss,
			AvgSnrDb:          node.AvgSnrDb(),
			AvgQueueDelayUs:   float64(node.AvgQueueDelay()) / float64(time.Microsecond),
			ThroughputMbps:    throughput,
			EnergyMj:          curEnergy[id] - km.startEnergy[id],
		}

		ch := node.phy.ChannelNumber()
		chanKpi := km.data.Channels[ch]
		chanKpi.TxTimeUs += uint64(spent(PhyTx) / time.Microsecond)
		chanKpi.NumFrames += counters[CtrTxMpdu]
		km.data.Channels[ch] = chanKpi
	}
	for ch, chanKpi := range km.data.Channels {
		chanKpi.TxPercentage = percentOf(time.Duration(chanKpi.TxTimeUs)*time.Microsecond, passed)
		if passed > 0 {
			chanKpi.AvgFps = float64(chanKpi.NumFrames) / passed.Seconds()
		}
		km.data.Channels[ch] = chanKpi
	}

	km.data.Interferers = make(map[NodeId]KpiInterferer, len(km.sim.interferers))
	for _, it := range km.sim.interferers {
		airtime := it.Airtime() - km.startAirtime[it.Id()]
		km.data.Interferers[it.Id()] = KpiInterferer{
			Bursts:    it.BurstCount() - km.startBursts[it.Id()],
			AirtimeUs: uint64(airtime / time.Microsecond),
			DutyCycle: percentOf(airtime, passed),
		}
	}
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return filepath.Join(km.sim.cfg.OutputDir, fmt.Sprintf("%d_kpi.json", km.sim.cfg.Seed))
}
