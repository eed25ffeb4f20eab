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
	"context"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openthread/ot-lbtsim/access"
	"github.com/openthread/ot-lbtsim/channel"
	"github.com/openthread/ot-lbtsim/energy"
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/metrics"
	"github.com/openthread/ot-lbtsim/pcap"
	"github.com/openthread/ot-lbtsim/phy"
	"github.com/openthread/ot-lbtsim/prng"
	. "github.com/openthread/ot-lbtsim/types"
)

var ErrUnknownNode = errors.New("unknown node")

type Simulation struct {
	cfg            *YamlConfigFile
	sched          *event.Scheduler
	channel        *channel.SpectrumChannel
	nodes          map[NodeId]*Node
	nodeIds        []NodeId
	flows          []*Flow
	interferers    []*channel.Interferer
	energyAnalyser *energy.Analyser
	phyMetrics     *metrics.PhyCollector
	accessMetrics  *metrics.AccessCollector
	pcap           pcap.File
	kpiMgr         *KpiManager
	started        bool
	stopped        bool
}

// NewSimulation builds the scenario. Metrics are registered with reg, or the default registerer if nil.
func NewSimulation(cfg *YamlConfigFile, reg prometheus.Registerer) (*Simulation, error) {
	prng.Init(cfg.Seed)
	if cfg.LogLevel != "" {
		lv, err := logger.ParseLevelString(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(lv)
	}

	params, err := cfg.ChannelParams()
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:            cfg,
		sched:          event.NewScheduler(),
		nodes:          make(map[NodeId]*Node, len(cfg.NodesList)),
		energyAnalyser: energy.NewAnalyser(energy.DefaultCurrentModel()),
	}
	s.channel = channel.NewSpectrumChannel(s.sched, params)
	logger.SetSimClock(s.sched.Now)
	if s.phyMetrics, err = metrics.NewPhyCollector(reg); err != nil {
		return nil, err
	}
	if s.accessMetrics, err = metrics.NewAccessCollector(reg); err != nil {
		return nil, err
	}

	for _, nc := range cfg.NodesList {
		if err = s.addNode(nc); err != nil {
			return nil, errors.Wrapf(err, "node %d", nc.ID)
		}
	}
	for _, ic := range cfg.Interferers {
		if err = s.addInterferer(ic); err != nil {
			return nil, errors.Wrapf(err, "interferer %d", ic.ID)
		}
	}
	for i, fc := range cfg.Flows {
		f, err := newFlow(fc, s.nodes[fc.Src], s.sched)
		if err != nil {
			return nil, errors.Wrapf(err, "flow %d", i)
		}
		s.flows = append(s.flows, f)
	}
	if cfg.Pcap != nil {
		if err = s.openPcap(*cfg.Pcap); err != nil {
			return nil, err
		}
	}
	s.kpiMgr = NewKpiManager(s)
	return s, nil
}

func (s *Simulation) addNode(nc YamlNodeConfig) error {
	node, err := newNode(nc, s.sched, s.channel, s.cfg.QueueLimit)
	if err != nil {
		return err
	}
	if err = s.channel.AddReceiver(node.phy, channel.Position{X: nc.Pos[0], Y: nc.Pos[1]}); err != nil {
		return err
	}
	node.energy = s.energyAnalyser.AddNode(nc.ID)
	stateMetrics := s.phyMetrics.StateLogger(nc.ID)
	node.phy.SetStateLogger(func(start, duration time.Duration, state PhyState) {
		node.energy.LogState(start, duration, state)
		stateMetrics(start, duration, state)
	})
	s.phyMetrics.Attach(node.phy)
	s.accessMetrics.Attach(node.access)
	s.nodes[nc.ID] = node
	s.nodeIds = append(s.nodeIds, nc.ID)
	sort.Ints(s.nodeIds)
	return nil
}

func (s *Simulation) addInterferer(ic YamlInterfererConfig) error {
	pos := channel.Position{X: ic.Pos[0], Y: ic.Pos[1]}
	if err := s.channel.AddTransmitter(ic.ID, pos); err != nil {
		return err
	}
	it, err := channel.NewInterferer(channel.InterfererConfig{
		Id:            ic.ID,
		Position:      pos,
		ChannelNumber: ic.Channel,
		TxPowerDbm:    ic.TxPowerDbm,
		OnTime:        ic.OnTime,
		Period:        ic.Period,
		StartOffset:   ic.Offset,
	}, s.sched, s.channel)
	if err != nil {
		return err
	}
	if ic.Access != nil {
		ac, err := ic.Access.AccessConfig()
		if err != nil {
			return err
		}
		m, err := access.NewManager(ic.ID, ac, s.sched, nil)
		if err != nil {
			return err
		}
		it.SetAccessManager(m)
		s.accessMetrics.Attach(m)
	}
	s.interferers = append(s.interferers, it)
	return nil
}

func (s *Simulation) openPcap(pc YamlPcapConfig) error {
	ft := pcap.ParseFrameTypeStr(pc.Type)
	if ft == pcap.FrameTypeOff {
		return nil
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return err
	}
	fn := pc.File
	if fn == "" {
		fn = s.cfg.OutputDir + "/current.pcap"
	}
	f, err := pcap.NewFile(fn, ft)
	if err != nil {
		return err
	}
	s.pcap = f
	for _, id := range s.nodeIds {
		s.nodes[id].phy.AddHooks(phy.Hooks{MonitorSniffTx: s.capture})
	}
	return nil
}

func (s *Simulation) capture(info phy.MonitorInfo) {
	if err := s.pcap.AppendFrame(pcap.FrameFromMonitor(info)); err != nil {
		s.sched.Fail(errors.Wrap(err, "pcap"))
	}
}

func (s *Simulation) Scheduler() *event.Scheduler {
	return s.sched
}

func (s *Simulation) Channel() *channel.SpectrumChannel {
	return s.channel
}

func (s *Simulation) Config() *YamlConfigFile {
	return s.cfg
}

func (s *Simulation) Now() time.Duration {
	return s.sched.Now()
}

// GetNodes returns the sorted node ids.
func (s *Simulation) GetNodes() []NodeId {
	return append([]NodeId(nil), s.nodeIds...)
}

func (s *Simulation) Node(id NodeId) (*Node, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNode, "%d", id)
	}
	return node, nil
}

func (s *Simulation) Interferers() []*channel.Interferer {
	return s.interferers
}

func (s *Simulation) GetEnergyAnalyser() *energy.Analyser {
	return s.energyAnalyser
}

func (s *Simulation) PhyMetrics() *metrics.PhyCollector {
	return s.phyMetrics
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpiMgr
}

// Start starts the flows, interferers and periodic energy snapshots. It is idempotent.
func (s *Simulation) Start() {
	if s.started {
		return
	}
	s.started = true
	for _, f := range s.flows {
		f.Start()
	}
	for _, it := range s.interferers {
		it.Start()
	}
	s.sched.Schedule(energy.ComputePeriod, s.storeEnergy)
	s.kpiMgr.Start()
}

func (s *Simulation) storeEnergy() {
	s.FlushStateLogs()
	s.energyAnalyser.StoreNetworkEnergy(s.sched.Now())
	s.sched.Schedule(energy.ComputePeriod, s.storeEnergy)
}

// FlushStateLogs closes the open state interval of every PHY.
func (s *Simulation) FlushStateLogs() {
	for _, id := range s.nodeIds {
		s.nodes[id].phy.FlushStateLog()
	}
}

// Go advances virtual time by d.
func (s *Simulation) Go(ctx context.Context, d time.Duration) error {
	if s.stopped {
		return errors.New("simulation stopped")
	}
	s.Start()
	if err := s.sched.RunUntil(ctx, s.sched.Now()+d); err != nil {
		return err
	}
	return s.sched.Err()
}

// Run runs the scenario for its configured duration, then stops it.
func (s *Simulation) Run(ctx context.Context) error {
	logger.Infof("running %d nodes, %d flows, %d interferers for %v", len(s.nodes), len(s.flows),
		len(s.interferers), s.cfg.Duration)
	remaining := s.cfg.Duration - s.sched.Now()
	if remaining < 0 {
		remaining = 0
	}
	err := s.Go(ctx, remaining)
	if stopErr := s.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// Stop ends the scenario: flows and interferers stop, the KPI and energy files are written.
func (s *Simulation) Stop() error {
	if s.stopped {
		return nil
	}
	s.stopped = true
	for _, f := range s.flows {
		f.Stop()
	}
	for _, it := range s.interferers {
		it.Stop()
	}
	s.FlushStateLogs()
	s.energyAnalyser.StoreNetworkEnergy(s.sched.Now())
	s.kpiMgr.Stop()

	var err error
	if kpiErr := s.kpiMgr.SaveDefaultFile(); kpiErr != nil {
		err = kpiErr
	}
	if enErr := s.energyAnalyser.SaveEnergyDataToFile(s.cfg.OutputDir, "", s.sched.Now()); enErr != nil && err == nil {
		err = enErr
	}
	if s.pcap != nil {
		if pcErr := s.pcap.Close(); pcErr != nil && err == nil {
			err = pcErr
		}
	}
	for _, id := range s.nodeIds {
		s.nodes[id].phy.Close()
	}
	return err
}

func (s *Simulation) IsStopped() bool {
	return s.stopped
}
