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
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/access"
	"github.com/openthread/ot-lbtsim/energy"
	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// NodeCounters are named event counters of a node.
type NodeCounters map[string]uint64

const (
	CtrTxPpdu      = "tx.ppdu"
	CtrTxMpdu      = "tx.mpdu"
	CtrTxDrop      = "tx.drop"
	CtrQueueDrop   = "tx.queue-drop"
	CtrGrants      = "access.grants"
	CtrRxPpduOk    = "rx.ppdu.ok"
	CtrRxPpduError = "rx.ppdu.error"
	CtrRxMpduOk    = "rx.mpdu.ok"
	CtrRxDelivered = "rx.delivered"
	CtrRxBytes     = "rx.bytes"
	ctrRxDropPfx   = "rx.drop."
	ctrRxTidPfx    = "rx.tid."
)

// Node is a Wi-Fi station: a PHY, its channel access manager and a transmit queue fed by traffic flows.
type Node struct {
	id     NodeId
	cfg    YamlNodeConfig
	sched  *event.Scheduler
	phy    *phy.Phy
	access access.Manager
	energy *energy.NodeEnergy
	log    *logger.PhyLogger

	queue      []Ppdu
	queueLimit int
	requesting bool
	sending    bool
	counters   NodeCounters
	snrSumDb   float64
	snrCount   uint64
	queueDelay time.Duration
	manualSeq  uint16
}

func newNode(cfg YamlNodeConfig, sched *event.Scheduler, ch phy.Channel, queueLimit int) (*Node, error) {
	phyCfg, err := cfg.PhyConfig()
	if err != nil {
		return nil, err
	}
	p, err := phy.NewPhy(cfg.ID, phyCfg, sched, ch)
	if err != nil {
		return nil, err
	}
	if err = p.Initialize(); err != nil {
		return nil, err
	}

	accessCfg := access.DefaultConfig()
	if cfg.Access != nil {
		if accessCfg, err = cfg.Access.AccessConfig(); err != nil {
			return nil, err
		}
	}
	m, err := access.NewManager(cfg.ID, accessCfg, sched, p)
	if err != nil {
		return nil, err
	}

	node := &Node{
		id:         cfg.ID,
		cfg:        cfg,
		sched:      sched,
		phy:        p,
		access:     m,
		log:        logger.GetPhyLogger(cfg.ID),
		queueLimit: queueLimit,
		counters:   NodeCounters{},
	}
	m.SetAccessGrantedCallback(node.onGranted)
	p.SetReceiveOkCallback(node.onReceiveOk)
	p.SetReceiveErrorCallback(node.onReceiveError)
	p.AddHooks(phy.Hooks{
		RxDrop: func(_ *phy.WifiFrame, reason phy.DropReason) {
			node.counters[ctrRxDropPfx+reason.String()]++
		},
		TxBegin: func(*phy.WifiFrame) {
			node.counters[CtrTxMpdu]++
		},
		TxDrop: func(*phy.WifiFrame) {
			node.counters[CtrTxDrop]++
		},
		MonitorSniffRx: node.onMpduReceived,
	})
	return node, nil
}

func (node *Node) String() string {
	return fmt.Sprintf("Node<%d>", node.id)
}

func (node *Node) Id() NodeId {
	return node.id
}

func (node *Node) Phy() *phy.Phy {
	return node.phy
}

func (node *Node) Access() access.Manager {
	return node.access
}

func (node *Node) Energy() *energy.NodeEnergy {
	return node.energy
}

func (node *Node) QueueLen() int {
	return len(node.queue)
}

// Counters returns a copy of the node counters.
func (node *Node) Counters() NodeCounters {
	res := make(NodeCounters, len(node.counters))
	for k, v := range node.counters {
		res[k] = v
	}
	return res
}

// AvgSnrDb returns the average SNR of the PPDUs received without error, or 0 if none.
func (node *Node) AvgSnrDb() float64 {
	if node.snrCount == 0 {
		return 0
	}
	return node.snrSumDb / float64(node.snrCount)
}

// AvgQueueDelay returns the mean time a sent PPDU waited in the queue.
func (node *Node) AvgQueueDelay() time.Duration {
	if node.counters[CtrTxPpdu] == 0 {
		return 0
	}
	return node.queueDelay / time.Duration(node.counters[CtrTxPpdu])
}

// Enqueue queues a PPDU and asks for channel access if the node is not already waiting for it.
func (node *Node) Enqueue(ppdu Ppdu) {
	if len(node.queue) >= node.queueLimit {
		node.counters[CtrQueueDrop]++
		node.log.Debugf("queue full, dropping PPDU of %d MPDU(s)", len(ppdu.Frames))
		return
	}
	ppdu.QueuedAt = node.sched.Now()
	node.queue = append(node.queue, ppdu)
	node.requestAccess()
}

// SendNow queues one PPDU of ampdu MPDUs, sent with the given mode.
func (node *Node) SendNow(dst NodeId, size int, cos ClassOfService, ampdu int, modeName string) error {
	if ampdu < 1 || ampdu > 64 {
		return errors.Errorf("A-MPDU size %d out of range [1,64]", ampdu)
	}
	mode, err := wifimode.ByName(modeName)
	if err != nil {
		return err
	}
	node.manualSeq += uint16(ampdu)
	node.Enqueue(BuildPpdu(node.id, dst, node.manualSeq, cos, size, mode, preambleFor(mode), ampdu))
	return nil
}

func (node *Node) requestAccess() {
	if node.requesting || node.sending || len(node.queue) == 0 {
		return
	}
	node.requesting = true
	if err := node.access.RequestAccess(); err != nil {
		node.requesting = false
		node.sched.Fail(errors.Wrapf(err, "%s", node))
	}
}

func (node *Node) onGranted(d time.Duration) {
	node.requesting = false
	node.counters[CtrGrants]++
	if len(node.queue) == 0 {
		return
	}
	ppdu := node.queue[0]
	node.queue = node.queue[1:]
	node.queueDelay += node.sched.Now() - ppdu.QueuedAt
	node.counters[CtrTxPpdu]++
	node.sending = true
	node.sendFrame(ppdu, 0)
}

// sendFrame transmits frame i of ppdu and chains the following sub-frames back to back.
func (node *Node) sendFrame(ppdu Ppdu, i int) {
	if err := node.phy.SendPacket(ppdu.Frames[i]); err != nil {
		if i == 0 && errors.Cause(err) == phy.ErrTxInvalidState {
			// switching channel: retry the whole PPDU once the PHY is free
			node.log.Debugf("deferring PPDU: %v", err)
			node.queue = append([]Ppdu{ppdu}, node.queue...)
			node.counters[CtrTxPpdu]--
			node.sched.Schedule(node.phy.DelayUntilIdle(), node.endPpdu)
			return
		}
		node.log.Warnf("send aborted: %v", err)
		node.counters[CtrTxDrop] += uint64(len(ppdu.Frames) - i)
		node.sched.ScheduleNow(node.endPpdu)
		return
	}
	delay := node.phy.DelayUntilIdle()
	if i+1 < len(ppdu.Frames) {
		node.sched.Schedule(delay, func() { node.sendFrame(ppdu, i+1) })
		return
	}
	node.sched.Schedule(delay, node.endPpdu)
}

func (node *Node) endPpdu() {
	node.sending = false
	node.requestAccess()
}

func (node *Node) onReceiveOk(frame phy.WifiFrame, snr float64) {
	node.counters[CtrRxPpduOk]++
	node.snrSumDb += RatioToDb(snr)
	node.snrCount++
}

func (node *Node) onReceiveError(frame phy.WifiFrame, snr float64) {
	node.counters[CtrRxPpduError]++
}

func (node *Node) onMpduReceived(info phy.MonitorInfo) {
	node.counters[CtrRxMpduOk]++
	hdr, ok := ParseQosData(info.Frame.Packet)
	if !ok || (hdr.Dst != node.id && hdr.Dst != BroadcastNodeId) {
		return
	}
	node.counters[CtrRxDelivered]++
	node.counters[CtrRxBytes] += uint64(len(info.Frame.Packet))
	node.counters[fmt.Sprintf("%s%d", ctrRxTidPfx, hdr.Tid)]++
}

// SetChannel switches the PHY to channel ch.
func (node *Node) SetChannel(ch ChannelNumber) error {
	return node.phy.SetChannelNumber(ch)
}

func (node *Node) Sleep() {
	node.phy.SetSleepMode()
}

func (node *Node) Wake() {
	node.phy.ResumeFromSleep()
}
