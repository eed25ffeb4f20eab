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

package channel

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
)

const speedOfLight = 299792458.0 // m/s

var ErrDuplicateNode = errors.New("node already attached to the channel")

// Position of a node, in position units.
type Position struct {
	X, Y float64
}

func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Receiver is a PHY that can be attached to a channel.
type Receiver interface {
	Id() NodeId
	StartRx(params phy.SignalParams)
}

type attachment struct {
	id       NodeId
	pos      Position
	receiver Receiver // nil for transmit-only nodes
}

// SpectrumChannel delivers each transmitted signal to every other attached receiver, attenuated by path loss
// and fading, after the propagation delay.
type SpectrumChannel struct {
	sched  *event.Scheduler
	params *ModelParams
	fading *fadingModel
	nodes  []*attachment
	byId   map[NodeId]*attachment

	txCount uint64
}

func NewSpectrumChannel(sched *event.Scheduler, params *ModelParams) *SpectrumChannel {
	if params == nil {
		params = NewModelParams(PathLossLogDistance)
	}
	return &SpectrumChannel{
		sched:  sched,
		params: params,
		fading: newFadingModel(),
		byId:   make(map[NodeId]*attachment),
	}
}

func (c *SpectrumChannel) Params() *ModelParams {
	return c.params
}

// AddReceiver attaches a receiving PHY at a position.
func (c *SpectrumChannel) AddReceiver(r Receiver, pos Position) error {
	return c.attach(&attachment{id: r.Id(), pos: pos, receiver: r})
}

// AddTransmitter attaches a node that only transmits, such as a foreign interferer.
func (c *SpectrumChannel) AddTransmitter(id NodeId, pos Position) error {
	return c.attach(&attachment{id: id, pos: pos})
}

func (c *SpectrumChannel) attach(a *attachment) error {
	if _, ok := c.byId[a.id]; ok {
		return errors.Wrapf(ErrDuplicateNode, "node %d", a.id)
	}
	c.byId[a.id] = a
	c.nodes = append(c.nodes, a)
	return nil
}

func (c *SpectrumChannel) SetPosition(id NodeId, pos Position) error {
	a, ok := c.byId[id]
	if !ok {
		return errors.Errorf("node %d not attached", id)
	}
	a.pos = pos
	return nil
}

func (c *SpectrumChannel) Position(id NodeId) (Position, bool) {
	a, ok := c.byId[id]
	if !ok {
		return Position{}, false
	}
	return a.pos, true
}

func (c *SpectrumChannel) NumNodes() int {
	return len(c.nodes)
}

func (c *SpectrumChannel) TxCount() uint64 {
	return c.txCount
}

// LinkLossDb returns the current loss between two attached nodes.
func (c *SpectrumChannel) LinkLossDb(src, dst NodeId) DbValue {
	a, b := c.byId[src], c.byId[dst]
	logger.AssertTrue(a != nil && b != nil, "link %d-%d not attached", src, dst)
	return c.lossDb(a.pos, b.pos)
}

func (c *SpectrumChannel) lossDb(src, dst Position) DbValue {
	dist := src.DistanceTo(dst)
	return pathLossDb(dist, c.params) + c.fading.computeFading(src, dst, c.sched.Now(), c.params)
}

func (c *SpectrumChannel) propagationDelay(src, dst Position) time.Duration {
	meters := src.DistanceTo(dst) * c.params.MeterPerUnit
	return time.Duration(meters / speedOfLight * float64(time.Second))
}

// Transmit delivers params to every attached receiver except the sender.
func (c *SpectrumChannel) Transmit(params phy.SignalParams) {
	src, ok := c.byId[params.SenderId]
	logger.AssertTrue(ok, "transmission from unattached node %d", params.SenderId)
	c.txCount++
	for _, dst := range c.nodes {
		if dst.id == params.SenderId || dst.receiver == nil {
			continue
		}
		rx := params
		rx.Psd = params.Psd.Scale(DbToRatio(-c.lossDb(src.pos, dst.pos)))
		r := dst.receiver
		c.sched.Schedule(c.propagationDelay(src.pos, dst.pos), func() {
			r.StartRx(rx)
		})
	}
}

var _ phy.Channel = (*SpectrumChannel)(nil)
