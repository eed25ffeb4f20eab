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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
)

// PhyCollector counts receptions, drops, transmissions and time in state per PHY.
type PhyCollector struct {
	gatherer prometheus.Gatherer

	RxOk        *prometheus.CounterVec
	RxDrops     *prometheus.CounterVec
	Tx          *prometheus.CounterVec
	TxDrops     *prometheus.CounterVec
	SignalPower *prometheus.HistogramVec
	StateTime   *prometheus.CounterVec
}

// NewPhyCollector registers the PHY metrics against reg, or the default registerer when reg is nil.
func NewPhyCollector(reg prometheus.Registerer) (*PhyCollector, error) {
	reg, gatherer := resolve(reg)

	rxOk, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_rx_ok_total",
		Help: "MPDUs received without error.",
	}, []string{"node"}), "phy_rx_ok_total")
	if err != nil {
		return nil, err
	}

	rxDrops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_rx_drops_total",
		Help: "Signals dropped or frames failed at the receiver, by reason.",
	}, []string{"node", "reason"}), "phy_rx_drops_total")
	if err != nil {
		return nil, err
	}

	tx, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_tx_total",
		Help: "Frames transmitted.",
	}, []string{"node"}), "phy_tx_total")
	if err != nil {
		return nil, err
	}

	txDrops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_tx_drops_total",
		Help: "Frames dropped before transmission.",
	}, []string{"node"}), "phy_tx_drops_total")
	if err != nil {
		return nil, err
	}

	power, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phy_signal_arrival_dbm",
		Help:    "In-channel power of arriving signals.",
		Buckets: prometheus.LinearBuckets(-100, 10, 10),
	}, []string{"node", "kind"}), "phy_signal_arrival_dbm")
	if err != nil {
		return nil, err
	}

	stateTime, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phy_state_seconds_total",
		Help: "Virtual time spent in each PHY state.",
	}, []string{"node", "state"}), "phy_state_seconds_total")
	if err != nil {
		return nil, err
	}

	return &PhyCollector{
		gatherer:    gatherer,
		RxOk:        rxOk,
		RxDrops:     rxDrops,
		Tx:          tx,
		TxDrops:     txDrops,
		SignalPower: power,
		StateTime:   stateTime,
	}, nil
}

func (c *PhyCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Attach adds hooks to p that feed the collector.
func (c *PhyCollector) Attach(p *phy.Phy) {
	if c == nil {
		return
	}
	node := nodeLabel(p.Id())
	p.AddHooks(phy.Hooks{
		SignalArrival: func(wifi bool, _ NodeId, rxPowerDbm DbValue, _ time.Duration) {
			kind := "foreign"
			if wifi {
				kind = "wifi"
			}
			c.SignalPower.WithLabelValues(node, kind).Observe(rxPowerDbm)
		},
		RxEnd: func(*phy.WifiFrame) {
			c.RxOk.WithLabelValues(node).Inc()
		},
		RxDrop: func(_ *phy.WifiFrame, reason phy.DropReason) {
			c.RxDrops.WithLabelValues(node, reason.String()).Inc()
		},
		TxBegin: func(*phy.WifiFrame) {
			c.Tx.WithLabelValues(node).Inc()
		},
		TxDrop: func(*phy.WifiFrame) {
			c.TxDrops.WithLabelValues(node).Inc()
		},
	})
}

// StateLogger returns a PHY state logger that adds to the time-in-state counter of node id.
func (c *PhyCollector) StateLogger(id NodeId) phy.StateLogger {
	node := nodeLabel(id)
	return func(_ time.Duration, duration time.Duration, state PhyState) {
		if c == nil || duration <= 0 {
			return
		}
		c.StateTime.WithLabelValues(node, state.String()).Add(duration.Seconds())
	}
}
