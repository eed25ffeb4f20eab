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

	"github.com/openthread/ot-lbtsim/access"
	. "github.com/openthread/ot-lbtsim/types"
)

// AccessCollector tracks channel access grants.
type AccessCollector struct {
	gatherer prometheus.Gatherer

	Grants       *prometheus.CounterVec
	GrantWait    *prometheus.HistogramVec
	GrantedTime  *prometheus.CounterVec
	PendingGauge *prometheus.GaugeVec
}

func NewAccessCollector(reg prometheus.Registerer) (*AccessCollector, error) {
	reg, gatherer := resolve(reg)

	grants, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_grants_total",
		Help: "Channel access grants.",
	}, []string{"node", "kind"}), "access_grants_total")
	if err != nil {
		return nil, err
	}

	wait, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "access_grant_wait_seconds",
		Help:    "Virtual time between an access request and its grant.",
		Buckets: prometheus.ExponentialBuckets(10e-6, 4, 10),
	}, []string{"kind"}), "access_grant_wait_seconds")
	if err != nil {
		return nil, err
	}

	granted, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_granted_seconds_total",
		Help: "Total channel time granted.",
	}, []string{"node"}), "access_granted_seconds_total")
	if err != nil {
		return nil, err
	}

	pending, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "access_pending_requests",
		Help: "Access requests waiting for a grant.",
	}, []string{"node"}), "access_pending_requests")
	if err != nil {
		return nil, err
	}

	return &AccessCollector{
		gatherer:     gatherer,
		Grants:       grants,
		GrantWait:    wait,
		GrantedTime:  granted,
		PendingGauge: pending,
	}, nil
}

func (c *AccessCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Attach observes every grant of m.
func (c *AccessCollector) Attach(m access.Manager) {
	if c == nil {
		return
	}
	m.AddGrantObserver(func(id NodeId, kind access.Kind, waited time.Duration, duration time.Duration) {
		node := nodeLabel(id)
		c.Grants.WithLabelValues(node, kind.String()).Inc()
		c.GrantWait.WithLabelValues(kind.String()).Observe(waited.Seconds())
		c.GrantedTime.WithLabelValues(node).Add(duration.Seconds())
		c.PendingGauge.WithLabelValues(node).Set(float64(m.PendingRequests()))
	})
}

// SetPending updates the pending request gauge of m.
func (c *AccessCollector) SetPending(m access.Manager) {
	if c == nil {
		return
	}
	c.PendingGauge.WithLabelValues(nodeLabel(m.Id())).Set(float64(m.PendingRequests()))
}
