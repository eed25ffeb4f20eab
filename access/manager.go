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
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	. "github.com/openthread/ot-lbtsim/types"
)

var (
	ErrNoGrantCallback     = errors.New("access granted callback is not set")
	ErrThresholdOutOfRange = errors.New("energy detection threshold out of range [-100, -50] dBm")
	ErrNoPhy               = errors.New("no Wi-Fi PHY attached")
	ErrUnknownKind         = errors.New("unknown channel access manager type")
)

const (
	DefaultGrantDuration        = time.Minute
	DefaultEdThresholdDbm       = DbValue(-72.0)
	MinEdThresholdDbm           = DbValue(-100.0)
	MaxEdThresholdDbm           = DbValue(-50.0)
	DefaultDutyCyclePeriod      = 80 * time.Millisecond
	DefaultDutyCycleOnDuration  = 40 * time.Millisecond
	DefaultDutyCycleStartOffset = time.Duration(0)
)

// GrantCallback is called with the duration for which the client may transmit.
type GrantCallback func(duration time.Duration)

// GrantObserver sees every grant, with the time the request waited for it.
type GrantObserver func(id NodeId, kind Kind, waited time.Duration, duration time.Duration)

// Manager decides when a client may use the channel. Every RequestAccess leads to exactly one
// call of the grant callback.
type Manager interface {
	Id() NodeId
	Kind() Kind
	RequestAccess() error
	SetAccessGrantedCallback(cb GrantCallback)
	AddGrantObserver(o GrantObserver)
	GrantDuration() time.Duration
	SetGrantDuration(d time.Duration)
	LastTxopStartTime() time.Duration
	EnergyDetectionThreshold() DbValue
	SetEnergyDetectionThreshold(dbm DbValue) error
	PendingRequests() int
}

type Kind byte

const (
	KindBase Kind = iota
	KindBasicLbt
	KindLbt
	KindDutyCycle
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindBasicLbt:
		return "basic-lbt"
	case KindLbt:
		return "lbt"
	case KindDutyCycle:
		return "duty-cycle"
	default:
		return "invalid"
	}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindBase, KindBasicLbt, KindLbt, KindDutyCycle} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return KindBase, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Base grants every request at once: the channel is always available.
type Base struct {
	id            NodeId
	kind          Kind
	sched         *event.Scheduler
	log           *logger.PhyLogger
	grantDuration time.Duration
	lastTxopStart time.Duration
	edThreshold   DbValue
	granted       GrantCallback
	observers     []GrantObserver
	requests      []time.Duration
}

func NewBase(id NodeId, sched *event.Scheduler) *Base {
	return newBase(id, KindBase, sched)
}

func newBase(id NodeId, kind Kind, sched *event.Scheduler) *Base {
	return &Base{
		id:            id,
		kind:          kind,
		sched:         sched,
		log:           logger.GetPhyLogger(id),
		grantDuration: DefaultGrantDuration,
		edThreshold:   DefaultEdThresholdDbm,
	}
}

func (b *Base) Id() NodeId {
	return b.id
}

func (b *Base) Kind() Kind {
	return b.kind
}

func (b *Base) RequestAccess() error {
	if err := b.enqueue(); err != nil {
		return err
	}
	b.grantAll(b.grantDuration)
	return nil
}

func (b *Base) SetAccessGrantedCallback(cb GrantCallback) {
	b.granted = cb
}

func (b *Base) AddGrantObserver(o GrantObserver) {
	b.observers = append(b.observers, o)
}

func (b *Base) GrantDuration() time.Duration {
	return b.grantDuration
}

// SetGrantDuration sets the duration of future grants and marks now as the start of the last TXOP.
func (b *Base) SetGrantDuration(d time.Duration) {
	b.grantDuration = d
	b.lastTxopStart = b.sched.Now()
}

func (b *Base) LastTxopStartTime() time.Duration {
	return b.lastTxopStart
}

func (b *Base) EnergyDetectionThreshold() DbValue {
	return b.edThreshold
}

func (b *Base) SetEnergyDetectionThreshold(dbm DbValue) error {
	if dbm < MinEdThresholdDbm || dbm > MaxEdThresholdDbm {
		return errors.Wrapf(ErrThresholdOutOfRange, "%.1f dBm", dbm)
	}
	b.edThreshold = dbm
	return nil
}

func (b *Base) PendingRequests() int {
	return len(b.requests)
}

// enqueue records a request, failing if no one would hear the grant.
func (b *Base) enqueue() error {
	if b.granted == nil {
		return errors.Wrapf(ErrNoGrantCallback, "node %d (%s)", b.id, b.kind)
	}
	b.requests = append(b.requests, b.sched.Now())
	return nil
}

// grantAll answers every pending request with a grant of duration d.
func (b *Base) grantAll(d time.Duration) {
	now := b.sched.Now()
	requests := b.requests
	b.requests = nil
	if len(requests) > 0 {
		b.lastTxopStart = now
	}
	for _, requestedAt := range requests {
		b.log.Debugf("%s access granted for %v after %v", b.kind, d, now-requestedAt)
		for _, o := range b.observers {
			o(b.id, b.kind, now-requestedAt, d)
		}
		b.granted(d)
	}
}
