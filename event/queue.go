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

package event

import (
	"time"

	"github.com/openthread/ot-lbtsim/logger"
)

type scheduledEvent struct {
	Id        Id
	Timestamp time.Duration
	seq       uint64
	fn        func()

	index int
}

type eventQueue []*scheduledEvent

func (eq eventQueue) Len() int {
	return len(eq)
}

// Less orders by timestamp, and events with the same timestamp in the order they were scheduled.
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].Timestamp != eq[j].Timestamp {
		return eq[i].Timestamp < eq[j].Timestamp
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) {
	a, b := eq[i], eq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	eq[i], eq[j] = b, a             // swap the elements
	eq[i].index, eq[j].index = i, j // fix the indexes
}

func (eq *eventQueue) Push(x interface{}) {
	e := x.(*scheduledEvent)
	*eq = append(*eq, e)
	e.index = len(*eq) - 1
}

func (eq *eventQueue) Pop() (elem interface{}) {
	eqlen := len(*eq)
	e := (*eq)[eqlen-1]
	(*eq)[eqlen-1] = nil
	*eq = (*eq)[:eqlen-1]
	e.index = -1
	return e
}
