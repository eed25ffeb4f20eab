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

package phy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/openthread/ot-lbtsim/types"
)

func TestClassifyArrival(t *testing.T) {
	assert.Equal(t, Decode, classifyArrival(PhyIdle, false))
	assert.Equal(t, Decode, classifyArrival(PhyCcaBusy, true))
	for _, st := range []PhyState{PhyRx, PhyTx, PhySwitching} {
		assert.Equal(t, DropAndAccumulate, classifyArrival(st, true), st.String())
		assert.Equal(t, Drop, classifyArrival(st, false), st.String())
	}
	assert.Equal(t, Drop, classifyArrival(PhySleep, true))
}

func TestClassifyRequests(t *testing.T) {
	expected := map[PhyState][3]Outcome{
		PhyIdle:      {Apply, Apply, Drop},
		PhyCcaBusy:   {Apply, Apply, Drop},
		PhyRx:        {Apply, Defer, Drop},
		PhyTx:        {Defer, Defer, Drop},
		PhySwitching: {Defer, Defer, Drop},
		PhySleep:     {Drop, Drop, Apply},
	}
	for _, st := range AllPhyStates {
		e := expected[st]
		assert.Equal(t, e[0], classifyChannelSwitch(st), "switch in %s", st)
		assert.Equal(t, e[1], classifySleep(st), "sleep in %s", st)
		assert.Equal(t, e[2], classifyResume(st), "resume in %s", st)
	}
}

func TestDropReasonString(t *testing.T) {
	assert.Equal(t, "busy-tx", dropReasonFor(PhyTx).String())
	assert.Equal(t, "switching", dropReasonFor(PhySwitching).String())
	assert.Equal(t, "sync-failed", DropSyncFailed.String())
}
