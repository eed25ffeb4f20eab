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

package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

func TestQosDataFrame(t *testing.T) {
	pkt := BuildQosData(3, 7, 1234, CosVideo, 100)
	require.Len(t, pkt, qosHeaderSize+100+fcsSize)
	assert.Equal(t, byte(0x88), pkt[0])

	hdr, ok := ParseQosData(pkt)
	require.True(t, ok)
	assert.Equal(t, QosHeader{Src: 3, Dst: 7, Seq: 1234, Tid: 4}, hdr)

	pkt[40] ^= 0x01
	_, ok = ParseQosData(pkt)
	assert.False(t, ok, "corrupted payload must fail the FCS check")

	_, ok = ParseQosData(pkt[:20])
	assert.False(t, ok)

	bcast, ok := ParseQosData(BuildQosData(1, BroadcastNodeId, 0, CosBestEffort, 0))
	require.True(t, ok)
	assert.Equal(t, BroadcastNodeId, bcast.Dst)
}

func TestAccessCategoryOf(t *testing.T) {
	assert.Equal(t, "AC_BE", AccessCategoryOf(CosBestEffort))
	assert.Equal(t, "AC_BE", AccessCategoryOf(CosCriticalApps))
	assert.Equal(t, "AC_BK", AccessCategoryOf(CosBackground))
	assert.Equal(t, "AC_BK", AccessCategoryOf(CosExcellentEffort))
	assert.Equal(t, "AC_VI", AccessCategoryOf(CosVoice))
	assert.Equal(t, "AC_VO", AccessCategoryOf(CosNetworkControl))
}

func TestBuildPpdu(t *testing.T) {
	single := BuildPpdu(1, 2, 10, CosBestEffort, 500, wifimode.OfdmRate24Mbps, PreambleLong, 1)
	require.Len(t, single.Frames, 1)
	assert.Equal(t, NormalMpdu, single.Frames[0].MpduType)
	assert.False(t, single.Frames[0].TxVector.Aggregation)

	agg := BuildPpdu(1, 2, 10, CosVoice, 500, wifimode.HtModes[5], PreambleHtMf, 3)
	require.Len(t, agg.Frames, 3)
	assert.Equal(t, []MpduType{MpduInAggregate, MpduInAggregate, LastMpduInAggregate},
		[]MpduType{agg.Frames[0].MpduType, agg.Frames[1].MpduType, agg.Frames[2].MpduType})
	assert.Equal(t, PreambleHtMf, agg.Frames[0].TxVector.Preamble)
	assert.Equal(t, PreambleNone, agg.Frames[1].TxVector.Preamble)
	assert.Equal(t, PreambleNone, agg.Frames[2].TxVector.Preamble)
	assert.Equal(t, uint8(3), agg.Frames[0].AmpduMpdus)
	assert.Equal(t, uint8(1), agg.Frames[2].AmpduMpdus)

	hdr, ok := ParseQosData(agg.Frames[2].Packet)
	require.True(t, ok)
	assert.Equal(t, uint16(12), hdr.Seq)
	assert.Equal(t, uint8(CosVoice), hdr.Tid)
}
