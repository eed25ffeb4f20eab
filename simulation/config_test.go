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
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-lbtsim/access"
	"github.com/openthread/ot-lbtsim/channel"
	"github.com/openthread/ot-lbtsim/framesync"
	"github.com/openthread/ot-lbtsim/phy"
	"github.com/openthread/ot-lbtsim/wifimode"
)

var testYamlFile = `
seed: 42
duration: 250ms
channel:
    model: itu
    meter-per-unit: 0.5
nodes:
    - id: 1
      pos: [0, 0]
      access:
          type: lbt
          ed-threshold: -75
          cw-min: 7
    - id: 2
      pos: [20, 0]
      standard: a
      channel: 40
      tx-power: 20
      cca-threshold: -70
      frame-sync: none
flows:
    - src: 1
      dst: 2
      interval: 2ms
      ampdu: 4
      cos: 5
interferers:
    - id: 10
      pos: [5, 5]
      channel: 36
      tx-power: 23
      period: 80ms
      on-time: 40ms
      access:
          type: duty-cycle
          period: 20ms
          on-time: 5ms
`

func TestYamlConfigUnmarshal(t *testing.T) {
	cfg, err := ParseConfig([]byte(testYamlFile))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Duration)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, DefaultQueueLimit, cfg.QueueLimit)
	assert.Len(t, cfg.NodesList, 2)
	assert.Equal(t, [2]float64{20, 0}, cfg.NodesList[1].Pos)

	f := cfg.Flows[0]
	assert.Equal(t, 2*time.Millisecond, f.Interval)
	assert.Equal(t, DefaultPayloadSize, f.Size)
	assert.Equal(t, DefaultFlowMode, f.Mode)
	assert.Equal(t, 4, f.Ampdu)
	assert.Equal(t, CosVoice, f.Cos)

	params, err := cfg.ChannelParams()
	require.NoError(t, err)
	assert.Equal(t, channel.PathLossItu, params.Model)
	assert.Equal(t, 0.5, params.MeterPerUnit)

	pc, err := cfg.NodesList[1].PhyConfig()
	require.NoError(t, err)
	assert.Equal(t, phy.Standard80211a, pc.Standard)
	assert.Equal(t, uint16(40), pc.ChannelNumber)
	assert.Equal(t, 20.0, pc.TxPowerStartDbm)
	assert.Equal(t, -70.0, pc.CcaMode1ThresholdDbm)
	assert.Equal(t, framesync.ChannelNone, pc.FrameSyncModel)

	pc, err = cfg.NodesList[0].PhyConfig()
	require.NoError(t, err)
	assert.Equal(t, phy.DefaultConfig(), pc)

	ac, err := cfg.NodesList[0].Access.AccessConfig()
	require.NoError(t, err)
	assert.Equal(t, access.KindLbt, ac.Kind)
	assert.Equal(t, -75.0, ac.EdThresholdDbm)
	assert.Equal(t, 7, ac.CwMin)
	assert.Equal(t, access.DefaultCwMax, ac.CwMax)

	ac, err = cfg.Interferers[0].Access.AccessConfig()
	require.NoError(t, err)
	assert.Equal(t, access.KindDutyCycle, ac.Kind)
	assert.Equal(t, 5*time.Millisecond, ac.DutyCycleOn)
}

func TestYamlArrayUnmarshal(t *testing.T) {
	var pos [2]float64
	require.NoError(t, yaml.Unmarshal([]byte("[4.5, -6]"), &pos))
	assert.Equal(t, [2]float64{4.5, -6}, pos)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no nodes", "seed: 1\n"},
		{"duplicate id", "nodes: [{id: 1}, {id: 1}]\n"},
		{"bad level", "log-level: loud\nnodes: [{id: 1}]\n"},
		{"bad model", "channel: {model: free}\nnodes: [{id: 1}]\n"},
		{"bad channel", "nodes: [{id: 1, channel: 37}]\n"},
		{"bad standard", "nodes: [{id: 1, standard: ac}]\n"},
		{"bad access", "nodes: [{id: 1, access: {type: csma}}]\n"},
		{"ed range", "nodes: [{id: 1, access: {type: lbt, ed-threshold: -30}}]\n"},
		{"flow to nowhere", "nodes: [{id: 1}]\nflows: [{src: 1, dst: 3}]\n"},
		{"bad mode", "nodes: [{id: 1}, {id: 2}]\nflows: [{src: 1, dst: 2, mode: VhtMcs9}]\n"},
		{"ampdu", "nodes: [{id: 1}, {id: 2}]\nflows: [{src: 1, dst: 2, ampdu: 65}]\n"},
		{"cos", "nodes: [{id: 1}, {id: 2}]\nflows: [{src: 1, dst: 2, cos: 8}]\n"},
		{"lbt interferer", "nodes: [{id: 1}]\ninterferers: [{id: 2, channel: 36, period: 1ms, on-time: 1ms, access: {type: lbt}}]\n"},
		{"pcap type", "pcap: {type: wpan}\nnodes: [{id: 1}]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}

	_, err := ParseConfig([]byte("nodes: [{id: 1, access: {type: lbt, ed-threshold: -30}}]\n"))
	assert.Equal(t, access.ErrThresholdOutOfRange, errors.Cause(err))
	_, err = ParseConfig([]byte("nodes: [{id: 1}, {id: 2}]\nflows: [{src: 1, dst: 2, mode: VhtMcs9}]\n"))
	assert.Equal(t, wifimode.ErrUnknownMode, errors.Cause(err))
}
