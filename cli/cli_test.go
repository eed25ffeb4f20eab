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

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/progctx"
	"github.com/openthread/ot-lbtsim/simulation"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	assert.NotNil(t, parseBytes([]byte("wrongcmd"), &cmd))

	assert.Nil(t, parseBytes([]byte("go 1"), &cmd))
	assert.Equal(t, "1", cmd.Go.Time)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("go 64us"), &cmd))
	assert.Equal(t, "64us", cmd.Go.Time)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("go 1.5ms"), &cmd))
	assert.Equal(t, "1.5ms", cmd.Go.Time)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("go ever"), &cmd))
	assert.NotNil(t, cmd.Go.Ever)
	assert.NotNil(t, parseBytes([]byte("go"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("send 1 2"), &cmd))
	assert.True(t, cmd.Send != nil && cmd.Send.Src.Id == 1 && cmd.Send.Dst.Id == 2 && cmd.Send.Size == nil)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("send 1 2 mode HtMcs3 ampdu 4 size 200 cos 5"), &cmd))
	assert.Equal(t, "HtMcs3", cmd.Send.Mode.Val)
	assert.Equal(t, 4, cmd.Send.Ampdu.Val)
	assert.Equal(t, 200, cmd.Send.Size.Val)
	assert.Equal(t, 5, cmd.Send.Cos.Val)
	assert.NotNil(t, parseBytes([]byte("send 1"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("ed 1 -72.5"), &cmd))
	assert.Equal(t, "-72.5", cmd.Ed.Dbm)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("ed 1"), &cmd))
	assert.Equal(t, "", cmd.Ed.Dbm)

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("channel 1 40"), &cmd))
	assert.Equal(t, 40, *cmd.Channel.Channel)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("kpi save \"out.json\""), &cmd))
	assert.Equal(t, "out.json", *cmd.Kpi.Save.Name)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("energy save"), &cmd))
	assert.True(t, cmd.Energy.Save != nil && cmd.Energy.Save.Name == nil)

	for _, line := range []string{"access 3", "counters", "counters 2", "exit", "help", "help send", "log",
		"log debug", "nodes", "sleep 1", "state 1", "time", "wake 1"} {
		cmd = Command{}
		assert.Nil(t, parseBytes([]byte(line), &cmd), line)
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("2")
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
	d, err = parseDuration("250us")
	assert.NoError(t, err)
	assert.Equal(t, 250*time.Microsecond, d)
	_, err = parseDuration("x")
	assert.Error(t, err)
}

const testScenario = `
duration: 1s
nodes:
    - id: 1
      pos: [0, 0]
      access: {type: lbt}
    - id: 2
      pos: [10, 0]
`

func newTestRunner(t *testing.T) (*CmdRunner, *simulation.Simulation, *progctx.ProgCtx) {
	cfg, err := simulation.ParseConfig([]byte(testScenario))
	require.NoError(t, err)
	cfg.OutputDir = t.TempDir()
	sim, err := simulation.NewSimulation(cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	ctx := progctx.New(context.Background())
	return NewCmdRunner(ctx, sim), sim, ctx
}

func run(t *testing.T, rt *CmdRunner, cmdline string) string {
	var out bytes.Buffer
	_ = rt.HandleCommand(cmdline, &out)
	return out.String()
}

func TestCmdRunner(t *testing.T) {
	rt, sim, ctx := newTestRunner(t)

	assert.Equal(t, "Done\n", run(t, rt, "go 10ms"))
	assert.Equal(t, 10*time.Millisecond, sim.Now())
	assert.Equal(t, "10000\nDone\n", run(t, rt, "time"))

	out := run(t, rt, "nodes")
	assert.Contains(t, out, "id=1\tpos=(0,0)\tchannel=36\tstate=IDLE\taccess=lbt\tqueue=0\n")
	assert.Contains(t, out, "id=2\tpos=(10,0)")

	assert.Equal(t, "Done\n", run(t, rt, "send 1 2 size 200 ampdu 2 cos 6"))
	assert.Equal(t, "Done\n", run(t, rt, "go 5ms"))
	n2, err := sim.Node(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n2.Counters()[simulation.CtrRxDelivered])
	assert.Equal(t, uint64(2), n2.Counters()["rx.tid.6"])
	assert.Contains(t, run(t, rt, "counters 2"), "rx.delivered: 2")

	assert.True(t, strings.HasPrefix(run(t, rt, "send 9 2"), "Error: "))
	assert.True(t, strings.HasPrefix(run(t, rt, "send 1 2 cos 8"), "Error: "))
	assert.True(t, strings.HasPrefix(run(t, rt, "send 1 2 mode Bogus"), "Error: "))

	assert.Equal(t, "36\nDone\n", run(t, rt, "channel 1"))
	assert.Equal(t, "Done\n", run(t, rt, "channel 1 40"))
	assert.Equal(t, "40\nDone\n", run(t, rt, "channel 1"))
	assert.True(t, strings.HasPrefix(run(t, rt, "channel 1 7"), "Error: "))

	assert.Equal(t, "-72\nDone\n", run(t, rt, "ed 1"))
	assert.Equal(t, "Done\n", run(t, rt, "ed 1 -65"))
	n1, _ := sim.Node(1)
	assert.Equal(t, -65.0, n1.Access().EnergyDetectionThreshold())
	assert.True(t, strings.HasPrefix(run(t, rt, "ed 1 -20"), "Error: "))
	assert.Contains(t, run(t, rt, "access 1"), "kind=lbt\ted=-65 dBm")

	assert.Equal(t, "Done\n", run(t, rt, "sleep 2"))
	assert.Equal(t, "Done\n", run(t, rt, "go 1ms"))
	assert.True(t, strings.HasPrefix(run(t, rt, "state 2"), "SLEEP\n"))
	assert.Equal(t, "Done\n", run(t, rt, "wake 2"))

	assert.Contains(t, run(t, rt, "energy"), "1\t")
	assert.Contains(t, run(t, rt, "kpi"), "\"status\": \"ok\"")
	assert.Equal(t, "Done\n", run(t, rt, "kpi save"))

	lv := logger.GetLevel()
	defer logger.SetLevel(lv)
	assert.Equal(t, "Done\n", run(t, rt, "log debug"))
	assert.Equal(t, "debug\nDone\n", run(t, rt, "log"))
	assert.True(t, strings.HasPrefix(run(t, rt, "log loud"), "Error: "))

	assert.Contains(t, run(t, rt, "help"), "send")
	assert.Contains(t, run(t, rt, "help send"), "Definition:")
	assert.Contains(t, run(t, rt, "help bogus"), "Non-existent command")

	assert.True(t, strings.HasPrefix(run(t, rt, "bogus"), "Error: "))

	assert.Equal(t, "Done\n", run(t, rt, "exit"))
	assert.Error(t, ctx.Err())
	assert.True(t, sim.IsStopped())
	var out2 bytes.Buffer
	assert.Error(t, rt.HandleCommand("time", &out2))
	assert.Empty(t, out2.String())
}

func TestGoEverStopsOnCancel(t *testing.T) {
	rt, sim, ctx := newTestRunner(t)
	done := make(chan string)
	go func() {
		done <- run(t, rt, "go ever")
	}()
	time.Sleep(50 * time.Millisecond)
	ctx.Cancel("test")
	select {
	case out := <-done:
		assert.Equal(t, "Done\n", out)
	case <-time.After(5 * time.Second):
		t.Fatal("go ever kept running after cancel")
	}
	assert.Greater(t, sim.Now(), time.Duration(0))
}
