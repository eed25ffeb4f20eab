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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/progctx"
	"github.com/openthread/ot-lbtsim/simulation"
	. "github.com/openthread/ot-lbtsim/types"
)

const (
	Prompt = "> "

	defaultSendSize = 1000
	defaultSendMode = "HtMcs7"
	goEverStep      = time.Second
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes CLI commands against a simulation. The simulation is only driven from the goroutine
// calling HandleCommand.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// HandleCommand parses and executes one command line, writing its output and a Done/Error status line.
// It returns an error only once the program context is done.
func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}
		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Channel != nil {
		rt.executeChannel(cc, cmd.Channel)
	} else if cmd.Sleep != nil {
		rt.executeSleep(cc, cmd.Sleep.Node, true)
	} else if cmd.Wake != nil {
		rt.executeSleep(cc, cmd.Wake.Node, false)
	} else if cmd.State != nil {
		rt.executeState(cc, cmd.State)
	} else if cmd.Ed != nil {
		rt.executeEd(cc, cmd.Ed)
	} else if cmd.Access != nil {
		rt.executeAccess(cc, cmd.Access)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cmd.Counters)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, err = time.ParseDuration(s + "s") // try parsing as seconds
	}
	if err != nil {
		return 0, errors.Errorf("could not parse time duration: %s", s)
	}
	if d < 0 {
		return 0, errors.Errorf("negative time duration: %s", s)
	}
	return d, nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever == nil {
		d, err := parseDuration(cmd.Time)
		if err != nil {
			cc.error(err)
			return
		}
		cc.error(rt.sim.Go(rt.ctx, d))
		return
	}

	for rt.ctx.Err() == nil { // run forever but stop once the program context is done
		if err := rt.sim.Go(rt.ctx, goEverStep); err != nil {
			if rt.ctx.Err() == nil {
				cc.error(err)
			}
			return
		}
	}
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	cc.outputf("%d\n", rt.sim.Now()/time.Microsecond)
}

func (rt *CmdRunner) getNode(cc *CommandContext, sel NodeSelector) *simulation.Node {
	node, err := rt.sim.Node(sel.Id)
	if err != nil {
		cc.error(err)
		return nil
	}
	return node
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext) {
	for _, id := range rt.sim.GetNodes() {
		node, _ := rt.sim.Node(id)
		pos, _ := rt.sim.Channel().Position(id)
		cc.outputf("id=%d\tpos=(%g,%g)\tchannel=%d\tstate=%s\taccess=%s\tqueue=%d\n", id, pos.X, pos.Y,
			node.Phy().ChannelNumber(), node.Phy().State(), node.Access().Kind(), node.QueueLen())
	}
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	src := rt.getNode(cc, cmd.Src)
	if src == nil {
		return
	}
	if rt.getNode(cc, cmd.Dst) == nil {
		return
	}
	size, cos, ampdu, mode := defaultSendSize, 0, 1, defaultSendMode
	if cmd.Size != nil {
		size = cmd.Size.Val
	}
	if cmd.Cos != nil {
		cos = cmd.Cos.Val
	}
	if cmd.Ampdu != nil {
		ampdu = cmd.Ampdu.Val
	}
	if cmd.Mode != nil {
		mode = cmd.Mode.Val
	}
	if cos < 0 || cos > int(simulation.CosNetworkControl) {
		cc.errorf("class of service %d out of range [0,%d]", cos, simulation.CosNetworkControl)
		return
	}
	if size < 0 {
		cc.errorf("invalid size %d", size)
		return
	}
	cc.error(src.SendNow(cmd.Dst.Id, size, simulation.ClassOfService(cos), ampdu, mode))
}

func (rt *CmdRunner) executeChannel(cc *CommandContext, cmd *ChannelCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	if cmd.Channel == nil {
		cc.outputf("%d\n", node.Phy().ChannelNumber())
		return
	}
	if *cmd.Channel <= 0 || *cmd.Channel > 0xffff {
		cc.errorf("invalid channel number %d", *cmd.Channel)
		return
	}
	cc.error(node.SetChannel(ChannelNumber(*cmd.Channel)))
}

func (rt *CmdRunner) executeSleep(cc *CommandContext, sel NodeSelector, sleep bool) {
	node := rt.getNode(cc, sel)
	if node == nil {
		return
	}
	if sleep {
		node.Sleep()
	} else {
		node.Wake()
	}
}

func (rt *CmdRunner) executeState(cc *CommandContext, cmd *StateCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	node.Phy().FlushStateLog()
	cc.outputf("%s\n", node.Phy().State())
	for _, st := range AllPhyStates {
		cc.outputf("%-10s %d us\n", st, node.Energy().TimeIn(st)/time.Microsecond)
	}
}

func (rt *CmdRunner) executeEd(cc *CommandContext, cmd *EdCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	if cmd.Dbm == "" {
		cc.outputf("%g\n", node.Access().EnergyDetectionThreshold())
		return
	}
	dbm, err := strconv.ParseFloat(cmd.Dbm, 64)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(node.Access().SetEnergyDetectionThreshold(dbm))
}

func (rt *CmdRunner) executeAccess(cc *CommandContext, cmd *AccessCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	m := node.Access()
	cc.outputf("kind=%s\ted=%g dBm\tgrant=%v\tpending=%d\tlast-txop=%dus\n", m.Kind(),
		m.EnergyDetectionThreshold(), m.GrantDuration(), m.PendingRequests(), m.LastTxopStartTime()/time.Microsecond)
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	if cmd.Node != nil {
		node := rt.getNode(cc, *cmd.Node)
		if node != nil {
			cc.outputItemsAsYaml(node.Counters())
		}
		return
	}
	all := make(map[NodeId]simulation.NodeCounters)
	for _, id := range rt.sim.GetNodes() {
		node, _ := rt.sim.Node(id)
		all[id] = node.Counters()
	}
	cc.outputItemsAsYaml(all)
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	km := rt.sim.Kpi()
	if cmd.Save != nil {
		if cmd.Save.Name != nil {
			cc.error(km.SaveFile(*cmd.Save.Name))
		} else {
			cc.error(km.SaveDefaultFile())
		}
		return
	}
	js, err := json.MarshalIndent(km.Data(), "", "  ")
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputf("%s\n", js)
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	ea := rt.sim.GetEnergyAnalyser()
	rt.sim.FlushStateLogs()
	if cmd.Save != nil {
		name := ""
		if cmd.Save.Name != nil {
			name = *cmd.Save.Name
		}
		ea.StoreNetworkEnergy(rt.sim.Now())
		cc.error(ea.SaveEnergyDataToFile(rt.sim.Config().OutputDir, name, rt.sim.Now()))
		return
	}
	for _, id := range rt.sim.GetNodes() {
		node, _ := rt.sim.Node(id)
		cc.outputf("%d\t%.3f mJ\n", id, node.Energy().Consumption(ea.Model()).TotalMj())
	}
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	lv, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(lv)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) == 0 {
		cc.outputf("%s", rt.help.outputGeneralHelp())
	} else {
		cc.outputf("%s", rt.help.outputCommandHelp(cmd.HelpTopic))
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	cc.error(rt.sim.Stop())
	rt.ctx.Cancel("exit")
}
