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
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Access   *AccessCmd   `  @@` //nolint
	Channel  *ChannelCmd  `| @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Ed       *EdCmd       `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Sleep    *SleepCmd    `| @@` //nolint
	State    *StateCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Wake     *WakeCmd     `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                     //nolint
	Time string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever *EverFlag `| @@ )`                                   //nolint
}

// noinspection GoStructTag
type SizeFlag struct {
	Val int `("size"|"ds") @Int` //nolint
}

// noinspection GoStructTag
type CosFlag struct {
	Val int `"cos" @Int` //nolint
}

// noinspection GoStructTag
type AmpduFlag struct {
	Val int `"ampdu" @Int` //nolint
}

// noinspection GoStructTag
type ModeFlag struct {
	Val string `"mode" @Ident` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd   struct{}     `"send"`  //nolint
	Src   NodeSelector `@@`      //nolint
	Dst   NodeSelector `@@`      //nolint
	Size  *SizeFlag    `( @@`    //nolint
	Cos   *CosFlag     `| @@`    //nolint
	Ampdu *AmpduFlag   `| @@`    //nolint
	Mode  *ModeFlag    `| @@ )*` //nolint
}

// noinspection GoStructTag
type ChannelCmd struct {
	Cmd     struct{}     `"channel"` //nolint
	Node    NodeSelector `@@`        //nolint
	Channel *int         `[ @Int ]`  //nolint
}

// noinspection GoStructTag
type SleepCmd struct {
	Cmd  struct{}     `"sleep"` //nolint
	Node NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type WakeCmd struct {
	Cmd  struct{}     `"wake"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type StateCmd struct {
	Cmd  struct{}     `"state"` //nolint
	Node NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type EdCmd struct {
	Cmd  struct{}     `"ed"`                       //nolint
	Node NodeSelector `@@`                         //nolint
	Dbm  string       `[ @( ["-"] (Int|Float) ) ]` //nolint
}

// noinspection GoStructTag
type AccessCmd struct {
	Cmd  struct{}     `"access"` //nolint
	Node NodeSelector `@@`       //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd  struct{}      `"counters"` //nolint
	Node *NodeSelector `[ @@ ]`     //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"`      //nolint
	Name  *string  `[ @String ]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd  struct{}  `"kpi"`  //nolint
	Save *SaveFlag `[ @@ ]` //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"` //nolint
	Save *SaveFlag `[ @@ ]`   //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`      //nolint
	Level string   `[ @Ident ]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
