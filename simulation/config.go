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
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-lbtsim/access"
	"github.com/openthread/ot-lbtsim/channel"
	"github.com/openthread/ot-lbtsim/framesync"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/pcap"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

const (
	DefaultDuration     = time.Second
	DefaultOutputDir    = "tmp"
	DefaultQueueLimit   = 100
	DefaultPayloadSize  = 1000
	DefaultFlowInterval = time.Millisecond
	DefaultFlowMode     = "HtMcs7"
)

// YamlChannelConfig selects the propagation model.
type YamlChannelConfig struct {
	Model               string   `yaml:"model"`
	MeterPerUnit        *float64 `yaml:"meter-per-unit,omitempty"`
	FixedLossDb         *float64 `yaml:"fixed-loss,omitempty"`
	ShadowFadingSigmaDb float64  `yaml:"shadow-fading-sigma,omitempty"`
	TimeFadingSigmaDb   float64  `yaml:"time-fading-sigma,omitempty"`
	MeanTimeFadingSec   float64  `yaml:"time-fading-mean,omitempty"`
}

// YamlAccessConfig selects the channel access manager of a node or interferer.
type YamlAccessConfig struct {
	Type            string        `yaml:"type"`
	EdThresholdDbm  DbValue       `yaml:"ed-threshold,omitempty"`
	GrantDuration   time.Duration `yaml:"grant-duration,omitempty"`
	DutyCyclePeriod time.Duration `yaml:"period,omitempty"`
	DutyCycleOn     time.Duration `yaml:"on-time,omitempty"`
	DutyCycleOffset time.Duration `yaml:"offset,omitempty"`
	CwMin           int           `yaml:"cw-min,omitempty"`
	CwMax           int           `yaml:"cw-max,omitempty"`
}

// YamlNodeConfig is a Wi-Fi PHY node. Unset fields take the PHY defaults.
type YamlNodeConfig struct {
	ID               NodeId            `yaml:"id"`
	Pos              [2]float64        `yaml:"pos,flow"`
	Standard         *string           `yaml:"standard,omitempty"`
	Channel          *ChannelNumber    `yaml:"channel,omitempty"`
	Antennas         *uint8            `yaml:"antennas,omitempty"`
	TxPowerDbm       *DbValue          `yaml:"tx-power,omitempty"`
	CcaThresholdDbm  *DbValue          `yaml:"cca-threshold,omitempty"`
	NoiseFigureDb    *DbValue          `yaml:"noise-figure,omitempty"`
	FrameSync        *string           `yaml:"frame-sync,omitempty"`
	DisableReception bool              `yaml:"disable-rx,omitempty"`
	ShortGuard       bool              `yaml:"short-guard,omitempty"`
	Access           *YamlAccessConfig `yaml:"access,omitempty"`
}

// YamlFlowConfig is a periodic stream of QoS data frames from Src to Dst.
type YamlFlowConfig struct {
	Src      NodeId        `yaml:"src"`
	Dst      NodeId        `yaml:"dst"`
	Size     int           `yaml:"size,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Start    time.Duration `yaml:"start,omitempty"`
	Stop     time.Duration `yaml:"stop,omitempty"`
	Mode     string        `yaml:"mode,omitempty"`
	Ampdu    int           `yaml:"ampdu,omitempty"`
	Cos      uint8         `yaml:"cos,omitempty"`
}

// YamlInterfererConfig is a foreign, non-Wi-Fi transmitter.
type YamlInterfererConfig struct {
	ID         NodeId            `yaml:"id"`
	Pos        [2]float64        `yaml:"pos,flow"`
	Channel    ChannelNumber     `yaml:"channel"`
	TxPowerDbm DbValue           `yaml:"tx-power"`
	Period     time.Duration     `yaml:"period"`
	OnTime     time.Duration     `yaml:"on-time"`
	Offset     time.Duration     `yaml:"offset,omitempty"`
	Access     *YamlAccessConfig `yaml:"access,omitempty"`
}

type YamlPcapConfig struct {
	File string `yaml:"file"`
	Type string `yaml:"type"`
}

// YamlConfigFile is the scenario file.
type YamlConfigFile struct {
	Seed        int64                  `yaml:"seed"`
	LogLevel    string                 `yaml:"log-level,omitempty"`
	Duration    time.Duration          `yaml:"duration,omitempty"`
	OutputDir   string                 `yaml:"output-dir,omitempty"`
	QueueLimit  int                    `yaml:"queue-limit,omitempty"`
	Channel     YamlChannelConfig      `yaml:"channel"`
	Pcap        *YamlPcapConfig        `yaml:"pcap,omitempty"`
	NodesList   []YamlNodeConfig       `yaml:"nodes"`
	Flows       []YamlFlowConfig       `yaml:"flows,omitempty"`
	Interferers []YamlInterfererConfig `yaml:"interferers,omitempty"`
}

// ParseConfig decodes a scenario and fills in defaults.
func ParseConfig(data []byte) (*YamlConfigFile, error) {
	cfg := &YamlConfigFile{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfigFile(path string) (*YamlConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	logger.Debugf("loaded scenario %s: %d nodes, %d flows, %d interferers", path, len(cfg.NodesList),
		len(cfg.Flows), len(cfg.Interferers))
	return cfg, nil
}

func (cfg *YamlConfigFile) applyDefaults() {
	if cfg.Duration == 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.QueueLimit == 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	if cfg.Channel.Model == "" {
		cfg.Channel.Model = channel.PathLossLogDistance.String()
	}
	for i := range cfg.Flows {
		f := &cfg.Flows[i]
		if f.Size == 0 {
			f.Size = DefaultPayloadSize
		}
		if f.Interval == 0 {
			f.Interval = DefaultFlowInterval
		}
		if f.Mode == "" {
			f.Mode = DefaultFlowMode
		}
		if f.Ampdu == 0 {
			f.Ampdu = 1
		}
	}
}

// Validate checks cross references between nodes, flows and interferers.
func (cfg *YamlConfigFile) Validate() error {
	if len(cfg.NodesList) == 0 {
		return errors.New("scenario has no nodes")
	}
	if cfg.LogLevel != "" {
		if _, err := logger.ParseLevelString(cfg.LogLevel); err != nil {
			return err
		}
	}
	if _, err := channel.ParsePathLossModel(cfg.Channel.Model); err != nil {
		return err
	}
	if cfg.Pcap != nil && pcap.ParseFrameTypeStr(cfg.Pcap.Type) == pcap.FrameTypeUnknown {
		return errors.Errorf("unknown pcap type %q", cfg.Pcap.Type)
	}
	ids := make(map[NodeId]bool)
	for _, n := range cfg.NodesList {
		if n.ID <= 0 || ids[n.ID] {
			return errors.Errorf("invalid or duplicate node id %d", n.ID)
		}
		ids[n.ID] = true
		if _, err := n.PhyConfig(); err != nil {
			return errors.Wrapf(err, "node %d", n.ID)
		}
		if n.Access != nil {
			if _, err := n.Access.AccessConfig(); err != nil {
				return errors.Wrapf(err, "node %d", n.ID)
			}
		}
	}
	for _, it := range cfg.Interferers {
		if it.ID <= 0 || ids[it.ID] {
			return errors.Errorf("invalid or duplicate interferer id %d", it.ID)
		}
		ids[it.ID] = true
		if it.Access != nil {
			ac, err := it.Access.AccessConfig()
			if err != nil {
				return errors.Wrapf(err, "interferer %d", it.ID)
			}
			if ac.Kind == access.KindLbt || ac.Kind == access.KindBasicLbt {
				return errors.Errorf("interferer %d: %s access needs a Wi-Fi PHY", it.ID, ac.Kind)
			}
		}
	}
	for i, f := range cfg.Flows {
		if !cfg.hasNode(f.Src) || (f.Dst != BroadcastNodeId && !cfg.hasNode(f.Dst)) {
			return errors.Errorf("flow %d: unknown node %d -> %d", i, f.Src, f.Dst)
		}
		if _, err := wifimode.ByName(f.Mode); err != nil {
			return errors.Wrapf(err, "flow %d", i)
		}
		if f.Ampdu < 1 || f.Ampdu > 64 {
			return errors.Errorf("flow %d: A-MPDU size %d out of range [1,64]", i, f.Ampdu)
		}
		if f.Cos > CosNetworkControl {
			return errors.Errorf("flow %d: class of service %d out of range", i, f.Cos)
		}
		if f.Size < 0 || f.Interval < 0 {
			return errors.Errorf("flow %d: negative size or interval", i)
		}
	}
	return nil
}

func (cfg *YamlConfigFile) hasNode(id NodeId) bool {
	for _, n := range cfg.NodesList {
		if n.ID == id {
			return true
		}
	}
	return false
}

// ChannelParams builds the path loss and fading parameters.
func (cfg *YamlConfigFile) ChannelParams() (*channel.ModelParams, error) {
	model, err := channel.ParsePathLossModel(cfg.Channel.Model)
	if err != nil {
		return nil, err
	}
	params := channel.NewModelParams(model)
	if cfg.Channel.MeterPerUnit != nil {
		params.MeterPerUnit = *cfg.Channel.MeterPerUnit
	}
	if cfg.Channel.FixedLossDb != nil {
		params.FixedLossDb = *cfg.Channel.FixedLossDb
	}
	params.ShadowFadingSigmaDb = cfg.Channel.ShadowFadingSigmaDb
	params.TimeFadingSigmaMaxDb = cfg.Channel.TimeFadingSigmaDb
	params.MeanTimeFadingChange = cfg.Channel.MeanTimeFadingSec
	return params, nil
}

// PhyConfig applies the node's overrides to the PHY defaults.
func (n *YamlNodeConfig) PhyConfig() (phy.Config, error) {
	cfg := phy.DefaultConfig()
	if n.Standard != nil {
		std, err := phy.ParseStandard(*n.Standard)
		if err != nil {
			return cfg, err
		}
		cfg.Standard = std
	}
	if n.Channel != nil {
		cfg.ChannelNumber = *n.Channel
	}
	if n.Antennas != nil {
		cfg.TxAntennas = *n.Antennas
		cfg.RxAntennas = *n.Antennas
	}
	if n.TxPowerDbm != nil {
		cfg.TxPowerStartDbm = *n.TxPowerDbm
		cfg.TxPowerEndDbm = *n.TxPowerDbm
	}
	if n.CcaThresholdDbm != nil {
		cfg.CcaMode1ThresholdDbm = *n.CcaThresholdDbm
	}
	if n.NoiseFigureDb != nil {
		cfg.RxNoiseFigureDb = *n.NoiseFigureDb
	}
	if n.FrameSync != nil {
		model, err := framesync.ParseChannelModel(*n.FrameSync)
		if err != nil {
			return cfg, err
		}
		cfg.FrameSyncModel = model
	}
	cfg.DisableWifiReception = n.DisableReception
	cfg.ShortGuardInterval = n.ShortGuard
	return cfg, cfg.Validate()
}

// AccessConfig converts to the access manager configuration.
func (a *YamlAccessConfig) AccessConfig() (access.Config, error) {
	cfg := access.DefaultConfig()
	kind, err := access.ParseKind(a.Type)
	if err != nil {
		return cfg, err
	}
	cfg.Kind = kind
	if a.EdThresholdDbm != 0 {
		cfg.EdThresholdDbm = a.EdThresholdDbm
	}
	if a.GrantDuration != 0 {
		cfg.GrantDuration = a.GrantDuration
	}
	if a.DutyCyclePeriod != 0 {
		cfg.DutyCyclePeriod = a.DutyCyclePeriod
	}
	if a.DutyCycleOn != 0 {
		cfg.DutyCycleOn = a.DutyCycleOn
	}
	cfg.DutyCycleOffset = a.DutyCycleOffset
	if a.CwMin != 0 {
		cfg.CwMin = a.CwMin
	}
	if a.CwMax != 0 {
		cfg.CwMax = a.CwMax
	}
	if cfg.EdThresholdDbm < access.MinEdThresholdDbm || cfg.EdThresholdDbm > access.MaxEdThresholdDbm {
		return cfg, errors.Wrapf(access.ErrThresholdOutOfRange, "%.1f dBm", cfg.EdThresholdDbm)
	}
	return cfg, nil
}
