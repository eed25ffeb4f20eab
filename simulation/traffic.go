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
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/openthread/ot-lbtsim/event"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
	"github.com/openthread/ot-lbtsim/wifimode"
)

// ClassOfService is an IEEE 802.1p priority.
type ClassOfService = uint8

const (
	CosBestEffort       ClassOfService = 0
	CosBackground       ClassOfService = 1
	CosExcellentEffort  ClassOfService = 2
	CosCriticalApps     ClassOfService = 3
	CosVideo            ClassOfService = 4
	CosVoice            ClassOfService = 5
	CosInternetworkCtrl ClassOfService = 6
	CosNetworkControl   ClassOfService = 7
)

// AccessCategoryOf maps a priority to its EDCA access category name.
func AccessCategoryOf(cos ClassOfService) string {
	switch cos {
	case CosBackground, CosExcellentEffort:
		return "AC_BK"
	case CosVideo, CosVoice:
		return "AC_VI"
	case CosInternetworkCtrl, CosNetworkControl:
		return "AC_VO"
	default:
		return "AC_BE"
	}
}

const (
	qosHeaderSize   = 26
	fcsSize         = 4
	fcQosData       = 0x0088 // type data, subtype QoS data
	qosCtlTidMask   = 0x000f
	qosCtlAmsduMask = 0x0080
)

// macAddress derives a locally administered address from a node id.
func macAddress(id NodeId) [6]byte {
	if id == BroadcastNodeId {
		return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	}
	var a [6]byte
	a[0] = 0x02
	binary.BigEndian.PutUint32(a[2:], uint32(id))
	return a
}

func nodeIdOf(a []byte) NodeId {
	if a[0] == 0xff {
		return BroadcastNodeId
	}
	return NodeId(binary.BigEndian.Uint32(a[2:6]))
}

// QosHeader is the part of an 802.11 QoS data header the simulator reads back.
type QosHeader struct {
	Src, Dst NodeId
	Seq      uint16
	Tid      uint8
}

// BuildQosData returns a QoS data MPDU with payloadSize bytes of payload and a valid FCS. The TID carries
// the class of service.
func BuildQosData(src, dst NodeId, seq uint16, cos ClassOfService, payloadSize int) []byte {
	pkt := make([]byte, qosHeaderSize+payloadSize+fcsSize)
	binary.LittleEndian.PutUint16(pkt[0:2], fcQosData)
	// duration stays 0, there is no NAV in this model
	da, sa := macAddress(dst), macAddress(src)
	copy(pkt[4:10], da[:])
	copy(pkt[10:16], sa[:])
	copy(pkt[16:22], sa[:]) // BSSID
	binary.LittleEndian.PutUint16(pkt[22:24], seq<<4)
	binary.LittleEndian.PutUint16(pkt[24:26], uint16(cos)&qosCtlTidMask)
	for i := 0; i < payloadSize; i++ {
		pkt[qosHeaderSize+i] = byte(seq + uint16(i))
	}
	fcs := crc32.ChecksumIEEE(pkt[:len(pkt)-fcsSize])
	binary.LittleEndian.PutUint32(pkt[len(pkt)-fcsSize:], fcs)
	return pkt
}

// ParseQosData reads back a frame built by BuildQosData. It fails on short frames, other frame types and
// a bad FCS.
func ParseQosData(pkt []byte) (QosHeader, bool) {
	if len(pkt) < qosHeaderSize+fcsSize || binary.LittleEndian.Uint16(pkt[0:2])&0x00fc != fcQosData {
		return QosHeader{}, false
	}
	body := pkt[:len(pkt)-fcsSize]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(pkt[len(pkt)-fcsSize:]) {
		return QosHeader{}, false
	}
	qosCtl := binary.LittleEndian.Uint16(pkt[24:26])
	return QosHeader{
		Dst: nodeIdOf(pkt[4:10]),
		Src: nodeIdOf(pkt[10:16]),
		Seq: binary.LittleEndian.Uint16(pkt[22:24]) >> 4,
		Tid: uint8(qosCtl & qosCtlTidMask),
	}, true
}

// Ppdu is what a node sends on one access grant: a single MPDU or the sub-frames of an A-MPDU.
type Ppdu struct {
	Frames   []phy.WifiFrame
	QueuedAt time.Duration
}

// BuildPpdu builds n MPDUs for one transmission. With n > 1 they form an A-MPDU: only the first carries
// the preamble.
func BuildPpdu(src, dst NodeId, firstSeq uint16, cos ClassOfService, size int, mode wifimode.WifiMode,
	preamble Preamble, n int) Ppdu {
	frames := make([]phy.WifiFrame, n)
	for i := range frames {
		f := phy.WifiFrame{
			Packet:   BuildQosData(src, dst, firstSeq+uint16(i), cos, size),
			TxVector: wifimode.NewTxVector(mode, 0, preamble),
			MpduType: NormalMpdu,
		}
		if n > 1 {
			f.TxVector.Aggregation = true
			f.MpduType = MpduInAggregate
			f.AmpduMpdus = uint8(n - i)
			if i > 0 {
				f.TxVector.Preamble = PreambleNone
			}
			if i == n-1 {
				f.MpduType = LastMpduInAggregate
			}
		}
		frames[i] = f
	}
	return Ppdu{Frames: frames}
}

// Flow generates PPDUs at a fixed interval and queues them at the source node.
type Flow struct {
	cfg     YamlFlowConfig
	mode    wifimode.WifiMode
	src     *Node
	sched   *event.Scheduler
	seq     uint16
	next    event.Id
	running bool

	Generated uint64
}

func newFlow(cfg YamlFlowConfig, src *Node, sched *event.Scheduler) (*Flow, error) {
	mode, err := wifimode.ByName(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return &Flow{cfg: cfg, mode: mode, src: src, sched: sched}, nil
}

func preambleFor(mode wifimode.WifiMode) Preamble {
	if mode.IsHt() {
		return PreambleHtMf
	}
	return PreambleLong
}

func (f *Flow) Start() {
	f.running = true
	f.next = f.sched.ScheduleAt(f.cfg.Start, f.generate)
}

func (f *Flow) Stop() {
	f.running = false
	f.sched.Cancel(f.next)
}

func (f *Flow) generate() {
	now := f.sched.Now()
	if !f.running || (f.cfg.Stop > 0 && now >= f.cfg.Stop) {
		return
	}
	ppdu := BuildPpdu(f.cfg.Src, f.cfg.Dst, f.seq, f.cfg.Cos, f.cfg.Size, f.mode, preambleFor(f.mode), f.cfg.Ampdu)
	f.seq += uint16(f.cfg.Ampdu)
	f.Generated++
	logger.Tracef("flow %d->%d: %d MPDU(s), %s", f.cfg.Src, f.cfg.Dst, f.cfg.Ampdu, AccessCategoryOf(f.cfg.Cos))
	f.src.Enqueue(ppdu)
	f.next = f.sched.Schedule(f.cfg.Interval, f.generate)
}
