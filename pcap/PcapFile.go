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

package pcap

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/phy"
	. "github.com/openthread/ot-lbtsim/types"
)

type FrameType int

const (
	FrameTypeOff FrameType = iota
	FrameTypeIeee80211
	FrameTypeRadiotap
	FrameTypeUnknown
)

const (
	FrameTypeOffStr       string = "off"
	FrameTypeIeee80211Str string = "wlan"
	FrameTypeRadiotapStr  string = "radiotap"
)

const (
	dltIeee80211        = 105
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16
	pcapSnapLen         = 65535
)

type File interface {
	AppendFrame(frame Frame) error
	Sync() error
	Close() error
}

type Frame struct {
	Timestamp       time.Duration
	Data            []byte
	HasFcs          bool
	FrequencyMhz    uint16
	DataRate500Kbps uint32
	SignalDbm       DbValue
	NoiseDbm        DbValue
}

// FrameFromMonitor converts what a PHY monitor sniffer saw into a capture frame.
func FrameFromMonitor(info phy.MonitorInfo) Frame {
	f := Frame{
		Timestamp:       info.Timestamp,
		FrequencyMhz:    info.FrequencyMhz,
		DataRate500Kbps: info.DataRate500Kbps,
		SignalDbm:       info.SignalDbm,
		NoiseDbm:        info.NoiseDbm,
	}
	if info.Frame != nil {
		f.Data = info.Frame.Packet
		f.HasFcs = len(info.Frame.Packet) >= 4
	}
	return f
}

type wlanFile struct {
	fd *os.File
}

func NewFile(filename string, frameType FrameType) (File, error) {
	switch frameType {
	case FrameTypeIeee80211:
		return newWlanFile(filename)
	case FrameTypeRadiotap:
		return newRadiotapFile(filename)
	default:
		return nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}
}

func ParseFrameTypeStr(tp string) FrameType {
	switch tp {
	case FrameTypeOffStr, "":
		return FrameTypeOff
	case FrameTypeIeee80211Str:
		return FrameTypeIeee80211
	case FrameTypeRadiotapStr:
		return FrameTypeRadiotap
	default:
		return FrameTypeUnknown
	}
}

func openFile(filename string, linkType uint32) (*os.File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if err = writeHeader(fd, linkType); err != nil {
		_ = fd.Close()
		return nil, err
	}
	return fd, nil
}

func newWlanFile(filename string) (File, error) {
	fd, err := openFile(filename, dltIeee80211)
	if err != nil {
		return nil, err
	}
	return &wlanFile{fd: fd}, nil
}

func (pf *wlanFile) AppendFrame(frame Frame) error {
	header := recordHeader(frame.Timestamp, len(frame.Data))
	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *wlanFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *wlanFile) Close() error {
	return pf.fd.Close()
}

func recordHeader(ts time.Duration, length int) [pcapFrameHeaderSize]byte {
	var header [pcapFrameHeaderSize]byte
	us := uint64(ts / time.Microsecond)
	binary.LittleEndian.PutUint32(header[:4], uint32(us/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(us%1000000))
	binary.LittleEndian.PutUint32(header[8:12], uint32(length))
	binary.LittleEndian.PutUint32(header[12:16], uint32(length))
	return header
}

func writeHeader(fd *os.File, linkType uint32) error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], linkType)
	if _, err := fd.Write(header[:]); err != nil {
		return err
	}
	return fd.Sync()
}
