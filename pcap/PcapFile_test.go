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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-lbtsim/phy"
)

var qosData = []byte{0x88, 0x01, 0x2c, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

func TestPcapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeIeee80211)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = pcap.Close()
	}()

	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp: time.Duration(i) * time.Millisecond,
			Data:      qosData,
		}
		if err = pcap.AppendFrame(frame); err != nil {
			t.Fatal(err)
		}
		if err = pcap.Sync(); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+len(qosData))*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	assert.Equal(t, uint32(dltIeee80211), binary.LittleEndian.Uint32(data[20:24]))
	// last record: 9 ms
	last := data[len(data)-pcapFrameHeaderSize-len(qosData):]
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(last[0:4]))
	assert.Equal(t, uint32(9000), binary.LittleEndian.Uint32(last[4:8]))
}

func TestRadiotapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_radiotap.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeRadiotap)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = pcap.Close()
	}()

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp:       time.Duration(i) * time.Millisecond,
			Data:            qosData,
			HasFcs:          true,
			FrequencyMhz:    5180,
			DataRate500Kbps: 12,
			SignalDbm:       -60.0 + float64(i),
			NoiseDbm:        -94,
		}
		if err = pcap.AppendFrame(frame); err != nil {
			t.Fatal(err)
		}
		if err = pcap.Sync(); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+radiotapHeaderSize+len(qosData))*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	assert.Equal(t, uint32(dltIeee80211Radiotap), binary.LittleEndian.Uint32(data[20:24]))
	rt := data[pcapFileHeaderSize+pcapFrameHeaderSize:]
	assert.Equal(t, uint16(radiotapHeaderSize), binary.LittleEndian.Uint16(rt[2:4]))
	assert.Equal(t, uint32(0x6e), binary.LittleEndian.Uint32(rt[4:8]))
	assert.Equal(t, byte(rtFlagFcs), rt[8])
	assert.Equal(t, byte(12), rt[9])
	assert.Equal(t, uint16(5180), binary.LittleEndian.Uint16(rt[10:12]))
	assert.Equal(t, int8(-60), int8(rt[14]))
	assert.Equal(t, int8(-94), int8(rt[15]))
}

func TestFrameFromMonitor(t *testing.T) {
	pkt := append([]byte(nil), qosData...)
	f := FrameFromMonitor(phy.MonitorInfo{
		Frame:           &phy.WifiFrame{Packet: pkt},
		Timestamp:       3 * time.Millisecond,
		FrequencyMhz:    5200,
		DataRate500Kbps: 300,
		SignalDbm:       -40.4,
	})
	assert.Equal(t, pkt, f.Data)
	assert.True(t, f.HasFcs)
	assert.Equal(t, uint16(5200), f.FrequencyMhz)

	rt := radiotapHeader(f)
	assert.Equal(t, byte(0), rt[9])
	assert.Equal(t, int8(-40), int8(rt[14]))
}

func TestParseFrameType(t *testing.T) {
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr("off"))
	assert.Equal(t, FrameTypeIeee80211, ParseFrameTypeStr("wlan"))
	assert.Equal(t, FrameTypeRadiotap, ParseFrameTypeStr("radiotap"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("wpan"))

	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeOff)
	assert.Error(t, err)
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}

	return int(info.Size())
}
