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
	"math"
	"os"
)

const (
	dltIeee80211Radiotap = 127
	radiotapHeaderSize   = 16
)

// present bits, see https://www.radiotap.org/fields/defined
const (
	rtFlags      = 1
	rtRate       = 2
	rtChannel    = 3
	rtDbmSignal  = 5
	rtDbmNoise   = 6
	rtFlagFcs    = 0x10
	rtChanOfdm   = 0x0040
	rtChan5GHz   = 0x0100
	rtPresentAll = 1<<rtFlags | 1<<rtRate | 1<<rtChannel | 1<<rtDbmSignal | 1<<rtDbmNoise
)

type radiotapFile struct {
	fd *os.File
}

func newRadiotapFile(filename string) (File, error) {
	fd, err := openFile(filename, dltIeee80211Radiotap)
	if err != nil {
		return nil, err
	}
	return &radiotapFile{fd: fd}, nil
}

func dbmToInt8(dbm float64) byte {
	v := math.Round(dbm)
	v = math.Max(math.Min(v, 127), -128)
	return byte(int8(v))
}

func radiotapHeader(frame Frame) [radiotapHeaderSize]byte {
	var rt [radiotapHeaderSize]byte
	rt[0] = 0 // version
	rt[1] = 0 // pad
	binary.LittleEndian.PutUint16(rt[2:4], radiotapHeaderSize)
	binary.LittleEndian.PutUint32(rt[4:8], rtPresentAll)
	if frame.HasFcs {
		rt[8] = rtFlagFcs
	}
	// rate is a single byte; HT rates above 127.5 Mbit/s read as 0 (unknown)
	if frame.DataRate500Kbps <= math.MaxUint8 {
		rt[9] = byte(frame.DataRate500Kbps)
	}
	binary.LittleEndian.PutUint16(rt[10:12], frame.FrequencyMhz)
	binary.LittleEndian.PutUint16(rt[12:14], rtChanOfdm|rtChan5GHz)
	rt[14] = dbmToInt8(frame.SignalDbm)
	rt[15] = dbmToInt8(frame.NoiseDbm)
	return rt
}

func (pf *radiotapFile) AppendFrame(frame Frame) error {
	header := recordHeader(frame.Timestamp, radiotapHeaderSize+len(frame.Data))
	rt := radiotapHeader(frame)
	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	if _, err := pf.fd.Write(rt[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *radiotapFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *radiotapFile) Close() error {
	return pf.fd.Close()
}
