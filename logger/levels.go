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

package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Level is the log-level for logging what happens in the simulation as a whole, or to watch an
// individual PHY node.
type Level int8

const (
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	OffLevel     Level = -2
	DefaultLevel       = InfoLevel
)

const (
	OffLevelString     = "off"
	NoneLevelString    = "none"
	DefaultLevelString = "default"
)

type levelInfo struct {
	level   Level
	name    string
	aliases []string
	zap     zapcore.Level
}

var levelTable = []levelInfo{
	{TraceLevel, "trace", []string{"T"}, zapcore.DebugLevel},
	{DebugLevel, "debug", []string{"D"}, zapcore.DebugLevel},
	{InfoLevel, "info", []string{"I"}, zapcore.InfoLevel},
	{NoteLevel, "note", []string{"N"}, zapcore.InfoLevel},
	{WarnLevel, "warn", []string{"warning", "W"}, zapcore.WarnLevel},
	{ErrorLevel, "crit", []string{"critical", "error", "err", "C", "E"}, zapcore.ErrorLevel},
	{PanicLevel, "panic", nil, zapcore.PanicLevel},
	{OffLevel, OffLevelString, []string{NoneLevelString}, zapcore.FatalLevel + 1},
}

func (lv Level) info() (levelInfo, bool) {
	for _, li := range levelTable {
		if li.level == lv {
			return li, true
		}
	}
	return levelInfo{}, false
}

func (lv Level) zapLevel() zapcore.Level {
	if li, ok := lv.info(); ok {
		return li.zap
	}
	return zapcore.ErrorLevel
}

// ParseLevelString parses a level name or one of its short aliases.
func ParseLevelString(level string) (Level, error) {
	if level == DefaultLevelString || level == "def" {
		return DefaultLevel, nil
	}
	for _, li := range levelTable {
		if li.level == PanicLevel {
			continue
		}
		if li.name == level {
			return li.level, nil
		}
		for _, a := range li.aliases {
			if a == level {
				return li.level, nil
			}
		}
	}
	return DefaultLevel, fmt.Errorf("invalid log level string: %s", level)
}

func GetLevelString(level Level) string {
	li, ok := level.info()
	if !ok || level == PanicLevel {
		Panicf("Unknown Level: %d", level)
	}
	return li.name
}
