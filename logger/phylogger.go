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
	"os"
	"sync"
	"time"
)

// PhyLogger is a PHY-node specific log object. Levels and output file can be set per individual node.
// Log lines are prefixed with the node id and the virtual time of the simulation.
type PhyLogger struct {
	Id           int
	fileLevel    Level
	displayLevel Level
	now          func() time.Duration

	logFile       *os.File
	logFileName   string
	isFileEnabled bool
}

var (
	phyLogs = make(map[int]*PhyLogger, 10)
	mutex   = sync.Mutex{}
)

// GetPhyLogger gets the PhyLogger instance for the given node id, creating it if needed.
func GetPhyLogger(nodeid int) *PhyLogger {
	mutex.Lock()
	defer mutex.Unlock()

	pl, ok := phyLogs[nodeid]
	if !ok {
		pl = &PhyLogger{
			Id:           nodeid,
			fileLevel:    OffLevel,
			displayLevel: WarnLevel,
			now:          func() time.Duration { return 0 },
		}
		phyLogs[nodeid] = pl
	}
	return pl
}

// SetClock sets the virtual time source used to timestamp entries.
func (pl *PhyLogger) SetClock(now func() time.Duration) {
	pl.now = now
}

func (pl *PhyLogger) SetFileLevel(level Level) {
	pl.fileLevel = level
}

func (pl *PhyLogger) SetDisplayLevel(level Level) {
	pl.displayLevel = level
}

func (pl *PhyLogger) GetDisplayLevel() Level {
	return pl.displayLevel
}

// EnableFile starts writing this node's entries, up to the file level, to <outputDir>/phy_<id>.log.
func (pl *PhyLogger) EnableFile(outputDir string, level Level) error {
	if pl.logFile != nil {
		pl.fileLevel = level
		return nil
	}
	pl.logFileName = fmt.Sprintf("%s/phy_%d.log", outputDir, pl.Id)
	f, err := os.OpenFile(pl.logFileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0664)
	if err != nil {
		return err
	}
	pl.logFile = f
	pl.isFileEnabled = true
	pl.fileLevel = level
	_ = pl.writeToLogFile(fmt.Sprintf("#\n# PHY node %d log, created %s\n# SimTimeUs  Lev Message",
		pl.Id, time.Now().Format(time.RFC3339)))
	return nil
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (pl *PhyLogger) IsFileEnabled() bool {
	return pl.isFileEnabled
}

func (pl *PhyLogger) logf(level Level, format string, args []interface{}) {
	isDisplay := level <= pl.displayLevel && level <= currentLevel
	isSave := pl.isFileEnabled && level <= pl.fileLevel
	if !isDisplay && !isSave {
		return
	}
	msg := getMessage(format, args)
	tsStr := fmt.Sprintf("%11d ", pl.now().Microseconds())
	if isSave {
		_ = pl.writeToLogFile(tsStr + GetLevelString(level)[:1] + "   " + msg)
	}
	if isDisplay {
		logAlways(level, fmt.Sprintf("phy%-3d %s", pl.Id, msg))
	}
}

func (pl *PhyLogger) Tracef(format string, args ...interface{}) {
	pl.logf(TraceLevel, format, args)
}

func (pl *PhyLogger) Debugf(format string, args ...interface{}) {
	pl.logf(DebugLevel, format, args)
}

func (pl *PhyLogger) Infof(format string, args ...interface{}) {
	pl.logf(InfoLevel, format, args)
}

func (pl *PhyLogger) Warnf(format string, args ...interface{}) {
	pl.logf(WarnLevel, format, args)
}

func (pl *PhyLogger) Errorf(format string, args ...interface{}) {
	pl.logf(ErrorLevel, format, args)
}

func (pl *PhyLogger) Error(err error) {
	if err == nil {
		return
	}
	pl.logf(ErrorLevel, "%v", []interface{}{err})
}

func (pl *PhyLogger) writeToLogFile(line string) error {
	_, err := pl.logFile.WriteString(line + "\n")
	if err != nil {
		pl.Close()
		Errorf("couldn't write to PHY log file (%s), closing it", pl.logFileName)
	}
	return err
}

// Close closes the node log file.
func (pl *PhyLogger) Close() {
	pl.isFileEnabled = false
	if pl.logFile != nil {
		_ = pl.logFile.Close()
		pl.logFile = nil
	}
}
