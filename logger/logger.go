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
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type StdoutCallback interface {
	OnStdout()
}

var (
	zaplogger    *zap.Logger
	currentLevel = DefaultLevel
	isTerminal   bool
	cbStdout     StdoutCallback
	simClock     atomic.Value // func() time.Duration
)

func init() {
	isTerminal = term.IsTerminal(int(os.Stdout.Fd()))

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "message",
			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		},
	}
	var err error
	if zaplogger, err = cfg.Build(); err != nil {
		panic(err)
	}
}

// SetLevel sets the global log level.
func SetLevel(lv Level) {
	currentLevel = lv
}

func GetLevel() Level {
	return currentLevel
}

// SetSimClock makes log entries carry the virtual time of the running simulation instead of
// wall-clock time. A nil clock restores wall-clock stamps.
func SetSimClock(now func() time.Duration) {
	simClock.Store(now)
}

// SetStdoutCallback sets a callback, that the logger will call when new log content was written to stdout/stderr.
func SetStdoutCallback(cb StdoutCallback) {
	cbStdout = cb
}

// TraceError logs the current goroutine stack followed by the formatted error.
func TraceError(format string, args ...interface{}) {
	logAlways(ErrorLevel, string(debug.Stack()))
	Errorf(format, args...)
}

func timestamp() string {
	if now, _ := simClock.Load().(func() time.Duration); now != nil {
		return fmt.Sprintf("%10dus - ", now().Microseconds())
	}
	return time.Now().Format("2006-01-02 15:04:05.000") + " - "
}

// getMessage formats a string with Sprintf only when there are arguments.
func getMessage(template string, fmtArgs []interface{}) string {
	switch {
	case len(fmtArgs) == 0:
		return template
	case template != "":
		return fmt.Sprintf(template, fmtArgs...)
	case len(fmtArgs) == 1:
		if str, ok := fmtArgs[0].(string); ok {
			return str
		}
	}
	return fmt.Sprint(fmtArgs...)
}

func logf(level Level, format string, args []interface{}) {
	if level > currentLevel {
		return
	}
	logAlways(level, getMessage(format, args))
}

func logAlways(level Level, msg string) {
	if isTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r") // clear the prompt line
	}
	zaplogger.Log(level.zapLevel(), timestamp()+msg)
	if isTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

func Tracef(format string, args ...interface{}) {
	logf(TraceLevel, format, args)
}

func Debugf(format string, args ...interface{}) {
	logf(DebugLevel, format, args)
}

func Infof(format string, args ...interface{}) {
	logf(InfoLevel, format, args)
}

func Notef(format string, args ...interface{}) {
	logf(NoteLevel, format, args)
}

func Warnf(format string, args ...interface{}) {
	logf(WarnLevel, format, args)
}

func Errorf(format string, args ...interface{}) {
	logf(ErrorLevel, format, args)
}

// Panicf logs at panic level; zap panics after writing the entry.
func Panicf(format string, args ...interface{}) {
	logAlways(PanicLevel, getMessage(format, args))
}

// PanicIfError panics with the error, or with args when given, if err is not nil.
func PanicIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	logAlways(PanicLevel, fmt.Sprint(args...))
}

// assertLogger turns testify assertion failures into panics at run time.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}
