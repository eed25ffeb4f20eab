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
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/progctx"
	"github.com/openthread/ot-lbtsim/simulation"
)

type CliHandler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type CliOptions struct {
	EchoInput   bool
	HistoryFile string
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultCliOptions() *CliOptions {
	return &CliOptions{
		HistoryFile: "/tmp/lbtsim-cmds.tmp",
	}
}

func getCliOptions(options *CliOptions) *CliOptions {
	if options == nil {
		options = DefaultCliOptions()
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	return options
}

// Run runs the interactive console on a simulation until 'exit', end of input or cancellation of ctx.
func Run(ctx *progctx.ProgCtx, sim *simulation.Simulation, options *CliOptions) error {
	ctx.WaitAdd("cli", 1)
	defer ctx.WaitDone("cli")

	err := runConsole(NewCmdRunner(ctx, sim), getCliOptions(options))
	if ctx.Err() != nil {
		return nil // exited through the program context
	}
	return err
}

// promptRefresher redraws the prompt after log output was written to the terminal.
type promptRefresher struct {
	l *readline.Instance
}

func (r promptRefresher) OnStdout() {
	r.l.Refresh()
}

// keepTerminalState restores the terminal mode of f when the returned function is called.
func keepTerminalState(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if !readline.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := readline.GetState(fd)
	if err != nil {
		return nil, err
	}
	return func() {
		_ = readline.Restore(fd, state)
	}, nil
}

func runConsole(handler CliHandler, options *CliOptions) error {
	defer logger.Debugf("CLI exit.")

	restoreIn, err := keepTerminalState(options.Stdin)
	if err != nil {
		return err
	}
	defer restoreIn()
	restoreOut, err := keepTerminalState(options.Stdout)
	if err != nil {
		return err
	}
	defer restoreOut()

	l, err := readline.NewEx(&readline.Config{
		Prompt:          handler.GetPrompt(),
		HistoryFile:     options.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           options.Stdin,
		Stdout:          options.Stdout,

		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			switch r {
			// block CtrlZ feature
			case readline.CharCtrlZ:
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Close()
	}()
	logger.SetStdoutCallback(promptRefresher{l})
	defer logger.SetStdoutCallback(nil)

	stdout := options.Stdout
	for {
		l.SetPrompt(handler.GetPrompt())
		line, err := l.Readline()

		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue // Ctrl-C in midline edit only cancels the present cmd line.
		} else if err == io.EOF { // typical way to close the CLI
			return nil
		} else if err != nil {
			return err
		}

		if options.EchoInput {
			if _, err := stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		cmd := strings.TrimSpace(line)
		if len(cmd) == 0 {
			continue
		}

		if err = handler.HandleCommand(cmd, l.Stdout()); err != nil {
			_ = stdout.Sync()
			return err
		}
		_ = stdout.Sync()
	}
}
