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

package lbtsim_main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-lbtsim/cli"
	"github.com/openthread/ot-lbtsim/logger"
	"github.com/openthread/ot-lbtsim/metrics"
	"github.com/openthread/ot-lbtsim/pcap"
	"github.com/openthread/ot-lbtsim/progctx"
	"github.com/openthread/ot-lbtsim/simulation"
)

const noSeed = -1

type MainArgs struct {
	ConfigFile  string
	LogLevel    string
	Seed        int64
	Duration    time.Duration
	OutputDir   string
	Pcap        string
	MetricsAddr string
	Interactive bool
}

func parseArgs(argv []string, output io.Writer) (*MainArgs, error) {
	args := &MainArgs{}
	fs := flag.NewFlagSet("lbtsim", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(output, "Usage: lbtsim [options] <scenario.yaml>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&args.LogLevel, "log", "", "set logging level: trace, debug, info, note, warn, error (overrides the scenario).")
	fs.Int64Var(&args.Seed, "seed", noSeed, "set the random seed (overrides the scenario).")
	fs.DurationVar(&args.Duration, "duration", 0, "set the simulated duration (overrides the scenario).")
	fs.StringVar(&args.OutputDir, "out", "", "set the output directory for KPI, energy and pcap files.")
	fs.StringVar(&args.Pcap, "pcap", "", "set the pcap format: wlan, radiotap or off (overrides the scenario).")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. localhost:9100")
	fs.BoolVar(&args.Interactive, "cli", false, "run the interactive CLI instead of the whole scenario.")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one scenario file")
	}
	args.ConfigFile = fs.Arg(0)
	if args.Pcap != "" && pcap.ParseFrameTypeStr(args.Pcap) == pcap.FrameTypeUnknown && args.Pcap != "off" {
		return nil, errors.Errorf("unknown pcap format %q", args.Pcap)
	}
	if args.Duration < 0 {
		return nil, errors.Errorf("negative duration %v", args.Duration)
	}
	return args, nil
}

// loadConfig reads the scenario and applies the command line overrides.
func loadConfig(args *MainArgs) (*simulation.YamlConfigFile, error) {
	cfg, err := simulation.LoadConfigFile(args.ConfigFile)
	if err != nil {
		return nil, err
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if args.Seed != noSeed {
		cfg.Seed = args.Seed
	}
	if args.Duration > 0 {
		cfg.Duration = args.Duration
	}
	if args.OutputDir != "" {
		cfg.OutputDir = args.OutputDir
	}
	switch args.Pcap {
	case "":
	case "off":
		cfg.Pcap = nil
	default:
		if cfg.Pcap == nil {
			cfg.Pcap = &simulation.YamlPcapConfig{}
		}
		cfg.Pcap.Type = args.Pcap
	}
	return cfg, cfg.Validate()
}

// Main runs the simulator with command line argv until the scenario ends, the CLI exits or a signal arrives.
func Main(ctx *progctx.ProgCtx, argv []string, cliOptions *cli.CliOptions) error {
	args, err := parseArgs(argv, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	handleSignals(ctx)

	reg := metrics.NewRegistry()
	sim, err := simulation.NewSimulation(cfg, reg)
	if err != nil {
		ctx.Cancel(err)
		ctx.Wait()
		return err
	}

	if args.MetricsAddr != "" {
		if err = serveMetrics(ctx, args.MetricsAddr, metrics.Handler(reg)); err != nil {
			ctx.Cancel(err)
			ctx.Wait()
			return err
		}
	}

	if args.Interactive {
		if cliOptions == nil || cliOptions.Stdin == nil {
			ctx.Defer(func() {
				_ = os.Stdin.Close() // unblocks the console on a signal
			})
		}
		err = cli.Run(ctx, sim, cliOptions)
		if stopErr := sim.Stop(); err == nil {
			err = stopErr
		}
	} else {
		err = sim.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil // interrupted by a signal; the results so far were written by Stop
		}
		if err == nil {
			logKpiSummary(sim)
		}
	}

	if err != nil {
		ctx.Cancel(errors.Wrap(err, "simulation exit"))
	} else {
		ctx.Cancel("simulation done")
	}
	logger.Debugf("waiting for lbtsim to stop gracefully ...")
	ctx.Wait()
	return err
}

func logKpiSummary(sim *simulation.Simulation) {
	kpi := sim.Kpi().Data()
	for _, id := range sim.GetNodes() {
		n := kpi.Nodes[id]
		logger.Infof("node %d: tx %.1f%% rx %.1f%% cca-busy %.1f%% throughput %.3f Mbps energy %.3f mJ", id,
			n.TxPercentage, n.RxPercentage, n.CcaBusyPercentage, n.ThroughputMbps, n.EnergyMj)
	}
}

func serveMetrics(ctx *progctx.ProgCtx, addr string, handler http.Handler) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "metrics listen %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	ctx.Defer(func() {
		_ = server.Close()
	})

	ctx.WaitAdd("metrics", 1)
	go func() {
		defer ctx.WaitDone("metrics")
		logger.Infof("serving metrics on http://%s/metrics", lis.Addr())
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped unexpectedly: %v", err)
		}
	}()
	return nil
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
