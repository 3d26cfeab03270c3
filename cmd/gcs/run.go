// cmd/gcs/run.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/mmp/gcs/client"
	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/record"
	"github.com/mmp/gcs/storage"
)

func cmdRun() *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	server := fs.String("server", "", "websocket URL of the vehicle gateway")
	logLevel := fs.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir := fs.String("logdir", "", "log file directory")
	script := fs.String("script", "", "fly-by-file script to run")
	flyByFile := fs.Bool("flybyfile", false, "only track aircraft created by the script")
	simMode := fs.Bool("sim", false, "relay traffic between simulated vehicles")
	recordPath := fs.String("record", "", "record inbound messages to this file")
	trackDB := fs.String("trackdb", "", "archive tracks and events in this SQLite database")
	dump := fs.Bool("dump", false, "dump the fleet state on exit")

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "gcs run [flags]",
		ShortHelp:  "connect to the vehicle gateway and track the fleet",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			cfg := client.DefaultConfig()
			if *configPath != "" {
				var err error
				if cfg, err = client.LoadConfig(*configPath); err != nil {
					return err
				}
			}

			// Flags given explicitly override the configuration file.
			fs.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "server":
					cfg.Server = *server
				case "loglevel":
					cfg.LogLevel = *logLevel
				case "logdir":
					cfg.LogDir = *logDir
				case "script":
					cfg.Script = *script
				case "flybyfile":
					cfg.FlyByFile = *flyByFile
				case "sim":
					cfg.SimMode = *simMode
				case "record":
					cfg.Record = *recordPath
				case "trackdb":
					cfg.TrackDB = *trackDB
				}
			})
			if err := cfg.Validate(); err != nil {
				return err
			}

			lg := log.New(cfg.LogLevel, cfg.LogDir)
			return runClient(ctx, cfg, *dump, lg)
		},
	}
}

func runClient(ctx context.Context, cfg client.Config, dump bool, lg *log.Logger) error {
	lg.Info("starting", slog.Any("config", cfg))

	f := fleet.New(cfg.FleetOptions(), lg)
	defer f.Destroy()

	conn, err := client.Dial(ctx, cfg.Server, lg)
	if err != nil {
		return err
	}
	defer conn.Close()

	renderer := client.MultiRenderer{client.NewLogRenderer(lg), client.EventRenderer{Fleet: f}}
	d := client.NewDispatcher(f, conn, renderer, lg)
	d.Velocity, d.SimType = cfg.Velocity, cfg.SimType

	e := client.NewEngine(d, cfg.Intervals, lg)
	if cfg.Script != "" {
		if e.Script, err = client.LoadScript(cfg.Script, d, lg); err != nil {
			return err
		}
	}

	session := uuid.NewString()
	var rec *record.Recorder
	if cfg.Record != "" {
		if rec, err = record.Create(cfg.Record, cfg.Server, lg); err != nil {
			return err
		}
		defer rec.Close()
		e.Recorder = rec
		session = rec.Header.Session
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.TrackDB != "" {
		store := storage.NewStore(cfg.TrackDB)
		defer store.Close()

		id, err := store.StartSession(ctx, session, cfg.Server, time.Now())
		if err != nil {
			return err
		}
		a := storage.NewArchiver(store, id, f.Events, lg)
		g.Go(func() error { return a.Run(gctx) })
	}

	g.Go(func() error { return e.Run(gctx) })
	g.Go(func() error {
		// Everything stops when the gateway goes away.
		defer stop()
		return conn.ReadLoop(gctx, e.Inbound())
	})

	err = g.Wait()

	ac := f.Snapshot()
	fmt.Printf("session %s: %s aircraft", session, humanize.Comma(int64(len(ac))))
	if rec != nil {
		fmt.Printf(", %s frames recorded", humanize.Comma(int64(rec.Frames())))
	}
	fmt.Printf(", ran %s\n", time.Since(lg.Start).Round(time.Second))
	if dump {
		godump.Dump(ac)
	}
	return err
}
