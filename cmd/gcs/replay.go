// cmd/gcs/replay.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/record"
	"github.com/mmp/gcs/server"
)

func cmdReplay() *ffcli.Command {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	addr := fs.String("addr", ":8082", "address to serve the recording on")
	info := fs.Bool("info", false, "describe the recording and exit")
	logLevel := fs.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir := fs.String("logdir", "", "log file directory")

	return &ffcli.Command{
		Name:       "replay",
		ShortUsage: "gcs replay [flags] <recording>",
		ShortHelp:  "serve a session recording as a stand-in gateway",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			if *info {
				return printSummary(args[0])
			}
			return serveReplay(ctx, args[0], *addr, log.New(*logLevel, *logDir))
		},
	}
}

func printSummary(path string) error {
	s, err := record.Summarize(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: session %s from %s\n", path, s.Header.Session, s.Header.Server)
	fmt.Printf("  recorded %s (%s)\n", humanize.Time(s.Header.Created), s.Header.Created.Format(time.RFC3339))
	fmt.Printf("  %s frames, %s over %s\n", humanize.Comma(int64(s.Frames)), humanize.Bytes(uint64(s.Bytes)),
		s.Duration.Round(time.Millisecond))
	return nil
}

func serveReplay(ctx context.Context, path, addr string, lg *log.Logger) error {
	p, err := server.LoadLogPlayer(path, lg)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: addr, Handler: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error {
		lg.Info("serving recording", slog.String("path", path), slog.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
