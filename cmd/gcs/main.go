// cmd/gcs/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// gcs is the ground control station client: it connects to a vehicle
// gateway, tracks the fleet and runs fly-by-file scripts. It can also
// replay recorded sessions and list archived tracks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

// Build flags
var version = ""
var commit = ""

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().ParseAndRun(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "gcs: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("gcs", flag.ExitOnError)
	return &ffcli.Command{
		ShortUsage: "gcs [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			cmdRun(),
			cmdReplay(),
			cmdTracks(),
			cmdVersion(),
		},
	}
}

// envOptions lets every flag of a command be given as a GCS_ environment
// variable.
func envOptions() []ff.Option {
	return []ff.Option{ff.WithEnvVarPrefix("GCS")}
}

func cmdVersion() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "gcs version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if bi, ok := debug.ReadBuildInfo(); ok {
					v = bi.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			fields := []string{v}
			if commit != "" {
				fields = append(fields, commit)
			}
			fmt.Println(strings.Join(fields, " "))
			return nil
		},
	}
}
