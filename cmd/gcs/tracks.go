// cmd/gcs/tracks.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/mmp/gcs/storage"
)

func cmdTracks() *ffcli.Command {
	fs := flag.NewFlagSet("tracks", flag.ExitOnError)
	db := fs.String("db", "gcs.db", "SQLite track database")
	events := fs.Bool("events", false, "also list the session's events")

	return &ffcli.Command{
		Name:       "tracks",
		ShortUsage: "gcs tracks [flags] [session]",
		ShortHelp:  "list archived sessions, or the tracks of one session",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if _, err := os.Stat(*db); err != nil {
				return err
			}
			s := storage.NewStore(*db)
			defer s.Close()

			switch len(args) {
			case 0:
				return listSessions(ctx, s)
			case 1:
				return listTracks(ctx, s, args[0], *events)
			default:
				return flag.ErrHelp
			}
		},
	}
}

func listSessions(ctx context.Context, s *storage.Store) error {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSERVER\tSTARTED\tPOINTS\tEVENTS")
	for _, sess := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", sess.UUID, sess.Server, humanize.Time(sess.Start),
			humanize.Comma(int64(sess.TrackPoints)), humanize.Comma(int64(sess.Events)))
	}
	return tw.Flush()
}

func listTracks(ctx context.Context, s *storage.Store, uuid string, events bool) error {
	sess, err := s.Session(ctx, uuid)
	if err != nil {
		return fmt.Errorf("%s: %w", uuid, err)
	}
	ids, err := s.Aircraft(ctx, sess.ID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AIRCRAFT\tPOINTS\tDISTANCE\tDURATION")
	for _, id := range ids {
		track, err := s.Track(ctx, sess.ID, id)
		if err != nil {
			return err
		}
		var dur string
		if len(track) > 0 {
			dur = track[len(track)-1].Time.Sub(track[0].Time).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s nm\t%s\n", id, humanize.Comma(int64(len(track))),
			humanize.FtoaWithDigits(storage.TrackDistance(track), 2), dur)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if events {
		evs, err := s.Events(ctx, sess.ID)
		if err != nil {
			return err
		}
		fmt.Println()
		for _, e := range evs {
			fmt.Printf("%s  %-16s %3d  %s\n", e.Time.Format("15:04:05.000"), e.Type, e.Aircraft, e.Text)
		}
	}
	return nil
}
