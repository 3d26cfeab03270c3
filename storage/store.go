// storage/store.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package storage keeps a SQLite archive of flown tracks and fleet
// events, one session per client run.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/math"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertSessionSQL = `INSERT INTO sessions (uuid, server, start_time) VALUES (?, ?, ?)`

	selectSessionSQL = `SELECT id, uuid, server, start_time FROM sessions WHERE uuid = ?`

	selectSessionsSQL = `SELECT s.id, s.uuid, s.server, s.start_time,
       (SELECT COUNT(*) FROM track_points t WHERE t.session_id = s.id),
       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
FROM sessions s ORDER BY s.start_time`

	insertTrackPointSQL = `INSERT INTO track_points
    (session_id, aircraft_id, timestamp, latitude, longitude, altitude, status)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectTrackSQL = `SELECT aircraft_id, timestamp, latitude, longitude, altitude, status
FROM track_points WHERE session_id = ? AND aircraft_id = ? ORDER BY timestamp, id`

	selectAircraftSQL = `SELECT DISTINCT aircraft_id FROM track_points WHERE session_id = ? ORDER BY aircraft_id`

	insertEventSQL = `INSERT INTO events (session_id, timestamp, type, aircraft_id, text) VALUES (?, ?, ?, ?, ?)`

	selectEventsSQL = `SELECT timestamp, type, aircraft_id, text FROM events WHERE session_id = ? ORDER BY timestamp, id`
)

var ErrUnknownSession = errors.New("Unknown session")

type Session struct {
	ID          int64
	UUID        string
	Server      string
	Start       time.Time
	TrackPoints int
	Events      int
}

type TrackPoint struct {
	Aircraft int
	Time     time.Time
	Position math.Point2LL
	Alt      float64
	Status   string
}

type EventRecord struct {
	Time     time.Time
	Type     string
	Aircraft int
	Text     string
}

// Store is the SQLite archive. The database is opened and its schema
// created on first use.
type Store struct {
	path string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// dsn returns the sqlite URI for the database file at path, escaped so
// that characters such as '?' and '#' stay part of the file name.
func dsn(path string) string {
	u := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath(),
		RawQuery: "_journal_mode=WAL&_synchronous=NORMAL"}
	return u.String()
}

func (s *Store) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", dsn(s.path))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}
		if _, err := db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.dbErr
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

// StartSession records the start of a client run and returns its id.
func (s *Store) StartSession(ctx context.Context, uuid, server string, start time.Time) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, insertSessionSQL, uuid, server, start.UTC())
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return result.LastInsertId()
}

func (s *Store) Session(ctx context.Context, uuid string) (Session, error) {
	db, err := s.getDB()
	if err != nil {
		return Session{}, err
	}

	var sess Session
	err = db.QueryRowContext(ctx, selectSessionSQL, uuid).Scan(&sess.ID, &sess.UUID, &sess.Server, &sess.Start)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%s: %w", uuid, ErrUnknownSession)
	} else if err != nil {
		return Session{}, fmt.Errorf("scanning session: %w", err)
	}
	return sess, nil
}

func (s *Store) Sessions(ctx context.Context) (sessions []Session, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		if err = rows.Scan(&sess.ID, &sess.UUID, &sess.Server, &sess.Start, &sess.TrackPoints, &sess.Events); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// StoreEvents archives a batch of fleet events in a single transaction.
// Position events become track points; banners are not kept.
func (s *Store) StoreEvents(ctx context.Context, sessionID int64, events []fleet.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	trackStmt, err := tx.PrepareContext(ctx, insertTrackPointSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(trackStmt, &err)

	eventStmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(eventStmt, &err)

	for _, e := range events {
		switch e.Type {
		case fleet.PositionEvent:
			if e.Position.IsZero() {
				continue
			}
			if _, err = trackStmt.ExecContext(ctx, sessionID, e.Aircraft, e.Time.UTC(), e.Position.Latitude(),
				e.Position.Longitude(), e.Alt, e.Status.String()); err != nil {
				return fmt.Errorf("inserting track point: %w", err)
			}

		case fleet.BannerEvent:

		default:
			text := e.Text
			if e.Type == fleet.StatusChangedEvent {
				text = e.Status.String()
			}
			if _, err = eventStmt.ExecContext(ctx, sessionID, e.Time.UTC(), e.Type.String(), e.Aircraft,
				text); err != nil {
				return fmt.Errorf("inserting event: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Aircraft returns the ids of the aircraft with a track in the session.
func (s *Store) Aircraft(ctx context.Context, sessionID int64) (ids []int, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectAircraftSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying aircraft: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Track(ctx context.Context, sessionID int64, acID int) (track []TrackPoint, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectTrackSQL, sessionID, acID)
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var tp TrackPoint
		var lat, lng float64
		if err = rows.Scan(&tp.Aircraft, &tp.Time, &lat, &lng, &tp.Alt, &tp.Status); err != nil {
			return nil, fmt.Errorf("scanning track point: %w", err)
		}
		tp.Position = math.LL(lat, lng)
		track = append(track, tp)
	}
	return track, rows.Err()
}

func (s *Store) Events(ctx context.Context, sessionID int64) (events []EventRecord, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var e EventRecord
		if err = rows.Scan(&e.Time, &e.Type, &e.Aircraft, &e.Text); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// TrackDistance returns the length of a track in nautical miles.
func TrackDistance(track []TrackPoint) float64 {
	d := 0.0
	for i := 1; i < len(track); i++ {
		d += math.NMDistance2LL(track[i-1].Position, track[i].Position)
	}
	return d
}
