// record/record.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package record writes and reads session recordings: every frame
// received from the vehicle gateway, with the time it arrived, in a
// zstd-compressed stream of msgpack records.
package record

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmp/gcs/log"
)

// Version is bumped whenever the layout of Header or Frame changes.
const Version = 1

var ErrBadVersion = errors.New("Unsupported recording version")

// Header is the first record in a recording.
type Header struct {
	Version int
	Session string
	Server  string
	Created time.Time
}

// Frame is a single inbound message and when it arrived, relative to the
// start of the recording.
type Frame struct {
	Offset time.Duration
	Data   []byte
}

///////////////////////////////////////////////////////////////////////////
// Recorder

// Recorder appends frames to a recording. It is safe for concurrent use.
type Recorder struct {
	Header Header

	mu     sync.Mutex
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	closer io.Closer
	frames int
	now    func() time.Time
	lg     *log.Logger

	// start carries the monotonic clock reading that frame offsets are
	// measured from; Header.Created is its wall-clock time.
	start time.Time
}

// Create starts a new recording in the file at path.
func Create(path, server string, lg *log.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f, server, lg)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	lg.Info("recording", slog.String("path", path), slog.String("session", r.Header.Session))
	return r, nil
}

// NewRecorder starts a recording written to w. w is not closed by Close.
func NewRecorder(w io.Writer, server string, lg *log.Logger) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := &Recorder{
		Header: Header{
			Version: Version,
			Session: uuid.NewString(),
			Server:  server,
			Created: start.UTC(),
		},
		zw:    zw,
		enc:   msgpack.NewEncoder(zw),
		now:   time.Now,
		lg:    lg,
		start: start,
	}
	if err := r.enc.Encode(r.Header); err != nil {
		zw.Close()
		return nil, fmt.Errorf("recording header: %w", err)
	}
	return r, nil
}

func (r *Recorder) Record(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return os.ErrClosed
	}
	fr := Frame{Offset: r.now().Sub(r.start), Data: data}
	if err := r.enc.Encode(fr); err != nil {
		return err
	}
	r.frames++
	return nil
}

// Frames returns the number of frames recorded so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes the recording. It is fine to call it more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return nil
	}
	r.enc = nil

	err := r.zw.Close()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	r.lg.Info("recording closed", slog.String("session", r.Header.Session), slog.Int("frames", r.frames))
	return err
}

///////////////////////////////////////////////////////////////////////////
// Reader

type Reader struct {
	Header Header

	zr     *zstd.Decoder
	dec    *msgpack.Decoder
	closer io.Closer
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

func NewReader(rd io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(rd, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	r := &Reader{zr: zr, dec: msgpack.NewDecoder(zr)}
	if err := r.dec.Decode(&r.Header); err != nil {
		zr.Close()
		return nil, fmt.Errorf("recording header: %w", err)
	}
	if r.Header.Version != Version {
		zr.Close()
		return nil, fmt.Errorf("%d: %w", r.Header.Version, ErrBadVersion)
	}
	return r, nil
}

// Next returns the next frame; it returns io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	err := r.dec.Decode(&f)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// A recording that was not closed cleanly ends mid-frame.
		err = io.EOF
	}
	return f, err
}

// ReadAll returns all of the remaining frames.
func (r *Reader) ReadAll() ([]Frame, error) {
	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		} else if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func (r *Reader) Close() error {
	r.zr.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Summary describes a recording.
type Summary struct {
	Header   Header
	Frames   int
	Bytes    int64
	Duration time.Duration
}

// Summarize reads through the recording at path.
func Summarize(path string) (Summary, error) {
	r, err := Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer r.Close()

	s := Summary{Header: r.Header}
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		} else if err != nil {
			return s, fmt.Errorf("%s: frame %d: %w", path, s.Frames, err)
		}
		s.Frames++
		s.Bytes += int64(len(f.Data))
		s.Duration = max(s.Duration, f.Offset)
	}
}
