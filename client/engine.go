// client/engine.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmp/gcs/log"
)

// FrameRecorder receives every inbound frame before it is dispatched.
type FrameRecorder interface {
	Record(frame []byte) error
}

// Engine is the client's event loop. The goroutine running Run is the only
// one that touches the fleet: inbound frames, queued work, the liveness
// tickers and the script all execute there.
type Engine struct {
	Dispatcher *Dispatcher
	Script     *ScriptRunner
	Recorder   FrameRecorder

	intervals IntervalConfig
	inbound   chan []byte
	work      chan func()
	lg        *log.Logger
}

func NewEngine(d *Dispatcher, intervals IntervalConfig, lg *log.Logger) *Engine {
	def := DefaultConfig().Intervals
	if intervals.Comms <= 0 {
		intervals.Comms = def.Comms
	}
	if intervals.Traffic <= 0 {
		intervals.Traffic = def.Traffic
	}
	if intervals.Relay <= 0 {
		intervals.Relay = def.Relay
	}

	return &Engine{
		Dispatcher: d,
		intervals:  intervals,
		inbound:    make(chan []byte, 256),
		work:       make(chan func(), 16),
		lg:         lg,
	}
}

// Inbound returns the channel that transports deliver frames on.
func (e *Engine) Inbound() chan<- []byte {
	return e.inbound
}

// Do queues fn to run on the event loop.
func (e *Engine) Do(fn func()) {
	e.work <- fn
}

// DoWait runs fn on the event loop and waits for it to finish.
func (e *Engine) DoWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.work <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.lg.CatchAndReportCrash()

	commsTick := time.NewTicker(e.intervals.Comms)
	defer commsTick.Stop()
	trafficTick := time.NewTicker(e.intervals.Traffic)
	defer trafficTick.Stop()
	relayTick := time.NewTicker(e.intervals.Relay)
	defer relayTick.Stop()

	scriptTimer := time.NewTimer(0)
	if e.Script == nil {
		scriptTimer.Stop()
	}
	defer scriptTimer.Stop()

	e.lg.Info("engine running", slog.Duration("comms", e.intervals.Comms),
		slog.Duration("traffic", e.intervals.Traffic), slog.Duration("relay", e.intervals.Relay))

	d := e.Dispatcher
	for {
		select {
		case <-ctx.Done():
			if e.Script != nil {
				e.Script.Stop()
			}
			return nil

		case frame := <-e.inbound:
			if e.Recorder != nil {
				if err := e.Recorder.Record(frame); err != nil {
					e.lg.Warnf("record: %v", err)
				}
			}
			d.OnMessage(frame)

		case fn := <-e.work:
			fn()

		case now := <-commsTick.C:
			d.CheckComms(now)

		case now := <-trafficTick.C:
			d.ExpireTraffic(now)

		case <-relayTick.C:
			d.RelayTraffic()

		case now := <-scriptTimer.C:
			e.Script.Step(now)
			if deadline, ok := e.Script.Deadline(); ok {
				scriptTimer.Reset(max(deadline.Sub(time.Now()), 0))
			}
		}
	}
}
