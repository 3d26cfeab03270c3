// server/logplayer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package server provides a stand-in for the vehicle gateway that replays
// a session recording to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/record"
	"github.com/mmp/gcs/util"
)

const (
	StatePlaying  = "PLAYING"
	StatePaused   = "PAUSED"
	StateStopped  = "STOPPED"
	StateFinished = "FINISHED"
)

// LogPlayer sends the frames of a recording to every connected client at
// the pace they were recorded, under the control of PLAYBACK commands
// from the clients: PLAY, PAUSE, STOP, SEEK <seconds> and SPEED <factor>.
// It reports its state with LOGPLAYER messages. Other commands are
// ignored.
type LogPlayer struct {
	// Tick is how often playback advances; StatusInterval is how often
	// the LOGPLAYER status is broadcast while playing.
	Tick           time.Duration
	StatusInterval time.Duration

	frames []record.Frame
	state  string
	t      time.Duration
	next   int
	speed  float64

	clients    map[*playerClient]struct{}
	register   chan *playerClient
	unregister chan *playerClient
	commands   chan string
	done       chan struct{}
	lg         *log.Logger
}

type playerClient struct {
	ws   *websocket.Conn
	send chan []byte
}

func NewLogPlayer(frames []record.Frame, lg *log.Logger) *LogPlayer {
	return &LogPlayer{
		Tick:           20 * time.Millisecond,
		StatusInterval: time.Second,
		frames:         frames,
		state:          StatePaused,
		speed:          1,
		clients:        make(map[*playerClient]struct{}),
		register:       make(chan *playerClient),
		unregister:     make(chan *playerClient),
		commands:       make(chan string, 16),
		done:           make(chan struct{}),
		lg:             lg,
	}
}

// LoadLogPlayer reads the recording at path.
func LoadLogPlayer(path string, lg *log.Logger) (*LogPlayer, error) {
	r, err := record.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	frames, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	lg.Info("loaded recording", slog.String("path", path), slog.String("session", r.Header.Session),
		slog.Int("frames", len(frames)))
	return NewLogPlayer(frames, lg), nil
}

// Run plays back the recording until ctx is canceled.
func (p *LogPlayer) Run(ctx context.Context) error {
	defer p.lg.CatchAndReportCrash()
	defer close(p.done)

	tick := time.NewTicker(p.Tick)
	defer tick.Stop()
	status := time.NewTicker(p.StatusInterval)
	defer status.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			for c := range p.clients {
				p.drop(c)
			}
			return nil

		case c := <-p.register:
			p.clients[c] = struct{}{}
			p.lg.Info("log player client connected", slog.Int("clients", len(p.clients)))
			p.sendTo(c, p.status())

		case c := <-p.unregister:
			if _, ok := p.clients[c]; ok {
				p.drop(c)
			}

		case cmd := <-p.commands:
			if p.handle(cmd) {
				p.broadcast(p.status())
			}

		case now := <-tick.C:
			dt := now.Sub(last)
			last = now
			if p.state == StatePlaying {
				p.advance(time.Duration(float64(dt) * p.speed))
			}

		case <-status.C:
			if p.state == StatePlaying {
				p.broadcast(p.status())
			}
		}
	}
}

// handle applies a command and reports whether the playback state
// changed.
func (p *LogPlayer) handle(cmd string) bool {
	f := strings.Fields(cmd)
	if len(f) < 2 || f[0] != "PLAYBACK" {
		p.lg.Debug("log player ignoring command", slog.String("command", cmd))
		return false
	}

	switch strings.ToUpper(f[1]) {
	case "PLAY":
		if p.state == StateFinished {
			p.seek(0)
		}
		p.state = StatePlaying

	case "PAUSE":
		if p.state != StatePlaying {
			return false
		}
		p.state = StatePaused

	case "STOP":
		p.state = StateStopped
		p.seek(0)

	case "SEEK":
		secs, err := util.Atof(util.Select(len(f) > 2, f[len(f)-1], ""))
		if err != nil || secs < 0 {
			p.lg.Warnf("%s: invalid seek", cmd)
			return false
		}
		p.seek(time.Duration(secs * float64(time.Second)))
		if p.state == StateFinished {
			p.state = StatePaused
		}

	case "SPEED":
		s, err := util.Atof(util.Select(len(f) > 2, f[len(f)-1], ""))
		if err != nil || s <= 0 {
			p.lg.Warnf("%s: invalid speed", cmd)
			return false
		}
		p.speed = s

	default:
		p.lg.Warnf("%s: unknown playback command", cmd)
		return false
	}

	p.lg.Info("playback", slog.String("state", p.state), slog.Duration("time", p.t))
	return true
}

// seek moves to time t; frames before t will not be sent.
func (p *LogPlayer) seek(t time.Duration) {
	p.t = t
	p.next, _ = slices.BinarySearchFunc(p.frames, t, func(f record.Frame, t time.Duration) int {
		if f.Offset < t {
			return -1
		} else if f.Offset > t {
			return 1
		}
		return 0
	})
}

// advance moves playback forward by dt, sending the frames that come due.
func (p *LogPlayer) advance(dt time.Duration) {
	p.t += dt
	for p.next < len(p.frames) && p.frames[p.next].Offset <= p.t {
		p.broadcast(p.frames[p.next].Data)
		p.next++
	}
	if p.next == len(p.frames) {
		p.state = StateFinished
		p.broadcast(p.status())
	}
}

type statusMsg struct {
	Name  string  `json:"name"`
	State string  `json:"STATE"`
	Time  float64 `json:"TIME"`
}

func (p *LogPlayer) status() []byte {
	b, _ := json.Marshal(statusMsg{Name: "LOGPLAYER", State: p.state, Time: p.t.Seconds()})
	return b
}

func (p *LogPlayer) broadcast(msg []byte) {
	for c := range p.clients {
		p.sendTo(c, msg)
	}
}

// sendTo queues a message for a client; clients that fall too far behind
// are disconnected.
func (p *LogPlayer) sendTo(c *playerClient, msg []byte) {
	select {
	case c.send <- msg:
	default:
		p.lg.Warn("log player client is not keeping up; disconnecting")
		p.drop(c)
	}
}

func (p *LogPlayer) drop(c *playerClient) {
	delete(p.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request to a websocket and serves the recording
// to it.
func (p *LogPlayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{EnableCompression: false}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.lg.Errorf("Unable to upgrade log player websocket: %v", err)
		return
	}

	c := &playerClient{ws: ws, send: make(chan []byte, 256)}
	select {
	case p.register <- c:
	case <-p.done:
		ws.Close()
		return
	}

	go func() {
		defer p.lg.CatchAndReportCrash()
		for msg := range c.send {
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		ws.Close()
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		select {
		case p.commands <- string(msg):
		case <-p.done:
			return
		}
	}

	select {
	case p.unregister <- c:
	case <-p.done:
	}
}
