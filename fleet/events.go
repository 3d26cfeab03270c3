// fleet/events.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/math"
)

// EventStream is a simple pub/sub queue of fleet events. Posting never
// blocks; each subscriber drains the events posted since its previous Get.
// Events posted while there are no subscribers are dropped.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]struct{}
	lastPost      time.Time
	warnedLong    bool
	done          chan struct{}
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is the index in the stream's events up to which the
	// subscriber has consumed them.
	offset      int
	source      string
	lastGet     time.Time
	warnedNoGet bool
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source),
		slog.Time("last_get", e.lastGet))
}

func NewEventStream(lg *log.Logger) *EventStream {
	es := &EventStream{
		subscriptions: make(map[*EventsSubscription]struct{}),
		lastPost:      time.Now(),
		done:          make(chan struct{}),
		lg:            lg,
	}
	go es.monitor()
	return es
}

// Subscribe registers a new subscriber; it only sees events posted after
// this call.
func (e *EventStream) Subscribe() *EventsSubscription {
	// The callsite makes it easier to find subscribers that stop calling
	// Get.
	_, fn, line, _ := runtime.Caller(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  fmt.Sprintf("%s:%d", fn, line),
		lastGet: time.Now(),
	}
	e.subscriptions[sub] = struct{}{}
	return sub
}

func (e *EventStream) monitor() {
	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-tick.C:
		}

		e.mu.Lock()

		e.compact()

		if len(e.events) > 1000 && !e.warnedLong {
			e.lg.Warn("Long EventStream", slog.Int("length", len(e.events)),
				log.AnyPointerSlice("subscriptions", slices.Collect(maps.Keys(e.subscriptions))))
			e.warnedLong = true
		}

		// Only complain about idle subscribers while events are arriving.
		if time.Since(e.lastPost) < 5*time.Second {
			for sub := range e.subscriptions {
				if d := time.Since(sub.lastGet); d > 10*time.Second && !sub.warnedNoGet {
					e.lg.Warn("Subscriber has not called Get() recently",
						slog.Duration("duration", d), slog.Any("subscriber", sub))
					sub.warnedNoGet = true
				}
			}
		}

		e.mu.Unlock()
	}
}

func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
}

func (e *EventStream) Post(event Event) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns the events posted since the subscriber last called Get.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()
	e.warnedNoGet = false

	return events
}

func (e *EventStream) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
	default:
		close(e.done)
	}
	clear(e.subscriptions)
}

// compact reclaims events that every subscriber has consumed.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}

		e.warnedLong = false
	}
}

func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{slog.Int("len", len(e.events)), slog.Int("cap", cap(e.events))}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_element", e.events[len(e.events)-1]))
	}
	items = append(items, log.AnyPointerSlice("subscriptions", slices.Collect(maps.Keys(e.subscriptions))))
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	AircraftCreatedEvent EventType = iota
	AircraftRemovedEvent
	PositionEvent
	StatusChangedEvent
	FlightModeChangedEvent
	CommsLostEvent
	FenceSubmittedEvent
	FenceRemovedEvent
	FencesUpdatedEvent
	FlightPlanUpdatedEvent
	TrafficExpiredEvent
	StatusMessageEvent
	PlaybackEvent
	SettingsEvent
	BannerEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"AircraftCreated", "AircraftRemoved", "Position", "StatusChanged",
		"FlightModeChanged", "CommsLost", "FenceSubmitted", "FenceRemoved", "FencesUpdated",
		"FlightPlanUpdated", "TrafficExpired", "StatusMessage", "Playback", "Settings",
		"Banner"}[t]
}

type Event struct {
	Type     EventType
	Time     time.Time
	Aircraft int
	Position math.Point2LL
	Alt      float64
	Status   Status
	Text     string
	Fence    int // fence id
	Traffic  int // traffic contact id
}

func (e Event) String() string {
	return fmt.Sprintf("%s: aircraft %d at %s text %q", e.Type, e.Aircraft, e.Time.Format(time.RFC3339), e.Text)
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String())}
	if e.Aircraft != 0 {
		attrs = append(attrs, slog.Int("aircraft", e.Aircraft))
	}
	if !e.Position.IsZero() {
		attrs = append(attrs, slog.String("position", e.Position.DDString()), slog.Float64("alt", e.Alt))
	}
	if e.Type == StatusChangedEvent {
		attrs = append(attrs, slog.String("status", e.Status.String()))
	}
	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}
	if e.Fence != 0 {
		attrs = append(attrs, slog.Int("fence", e.Fence))
	}
	if e.Traffic != 0 {
		attrs = append(attrs, slog.Int("traffic", e.Traffic))
	}
	return slog.GroupValue(attrs...)
}
