package app_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/avatar"
	"github.com/magnusohlin/numba/internal/domain"
	"github.com/magnusohlin/numba/internal/infra/memory"
)

type broadcast struct {
	room  string
	event app.Event
}

// recorder is an app.Broadcaster that keeps every event and exposes them as
// a channel for tests driven by the fake clock.
type recorder struct {
	mu     sync.Mutex
	events []broadcast
	closed []string
	ch     chan broadcast
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan broadcast, 4096)}
}

func (r *recorder) Broadcast(room string, ev app.Event) {
	r.mu.Lock()
	r.events = append(r.events, broadcast{room: room, event: ev})
	r.mu.Unlock()
	r.ch <- broadcast{room: room, event: ev}
}

func (r *recorder) CloseRoom(room string) {
	r.mu.Lock()
	r.closed = append(r.closed, room)
	r.mu.Unlock()
}

func (r *recorder) all(typ app.EventType) []app.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []app.Event
	for _, b := range r.events {
		if b.event.Type() == typ {
			out = append(out, b.event)
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, typ app.EventType) app.Event {
	t.Helper()
	events := r.all(typ)
	if len(events) == 0 {
		t.Fatalf("expected a %s event", typ)
	}
	return events[len(events)-1]
}

func (r *recorder) closedRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

// waitFor consumes the channel until an event of typ arrives.
func (r *recorder) waitFor(t *testing.T, typ app.EventType) app.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-r.ch:
			if b.event.Type() == typ {
				return b.event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// fixedQuestions always asks 2 + 3.
type fixedQuestions struct{}

func (fixedQuestions) Generate(op domain.Operation, _ domain.Difficulty) domain.Question {
	return domain.Question{
		Prompt:      "2 + 3",
		Operation:   op,
		Answer:      5,
		Choices:     []int{4, 5, 6, 7},
		TimeLimitMs: 10000,
	}
}

func (fixedQuestions) TimeLimit() time.Duration { return 10 * time.Second }

type harness struct {
	coordinator *app.Coordinator
	rec         *recorder
	clock       *clockwork.FakeClock
	rooms       *memory.RoomStore
}

func newHarness(questions app.QuestionSource, opts ...app.Option) *harness {
	h := &harness{
		rec:   newRecorder(),
		clock: clockwork.NewFakeClock(),
		rooms: memory.NewRoomStore(),
	}
	opts = append([]app.Option{app.WithClock(h.clock)}, opts...)
	h.coordinator = app.NewCoordinator(h.rooms, questions, avatar.NewGenerator(nil), h.rec, opts...)
	return h
}

var addition = domain.GameOptions{Operation: domain.OpAddition, Difficulty: domain.DifficultyEasy}
