package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/magnusohlin/numba/internal/domain"
)

// RoomState tracks whether a game is in progress.
type RoomState int

const (
	RoomIdle RoomState = iota
	RoomPlaying
)

type player struct {
	id     string
	name   string
	score  int
	avatar string

	answered          bool
	answeredCorrectly bool
	timeRemainingMs   int64

	disconnected bool
}

// Room is one quiz session. All fields are guarded by mu; the coordinator
// holds it for the whole of every inbound event and countdown tick.
type Room struct {
	code    string
	ownerID string

	mu             sync.Mutex
	options        domain.GameOptions
	players        map[string]*player
	order          []string
	question       *domain.Question
	questionsAsked int
	state          RoomState
	countdown      *Countdown
	lastActivity   time.Time
	closed         bool
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
// Its countdown runs on the real clock and has no tick handler, so a
// Coordinator can close the room but never advances a game in it.
func NewRoom(code, ownerID string, now time.Time) *Room {
	room := newRoom(code, ownerID, now)
	room.countdown = newCountdown(clockwork.NewRealClock(), defaultTick, func(uint64) {})
	return room
}

func newRoom(code, ownerID string, now time.Time) *Room {
	return &Room{
		code:         code,
		ownerID:      ownerID,
		players:      make(map[string]*player),
		lastActivity: now,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) OwnerID() string { return r.ownerID }

// join inserts a new player or reattaches a returning one. It reports
// whether the player already existed.
func (r *Room) join(clientID, name string, avatar func(seed string) string) bool {
	if p, ok := r.players[clientID]; ok {
		p.disconnected = false
		if name != "" {
			p.name = name
		}
		return true
	}
	r.players[clientID] = &player{
		id:     clientID,
		name:   name,
		avatar: avatar(clientID),
	}
	r.order = append(r.order, clientID)
	return false
}

func (r *Room) reattach(clientID string) error {
	p, ok := r.players[clientID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.disconnected = false
	return nil
}

func (r *Room) remove(clientID string) error {
	if _, ok := r.players[clientID]; !ok {
		return domain.ErrPlayerNotFound
	}
	delete(r.players, clientID)
	for i, id := range r.order {
		if id == clientID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Room) markDisconnected(clientID string) error {
	p, ok := r.players[clientID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.disconnected = true
	return nil
}

// each visits players in join order.
func (r *Room) each(fn func(p *player)) {
	for _, id := range r.order {
		fn(r.players[id])
	}
}

func (r *Room) roster() []domain.PlayerView {
	out := make([]domain.PlayerView, 0, len(r.order))
	r.each(func(p *player) {
		out = append(out, domain.PlayerView{
			ID:           p.id,
			Name:         p.name,
			Score:        p.score,
			Avatar:       p.avatar,
			Disconnected: p.disconnected,
		})
	})
	return out
}

// connected reports whether any player is currently attached.
func (r *Room) connected() bool {
	for _, p := range r.players {
		if !p.disconnected {
			return true
		}
	}
	return false
}

func (r *Room) touch(now time.Time) {
	r.lastActivity = now
}

// Counting reports whether the room has a live countdown schedule.
func (r *Room) Counting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countdown != nil && r.countdown.Live()
}
