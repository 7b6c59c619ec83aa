package app

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/domain"
)

const (
	roomCodeLength   = 4
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 64
	defaultTick      = time.Second
	resultTimeout    = 5 * time.Second
)

// RoomRepository abstracts where live rooms are registered (in-memory, Redis, etc).
type RoomRepository interface {
	// Insert registers room under its code or returns domain.ErrRoomCodeTaken.
	Insert(ctx context.Context, room *Room) error
	Get(code string) (*Room, bool)
	// Delete is idempotent.
	Delete(code string)
	Rooms() []*Room
}

// QuestionSource generates the next question for a room.
type QuestionSource interface {
	Generate(op domain.Operation, level domain.Difficulty) domain.Question
	TimeLimit() time.Duration
}

// AvatarGenerator renders the avatar stored for a player on first join.
type AvatarGenerator interface {
	Generate(seed string) string
}

// ResultSink receives the outcome of every finished session.
type ResultSink interface {
	RecordResult(ctx context.Context, result domain.GameResult) error
}

// JoinResult is returned to the joining client.
type JoinResult struct {
	RoomCode string
	OwnerID  string
	Players  []domain.PlayerView
	Rejoined bool
}

// Coordinator routes inbound client events to rooms, drives their countdowns
// and publishes the resulting events.
type Coordinator struct {
	rooms        RoomRepository
	questions    QuestionSource
	avatars      AvatarGenerator
	broadcaster  Broadcaster
	results      ResultSink
	clock        clockwork.Clock
	tick         time.Duration
	maxQuestions int
	newCode      func() string
	newID        func() string
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the real clock; tests pass a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithTick(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.tick = d
		}
	}
}

func WithMaxQuestions(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxQuestions = n
		}
	}
}

func WithResultSink(sink ResultSink) Option {
	return func(c *Coordinator) { c.results = sink }
}

// WithCodeGenerator overrides room code generation.
func WithCodeGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newCode = fn }
}

// WithIDGenerator overrides result id generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

func NewCoordinator(rooms RoomRepository, questions QuestionSource, avatars AvatarGenerator, broadcaster Broadcaster, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:        rooms,
		questions:    questions,
		avatars:      avatars,
		broadcaster:  broadcaster,
		clock:        clockwork.NewRealClock(),
		tick:         defaultTick,
		maxQuestions: defaultQuestions,
		newCode:      RandomRoomCode,
		newID:        newResultID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RandomRoomCode returns four uppercase alphanumerics.
func RandomRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// CreateRoom registers a new room owned by ownerID, drawing a fresh code on
// every collision.
func (c *Coordinator) CreateRoom(ctx context.Context, ownerID string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		room := newRoom(c.newCode(), ownerID, c.clock.Now())
		room.countdown = newCountdown(c.clock, c.tick, func(gen uint64) {
			c.onTick(room, gen)
		})

		err := c.rooms.Insert(ctx, room)
		if errors.Is(err, domain.ErrRoomCodeTaken) {
			log.Debug().Str("room_code", room.code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return "", err
		}
		log.Info().Str("room_code", room.code).Str("owner_id", ownerID).Msg("room created")
		return room.code, nil
	}
	return "", domain.ErrRoomCodesExhausted
}

// GetRoom looks up a live room; absence is reported with ok=false.
func (c *Coordinator) GetRoom(code string) (*Room, bool) {
	return c.rooms.Get(code)
}

// DeleteRoom cancels the room's countdown and unregisters it. Idempotent.
func (c *Coordinator) DeleteRoom(_ context.Context, code string) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return
	}
	room.mu.Lock()
	c.closeLocked(room, "")
	room.mu.Unlock()
}

// closeLocked tears the room down; a non-empty reason is broadcast first.
func (c *Coordinator) closeLocked(room *Room, reason string) {
	if room.closed {
		return
	}
	room.closed = true
	room.countdown.Reset()
	if reason != "" {
		c.broadcaster.Broadcast(room.code, RoomClosed{Reason: reason})
	}
	c.rooms.Delete(room.code)
	c.broadcaster.CloseRoom(room.code)
	log.Info().Str("room_code", room.code).Str("reason", reason).Msg("room deleted")
}

// lockRoom returns the live room with its lock held.
func (c *Coordinator) lockRoom(code string) (*Room, error) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	room.touch(c.clock.Now())
	return room, nil
}

// JoinRoom adds clientID to the room, or reattaches it when it already has
// a player entry, and broadcasts the roster.
func (c *Coordinator) JoinRoom(_ context.Context, code, clientID, name string) (JoinResult, error) {
	room, err := c.lockRoom(code)
	if err != nil {
		return JoinResult{}, err
	}
	defer room.mu.Unlock()

	rejoined := room.join(clientID, name, c.avatars.Generate)
	players := room.roster()
	c.broadcaster.Broadcast(room.code, PlayerListUpdate{Players: players})

	log.Info().
		Str("room_code", room.code).
		Str("client_id", clientID).
		Bool("rejoined", rejoined).
		Msg("player joined")
	return JoinResult{RoomCode: room.code, OwnerID: room.ownerID, Players: players, Rejoined: rejoined}, nil
}

// RejoinRoom reattaches an existing player after a dropped connection.
func (c *Coordinator) RejoinRoom(_ context.Context, clientID, code string) (JoinResult, error) {
	room, err := c.lockRoom(code)
	if err != nil {
		return JoinResult{}, err
	}
	defer room.mu.Unlock()

	if err := room.reattach(clientID); err != nil {
		return JoinResult{}, err
	}
	players := room.roster()
	c.broadcaster.Broadcast(room.code, PlayerListUpdate{Players: players})

	log.Info().Str("room_code", room.code).Str("client_id", clientID).Msg("player rejoined")
	return JoinResult{RoomCode: room.code, OwnerID: room.ownerID, Players: players, Rejoined: true}, nil
}

// LeaveRoom removes clientID permanently. When the owner leaves, the
// session ends for everyone and the room is deleted.
func (c *Coordinator) LeaveRoom(_ context.Context, code, clientID string) error {
	room, err := c.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if clientID == room.ownerID {
		c.closeLocked(room, ReasonOwnerLeft)
		return nil
	}
	if err := room.remove(clientID); err != nil {
		return err
	}
	log.Info().Str("room_code", room.code).Str("client_id", clientID).Msg("player left")
	c.broadcaster.Broadcast(room.code, PlayerListUpdate{Players: room.roster()})
	c.checkBarrierLocked(room)
	return nil
}

// Disconnect marks clientID as dropped but keeps its score and identity.
// This is never terminal, not even for the owner.
func (c *Coordinator) Disconnect(_ context.Context, code, clientID string) error {
	room, err := c.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if err := room.markDisconnected(clientID); err != nil {
		return err
	}
	log.Info().Str("room_code", room.code).Str("client_id", clientID).Msg("player disconnected")
	c.broadcaster.Broadcast(room.code, PlayerListUpdate{Players: room.roster()})
	c.checkBarrierLocked(room)
	return nil
}

// StartGame begins a session. Requests from anyone but the owner are ignored.
func (c *Coordinator) StartGame(_ context.Context, code, clientID string, options domain.GameOptions) error {
	room, err := c.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if clientID != room.ownerID {
		log.Debug().Str("room_code", room.code).Str("client_id", clientID).Msg("ignoring start from non-owner")
		return nil
	}
	options, err = options.Validate()
	if err != nil {
		return err
	}

	room.options = options
	for _, p := range room.players {
		p.score = 0
	}
	room.resetAnswers()
	room.questionsAsked = 1
	room.state = RoomPlaying

	q := c.questions.Generate(options.Operation, options.Difficulty)
	room.question = &q
	room.countdown.Start(c.timeLimit())

	log.Info().
		Str("room_code", room.code).
		Str("operation", string(options.Operation)).
		Int("level", int(options.Difficulty)).
		Msg("game started")
	c.broadcaster.Broadcast(room.code, StartGame{
		Question:        q,
		TimerDurationMs: c.timeLimit().Milliseconds(),
		QuestionsAsked:  room.questionsAsked,
	})
	return nil
}

// SubmitAnswer records clientID's answer to the current question. The
// reported remaining time is clamped to the server countdown. Answers outside
// a running game are ignored.
func (c *Coordinator) SubmitAnswer(_ context.Context, code, clientID string, value float64, remainingMs int64) error {
	room, err := c.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	p, ok := room.players[clientID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if room.state != RoomPlaying || room.question == nil {
		return nil
	}

	if server := room.countdown.Remaining().Milliseconds(); remainingMs > server {
		remainingMs = server
	}
	if remainingMs < 0 {
		remainingMs = 0
	}
	room.record(p, value, remainingMs)

	log.Debug().
		Str("room_code", room.code).
		Str("client_id", clientID).
		Bool("correct", p.answeredCorrectly).
		Int("score", p.score).
		Msg("answer recorded")
	c.checkBarrierLocked(room)
	return nil
}

// SubmitNoAnswer records an explicit timeout from the client.
func (c *Coordinator) SubmitNoAnswer(ctx context.Context, code, clientID string) error {
	return c.SubmitAnswer(ctx, code, clientID, math.NaN(), 0)
}

func (c *Coordinator) checkBarrierLocked(room *Room) {
	if room.state != RoomPlaying || !room.barrierReached() {
		return
	}
	c.advanceLocked(room)
}

// PlayerList returns the roster in join order.
func (c *Coordinator) PlayerList(_ context.Context, code string) ([]domain.PlayerView, error) {
	room, err := c.lockRoom(code)
	if err != nil {
		return nil, err
	}
	defer room.mu.Unlock()
	return room.roster(), nil
}

// RoomOwner returns the owner's client id.
func (c *Coordinator) RoomOwner(_ context.Context, code string) (string, error) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return room.ownerID, nil
}

func (c *Coordinator) timeLimit() time.Duration {
	if d := c.questions.TimeLimit(); d > 0 {
		return d
	}
	return 10 * time.Second
}

func (c *Coordinator) recordResult(room *Room, scores []domain.ScoreEntry) {
	if c.results == nil {
		return
	}
	result := domain.GameResult{
		ID:             c.newID(),
		RoomCode:       room.code,
		OwnerID:        room.ownerID,
		Options:        room.options,
		QuestionsAsked: room.questionsAsked,
		Scores:         scores,
		FinishedAt:     c.clock.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultTimeout)
		defer cancel()
		if err := c.results.RecordResult(ctx, result); err != nil {
			log.Error().Err(err).Str("room_code", result.RoomCode).Msg("failed to record game result")
		}
	}()
}
