package app

import "github.com/magnusohlin/numba/internal/domain"

// EventType tags every outbound message.
type EventType string

const (
	EventConnected        EventType = "connected"
	EventRoomCreated      EventType = "roomCreated"
	EventJoined           EventType = "joined"
	EventPlayerListUpdate EventType = "playerListUpdate"
	EventRoomOwner        EventType = "roomOwner"
	EventStartGame        EventType = "startGame"
	EventSyncTimer        EventType = "syncTimer"
	EventNextQuestion     EventType = "nextQuestion"
	EventEndGame          EventType = "endGame"
	EventRoomClosed       EventType = "roomClosed"
	EventError            EventType = "error"
)

// Close reasons carried by RoomClosed.
const (
	ReasonOwnerLeft = "ownerLeft"
	ReasonIdle      = "idle"
)

// Event is the closed set of outbound messages. Each variant has a fixed
// field set; the transport wraps it in a {type, payload} envelope.
type Event interface {
	Type() EventType
	event()
}

// Broadcaster is the publish/subscribe transport keyed by room membership.
// Broadcast must not block: it is called with the room lock held.
type Broadcaster interface {
	Broadcast(roomCode string, ev Event)
	CloseRoom(roomCode string)
}

type Connected struct {
	ClientID string `json:"clientId"`
}

type RoomCreated struct {
	RoomCode string `json:"roomCode"`
}

type Joined struct {
	RoomCode string              `json:"roomCode"`
	OwnerID  string              `json:"ownerId"`
	Players  []domain.PlayerView `json:"players"`
}

type PlayerListUpdate struct {
	Players []domain.PlayerView `json:"players"`
}

type RoomOwner struct {
	OwnerID string `json:"ownerId"`
}

type StartGame struct {
	Question        domain.Question `json:"question"`
	TimerDurationMs int64           `json:"timerDuration"`
	QuestionsAsked  int             `json:"questionsAsked"`
}

type SyncTimer struct {
	RemainingTimeMs int64 `json:"remainingTime"`
}

type NextQuestion struct {
	Question       domain.Question     `json:"question"`
	Scores         []domain.ScoreEntry `json:"scores"`
	QuestionsAsked int                 `json:"questionsAsked"`
}

type EndGame struct {
	Scores         []domain.ScoreEntry `json:"scores"`
	QuestionsAsked int                 `json:"questionsAsked"`
}

type RoomClosed struct {
	Reason string `json:"reason"`
}

type Error struct {
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
	RequestID string           `json:"requestId,omitempty"`
}

func (Connected) Type() EventType        { return EventConnected }
func (RoomCreated) Type() EventType      { return EventRoomCreated }
func (Joined) Type() EventType           { return EventJoined }
func (PlayerListUpdate) Type() EventType { return EventPlayerListUpdate }
func (RoomOwner) Type() EventType        { return EventRoomOwner }
func (StartGame) Type() EventType        { return EventStartGame }
func (SyncTimer) Type() EventType        { return EventSyncTimer }
func (NextQuestion) Type() EventType     { return EventNextQuestion }
func (EndGame) Type() EventType          { return EventEndGame }
func (RoomClosed) Type() EventType       { return EventRoomClosed }
func (Error) Type() EventType            { return EventError }

func (Connected) event()        {}
func (RoomCreated) event()      {}
func (Joined) event()           {}
func (PlayerListUpdate) event() {}
func (RoomOwner) event()        {}
func (StartGame) event()        {}
func (SyncTimer) event()        {}
func (NextQuestion) event()     {}
func (EndGame) event()          {}
func (RoomClosed) event()       {}
func (Error) event()            {}
