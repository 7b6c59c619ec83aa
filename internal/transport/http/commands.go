package http

import (
	"encoding/json"
	"fmt"

	"github.com/magnusohlin/numba/internal/domain"
)

// Inbound message tags.
const (
	cmdCreateRoom    = "createRoom"
	cmdJoinRoom      = "joinRoom"
	cmdRejoinRoom    = "rejoinRoom"
	cmdLeaveRoom     = "leaveRoom"
	cmdStartGame     = "startGame"
	cmdAnswer        = "answer"
	cmdGetPlayerList = "getPlayerList"
	cmdGetRoomOwner  = "getRoomOwner"
)

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// command is the closed set of inbound client events.
type command interface {
	command()
}

type createRoomCommand struct{}

type joinRoomCommand struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type rejoinRoomCommand struct {
	ClientID string `json:"clientId"`
	RoomCode string `json:"roomCode"`
}

type leaveRoomCommand struct {
	RoomCode string `json:"roomCode"`
	ClientID string `json:"clientId"`
}

type startGameCommand struct {
	RoomCode string             `json:"roomCode"`
	Options  domain.GameOptions `json:"options"`
}

type answerCommand struct {
	RoomCode        string          `json:"roomCode"`
	ClientID        string          `json:"clientId"`
	Value           json.RawMessage `json:"value"`
	RemainingTimeMs int64           `json:"remainingTimeMs"`
}

type getPlayerListCommand struct {
	RoomCode string `json:"roomCode"`
}

type getRoomOwnerCommand struct {
	RoomCode string `json:"roomCode"`
}

func (createRoomCommand) command()    {}
func (joinRoomCommand) command()      {}
func (rejoinRoomCommand) command()    {}
func (leaveRoomCommand) command()     {}
func (startGameCommand) command()     {}
func (answerCommand) command()        {}
func (getPlayerListCommand) command() {}
func (getRoomOwnerCommand) command()  {}

// numericValue returns the submitted choice, or false for anything that is
// not a JSON number (the client sends "no answer" on timeout).
func (c answerCommand) numericValue() (float64, bool) {
	var v *float64
	if len(c.Value) == 0 || json.Unmarshal(c.Value, &v) != nil || v == nil {
		return 0, false
	}
	return *v, true
}

func decodeCommand(msg inboundMessage) (command, error) {
	var cmd command
	switch msg.Type {
	case cmdCreateRoom:
		return &createRoomCommand{}, nil
	case cmdJoinRoom:
		cmd = &joinRoomCommand{}
	case cmdRejoinRoom:
		cmd = &rejoinRoomCommand{}
	case cmdLeaveRoom:
		cmd = &leaveRoomCommand{}
	case cmdStartGame:
		cmd = &startGameCommand{}
	case cmdAnswer:
		cmd = &answerCommand{}
	case cmdGetPlayerList:
		cmd = &getPlayerListCommand{}
	case cmdGetRoomOwner:
		cmd = &getRoomOwnerCommand{}
	default:
		return nil, domain.ErrUnknownCommand
	}
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, cmd); err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Type, domain.ErrInvalidPayload)
		}
	}
	return cmd, nil
}
