package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
)

type WSHandler struct {
	coordinator *app.Coordinator
	hub         *Hub
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator, hub *Hub) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer in front of the mux.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and routes the client's messages to the
// coordinator until the socket closes. A client without a persisted id
// receives a fresh one in the connected event.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer ws.Close()

	c := newConn(ws, clientID)
	writerDone := make(chan struct{})
	go c.writePump(writerDone)

	log.Debug().Str("connection_id", c.id).Str("client_id", clientID).Msg("client connected")
	c.reply(app.Connected{ClientID: clientID})

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("ws read error")
			}
			break
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		cmd, err := decodeCommand(inbound)
		if err != nil {
			h.replyError(c, inbound.RequestID, err)
			continue
		}
		if err := h.dispatch(ctx, c, cmd); err != nil {
			h.replyError(c, inbound.RequestID, err)
		}
	}

	for _, code := range c.joined() {
		// A reconnected client may already be back on a newer socket.
		if h.hub.unsubscribe(code, c) {
			continue
		}
		if err := h.coordinator.Disconnect(ctx, code, c.clientID); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) && !errors.Is(err, domain.ErrRoomNotFound) {
			log.Warn().Err(err).Str("room_code", code).Str("client_id", c.clientID).Msg("disconnect failed")
		}
	}
	c.close()
	<-writerDone
	log.Debug().Str("connection_id", c.id).Str("client_id", clientID).Msg("client disconnected")
}

func (h *WSHandler) dispatch(ctx context.Context, c *conn, cmd command) error {
	switch cmd := cmd.(type) {
	case *createRoomCommand:
		code, err := h.coordinator.CreateRoom(ctx, c.clientID)
		if err != nil {
			return err
		}
		h.hub.subscribe(code, c)
		c.reply(app.RoomCreated{RoomCode: code})

	case *joinRoomCommand:
		h.hub.subscribe(cmd.RoomCode, c)
		res, err := h.coordinator.JoinRoom(ctx, cmd.RoomCode, c.clientID, cmd.Name)
		if err != nil {
			h.hub.unsubscribe(cmd.RoomCode, c)
			return err
		}
		c.reply(app.Joined{RoomCode: res.RoomCode, OwnerID: res.OwnerID, Players: res.Players})
		c.reply(app.RoomOwner{OwnerID: res.OwnerID})

	case *rejoinRoomCommand:
		if err := c.owns(cmd.ClientID); err != nil {
			return err
		}
		h.hub.subscribe(cmd.RoomCode, c)
		res, err := h.coordinator.RejoinRoom(ctx, c.clientID, cmd.RoomCode)
		if err != nil {
			h.hub.unsubscribe(cmd.RoomCode, c)
			return err
		}
		c.reply(app.Joined{RoomCode: res.RoomCode, OwnerID: res.OwnerID, Players: res.Players})
		c.reply(app.RoomOwner{OwnerID: res.OwnerID})

	case *leaveRoomCommand:
		if err := c.owns(cmd.ClientID); err != nil {
			return err
		}
		err := h.coordinator.LeaveRoom(ctx, cmd.RoomCode, c.clientID)
		h.hub.unsubscribe(cmd.RoomCode, c)
		return err

	case *startGameCommand:
		return h.coordinator.StartGame(ctx, cmd.RoomCode, c.clientID, cmd.Options)

	case *answerCommand:
		if err := c.owns(cmd.ClientID); err != nil {
			return err
		}
		value, ok := cmd.numericValue()
		if !ok {
			return h.coordinator.SubmitNoAnswer(ctx, cmd.RoomCode, c.clientID)
		}
		return h.coordinator.SubmitAnswer(ctx, cmd.RoomCode, c.clientID, value, cmd.RemainingTimeMs)

	case *getPlayerListCommand:
		players, err := h.coordinator.PlayerList(ctx, cmd.RoomCode)
		if err != nil {
			return err
		}
		c.reply(app.PlayerListUpdate{Players: players})

	case *getRoomOwnerCommand:
		owner, err := h.coordinator.RoomOwner(ctx, cmd.RoomCode)
		if err != nil {
			return err
		}
		c.reply(app.RoomOwner{OwnerID: owner})

	default:
		return domain.ErrUnknownCommand
	}
	return nil
}

func (h *WSHandler) replyError(c *conn, requestID string, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("client_id", c.clientID).Msg("request failed")
	}
	c.reply(app.Error{Kind: kind, Message: err.Error(), RequestID: requestID})
}

// owns rejects payloads that name a different client than the connection.
func (c *conn) owns(clientID string) error {
	if clientID != "" && clientID != c.clientID {
		return domain.ErrClientMismatch
	}
	return nil
}
