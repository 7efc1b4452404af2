package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vishalmakwana111/everyonedraw/pkg/fanout"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
	"github.com/vishalmakwana111/everyonedraw/pkg/store"
)

// DefaultStoreTimeout bounds each store call made on behalf of a client message.
const DefaultStoreTimeout = 5 * time.Second

type Server struct {
	store        store.Store
	hub          *fanout.Hub
	upgrader     websocket.Upgrader
	StoreTimeout time.Duration
}

func New(st store.Store, hub *fanout.Hub) *Server {
	return &Server{
		store: st,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Edits are unauthenticated, so any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		StoreTimeout: DefaultStoreTimeout,
	}
}

// ServeWS upgrades the request and handles the connection's messages in arrival order until it drops.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	c := newWSConn(uuid.NewString(), conn)
	log := slog.With("conn", c.id)
	go c.writePump()

	s.hub.Join(c.id, c)
	defer func() {
		s.hub.Leave(c.id)
		_ = c.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := request.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("client disconnected", "err", err)
			} else {
				log.Debug("client disconnected", "err", err)
			}
			return
		}
		s.handleMessage(ctx, c.id, c, msg)
	}
}

// handleMessage applies one client message. Nothing here returns an error: malformed input and store failures
// are logged and the connection carries on.
func (s *Server) handleMessage(ctx context.Context, id string, conn fanout.Conn, raw []byte) {
	log := slog.With("conn", id)
	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		log.Warn("dropping malformed message", "err", err)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	switch env.T {
	case protocol.MsgProposeSet:
		p, err := protocol.DecodeProposeSet(env)
		if err != nil {
			log.Warn("rejecting proposal", "verb", env.T, "err", err)
			return
		}
		if err := s.store.Upsert(opCtx, p); err != nil {
			log.Error("failed to upsert pixel", "x", p.X, "y", p.Y, "err", err)
			return
		}
		s.broadcast(id, protocol.MsgSetApplied, p)

	case protocol.MsgProposeDelete:
		c, err := protocol.DecodeProposeDelete(env)
		if err != nil {
			log.Warn("rejecting proposal", "verb", env.T, "err", err)
			return
		}
		if err := s.store.Delete(opCtx, c); err != nil {
			log.Error("failed to remove pixel", "x", c.X, "y", c.Y, "err", err)
			return
		}
		s.broadcast(id, protocol.MsgDeleteApplied, c)

	case protocol.MsgQueryRange:
		r, err := protocol.DecodeQueryRange(env)
		if err != nil {
			log.Warn("rejecting query", "err", err)
			return
		}
		pixels, err := s.store.QueryRange(opCtx, r)
		if err != nil {
			log.Error("failed to fetch pixels for viewport", "rect", r, "err", err)
			return
		}
		b, err := protocol.Encode(protocol.MsgRangeResult, pixels)
		if err != nil {
			log.Error("failed to encode range result", "err", err)
			return
		}
		if err := conn.Send(b); err != nil {
			log.Warn("failed to send range result", "pixels", len(pixels), "err", err)
		}

	default:
		log.Warn("dropping message with unknown verb", "verb", env.T)
	}
}

func (s *Server) broadcast(origin, verb string, payload any) {
	b, err := protocol.Encode(verb, payload)
	if err != nil {
		slog.Error("failed to encode broadcast", "verb", verb, "err", err)
		return
	}
	s.hub.Broadcast(origin, b)
}
