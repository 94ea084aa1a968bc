// Package ws is the transport edge of the relay: one handler per
// websocket connection, decoding client frames into typed events and
// dispatching them to the hub, rooms and lifecycle manager.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/hub"
	"github.com/codeduels/duel-server/internal/lifecycle"
	"github.com/codeduels/duel-server/internal/room"
	"github.com/codeduels/duel-server/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

type Server struct {
	hub *hub.Hub
	mgr *lifecycle.Manager
	log *zap.SugaredLogger
}

func NewServer(h *hub.Hub, mgr *lifecycle.Manager, log *zap.SugaredLogger) *Server {
	return &Server{hub: h, mgr: mgr, log: log}
}

// client is the per-connection state: which topics it joined and the
// single channel the writer goroutine drains.
type client struct {
	id       string
	identity string
	sendCh   chan types.ServerEvent
	joined   map[string]*room.Room // topic -> room
	duels    map[string]bool       // duel topics, for session leave
}

func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &client{
			id:     uuid.NewString(),
			sendCh: make(chan types.ServerEvent, 32),
			joined: make(map[string]*room.Room),
			duels:  make(map[string]bool),
		}
		defer s.leaveAll(c)

		// Writer goroutine: everything the client receives flows
		// through sendCh, so frames from different topics never
		// interleave mid-write.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-c.sendCh:
					payload, err := json.Marshal(ev)
					if err != nil {
						continue
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err = conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			rctx, rcancel := context.WithTimeout(ctx, readTimeout)
			_, data, err := conn.Read(rctx)
			rcancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var ev types.ClientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				c.sendErr("bad json")
				continue
			}
			s.dispatch(ctx, c, ev)
		}
	}
}

// dispatch routes one client frame. Payloads are validated here, at
// the relay boundary, before anything downstream sees them.
func (s *Server) dispatch(ctx context.Context, c *client, ev types.ClientEvent) {
	switch ev.Type {
	case types.EvJoinDuel:
		var p types.JoinDuelPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DuelID == "" {
			c.sendErr("join-duel: missing duelId")
			return
		}
		s.handleJoinDuel(ctx, c, p)

	case types.EvRegisterIdentity:
		var p types.RegisterIdentityPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Identity == "" {
			c.sendErr("register-identity: missing identity")
			return
		}
		c.identity = p.Identity
		s.joinTopic(ctx, c, hub.UserTopic(p.Identity), room.Join{
			ConnID: c.id,
			Role:   types.RoleWatcher,
		})

	case types.EvCodeChange:
		var p types.CodeChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DuelID == "" {
			c.sendErr("code-change: missing duelId")
			return
		}
		// Relay to everyone else in the room; a missing room means
		// the duel is gone and the edit is simply dropped.
		if r := s.hub.Get(p.DuelID); r != nil {
			r.Inbox() <- room.Publish{
				From: c.id,
				Event: types.ServerEvent{
					Type:    types.EvCodeUpdate,
					Payload: types.CodeUpdatePayload{Identity: p.Identity, Code: p.Code},
				},
			}
		}

	case types.EvRequestTimer:
		var p types.JoinDuelPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DuelID == "" {
			c.sendErr("request-timer: missing duelId")
			return
		}
		if anchor, ok := s.mgr.Timer(p.DuelID); ok {
			c.send(types.ServerEvent{Type: types.EvStartTimer, Payload: anchor.Payload()})
		}

	case types.EvTerminateDuel:
		var p types.TerminateDuelPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DuelID == "" {
			c.sendErr("terminate-duel: missing duelId")
			return
		}
		if err := s.mgr.Terminate(ctx, p.DuelID); err != nil {
			s.log.Warnw("terminate failed", "duel", p.DuelID, "err", err)
		}

	default:
		c.sendErr("unknown event type")
	}
}

func (s *Server) handleJoinDuel(ctx context.Context, c *client, p types.JoinDuelPayload) {
	role := p.Role
	if role == "" {
		role = types.RoleActive
	}

	anchor, hasAnchor, err := s.mgr.Join(ctx, p.DuelID, c.id, role)
	if err != nil {
		c.sendErr(err.Error())
		return
	}
	c.duels[p.DuelID] = true

	s.joinTopic(ctx, c, p.DuelID, room.Join{
		ConnID:   c.id,
		Role:     role,
		PeerID:   p.PeerID,
		Identity: c.identity,
	})

	// Late joiners and reconnects get the anchor directly; the
	// room-wide start-timer broadcast only happens on creation.
	if hasAnchor {
		c.send(types.ServerEvent{Type: types.EvStartTimer, Payload: anchor.Payload()})
	}
}

// joinTopic registers the connection on a topic with its own outbox
// and a forwarder into the connection's send channel. The per-topic
// outbox keeps room shutdowns from touching other topics' delivery.
func (s *Server) joinTopic(ctx context.Context, c *client, topic string, j room.Join) {
	if _, ok := c.joined[topic]; ok {
		return
	}
	r := s.hub.Ensure(topic)
	out := make(chan types.ServerEvent, 16)
	j.Outbox = out
	r.Inbox() <- j
	c.joined[topic] = r

	go func() {
		for ev := range out {
			select {
			case c.sendCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Server) leaveAll(c *client) {
	for topic, r := range c.joined {
		r.Inbox() <- room.Leave{ConnID: c.id}
		if c.duels[topic] {
			s.mgr.Leave(topic, c.id)
		}
	}
}

func (c *client) send(ev types.ServerEvent) {
	select {
	case c.sendCh <- ev:
	default:
	}
}

func (c *client) sendErr(msg string) {
	c.send(types.ServerEvent{Type: types.EvError, Payload: types.ErrorPayload{Message: msg}})
}
