// Package hub is the topic registry of the relay: a single actor
// owning the map of live rooms, keyed by topic. Duel topics are duel
// ids; private notification topics are "user:<identity>".
package hub

import (
	"context"

	"github.com/codeduels/duel-server/internal/room"
	"github.com/codeduels/duel-server/pkg/types"
)

// UserTopic names the private topic unsolicited challenge
// notifications are delivered on.
func UserTopic(identity string) string { return "user:" + identity }

type HubMsg interface{ isHubMsg() }

type GetRoom struct {
	Topic string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Topic string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Topic string
}

type ShutdownHub struct{}

func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.Topic]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.NewRoom(h.ctx, msg.Topic)
				h.rooms[msg.Topic] = r
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Topic] // may be nil

			case RemoveRoom:
				if r := h.rooms[msg.Topic]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Topic)
				}

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// Ensure returns the room for topic, creating it if needed.
func (h *Hub) Ensure(topic string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- EnsureRoom{Topic: topic, Reply: reply}
	return <-reply
}

// Get returns the room for topic, or nil.
func (h *Hub) Get(topic string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{Topic: topic, Reply: reply}
	return <-reply
}

func (h *Hub) Remove(topic string) {
	h.inbox <- RemoveRoom{Topic: topic}
}

// Broadcast pushes a server-originated event to every member of the
// topic. Publishing to an absent topic is dropped silently: a late
// event to a torn-down duel is not an error.
func (h *Hub) Broadcast(topic string, ev types.ServerEvent) {
	if r := h.Get(topic); r != nil {
		r.Inbox() <- room.Broadcast{Event: ev}
	}
}
