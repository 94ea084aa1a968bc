// Package room implements the per-topic actor of the relay: one
// goroutine owning the member set of a single duel (or private
// identity) topic, fanning events out to every member's outbox.
package room

import (
	"context"

	"github.com/codeduels/duel-server/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Join registers a connection's outbox on the topic. Joining an
// already-joined connection is a no-op. A non-empty PeerID is
// announced to the other occupants so they can start negotiation.
type Join struct {
	ConnID   string
	Role     types.Role
	PeerID   string
	Identity string
	Outbox   chan types.ServerEvent
}

func (Join) isRoomMsg() {}

type Leave struct{ ConnID string }

func (Leave) isRoomMsg() {}

// Publish relays an event to every member except the sender.
type Publish struct {
	From  string
	Event types.ServerEvent
}

func (Publish) isRoomMsg() {}

// Broadcast delivers a server-originated event to every member.
type Broadcast struct{ Event types.ServerEvent }

func (Broadcast) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct{ Reply chan View }

func (GetState) isRoomMsg() {}

// View reflects internal state without data races. Test-only.
type View struct {
	NumMembers int
	NumActive  int
}

type member struct {
	role     types.Role
	peerID   string
	identity string
	outbox   chan types.ServerEvent
}

type Room struct {
	topic   string
	inbox   chan Msg
	members map[string]*member
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, topic string) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		topic:   topic,
		inbox:   make(chan Msg, 64),
		members: make(map[string]*member),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Topic() string     { return r.topic }
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				if _, ok := r.members[msg.ConnID]; ok {
					break
				}
				r.members[msg.ConnID] = &member{
					role:     msg.Role,
					peerID:   msg.PeerID,
					identity: msg.Identity,
					outbox:   msg.Outbox,
				}
				if msg.PeerID != "" {
					r.announcePeer(msg.ConnID, msg)
				}

			case Leave:
				delete(r.members, msg.ConnID)

			case Publish:
				r.deliver(msg.Event, msg.From)

			case Broadcast:
				r.deliver(msg.Event, "")

			case GetState:
				v := View{NumMembers: len(r.members)}
				for _, mb := range r.members {
					if mb.role == types.RoleActive {
						v.NumActive++
					}
				}
				msg.Reply <- v

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// announcePeer tells current occupants about a newly joined peer id.
// Watchers announce too (both participants must call them), but only
// active joins also raise opponent-joined.
func (r *Room) announcePeer(joiner string, msg Join) {
	payload := types.PeerPayload{PeerID: msg.PeerID, Role: msg.Role, Identity: msg.Identity}
	r.deliver(types.ServerEvent{Type: types.EvPeerConnected, Payload: payload}, joiner)
	if msg.Role == types.RoleActive {
		r.deliver(types.ServerEvent{Type: types.EvOpponentJoined, Payload: payload}, joiner)
	}
}

// deliver fans out to every member except the one named by skip.
// A full outbox means the member is too slow to keep up; it gets
// dropped rather than stalling the room.
func (r *Room) deliver(ev types.ServerEvent, skip string) {
	for id, mb := range r.members {
		if id == skip {
			continue
		}
		select {
		case mb.outbox <- ev:
		default:
			close(mb.outbox)
			delete(r.members, id)
		}
	}
}

func (r *Room) shutdown() {
	for id, mb := range r.members {
		close(mb.outbox)
		delete(r.members, id)
	}
	r.cancel()
}
