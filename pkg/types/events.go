// Package types holds the wire protocol shared between the relay
// server and its clients: event names, payload shapes and roles.
package types

import "encoding/json"

// Event names. Client->server events are dispatched by the ws handler;
// server->room events are fanned out by the room actor.
const (
	EvJoinDuel           = "join-duel"
	EvRegisterIdentity   = "register-identity"
	EvCodeChange         = "code-change"
	EvCodeUpdate         = "code-update"
	EvChallengeRequested = "challenge-requested"
	EvPeerConnected      = "peer-connected"
	EvOpponentJoined     = "opponent-joined"
	EvStartTimer         = "start-timer"
	EvRequestTimer       = "request-timer"
	EvTerminateDuel      = "terminate-duel"
	EvDuelTerminated     = "duel-terminated"
	EvDuelCompleted      = "duel-completed"
	EvError              = "error"
)

type Role string

const (
	RoleActive  Role = "active"
	RoleWatcher Role = "watcher"
)

// ClientEvent is the envelope every client frame arrives in. Payload
// stays raw until the dispatch table decodes it into the typed shape
// for the event name.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerEvent is the envelope for everything the server pushes.
type ServerEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type JoinDuelPayload struct {
	DuelID string `json:"duelId"`
	PeerID string `json:"peerId,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

type RegisterIdentityPayload struct {
	Identity string `json:"identity"`
}

type CodeChangePayload struct {
	Identity string `json:"identity"`
	DuelID   string `json:"duelId"`
	Code     string `json:"code"`
}

type CodeUpdatePayload struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

type ChallengeRequestedPayload struct {
	From       string `json:"from"`
	Difficulty string `json:"difficulty"`
	DuelID     string `json:"duelId"`
}

// PeerPayload announces a participant's locally generated peer id to
// the other occupants of a duel topic. Role and identity ride along so
// spectators can label incoming streams instead of guessing from
// arrival order.
type PeerPayload struct {
	PeerID   string `json:"peerId"`
	Role     Role   `json:"role"`
	Identity string `json:"identity,omitempty"`
}

// TimerPayload is the shared anchor every client derives the countdown
// from. StartTime is unix milliseconds.
type TimerPayload struct {
	StartTime  int64 `json:"startTime"`
	DurationMs int64 `json:"durationMs"`
}

type TerminateDuelPayload struct {
	DuelID string `json:"duelId"`
}

type DuelTerminatedPayload struct {
	Message string `json:"message"`
}

type DuelCompletedPayload struct {
	Winner  string `json:"winner"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
