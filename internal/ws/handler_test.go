package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/hub"
	"github.com/codeduels/duel-server/internal/lifecycle"
	"github.com/codeduels/duel-server/internal/session"
	"github.com/codeduels/duel-server/internal/store"
	"github.com/codeduels/duel-server/pkg/types"
)

type wsEnv struct {
	srv *httptest.Server
	mgr *lifecycle.Manager
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	log := zap.NewNop().Sugar()
	st := store.NewMemStore()
	h := hub.NewHub(context.Background())
	mgr := lifecycle.NewManager(st, session.NewDirectory(), h, 900000, log)

	srv := httptest.NewServer(NewServer(h, mgr, log).Handler())
	t.Cleanup(srv.Close)
	return &wsEnv{srv: srv, mgr: mgr}
}

func (e *wsEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http")
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, evType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(types.ClientEvent{Type: evType, Payload: raw})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, evType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		_, data, err := conn.Read(ctx)
		cancel()
		require.NoError(t, err, "waiting for %s", evType)

		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == evType {
			return ev.Payload
		}
	}
	t.Fatalf("no %s event before deadline", evType)
	return nil
}

func TestHandler_TwoJoinsShareOneTimer(t *testing.T) {
	env := newWSEnv(t)
	duelID, err := env.mgr.Create(context.Background(), "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	connA := env.dial(t)
	send(t, connA, types.EvRegisterIdentity, types.RegisterIdentityPayload{Identity: "a@x.com"})
	send(t, connA, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID, PeerID: "peer-a"})

	connB := env.dial(t)
	send(t, connB, types.EvRegisterIdentity, types.RegisterIdentityPayload{Identity: "b@x.com"})
	send(t, connB, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID, PeerID: "peer-b"})

	timerA := readUntil(t, connA, types.EvStartTimer)
	timerB := readUntil(t, connB, types.EvStartTimer)
	assert.Equal(t, timerA, timerB, "both participants must converge on one anchor")
	assert.EqualValues(t, 900000, timerA["durationMs"])

	// A also learns B's peer id for negotiation.
	connA2 := env.dial(t)
	send(t, connA2, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID, PeerID: "peer-w", Role: types.RoleWatcher})
	peer := readUntil(t, connA, types.EvPeerConnected)
	// peer-b announced earlier, peer-w later; accept either order by
	// checking the watcher announcement eventually shows up.
	if peer["peerId"] != "peer-w" {
		peer = readUntil(t, connA, types.EvPeerConnected)
	}
	assert.Equal(t, "peer-w", peer["peerId"])
	assert.Equal(t, string(types.RoleWatcher), peer["role"])
}

func TestHandler_RequestTimerAfterReconnect(t *testing.T) {
	env := newWSEnv(t)
	duelID, err := env.mgr.Create(context.Background(), "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	connA := env.dial(t)
	send(t, connA, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	connB := env.dial(t)
	send(t, connB, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})

	first := readUntil(t, connA, types.EvStartTimer)

	// A drops and comes back: the re-requested anchor is unchanged.
	connA.Close(websocket.StatusGoingAway, "reconnect")
	connA2 := env.dial(t)
	send(t, connA2, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	second := readUntil(t, connA2, types.EvStartTimer)
	assert.Equal(t, first, second)

	send(t, connA2, types.EvRequestTimer, types.JoinDuelPayload{DuelID: duelID})
	third := readUntil(t, connA2, types.EvStartTimer)
	assert.Equal(t, first, third)
}

func TestHandler_CodeChangeRelaysToRoomNotSender(t *testing.T) {
	env := newWSEnv(t)
	duelID, err := env.mgr.Create(context.Background(), "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	connA := env.dial(t)
	send(t, connA, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	connB := env.dial(t)
	send(t, connB, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	readUntil(t, connB, types.EvStartTimer) // both joined

	send(t, connA, types.EvCodeChange, types.CodeChangePayload{
		Identity: "a@x.com", DuelID: duelID, Code: "package main",
	})

	update := readUntil(t, connB, types.EvCodeUpdate)
	assert.Equal(t, "a@x.com", update["identity"])
	assert.Equal(t, "package main", update["code"])
}

func TestHandler_TerminateBroadcastsOnce(t *testing.T) {
	env := newWSEnv(t)
	duelID, err := env.mgr.Create(context.Background(), "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	connA := env.dial(t)
	send(t, connA, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	connB := env.dial(t)
	send(t, connB, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	readUntil(t, connA, types.EvStartTimer)

	send(t, connB, types.EvTerminateDuel, types.TerminateDuelPayload{DuelID: duelID})

	gone := readUntil(t, connA, types.EvDuelTerminated)
	assert.NotEmpty(t, gone["message"])

	// A second terminate of the vanished duel stays silent.
	send(t, connB, types.EvTerminateDuel, types.TerminateDuelPayload{DuelID: duelID})
	send(t, connB, types.EvJoinDuel, types.JoinDuelPayload{DuelID: duelID})
	errEv := readUntil(t, connB, types.EvError)
	assert.Contains(t, errEv["message"], "not found")
}

func TestHandler_ChallengeNotificationOnPrivateTopic(t *testing.T) {
	env := newWSEnv(t)

	connB := env.dial(t)
	send(t, connB, types.EvRegisterIdentity, types.RegisterIdentityPayload{Identity: "b@x.com"})

	// Registration races the broadcast; give the join a moment.
	time.Sleep(50 * time.Millisecond)

	duelID, err := env.mgr.Create(context.Background(), "a@x.com", "b@x.com", "medium")
	require.NoError(t, err)

	notif := readUntil(t, connB, types.EvChallengeRequested)
	assert.Equal(t, "a@x.com", notif["from"])
	assert.Equal(t, "medium", notif["difficulty"])
	assert.Equal(t, duelID, notif["duelId"])
}

func TestHandler_MalformedFramesGetErrorEvents(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	cancel()
	errEv := readUntil(t, conn, types.EvError)
	assert.Equal(t, "bad json", errEv["message"])

	send(t, conn, "no-such-event", map[string]any{})
	errEv = readUntil(t, conn, types.EvError)
	assert.Equal(t, "unknown event type", errEv["message"])
}
