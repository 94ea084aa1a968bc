// Package lifecycle owns duel state transitions: creation, session
// start, idempotent teardown and the exactly-once completion that
// crowns a winner.
package lifecycle

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/apperr"
	"github.com/codeduels/duel-server/internal/hub"
	"github.com/codeduels/duel-server/internal/problem"
	"github.com/codeduels/duel-server/internal/session"
	"github.com/codeduels/duel-server/internal/store"
	"github.com/codeduels/duel-server/pkg/types"
)

// Relay is the slice of the hub the manager needs: fan events out to a
// topic and tear a topic down.
type Relay interface {
	Broadcast(topic string, ev types.ServerEvent)
	Remove(topic string)
}

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

type Manager struct {
	store    store.Store
	sessions *session.Directory
	relay    Relay
	log      *zap.SugaredLogger

	durationMs int64
}

func NewManager(st store.Store, dir *session.Directory, relay Relay, durationMs int64, log *zap.SugaredLogger) *Manager {
	return &Manager{
		store:      st,
		sessions:   dir,
		relay:      relay,
		log:        log,
		durationMs: durationMs,
	}
}

// Create validates the challenge, persists a pending duel and notifies
// the opponent's private topic. Returns the new duel id.
func (m *Manager) Create(ctx context.Context, challengerID, opponentEmail, difficulty string) (string, error) {
	if challengerID == "" {
		return "", apperr.NotFound("challenger identity could not be resolved")
	}
	if !emailPattern.MatchString(opponentEmail) {
		return "", apperr.Validation("%q is not a valid opponent email", opponentEmail)
	}
	tier, ok := problem.ParseDifficulty(difficulty)
	if !ok {
		return "", apperr.Validation("unknown difficulty %q", difficulty)
	}

	d := &store.Duel{
		ID:            uuid.NewString(),
		Challenger:    challengerID,
		OpponentEmail: opponentEmail,
		Difficulty:    string(tier),
		Questions:     problem.QuestionsFor(tier),
		Status:        store.StatusPending,
	}
	if err := m.store.Create(ctx, d); err != nil {
		return "", err
	}

	m.relay.Broadcast(hub.UserTopic(opponentEmail), types.ServerEvent{
		Type: types.EvChallengeRequested,
		Payload: types.ChallengeRequestedPayload{
			From:       challengerID,
			Difficulty: string(tier),
			DuelID:     d.ID,
		},
	})
	m.log.Infow("duel created", "duel", d.ID, "challenger", challengerID, "difficulty", tier)
	return d.ID, nil
}

// Join records the participant in the session directory. The join that
// brings the active count to two creates the timer anchor exactly once
// and broadcasts it to the room; every later join (reconnects
// included) sees the same anchor — the clock never restarts.
func (m *Manager) Join(ctx context.Context, duelID, participantID string, role types.Role) (session.TimerAnchor, bool, error) {
	d, err := m.store.Get(ctx, duelID)
	if err != nil {
		return session.TimerAnchor{}, false, err
	}
	if d.Status == store.StatusCompleted && role == types.RoleActive {
		return session.TimerAnchor{}, false, apperr.StateConflict("duel %s is already decided", duelID)
	}

	m.sessions.RecordJoin(duelID, participantID, role)

	if role == types.RoleActive && m.sessions.RoomSize(duelID, types.RoleActive) >= 2 {
		anchor, created := m.sessions.GetOrCreateTimer(duelID, m.durationMs)
		if created {
			if err := m.store.Activate(ctx, duelID); err != nil {
				m.log.Warnw("activate failed", "duel", duelID, "err", err)
			}
			m.relay.Broadcast(duelID, types.ServerEvent{
				Type:    types.EvStartTimer,
				Payload: anchor.Payload(),
			})
			m.log.Infow("timer started", "duel", duelID, "durationMs", anchor.DurationMs)
		}
		return anchor, true, nil
	}

	// Reconnect or watcher: hand back an existing anchor unchanged.
	if anchor, ok := m.sessions.Timer(duelID); ok {
		return anchor, true, nil
	}
	return session.TimerAnchor{}, false, nil
}

// Leave drops the participant from the session directory. The anchor
// stays so a rejoin resumes the same countdown.
func (m *Manager) Leave(duelID, participantID string) {
	m.sessions.RecordLeave(duelID, participantID)
}

// Timer returns the duel's anchor without side effects, for
// request-timer reconciliation after a reconnect.
func (m *Manager) Timer(duelID string) (session.TimerAnchor, bool) {
	return m.sessions.Timer(duelID)
}

// Terminate tears the duel down: record deleted, session dropped, one
// termination notice to the room. The store delete decides the race —
// whoever deletes the record broadcasts; everyone else no-ops.
func (m *Manager) Terminate(ctx context.Context, duelID string) error {
	found, err := m.store.Delete(ctx, duelID)
	if err != nil {
		return err
	}
	if found {
		m.relay.Broadcast(duelID, types.ServerEvent{
			Type:    types.EvDuelTerminated,
			Payload: types.DuelTerminatedPayload{Message: "duel terminated"},
		})
		m.log.Infow("duel terminated", "duel", duelID)
	}
	m.sessions.Remove(duelID)
	m.relay.Remove(duelID)
	return nil
}

// Complete resolves a judged win. The store's conditional update is
// the only serialization point: exactly one caller gets true, every
// later accepted submission gets false ("duel already decided").
func (m *Manager) Complete(ctx context.Context, duelID, winnerID string) (bool, error) {
	won, err := m.store.Complete(ctx, duelID, winnerID)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}
	m.relay.Broadcast(duelID, types.ServerEvent{
		Type:    types.EvDuelCompleted,
		Payload: types.DuelCompletedPayload{Winner: winnerID, Message: "duel completed"},
	})
	m.sessions.Remove(duelID)
	m.relay.Remove(duelID)
	m.log.Infow("duel completed", "duel", duelID, "winner", winnerID)
	return true, nil
}
