package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/apperr"
	"github.com/codeduels/duel-server/internal/hub"
	"github.com/codeduels/duel-server/internal/session"
	"github.com/codeduels/duel-server/internal/store"
	"github.com/codeduels/duel-server/pkg/types"
)

// fakeRelay records broadcasts per topic so tests can assert exactly
// what went out, without the real hub's goroutines.
type fakeRelay struct {
	mu      sync.Mutex
	events  map[string][]types.ServerEvent
	removed map[string]int
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		events:  make(map[string][]types.ServerEvent),
		removed: make(map[string]int),
	}
}

func (f *fakeRelay) Broadcast(topic string, ev types.ServerEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[topic] = append(f.events[topic], ev)
}

func (f *fakeRelay) Remove(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[topic]++
}

func (f *fakeRelay) count(topic, evType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events[topic] {
		if ev.Type == evType {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T) (*Manager, *store.MemStore, *fakeRelay) {
	t.Helper()
	st := store.NewMemStore()
	relay := newFakeRelay()
	mgr := NewManager(st, session.NewDirectory(), relay, 900000, zap.NewNop().Sugar())
	return mgr, st, relay
}

func TestCreate_PersistsPendingAndNotifiesOpponent(t *testing.T) {
	mgr, st, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "hard")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	d, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, d.Status)
	assert.Equal(t, "a@x.com", d.Challenger)
	assert.Equal(t, "hard", d.Difficulty)
	assert.Len(t, d.Questions, 4)
	assert.Equal(t, "question_hard_1", d.Questions[0])
	assert.Empty(t, d.Winner)

	require.Equal(t, 1, relay.count(hub.UserTopic("b@x.com"), types.EvChallengeRequested))
}

func TestCreate_Validation(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "a@x.com", "not-an-email", "easy")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = mgr.Create(ctx, "a@x.com", "b@x.com", "brutal")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = mgr.Create(ctx, "", "b@x.com", "easy")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestJoin_SecondActiveStartsTimerOnce(t *testing.T) {
	mgr, st, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	_, has, err := mgr.Join(ctx, id, "conn-a", types.RoleActive)
	require.NoError(t, err)
	assert.False(t, has, "one active participant must not start the clock")

	anchor, has, err := mgr.Join(ctx, id, "conn-b", types.RoleActive)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, int64(900000), anchor.DurationMs)
	assert.Equal(t, 1, relay.count(id, types.EvStartTimer))

	d, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, d.Status)

	// Reconnect: same anchor, no new broadcast.
	again, has, err := mgr.Join(ctx, id, "conn-b", types.RoleActive)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, anchor, again)
	assert.Equal(t, 1, relay.count(id, types.EvStartTimer))
}

func TestJoin_WatchersDoNotStartTimer(t *testing.T) {
	mgr, _, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	for _, conn := range []string{"w1", "w2", "w3"} {
		_, has, err := mgr.Join(ctx, id, conn, types.RoleWatcher)
		require.NoError(t, err)
		assert.False(t, has)
	}
	assert.Equal(t, 0, relay.count(id, types.EvStartTimer))
}

func TestJoin_UnknownDuel(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, _, err := mgr.Join(context.Background(), "ghost", "conn-a", types.RoleActive)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestTerminate_IdempotentSingleBroadcast(t *testing.T) {
	mgr, st, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "medium")
	require.NoError(t, err)

	require.NoError(t, mgr.Terminate(ctx, id))
	require.NoError(t, mgr.Terminate(ctx, id)) // already gone: no-op success

	assert.Equal(t, 1, relay.count(id, types.EvDuelTerminated))
	_, err = st.Get(ctx, id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, ok := mgr.Timer(id)
	assert.False(t, ok)
}

func TestTerminate_ConcurrentCallersSingleTeardown(t *testing.T) {
	mgr, _, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "medium")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Terminate(ctx, id))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, relay.count(id, types.EvDuelTerminated))
}

func TestComplete_RaceResolvesToSingleWinner(t *testing.T) {
	mgr, st, relay := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, who := range []string{"a@x.com", "b@x.com"} {
		wg.Add(1)
		go func(i int, who string) {
			defer wg.Done()
			won, err := mgr.Complete(ctx, id, who)
			assert.NoError(t, err)
			results[i] = won
		}(i, who)
	}
	wg.Wait()

	assert.NotEqual(t, results[0], results[1], "exactly one submission must win")
	assert.Equal(t, 1, relay.count(id, types.EvDuelCompleted))

	d, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, d.Status)
	assert.Contains(t, []string{"a@x.com", "b@x.com"}, d.Winner)
}

func TestComplete_AfterCompletionReportsAlreadyDecided(t *testing.T) {
	mgr, st, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)

	won, err := mgr.Complete(ctx, id, "a@x.com")
	require.NoError(t, err)
	require.True(t, won)

	won, err = mgr.Complete(ctx, id, "b@x.com")
	require.NoError(t, err)
	assert.False(t, won)

	d, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", d.Winner, "winner never regresses")
}

func TestJoin_ActiveOnCompletedDuelConflicts(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.Create(ctx, "a@x.com", "b@x.com", "easy")
	require.NoError(t, err)
	_, err = mgr.Complete(ctx, id, "a@x.com")
	require.NoError(t, err)

	_, _, err = mgr.Join(ctx, id, "conn-a", types.RoleActive)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))

	// Watchers may still look at the record.
	_, _, err = mgr.Join(ctx, id, "conn-w", types.RoleWatcher)
	assert.NoError(t, err)
}
