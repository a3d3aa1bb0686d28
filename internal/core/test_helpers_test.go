package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/service/history"
	"github.com/vovakirdan/coinchat-server/internal/store"
	"github.com/vovakirdan/coinchat-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustRoster waits for a roster event matching pred.
func mustRoster(t *testing.T, ch <-chan *Event, pred func(*Roster) bool) *Roster {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == EventVoiceRoster && pred(ev.Roster) {
				return ev.Roster
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected roster not received")
	return nil
}

// noEvent fails if an event of kind shows up within wait. Other kinds are discarded.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// tokenAuth accepts a username as its own token.
type tokenAuth struct {
	mu    sync.Mutex
	users map[string]Identity
}

func (a *tokenAuth) add(id Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[id.Username] = id
}

func (a *tokenAuth) Authenticate(_ context.Context, token string) (Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.users[token]
	if !ok {
		return Identity{}, errors.New("unknown token")
	}
	return id, nil
}

// flakyHistory fails appends while fail is set.
type flakyHistory struct {
	fail   atomic.Bool
	nextID atomic.Int64
}

func (f *flakyHistory) Append(_ context.Context, msg *store.Message) error {
	if f.fail.Load() {
		return errors.New("database is locked")
	}
	msg.ID = f.nextID.Add(1)
	return nil
}

func (f *flakyHistory) Lobby(context.Context, store.Page) ([]*store.Message, error) {
	return nil, nil
}

func (f *flakyHistory) Thread(context.Context, int64, int64, store.Page) ([]*store.Message, error) {
	return nil, nil
}

type testEnv struct {
	hub     *Hub
	store   *sqlite.SQLiteStore
	economy *economy.Service
	auth    *tokenAuth
	seq     atomic.Int64
}

type envConfig struct {
	startingCoins int64
	unlockCost    int64
	opts          Options
	history       HistoryGateway
}

func newTestEnv(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema, sqlite.WithStartingCoins(cfg.startingCoins))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	econ := economy.New(st, cfg.unlockCost, time.Second, nil)
	hist := cfg.history
	if hist == nil {
		hist = history.New(st, history.Options{Timeout: time.Second})
	}

	auth := &tokenAuth{users: make(map[string]Identity)}
	hub := NewHub(Dependencies{Auth: auth, Economy: econ, History: hist}, cfg.opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &testEnv{hub: hub, store: st, economy: econ, auth: auth}
}

func (e *testEnv) user(t *testing.T, name string) Identity {
	t.Helper()

	u, err := e.store.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	id := Identity{ID: u.ID, Username: u.Username, Role: u.Role}
	e.auth.add(id)
	return id
}

// connect registers a new connection and authenticates it as id.
func (e *testEnv) connect(t *testing.T, id Identity) *Client {
	t.Helper()

	c := NewClient(fmt.Sprintf("%s-%d", id.Username, e.seq.Add(1)), 256)
	e.hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandAuthenticate, Token: id.Username}

	ev := mustEvent(t, c.Events, EventAuthenticated)
	if ev.Auth == nil || ev.Auth.Identity.ID != id.ID {
		t.Fatalf("unexpected authenticated event: %+v", ev)
	}
	return c
}

func (e *testEnv) balance(t *testing.T, id Identity) int64 {
	t.Helper()

	b, err := e.economy.Balance(context.Background(), id.ID)
	if err != nil {
		t.Fatalf("balance of %s: %v", id.Username, err)
	}
	return b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
