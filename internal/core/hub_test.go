package core

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vovakirdan/coinchat-server/internal/store"
)

func TestHubRejectsUnauthenticatedCommands(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	env.user(t, "alice")

	c := NewClient("anon", 16)
	env.hub.RegisterClient(c)

	c.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "hi"}
	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthenticated {
		t.Fatalf("expected unauthenticated error, got %+v", ev)
	}

	c.Commands <- &Command{Kind: CommandAuthenticate, Token: "nobody"}
	ev = mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthenticated {
		t.Fatalf("expected unauthenticated error for bad token, got %+v", ev)
	}

	msgs, err := env.store.ListLobbyMessages(context.Background(), store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list lobby: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected nothing persisted, got %d messages", len(msgs))
	}
	if env.hub.registry.Len() != 0 {
		t.Fatalf("expected no bindings")
	}
}

func TestHubAuthenticateIsIdempotent(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	env.user(t, "bob")

	c := env.connect(t, alice)

	c.Commands <- &Command{Kind: CommandAuthenticate, Token: "alice"}
	ev := mustEvent(t, c.Events, EventAuthenticated)
	if ev.Auth.Balance != 10 || len(ev.Auth.Online) != 1 || ev.Auth.Online[0] != alice.ID {
		t.Fatalf("unexpected re-auth snapshot: %+v", ev.Auth)
	}

	c.Commands <- &Command{Kind: CommandAuthenticate, Token: "bob"}
	ev = mustEvent(t, c.Events, EventError)
	if ev.Error.Code != ErrCodeAlreadyAuthenticated {
		t.Fatalf("expected already_authenticated, got %+v", ev.Error)
	}
	if env.hub.Presence().Count(alice.ID) != 1 {
		t.Fatalf("expected a single live connection for alice")
	}
}

func TestHubPresenceTransitionsOncePerIdentity(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	observer := env.connect(t, env.user(t, "olga"))
	mustEvent(t, observer.Events, EventStatus) // own transition
	alice := env.user(t, "alice")

	phone := env.connect(t, alice)
	ev := mustEvent(t, observer.Events, EventStatus)
	if ev.UserID != alice.ID || ev.Status != StatusOnline {
		t.Fatalf("unexpected status event: %+v", ev)
	}

	laptop := env.connect(t, alice)
	noEvent(t, observer.Events, EventStatus, 100*time.Millisecond)

	phone.Close()
	waitFor(t, "phone cleanup", func() bool { return env.hub.Presence().Count(alice.ID) == 1 })
	noEvent(t, observer.Events, EventStatus, 100*time.Millisecond)
	if !env.hub.Presence().IsOnline(alice.ID) {
		t.Fatalf("alice should still be online")
	}

	laptop.Close()
	ev = mustEvent(t, observer.Events, EventStatus)
	if ev.UserID != alice.ID || ev.Status != StatusOffline {
		t.Fatalf("unexpected status event: %+v", ev)
	}
	if env.hub.Presence().IsOnline(alice.ID) {
		t.Fatalf("alice should be offline")
	}
}

func TestHubLobbyDeliveredOncePerConnection(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	a1 := env.connect(t, alice)
	a2 := env.connect(t, alice)
	b1 := env.connect(t, bob)

	b1.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "  hello lobby  "}

	for _, c := range []*Client{a1, a2, b1} {
		ev := mustEvent(t, c.Events, EventNewMessage)
		if ev.Message.Body != "hello lobby" || ev.Message.SenderID != bob.ID || ev.Message.SenderUsername != "bob" {
			t.Fatalf("unexpected message on %s: %+v", c.ID, ev.Message)
		}
		if ev.Message.ID == 0 || ev.Message.Room != store.LobbyRoom {
			t.Fatalf("expected persisted lobby message, got %+v", ev.Message)
		}
		noEvent(t, c.Events, EventNewMessage, 50*time.Millisecond)
	}

	// Persisted before broadcast: history sees it right away.
	a1.Commands <- &Command{Kind: CommandHistory, Room: store.LobbyRoom}
	hist := mustEvent(t, a1.Events, EventHistory)
	if len(hist.Messages) != 1 || hist.Messages[0].Body != "hello lobby" {
		t.Fatalf("unexpected history: %+v", hist.Messages)
	}

	b1.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "   "}
	ev := mustEvent(t, b1.Events, EventError)
	if ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for empty body, got %+v", ev.Error)
	}
}

func TestHubCoinGatedPrivateChat(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")
	dave := env.user(t, "dave")

	a := env.connect(t, alice)
	b := env.connect(t, bob)
	c := env.connect(t, carol)

	// First message pays the unlock.
	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: bob.ID, Body: "hi bob"}
	coins := mustEvent(t, a.Events, EventCoinsUpdate)
	if coins.UserID != alice.ID || coins.Coins != 5 {
		t.Fatalf("unexpected coins update: %+v", coins)
	}
	echo := mustEvent(t, a.Events, EventNewMessage)
	got := mustEvent(t, b.Events, EventNewMessage)
	if echo.Message.ID != got.Message.ID || got.Message.Body != "hi bob" || got.Message.RecipientID != bob.ID {
		t.Fatalf("unexpected delivery: echo=%+v got=%+v", echo.Message, got.Message)
	}

	// Second message is free.
	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: bob.ID, Body: "again"}
	mustEvent(t, b.Events, EventNewMessage)
	if bal := env.balance(t, alice); bal != 5 {
		t.Fatalf("expected balance 5 after second send, got %d", bal)
	}

	// Reply direction is covered by the same unlock.
	b.Commands <- &Command{Kind: CommandSendMessage, RecipientID: alice.ID, Body: "hey"}
	if ev := mustEvent(t, b.Events, EventNewMessage); ev.Message.Body != "hey" {
		t.Fatalf("expected echo of reply, got %+v", ev.Message)
	}
	if bal := env.balance(t, bob); bal != 10 {
		t.Fatalf("bob should not be charged, got %d", bal)
	}

	// Spend the rest on an offline peer.
	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: dave.ID, Body: "hi dave"}
	coins = mustEvent(t, a.Events, EventCoinsUpdate)
	if coins.Coins != 0 {
		t.Fatalf("expected balance 0, got %+v", coins)
	}

	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: carol.ID, Body: "hi carol"}
	blocked := mustEvent(t, a.Events, EventBlockedMessage)
	if blocked.Reason != "insufficient_balance" || blocked.UserID != carol.ID {
		t.Fatalf("unexpected blocked event: %+v", blocked)
	}
	noEvent(t, c.Events, EventNewMessage, 100*time.Millisecond)

	thread, err := env.store.ListThreadMessages(context.Background(), alice.ID, carol.ID, store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list thread: %v", err)
	}
	if len(thread) != 0 {
		t.Fatalf("blocked message must not be persisted, got %d", len(thread))
	}

	a.Commands <- &Command{Kind: CommandHistory, RecipientID: bob.ID}
	hist := mustEvent(t, a.Events, EventHistory)
	if len(hist.Messages) != 3 || hist.Messages[0].Body != "hi bob" || hist.Messages[2].Body != "hey" {
		t.Fatalf("unexpected thread history: %+v", hist.Messages)
	}
}

func TestHubPrivateSendValidation(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	a := env.connect(t, alice)

	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: alice.ID, Body: "me"}
	if ev := mustEvent(t, a.Events, EventError); ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for self message, got %+v", ev.Error)
	}

	a.Commands <- &Command{Kind: CommandSendMessage, RecipientID: 9999, Body: "ghost"}
	if ev := mustEvent(t, a.Events, EventError); ev.Error.Code != ErrCodeUserNotFound {
		t.Fatalf("expected user_not_found, got %+v", ev.Error)
	}
	if bal := env.balance(t, alice); bal != 10 {
		t.Fatalf("failed sends must not charge, got %d", bal)
	}
}

func TestHubSendCoins(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	a := env.connect(t, alice)
	b := env.connect(t, bob)

	a.Commands <- &Command{Kind: CommandSendCoins, RecipientID: bob.ID, Amount: 11}
	if ev := mustEvent(t, a.Events, EventError); ev.Error.Code != ErrCodeInsufficientBalance {
		t.Fatalf("expected insufficient_balance, got %+v", ev.Error)
	}
	noEvent(t, b.Events, EventCoinsUpdate, 50*time.Millisecond)
	if env.balance(t, alice) != 10 || env.balance(t, bob) != 10 {
		t.Fatalf("failed transfer changed balances")
	}

	a.Commands <- &Command{Kind: CommandSendCoins, RecipientID: bob.ID, Amount: -3}
	if ev := mustEvent(t, a.Events, EventError); ev.Error.Code != ErrCodeInvalidAmount {
		t.Fatalf("expected invalid_amount, got %+v", ev.Error)
	}

	a.Commands <- &Command{Kind: CommandSendCoins, RecipientID: bob.ID, Amount: 4}
	if ev := mustEvent(t, a.Events, EventCoinsUpdate); ev.UserID != alice.ID || ev.Coins != 6 {
		t.Fatalf("unexpected sender update: %+v", ev)
	}
	if ev := mustEvent(t, b.Events, EventCoinsUpdate); ev.UserID != bob.ID || ev.Coins != 14 {
		t.Fatalf("unexpected recipient update: %+v", ev)
	}

	// The gift unlocked the thread.
	b.Commands <- &Command{Kind: CommandSendMessage, RecipientID: alice.ID, Body: "thanks"}
	mustEvent(t, b.Events, EventNewMessage)
	if bal := env.balance(t, bob); bal != 14 {
		t.Fatalf("expected no unlock charge after gift, got %d", bal)
	}
}

func TestHubVoiceLoungeScenario(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	dora := env.user(t, "dora")
	emil := env.user(t, "emil")
	d := env.connect(t, dora)
	e := env.connect(t, emil)

	d.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	ev := mustEvent(t, d.Events, EventVoiceRoster)
	if len(ev.Roster.Participants) != 1 || ev.Roster.Participants[0].UserID != dora.ID || ev.Roster.Participants[0].Role != RoleHost {
		t.Fatalf("unexpected roster after first join: %+v", ev.Roster)
	}

	e.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	for _, c := range []*Client{d, e} {
		ev := mustEvent(t, c.Events, EventVoiceRoster)
		if len(ev.Roster.Participants) != 2 || ev.Roster.Participants[1].Role != RoleListener {
			t.Fatalf("unexpected roster on %s: %+v", c.ID, ev.Roster)
		}
	}

	// Joining again changes nothing.
	e.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	if ev := mustEvent(t, e.Events, EventVoiceRoster); len(ev.Roster.Participants) != 2 {
		t.Fatalf("duplicate join changed roster: %+v", ev.Roster)
	}
	noEvent(t, d.Events, EventVoiceRoster, 50*time.Millisecond)

	// Ungraceful drop of dora's only connection.
	d.Close()
	ev = mustEvent(t, e.Events, EventVoiceRoster)
	if len(ev.Roster.Participants) != 1 || ev.Roster.Participants[0].UserID != emil.ID || ev.Roster.Participants[0].Role != RoleHost {
		t.Fatalf("unexpected roster after drop: %+v", ev.Roster)
	}

	e.Commands <- &Command{Kind: CommandVoiceLeave, Room: "lounge"}
	ev = mustEvent(t, e.Events, EventVoiceRoster)
	if len(ev.Roster.Participants) != 0 {
		t.Fatalf("expected empty roster, got %+v", ev.Roster)
	}
	if rooms := env.hub.VoiceRooms(); len(rooms) != 0 {
		t.Fatalf("expected room deleted, got %+v", rooms)
	}

	e.Commands <- &Command{Kind: CommandVoiceLeave, Room: "lounge"}
	if ev := mustEvent(t, e.Events, EventError); ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", ev.Error)
	}
}

func TestHubVoiceMembershipSurvivesSecondDevice(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	dora := env.user(t, "dora")
	emil := env.user(t, "emil")
	phone := env.connect(t, dora)
	laptop := env.connect(t, dora)
	e := env.connect(t, emil)

	phone.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	mustEvent(t, laptop.Events, EventVoiceRoster)
	e.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	mustEvent(t, e.Events, EventVoiceRoster)

	phone.Close()
	waitFor(t, "phone cleanup", func() bool { return env.hub.Presence().Count(dora.ID) == 1 })
	if !env.hub.Presence().IsOnline(dora.ID) {
		t.Fatalf("dora should still be online")
	}

	roster, ok := env.hub.voice.Roster("lounge")
	if !ok || len(roster.Participants) != 2 {
		t.Fatalf("dora should still be in the room, got %+v", roster)
	}
}

func TestHubVoiceSwitchRoomLeavesPrevious(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	dora := env.user(t, "dora")
	d := env.connect(t, dora)

	d.Commands <- &Command{Kind: CommandVoiceJoin, Room: "lounge"}
	mustEvent(t, d.Events, EventVoiceRoster)
	d.Commands <- &Command{Kind: CommandVoiceJoin, Room: "studio"}

	waitFor(t, "room switch", func() bool {
		rooms := env.hub.VoiceRooms()
		return len(rooms) == 1 && rooms[0].Name == "studio"
	})
}

func TestHubVoiceStageFlow(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5, opts: Options{MaxStageSpeakers: 1}})
	dora := env.user(t, "dora")
	emil := env.user(t, "emil")
	finn := env.user(t, "finn")
	d := env.connect(t, dora)
	e := env.connect(t, emil)
	f := env.connect(t, finn)

	for _, c := range []*Client{d, e, f} {
		c.Commands <- &Command{Kind: CommandVoiceJoin, Room: "stage"}
		mustEvent(t, c.Events, EventVoiceRoster)
	}

	e.Commands <- &Command{Kind: CommandVoiceRequestStage, Room: "stage"}
	req := mustEvent(t, d.Events, EventVoiceStageRequest)
	if req.UserID != emil.ID || req.Room != "stage" {
		t.Fatalf("unexpected stage request: %+v", req)
	}

	// Only hosts decide.
	f.Commands <- &Command{Kind: CommandVoiceStageDecision, Room: "stage", RecipientID: emil.ID, Accept: true}
	if ev := mustEvent(t, f.Events, EventError); ev.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %+v", ev.Error)
	}

	d.Commands <- &Command{Kind: CommandVoiceStageDecision, Room: "stage", RecipientID: emil.ID, Accept: true}
	granted := mustEvent(t, f.Events, EventVoiceStageGranted)
	if granted.UserID != emil.ID {
		t.Fatalf("unexpected grant: %+v", granted)
	}
	mustRoster(t, e.Events, func(r *Roster) bool {
		return len(r.Participants) == 3 && r.Participants[1].Role == RoleSpeaker
	})

	d.Commands <- &Command{Kind: CommandVoiceStageDecision, Room: "stage", RecipientID: finn.ID, Accept: true}
	mustEvent(t, f.Events, EventVoiceStageFull)

	d.Commands <- &Command{Kind: CommandVoiceStageDecision, Room: "stage", RecipientID: finn.ID, Accept: false}
	mustEvent(t, f.Events, EventVoiceStageDenied)

	f.Commands <- &Command{Kind: CommandVoiceComment, Room: "stage", Body: "nice talk"}
	comment := mustEvent(t, d.Events, EventVoiceComment)
	if comment.UserID != finn.ID || comment.Body != "nice talk" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
}

func TestHubLobbyVoiceInviteSkipsSender(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	dora := env.user(t, "dora")
	emil := env.user(t, "emil")
	d1 := env.connect(t, dora)
	d2 := env.connect(t, dora)
	e := env.connect(t, emil)

	d1.Commands <- &Command{Kind: CommandLobbyVoiceInvite, Room: "lounge"}
	ev := mustEvent(t, e.Events, EventLobbyVoiceInvite)
	if ev.UserID != dora.ID || ev.Room != "lounge" {
		t.Fatalf("unexpected invite: %+v", ev)
	}
	mustEvent(t, d2.Events, EventLobbyVoiceInvite)
	noEvent(t, d1.Events, EventLobbyVoiceInvite, 50*time.Millisecond)
}

func TestHubSignalUndeliverableWhenOffline(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	finn := env.user(t, "finn")
	gina := env.user(t, "gina")
	f := env.connect(t, finn)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	f.Commands <- &Command{Kind: CommandSignal, RecipientID: gina.ID, Signal: &Signal{Kind: SignalOffer, Payload: offer}}
	ev := mustEvent(t, f.Events, EventUndeliverable)
	if ev.UserID != gina.ID || ev.Signal.Kind != SignalOffer {
		t.Fatalf("unexpected undeliverable event: %+v", ev)
	}

	g := env.connect(t, gina)
	f.Commands <- &Command{Kind: CommandSignal, RecipientID: gina.ID, Signal: &Signal{
		Kind:    SignalOffer,
		Payload: offer,
		RoomID:  json.RawMessage(`"lounge"`),
	}}
	relayed := mustEvent(t, g.Events, EventSignal)
	if relayed.Signal.From != finn.ID || !bytes.Equal(relayed.Signal.Payload, offer) || string(relayed.Signal.RoomID) != `"lounge"` {
		t.Fatalf("payload not relayed verbatim: %+v", relayed.Signal)
	}

	f.Commands <- &Command{Kind: CommandSignal, RecipientID: finn.ID, Signal: &Signal{Kind: SignalAnswer, Payload: offer}}
	if ev := mustEvent(t, f.Events, EventError); ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for self relay, got %+v", ev.Error)
	}

	f.Commands <- &Command{Kind: CommandSignal, RecipientID: gina.ID, Signal: &Signal{Kind: SignalICECandidate}}
	if ev := mustEvent(t, f.Events, EventError); ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for missing payload, got %+v", ev.Error)
	}
}

func TestHubDegradesLobbyAfterRepeatedFailures(t *testing.T) {
	flaky := &flakyHistory{}
	env := newTestEnv(t, envConfig{
		startingCoins: 10,
		unlockCost:    5,
		history:       flaky,
		opts:          Options{DegradeAfterFailures: 2},
	})
	alice := env.user(t, "alice")
	a := env.connect(t, alice)

	flaky.fail.Store(true)

	a.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "one"}
	if ev := mustEvent(t, a.Events, EventError); ev.Error.Code != ErrCodePersistenceFailure {
		t.Fatalf("expected persistence_failure, got %+v", ev.Error)
	}

	a.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "two"}
	status := mustEvent(t, a.Events, EventSystemStatus)
	if !status.Degraded {
		t.Fatalf("expected degraded status")
	}
	msg := mustEvent(t, a.Events, EventNewMessage)
	if !msg.Message.Degraded || msg.Message.ID != 0 || msg.Message.Body != "two" {
		t.Fatalf("unexpected degraded message: %+v", msg.Message)
	}
	if !env.hub.Degraded() {
		t.Fatalf("hub should report degraded mode")
	}

	flaky.fail.Store(false)
	a.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "three"}
	status = mustEvent(t, a.Events, EventSystemStatus)
	if status.Degraded {
		t.Fatalf("expected recovery status")
	}
	msg = mustEvent(t, a.Events, EventNewMessage)
	if msg.Message.Degraded || msg.Message.ID == 0 {
		t.Fatalf("expected persisted message after recovery: %+v", msg.Message)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(Dependencies{Auth: &tokenAuth{users: map[string]Identity{}}}, Options{}, nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := NewClient("c", 4)
	hub.RegisterClient(c)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("client should be closed on shutdown")
	}

	late := NewClient("late", 4)
	hub.RegisterClient(late)
	select {
	case <-late.Done():
	default:
		t.Fatalf("registering on a stopped hub should close the client")
	}
}

func TestHubClosesSlowConsumer(t *testing.T) {
	env := newTestEnv(t, envConfig{startingCoins: 10, unlockCost: 5})
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	a := env.connect(t, alice)

	slow := NewClient("slow", 1)
	env.hub.RegisterClient(slow)
	slow.Commands <- &Command{Kind: CommandAuthenticate, Token: "bob"}

	for i := 0; i < 5; i++ {
		a.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyRoom, Body: "spam"}
	}

	select {
	case <-slow.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("slow consumer was not closed")
	}
	waitFor(t, "slow consumer cleanup", func() bool { return !env.hub.Presence().IsOnline(bob.ID) })
	mustEvent(t, a.Events, EventNewMessage)
}
