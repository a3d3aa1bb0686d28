package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/coinchat-server/internal/callengine"
	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/service/history"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// Dependencies are the collaborators the hub calls into.
type Dependencies struct {
	Auth    Authenticator
	Economy EconomyGate
	History HistoryGateway
	// Media is optional; when set, voice joins also receive media credentials.
	Media callengine.Engine
	// PresenceSink is optional.
	PresenceSink PresenceSink
}

// Options tunes hub behavior.
type Options struct {
	// OpTimeout bounds the handling of one command.
	OpTimeout            time.Duration
	MaxMessageBytes      int
	MaxStageSpeakers     int
	DegradeAfterFailures int
}

// Hub coordinates identities, presence, rooms and signaling for all live connections.
// Each registered client is served by its own goroutine, so one connection's
// commands run in order and its disconnect runs after its last command.
type Hub struct {
	logger *zerolog.Logger
	deps   Dependencies
	opts   Options

	registry *Registry
	presence *Presence
	router   *Router
	voice    *VoiceManager
	relay    *SignalRelay

	register chan *Client
	stopped  chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewHub creates a new chat hub instance.
func NewHub(deps Dependencies, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 5 * time.Second
	}

	presence := NewPresence(deps.PresenceSink)
	return &Hub{
		logger:   logger,
		deps:     deps,
		opts:     opts,
		registry: NewRegistry(),
		presence: presence,
		router:   newRouter(presence, deps.History, deps.Economy, opts.DegradeAfterFailures, opts.MaxMessageBytes, logger),
		voice:    NewVoiceManager(presence, opts.MaxStageSpeakers),
		relay:    NewSignalRelay(presence),
		register: make(chan *Client),
		stopped:  make(chan struct{}),
		clients:  make(map[*Client]struct{}),
	}
}

// Run processes registrations until ctx is done, then disconnects every client
// and waits for their cleanup.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

			h.wg.Add(1)
			go h.serve(ctx, c)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.stopped)

	h.mu.Lock()
	for c := range h.clients {
		c.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.logger.Info().Msg("hub stopped")
}

// RegisterClient hands c to the hub. A stopped hub closes c immediately.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		c.Close()
	}
}

// Presence exposes the presence tracker for read-only queries.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// VoiceRooms lists active voice rooms.
func (h *Hub) VoiceRooms() []RoomSummary {
	return h.voice.Rooms()
}

// Degraded reports whether lobby delivery is running without persistence.
func (h *Hub) Degraded() bool {
	return h.router.Degraded()
}

func (h *Hub) serve(ctx context.Context, c *Client) {
	defer h.wg.Done()
	defer func() {
		h.disconnect(c)
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			h.drain(ctx, c)
			return
		case cmd := <-c.Commands:
			h.handle(ctx, c, cmd)
		}
	}
}

// drain runs commands that were queued before the client closed.
func (h *Hub) drain(ctx context.Context, c *Client) {
	for ctx.Err() == nil {
		select {
		case cmd := <-c.Commands:
			h.handle(ctx, c, cmd)
		default:
			return
		}
	}
}

func (h *Hub) disconnect(c *Client) {
	c.Close()

	id, ok := h.registry.Unbind(c)
	if !ok {
		return
	}
	c.voiceRoom = ""

	if h.presence.Detach(c, id.ID) {
		left := h.voice.LeaveAll(id.ID)
		h.logger.Info().Str("client_id", c.ID).Int64("user_id", id.ID).Strs("voice_rooms", left).Msg("identity offline")
		return
	}
	h.logger.Debug().Str("client_id", c.ID).Int64("user_id", id.ID).Msg("connection closed")
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.opts.OpTimeout)
	defer cancel()

	if cmd.Kind == CommandAuthenticate {
		h.handleAuthenticate(ctx, c, cmd)
		return
	}

	id, err := h.registry.Resolve(c)
	if err != nil {
		h.sendError(c, coreError(ErrCodeUnauthenticated, "authenticate first"))
		return
	}

	var opErr error
	switch cmd.Kind {
	case CommandAuthenticate:
		// handled above
	case CommandSendMessage:
		opErr = h.handleSendMessage(ctx, id, cmd)
	case CommandSendCoins:
		opErr = h.handleSendCoins(ctx, id, cmd)
	case CommandVoiceJoin:
		opErr = h.handleVoiceJoin(ctx, c, id, cmd)
	case CommandVoiceLeave:
		opErr = h.handleVoiceLeave(c, id, cmd)
	case CommandSignal:
		opErr = h.handleSignal(c, id, cmd)
	case CommandHistory:
		opErr = h.handleHistory(ctx, c, id, cmd)
	case CommandVoiceComment:
		opErr = h.handleVoiceComment(id, cmd)
	case CommandVoiceRequestStage:
		opErr = h.handleRequestStage(id, cmd)
	case CommandVoiceStageDecision:
		opErr = h.handleStageDecision(id, cmd)
	case CommandLobbyVoiceInvite:
		h.presence.Broadcast(&Event{
			Kind:     EventLobbyVoiceInvite,
			UserID:   id.ID,
			Username: id.Username,
			Room:     strings.TrimSpace(cmd.Room),
		}, c)
	default:
		opErr = coreError(ErrCodeBadRequest, "unknown command")
	}

	if opErr != nil {
		h.logger.Debug().
			Err(opErr).
			Str("client_id", c.ID).
			Int64("user_id", id.ID).
			Str("event", cmd.Kind.String()).
			Msg("command rejected")
		h.sendError(c, toCoreError(opErr))
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	c.send(errorEvent(err))
}

func (h *Hub) handleAuthenticate(ctx context.Context, c *Client, cmd *Command) {
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "token is required"))
		return
	}

	id, err := h.deps.Auth.Authenticate(ctx, token)
	if err != nil {
		h.logger.Debug().Err(err).Str("client_id", c.ID).Msg("authentication failed")
		h.sendError(c, coreError(ErrCodeUnauthenticated, "invalid credentials"))
		return
	}

	if current, resolveErr := h.registry.Resolve(c); resolveErr == nil {
		if current.ID != id.ID {
			h.sendError(c, coreError(ErrCodeAlreadyAuthenticated, ErrAlreadyAuthenticated.Error()))
			return
		}
	}

	balance, err := h.deps.Economy.Balance(ctx, id.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", id.ID).Msg("load balance")
		h.sendError(c, toCoreError(err))
		return
	}
	unlocked, err := h.deps.Economy.UnlockedPeers(ctx, id.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", id.ID).Msg("load unlocked peers")
		h.sendError(c, coreError(ErrCodePersistenceFailure, "could not load account"))
		return
	}

	fresh, err := h.registry.Bind(c, id)
	if err != nil {
		h.sendError(c, toCoreError(err))
		return
	}

	greet := func(online []int64) {
		c.send(&Event{Kind: EventAuthenticated, Auth: &AuthInfo{
			Identity: id,
			Balance:  balance,
			Online:   online,
			Unlocked: unlocked,
			Degraded: h.router.Degraded(),
		}})
	}

	if !fresh {
		greet(h.presence.Online())
		return
	}
	h.presence.Attach(c, id.ID, greet)
	h.logger.Info().Str("client_id", c.ID).Int64("user_id", id.ID).Str("username", id.Username).Msg("client authenticated")
}

func (h *Hub) handleSendMessage(ctx context.Context, id Identity, cmd *Command) error {
	if cmd.RecipientID != 0 {
		_, err := h.router.RoutePrivate(ctx, id, cmd.RecipientID, cmd.Body)
		return err
	}
	room := strings.TrimSpace(cmd.Room)
	if room != "" && room != store.LobbyRoom {
		return coreError(ErrCodeBadRequest, "unknown room")
	}
	_, err := h.router.RouteLobby(ctx, id, cmd.Body)
	return err
}

func (h *Hub) handleSendCoins(ctx context.Context, id Identity, cmd *Command) error {
	if cmd.RecipientID <= 0 {
		return coreError(ErrCodeBadRequest, "recipient is required")
	}

	res, err := h.deps.Economy.Transfer(ctx, id.ID, cmd.RecipientID, cmd.Amount)
	if err != nil {
		if !isDomainError(err) {
			h.logger.Error().Err(err).Int64("user_id", id.ID).Msg("transfer coins")
		}
		return err
	}

	h.presence.SendTo(&Event{Kind: EventCoinsUpdate, UserID: id.ID, Coins: res.FromBalance}, id.ID)
	h.presence.SendTo(&Event{Kind: EventCoinsUpdate, UserID: cmd.RecipientID, Coins: res.ToBalance}, cmd.RecipientID)
	return nil
}

func (h *Hub) handleVoiceJoin(ctx context.Context, c *Client, id Identity, cmd *Command) error {
	room, err := NormalizeRoomName(cmd.Room)
	if err != nil {
		return coreError(ErrCodeBadRequest, "invalid room name")
	}

	if c.voiceRoom != "" && c.voiceRoom != room {
		_ = h.voice.Leave(id.ID, c.voiceRoom)
	}
	roster, changed := h.voice.Join(id, room)
	c.voiceRoom = room
	if !changed {
		c.send(&Event{Kind: EventVoiceRoster, Room: room, Roster: &roster})
	}

	if h.deps.Media == nil {
		return nil
	}
	info, err := h.deps.Media.GenerateJoinInfo(ctx, room, id.ID, id.Username)
	if err != nil {
		h.logger.Warn().Err(err).Str("room", room).Int64("user_id", id.ID).Msg("generate media credentials")
		return coreError(ErrCodeMediaUnavailable, "media server unavailable")
	}
	c.send(&Event{Kind: EventVoiceJoinInfo, Room: room, JoinInfo: info})
	return nil
}

func (h *Hub) handleVoiceLeave(c *Client, id Identity, cmd *Command) error {
	room := strings.TrimSpace(cmd.Room)
	if room == "" {
		room = c.voiceRoom
	}
	if room == "" {
		return coreError(ErrCodeNotInRoom, "not in a voice room")
	}
	if err := h.voice.Leave(id.ID, room); err != nil {
		return err
	}
	if c.voiceRoom == room {
		c.voiceRoom = ""
	}
	return nil
}

func (h *Hub) handleSignal(c *Client, id Identity, cmd *Command) error {
	delivered, err := h.relay.Relay(id, cmd.RecipientID, cmd.Signal)
	if err != nil {
		return coreError(ErrCodeBadRequest, "invalid signaling envelope")
	}
	if !delivered {
		c.send(&Event{
			Kind:   EventUndeliverable,
			UserID: cmd.RecipientID,
			Signal: &SignalEvent{Kind: cmd.Signal.Kind, From: id.ID},
		})
	}
	return nil
}

func (h *Hub) handleHistory(ctx context.Context, c *Client, id Identity, cmd *Command) error {
	var (
		msgs []*store.Message
		err  error
	)
	switch {
	case cmd.RecipientID == id.ID:
		return coreError(ErrCodeBadRequest, "cannot load a thread with yourself")
	case cmd.RecipientID > 0:
		msgs, err = h.deps.History.Thread(ctx, id.ID, cmd.RecipientID, cmd.Page)
	case cmd.RecipientID < 0:
		return coreError(ErrCodeBadRequest, "invalid recipient")
	case cmd.Room == "" || cmd.Room == store.LobbyRoom:
		msgs, err = h.deps.History.Lobby(ctx, cmd.Page)
	default:
		return coreError(ErrCodeBadRequest, "unknown room")
	}
	if err != nil {
		if !errors.Is(err, history.ErrInvalidCursor) {
			h.logger.Error().Err(err).Int64("user_id", id.ID).Msg("load history")
		}
		return err
	}

	ev := &Event{Kind: EventHistory, UserID: cmd.RecipientID, Messages: messagesFromStore(msgs)}
	if cmd.RecipientID == 0 {
		ev.Room = store.LobbyRoom
	}
	c.send(ev)
	return nil
}

func (h *Hub) handleVoiceComment(id Identity, cmd *Command) error {
	room, err := NormalizeRoomName(cmd.Room)
	if err != nil {
		return coreError(ErrCodeBadRequest, "invalid room name")
	}
	body, err := h.router.normalizeBody(cmd.Body)
	if err != nil {
		return err
	}
	return h.voice.Comment(id, room, body)
}

func (h *Hub) handleRequestStage(id Identity, cmd *Command) error {
	room, err := NormalizeRoomName(cmd.Room)
	if err != nil {
		return coreError(ErrCodeBadRequest, "invalid room name")
	}
	return h.voice.RequestStage(id, room)
}

func (h *Hub) handleStageDecision(id Identity, cmd *Command) error {
	room, err := NormalizeRoomName(cmd.Room)
	if err != nil {
		return coreError(ErrCodeBadRequest, "invalid room name")
	}
	if cmd.RecipientID <= 0 {
		return coreError(ErrCodeBadRequest, "user_id is required")
	}
	return h.voice.DecideStage(id, room, cmd.RecipientID, cmd.Accept)
}

func isDomainError(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code != ErrCodePersistenceFailure
	}
	return errors.Is(err, economy.ErrInsufficientBalance) ||
		errors.Is(err, economy.ErrInvalidAmount) ||
		errors.Is(err, economy.ErrSelfTransfer) ||
		errors.Is(err, economy.ErrUserNotFound)
}

// toCoreError maps service and sentinel errors to wire error codes.
func toCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrUnauthenticated):
		return coreError(ErrCodeUnauthenticated, err.Error())
	case errors.Is(err, ErrAlreadyAuthenticated):
		return coreError(ErrCodeAlreadyAuthenticated, err.Error())
	case errors.Is(err, ErrNotInRoom):
		return coreError(ErrCodeNotInRoom, err.Error())
	case errors.Is(err, ErrForbidden):
		return coreError(ErrCodeForbidden, "only hosts can decide stage requests")
	case errors.Is(err, ErrBadRequest), errors.Is(err, economy.ErrSelfTransfer), errors.Is(err, history.ErrInvalidCursor):
		return coreError(ErrCodeBadRequest, err.Error())
	case errors.Is(err, economy.ErrInsufficientBalance):
		return coreError(ErrCodeInsufficientBalance, "not enough coins")
	case errors.Is(err, economy.ErrInvalidAmount):
		return coreError(ErrCodeInvalidAmount, err.Error())
	case errors.Is(err, economy.ErrUserNotFound):
		return coreError(ErrCodeUserNotFound, "user not found")
	default:
		return coreError(ErrCodePersistenceFailure, "operation failed")
	}
}
