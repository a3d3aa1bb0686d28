package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// Outcome is the result of routing one message.
type Outcome int

const (
	// OutcomeDelivered means the message was broadcast to its audience.
	OutcomeDelivered Outcome = iota
	// OutcomeBlocked means the economy gate refused a private send.
	OutcomeBlocked
)

// Router resolves the audience of a message, persists it and fans it out.
type Router struct {
	presence *Presence
	history  HistoryGateway
	economy  EconomyGate
	health   *healthTracker
	maxBody  int
	logger   *zerolog.Logger
}

func newRouter(p *Presence, h HistoryGateway, e EconomyGate, degradeAfter, maxBody int, logger *zerolog.Logger) *Router {
	r := &Router{
		presence: p,
		history:  h,
		economy:  e,
		maxBody:  maxBody,
		logger:   logger,
	}
	r.health = newHealthTracker(degradeAfter, func(degraded bool) {
		p.Broadcast(&Event{Kind: EventSystemStatus, Degraded: degraded}, nil)
		if degraded {
			logger.Warn().Msg("persistence unavailable, lobby switched to best-effort delivery")
		} else {
			logger.Info().Msg("persistence recovered")
		}
	})
	return r
}

// Degraded reports whether the router is in best-effort lobby mode.
func (r *Router) Degraded() bool {
	return r.health.Degraded()
}

func (r *Router) normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", coreError(ErrCodeBadRequest, "message body is empty")
	}
	if r.maxBody > 0 && len(body) > r.maxBody {
		return "", coreError(ErrCodeBadRequest, "message body too long")
	}
	return body, nil
}

// RouteLobby persists a lobby message and broadcasts it to every online connection.
func (r *Router) RouteLobby(ctx context.Context, sender Identity, body string) (Outcome, error) {
	body, err := r.normalizeBody(body)
	if err != nil {
		return OutcomeDelivered, err
	}

	msg := &store.Message{
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Room:           store.LobbyRoom,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.history.Append(ctx, msg); err != nil {
		r.health.Failure()
		r.logger.Error().Err(err).Int64("user_id", sender.ID).Msg("persist lobby message")
		if !r.health.Degraded() {
			return OutcomeDelivered, coreError(ErrCodePersistenceFailure, "message could not be stored")
		}
		out := messageFromStore(msg)
		out.ID = 0
		out.Degraded = true
		r.presence.Broadcast(&Event{Kind: EventNewMessage, Room: store.LobbyRoom, Message: &out}, nil)
		return OutcomeDelivered, nil
	}
	r.health.Success()

	out := messageFromStore(msg)
	r.presence.Broadcast(&Event{Kind: EventNewMessage, Room: store.LobbyRoom, Message: &out}, nil)
	return OutcomeDelivered, nil
}

// RoutePrivate checks the economy gate, persists the message together with any
// charge, then delivers it to both parties' connections.
func (r *Router) RoutePrivate(ctx context.Context, sender Identity, recipientID int64, body string) (Outcome, error) {
	if recipientID <= 0 {
		return OutcomeDelivered, coreError(ErrCodeBadRequest, "recipient_id is required")
	}
	if recipientID == sender.ID {
		return OutcomeDelivered, coreError(ErrCodeBadRequest, "cannot message yourself")
	}
	body, err := r.normalizeBody(body)
	if err != nil {
		return OutcomeDelivered, err
	}

	msg := &store.Message{
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		RecipientID:    &recipientID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}

	decision, err := r.economy.CheckAndCharge(ctx, sender.ID, recipientID, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveMessage(ctx, msg)
	})
	if err != nil {
		switch {
		case errors.Is(err, economy.ErrUserNotFound):
			return OutcomeDelivered, coreError(ErrCodeUserNotFound, "user not found")
		case errors.Is(err, economy.ErrSelfTransfer):
			return OutcomeDelivered, coreError(ErrCodeBadRequest, "cannot message yourself")
		}
		r.health.Failure()
		r.logger.Error().Err(err).Int64("user_id", sender.ID).Int64("peer_id", recipientID).Msg("persist private message")
		return OutcomeDelivered, coreError(ErrCodePersistenceFailure, "message could not be stored")
	}
	r.health.Success()

	if !decision.Allowed {
		r.presence.SendTo(&Event{
			Kind:   EventBlockedMessage,
			UserID: recipientID,
			Reason: decision.Reason,
			Coins:  decision.Balance,
		}, sender.ID)
		return OutcomeBlocked, nil
	}

	if decision.Charged {
		r.presence.SendTo(&Event{Kind: EventCoinsUpdate, UserID: sender.ID, Coins: decision.Balance}, sender.ID)
	}

	out := messageFromStore(msg)
	r.presence.SendTo(&Event{Kind: EventNewMessage, Message: &out}, sender.ID, recipientID)
	return OutcomeDelivered, nil
}

// healthTracker counts consecutive persistence failures.
// notify runs under the tracker lock so transitions are announced in order.
// degraded is readable without the lock; it is set before notify runs.
type healthTracker struct {
	mu        sync.Mutex
	threshold int
	failures  int
	degraded  atomic.Bool
	notify    func(degraded bool)
}

func newHealthTracker(threshold int, notify func(bool)) *healthTracker {
	if threshold <= 0 {
		threshold = 3
	}
	return &healthTracker{threshold: threshold, notify: notify}
}

func (h *healthTracker) Failure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures++
	if !h.degraded.Load() && h.failures >= h.threshold {
		h.degraded.Store(true)
		h.notify(true)
	}
}

func (h *healthTracker) Success() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures = 0
	if h.degraded.Load() {
		h.degraded.Store(false)
		h.notify(false)
	}
}

func (h *healthTracker) Degraded() bool {
	return h.degraded.Load()
}
