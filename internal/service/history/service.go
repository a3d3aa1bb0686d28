package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/coinchat-server/internal/store"
)

// ErrInvalidCursor is returned for a negative before_id.
var ErrInvalidCursor = errors.New("invalid cursor")

// Options tunes the gateway.
type Options struct {
	// Timeout bounds each store call. Zero disables the bound.
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Service is the durable append and paginated read path for chat messages.
type Service struct {
	store store.MessageStore
	opts  Options
}

// New creates a history service. Non-positive limits fall back to 50 and 100.
func New(ms store.MessageStore, opts Options) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	return &Service{store: ms, opts: opts}
}

// Append persists msg and sets its id. It returns only after the store has committed.
func (s *Service) Append(ctx context.Context, msg *store.Message) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Lobby returns a page of lobby history, oldest first.
func (s *Service) Lobby(ctx context.Context, page store.Page) ([]*store.Message, error) {
	page, err := s.Clamp(page)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	msgs, err := s.store.ListLobbyMessages(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list lobby messages: %w", err)
	}
	return msgs, nil
}

// Thread returns a page of the private thread between a and b, oldest first.
func (s *Service) Thread(ctx context.Context, a, b int64, page store.Page) ([]*store.Message, error) {
	page, err := s.Clamp(page)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	low, high := store.Pair(a, b)
	msgs, err := s.store.ListThreadMessages(ctx, low, high, page)
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	return msgs, nil
}

// Clamp applies the default and maximum limits to page.
func (s *Service) Clamp(page store.Page) (store.Page, error) {
	if page.BeforeID < 0 {
		return store.Page{}, ErrInvalidCursor
	}
	switch {
	case page.Limit <= 0:
		page.Limit = s.opts.DefaultLimit
	case page.Limit > s.opts.MaxLimit:
		page.Limit = s.opts.MaxLimit
	}
	return page, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}
