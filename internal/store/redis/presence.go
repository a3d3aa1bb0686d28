// Package redis mirrors live presence into a Redis set so other processes can read who is online.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coinchat-server/internal/config"
)

const (
	defaultQueueSize = 1024
	opTimeout        = 2 * time.Second
)

// setClient is the subset of the Redis client the mirror uses.
type setClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

type update struct {
	userID int64
	online bool
}

// PresenceMirror applies online/offline transitions to a Redis set in order.
// Online and Offline never block; transitions that do not fit the queue are dropped and logged.
type PresenceMirror struct {
	client setClient
	key    string
	queue  chan update
	log    *zerolog.Logger
}

// Open connects to Redis, validates the connection and clears the stale set from a previous run.
func Open(ctx context.Context, cfg config.RedisConfig, logger *zerolog.Logger) (*PresenceMirror, error) {
	if cfg.Addr == "" {
		return nil, errors.New("empty redis addr")
	}
	key := cfg.Key
	if key == "" {
		key = config.Default().Redis.Key
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("reset presence set: %w", err)
	}

	return newMirror(client, key, defaultQueueSize, logger), nil
}

func newMirror(client setClient, key string, queueSize int, logger *zerolog.Logger) *PresenceMirror {
	return &PresenceMirror{
		client: client,
		key:    key,
		queue:  make(chan update, queueSize),
		log:    logger,
	}
}

// Online queues userID for addition.
func (m *PresenceMirror) Online(userID int64) {
	m.enqueue(update{userID: userID, online: true})
}

// Offline queues userID for removal.
func (m *PresenceMirror) Offline(userID int64) {
	m.enqueue(update{userID: userID, online: false})
}

func (m *PresenceMirror) enqueue(u update) {
	select {
	case m.queue <- u:
	default:
		m.log.Warn().Int64("user_id", u.userID).Bool("online", u.online).Msg("presence mirror queue full, dropping update")
	}
}

// Run applies queued transitions until ctx is canceled. Pending updates are flushed first.
func (m *PresenceMirror) Run(ctx context.Context) {
	for {
		select {
		case u := <-m.queue:
			m.apply(u)
		case <-ctx.Done():
			m.flush()
			return
		}
	}
}

func (m *PresenceMirror) flush() {
	for {
		select {
		case u := <-m.queue:
			m.apply(u)
		default:
			return
		}
	}
}

// apply runs detached from Run's context so the shutdown flush can still write.
func (m *PresenceMirror) apply(u update) {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	member := strconv.FormatInt(u.userID, 10)
	var err error
	if u.online {
		err = m.client.SAdd(opCtx, m.key, member).Err()
	} else {
		err = m.client.SRem(opCtx, m.key, member).Err()
	}
	if err != nil {
		m.log.Error().Err(err).Int64("user_id", u.userID).Bool("online", u.online).Msg("mirror presence")
	}
}

// Members returns the mirrored online ids.
func (m *PresenceMirror) Members(ctx context.Context) ([]int64, error) {
	raw, err := m.client.SMembers(ctx, m.key).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse member %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close removes the set and closes the client.
func (m *PresenceMirror) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = m.client.Del(ctx, m.key).Err()
	return m.client.Close()
}
