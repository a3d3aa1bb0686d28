package redis

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// fakeSets records every command and keeps sets in memory.
type fakeSets struct {
	mu     sync.Mutex
	sets   map[string][]string
	ops    []string
	fail   bool
	closed bool
}

func newFakeSets() *fakeSets {
	return &fakeSets{sets: map[string][]string{}}
}

var errUnavailable = errors.New("redis unavailable")

func (f *fakeSets) record(op string, members []interface{}) {
	for _, m := range members {
		op += " " + m.(string)
	}
	f.ops = append(f.ops, op)
}

func (f *fakeSets) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sadd", members)
	if f.fail {
		return redis.NewIntResult(0, errUnavailable)
	}
	var added int64
	for _, m := range members {
		if !slices.Contains(f.sets[key], m.(string)) {
			f.sets[key] = append(f.sets[key], m.(string))
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeSets) SRem(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("srem", members)
	if f.fail {
		return redis.NewIntResult(0, errUnavailable)
	}
	var removed int64
	for _, m := range members {
		if i := slices.Index(f.sets[key], m.(string)); i >= 0 {
			f.sets[key] = slices.Delete(f.sets[key], i, i+1)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeSets) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewStringSliceResult(slices.Clone(f.sets[key]), nil)
}

func (f *fakeSets) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.sets, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeSets) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSets) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ops)
}

func member(id int64) string {
	return strconv.FormatInt(id, 10)
}
