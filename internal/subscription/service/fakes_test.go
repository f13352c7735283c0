package service

import (
	"context"
	"errors"
	"sync/atomic"

	"railalert/internal/subscription/models"
	"railalert/internal/subscription/store"
)

// switchableStore is the in-memory store with an outage switch.
type switchableStore struct {
	*store.InMemory
	down atomic.Bool
}

func newSwitchableStore() *switchableStore {
	return &switchableStore{InMemory: store.NewInMemory()}
}

func (s *switchableStore) Add(ctx context.Context, sub models.Subscription) (bool, error) {
	if s.down.Load() {
		return false, errBackendDown
	}
	return s.InMemory.Add(ctx, sub)
}

func (s *switchableStore) Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) (bool, error) {
	if s.down.Load() {
		return false, errBackendDown
	}
	return s.InMemory.Remove(ctx, line, recipient)
}

func (s *switchableStore) ListRecipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error) {
	if s.down.Load() {
		return nil, errBackendDown
	}
	return s.InMemory.ListRecipients(ctx, line)
}

func (s *switchableStore) ListAll(ctx context.Context) (map[models.LineCode][]models.Recipient, error) {
	if s.down.Load() {
		return nil, errBackendDown
	}
	return s.InMemory.ListAll(ctx)
}

// lossyCache drops the next N Remove calls with an error.
type lossyCache struct {
	*store.InMemoryCache
	failRemoves atomic.Int32
}

func newLossyCache(failRemoves int32) *lossyCache {
	c := &lossyCache{InMemoryCache: store.NewInMemoryCache()}
	c.failRemoves.Store(failRemoves)
	return c
}

func (c *lossyCache) Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) error {
	if c.failRemoves.Add(-1) >= 0 {
		return errors.New("cache write lost")
	}
	return c.InMemoryCache.Remove(ctx, line, recipient)
}
