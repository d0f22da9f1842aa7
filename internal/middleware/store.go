package middleware

import (
	"context"
	"time"

	"github.com/s-home/messenger-go/pkg/kvstore"
)

// InstrumentedStore wraps a kvstore backend and records operation counts
// and latencies for every call that reaches it.
type InstrumentedStore struct {
	store   kvstore.Store
	metrics *Metrics
}

// NewInstrumentedStore wraps store with metrics recording
func NewInstrumentedStore(store kvstore.Store, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{store: store, metrics: metrics}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, found, err := s.store.Get(ctx, key)
	s.metrics.RecordStorageOperation("get", statusOf(err), time.Since(start))
	return value, found, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.store.Set(ctx, key, value)
	s.metrics.RecordStorageOperation("set", statusOf(err), time.Since(start))
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.store.Delete(ctx, key)
	s.metrics.RecordStorageOperation("delete", statusOf(err), time.Since(start))
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.store.Close()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
