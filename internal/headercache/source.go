package headercache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

// Source serves headers from a HeaderStore and falls back to an upstream
// HeaderSource on a miss, caching the result.
type Source struct {
	upstream HeaderSource
	store    HeaderStore
	network  model.Network
	logger   *zap.Logger
}

// NewSource wraps upstream with store.
func NewSource(upstream HeaderSource, store HeaderStore, network model.Network, logger *zap.Logger) *Source {
	return &Source{
		upstream: upstream,
		store:    store,
		network:  network,
		logger:   logger.Named("headercache"),
	}
}

// LatestHeight is never cached.
func (s *Source) LatestHeight(ctx context.Context) (uint64, error) {
	return s.upstream.LatestHeight(ctx)
}

// FetchHeader returns the cached header at height or fetches and caches it.
// Store failures are logged and do not fail the fetch.
func (s *Source) FetchHeader(ctx context.Context, height uint64) (model.Header, error) {
	header, err := s.store.Get(s.network, height)
	if err == nil {
		return header, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("cache read failed", zap.Uint64("height", height), zap.Error(err))
	}

	header, err = s.upstream.FetchHeader(ctx, height)
	if err != nil {
		return model.Header{}, err
	}
	if err := s.store.Put(header); err != nil {
		s.logger.Warn("cache write failed", zap.Uint64("height", height), zap.Error(err))
	}
	return header, nil
}

// Invalidate drops cached headers at or above height, e.g. after a reorg.
func (s *Source) Invalidate(_ context.Context, height uint64) error {
	n, err := s.store.DeleteFrom(s.network, height)
	if err != nil {
		return fmt.Errorf("invalidate from %d: %w", height, err)
	}
	s.logger.Info("cache invalidated", zap.Uint64("from_height", height), zap.Int("removed", n))
	return nil
}
