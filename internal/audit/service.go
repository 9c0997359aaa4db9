// Package audit replays the chain a node has accepted and compares every
// header's difficulty bits with the retarget engine's answer.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/chainindex"
	"github.com/goodnatureofminers/multialgo-retarget/internal/clock"
	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/internal/pow"
	"github.com/goodnatureofminers/multialgo-retarget/pkg/safe"
	"github.com/goodnatureofminers/multialgo-retarget/pkg/workerpool"
)

const (
	defaultWorkerCount = 16
	defaultBatchSize   = 200
	defaultWarmup      = 2000
	defaultMaxIndexLen = 200_000

	// reorgRewind is how many already audited heights are replayed after a reorganization.
	reorgRewind = 100

	idleSleepDuration = 10 * time.Second
	backoffInitial    = time.Second
	backoffMax        = time.Minute
)

var (
	// ErrReorg is returned when a fetched header does not build on the indexed tip.
	ErrReorg = errors.New("chain reorganization")
	// ErrNotReady is returned by NextTarget before any header has been indexed.
	ErrNotReady = errors.New("no headers indexed yet")
	// ErrResultsNotStored is returned by a ResultWriter once a batch of
	// results could not be persisted.
	ErrResultsNotStored = errors.New("audit results not stored")
)

// Config tunes the audit loop. Zero values fall back to defaults.
type Config struct {
	// StartHeight is the first height audited when nothing has been stored yet.
	StartHeight uint64
	// Warmup is how many headers below the first audited height are indexed
	// without being audited.
	Warmup uint64
	// BatchSize is how many headers are fetched per iteration.
	BatchSize uint64
	// WorkerCount bounds concurrent header fetches.
	WorkerCount int
	// MaxIndexLen triggers a rebuild of the window once the index holds more records.
	MaxIndexLen int
}

func (c Config) withDefaults() Config {
	if c.Warmup == 0 {
		c.Warmup = defaultWarmup
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = defaultWorkerCount
	}
	if c.MaxIndexLen <= 0 {
		c.MaxIndexLen = defaultMaxIndexLen
	}
	return c
}

// MinWarmup is the smallest window that backs a full retarget computation.
func MinWarmup(params *consensus.Params) uint64 {
	return uint64(algo.NumAlgos*params.AveragingInterval + chainindex.MedianTimeSpan)
}

// Prediction is the work the next block of an algorithm must carry.
type Prediction struct {
	Network model.Network
	Algo    algo.ID
	Height  uint64
	Bits    uint32
}

// Service runs the audit loop for one network.
type Service struct {
	logger     *zap.Logger
	network    model.Network
	params     *consensus.Params
	source     HeaderSource
	repo       Repository
	writer     ResultWriter
	newWriter  func() ResultWriter
	metrics    Metrics
	calculator *pow.Calculator
	cfg        Config

	sleep     clock.Sleeper
	idleSleep time.Duration
	backoff   clock.Backoff
	wake      <-chan struct{}

	resumed bool
	next    uint64

	mu    sync.RWMutex
	index *chainindex.Index
}

// NewService wires an audit Service.
func NewService(
	source HeaderSource,
	repo Repository,
	metrics Metrics,
	calculator *pow.Calculator,
	params *consensus.Params,
	network model.Network,
	cfg Config,
	logger *zap.Logger,
) (*Service, error) {
	if metrics == nil {
		return nil, errors.New("audit metrics is required")
	}
	if calculator == nil {
		return nil, errors.New("audit calculator is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if floor := MinWarmup(params); cfg.Warmup < floor {
		return nil, fmt.Errorf("audit warmup %d is below %d", cfg.Warmup, floor)
	}

	logger = logger.With(zap.String("network", string(network)))

	return &Service{
		logger:     logger,
		network:    network,
		params:     params,
		source:     source,
		repo:       repo,
		writer:     newResultWriter(repo, logger),
		newWriter:  func() ResultWriter { return newResultWriter(repo, logger) },
		metrics:    metrics,
		calculator: calculator,
		cfg:        cfg,
		sleep:      clock.SleepWithContext,
		idleSleep:  idleSleepDuration,
		backoff:    clock.Backoff{Initial: backoffInitial, Max: backoffMax},
	}, nil
}

// WakeOn cuts idle sleeps short whenever ch delivers, e.g. on new block
// notifications. Call it before Run.
func (s *Service) WakeOn(ch <-chan struct{}) {
	s.wake = ch
}

// Run audits headers until ctx is done. Failed iterations are logged and
// retried with backoff.
func (s *Service) Run(ctx context.Context) error {
	wCtx, wCancel := context.WithCancel(ctx)
	s.writer.Start(wCtx)
	defer func() {
		wCancel()
		s.writer.Stop()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.run(ctx)
		switch {
		case err == nil:
			s.backoff.Reset()
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrReorg):
			s.metrics.ObserveReorg()
			s.logger.Warn("reorganization detected; rebuilding window", zap.Error(err))
			if err = s.rewind(ctx); err == nil {
				continue
			}
		case errors.Is(err, ErrResultsNotStored):
			s.restartWriter(wCtx)
		}

		d := s.backoff.Next()
		s.logger.Error("audit iteration failed", zap.Duration("retry_in", d), zap.Error(err))
		if err = s.sleep(ctx, d); err != nil {
			return err
		}
	}
}

func (s *Service) run(ctx context.Context) error {
	idx := s.currentIndex()
	if idx == nil {
		var err error
		if idx, err = s.warmUp(ctx); err != nil {
			return err
		}
	}

	latest, err := s.source.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("latest height: %w", err)
	}
	if s.next > latest {
		s.logger.Debug("caught up; sleeping", zap.Uint64("next", s.next), zap.Duration("sleep", s.idleSleep))
		return s.idle(ctx)
	}

	to := min(latest, s.next+s.cfg.BatchSize-1)
	headers, err := s.fetch(ctx, s.next, to)
	if err != nil {
		return err
	}
	for _, h := range headers {
		if err = s.audit(ctx, idx, h); err != nil {
			return err
		}
	}
	s.logger.Info("audited batch", zap.Uint64("from", headers[0].Height), zap.Uint64("to", to))

	if idx.Len() > s.cfg.MaxIndexLen {
		s.logger.Debug("index above limit; rebuilding window", zap.Int("records", idx.Len()))
		s.setIndex(nil)
	}
	return nil
}

// idle sleeps for idleSleep or until a wake signal arrives.
func (s *Service) idle(ctx context.Context) error {
	if s.wake == nil {
		return s.sleep(ctx, s.idleSleep)
	}

	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.wake:
			cancel()
		case <-sleepCtx.Done():
		}
	}()

	if err := s.sleep(sleepCtx, s.idleSleep); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// warmUp resolves the first height to audit and indexes the headers below it.
func (s *Service) warmUp(ctx context.Context) (*chainindex.Index, error) {
	if !s.resumed {
		height, ok, err := s.repo.MaxAuditedHeight(ctx, s.network)
		if err != nil {
			return nil, fmt.Errorf("max audited height: %w", err)
		}
		s.next = s.cfg.StartHeight
		if ok && height+1 > s.next {
			s.next = height + 1
		}
		s.resumed = true
	}

	base := s.next - min(s.next, s.cfg.Warmup)
	signedBase, err := safe.Int64(base)
	if err != nil {
		return nil, fmt.Errorf("warm-up base: %w", err)
	}
	idx := chainindex.NewAt(signedBase)
	for from := base; from < s.next; from += s.cfg.BatchSize {
		to := min(s.next-1, from+s.cfg.BatchSize-1)
		headers, err := s.fetch(ctx, from, to)
		if err != nil {
			return nil, err
		}
		for _, h := range headers {
			if _, err = appendHeader(idx, h); err != nil {
				return nil, err
			}
		}
	}

	s.setIndex(idx)
	s.logger.Info("audit window ready", zap.Uint64("base", base), zap.Uint64("next", s.next))
	return idx, nil
}

// rewind moves the audit position back and drops cached headers that may
// belong to the abandoned branch. State is untouched when invalidation fails.
func (s *Service) rewind(ctx context.Context) error {
	from := s.next - min(s.next, reorgRewind)
	if inv, ok := s.source.(Invalidator); ok {
		if err := inv.Invalidate(ctx, from); err != nil {
			return fmt.Errorf("invalidate headers from %d: %w", from, err)
		}
	}
	s.next = from
	s.setIndex(nil)
	return nil
}

// restartWriter drains a writer that lost results, replaces it and resumes
// auditing at the lowest height it did not store.
func (s *Service) restartWriter(ctx context.Context) {
	s.writer.Stop()
	if from, lost := s.writer.Unstored(); lost && from < s.next {
		s.next = from
	}
	s.writer = s.newWriter()
	s.writer.Start(ctx)
	s.setIndex(nil)
	s.logger.Warn("audit results lost; replaying", zap.Uint64("from", s.next))
}

func (s *Service) fetch(ctx context.Context, from, to uint64) ([]model.Header, error) {
	heights := make([]uint64, 0, to-from+1)
	for h := from; h <= to; h++ {
		heights = append(heights, h)
	}

	started := time.Now()
	headers, err := workerpool.Map(ctx, s.cfg.WorkerCount, heights, s.source.FetchHeader)
	s.metrics.ObserveFetchBatch(err, len(headers), started)
	if err != nil {
		return nil, fmt.Errorf("fetch headers %d..%d: %w", from, to, err)
	}
	return headers, nil
}

func (s *Service) audit(ctx context.Context, idx *chainindex.Index, h model.Header) error {
	tip := idx.Tip()
	if err := checkLink(idx, tip, h); err != nil {
		return err
	}
	expected := s.calculator.NextWorkRequired(idx, tip, s.params, h.Algo)
	complete := HistoryComplete(idx, tip, s.params, h.Algo)

	result := model.AuditResult{
		Network:          s.network,
		Height:           h.Height,
		Hash:             h.Hash.String(),
		Algo:             h.Algo.String(),
		Timestamp:        time.Unix(h.Time, 0).UTC(),
		Bits:             h.Bits,
		ExpectedBits:     expected,
		BitsMatch:        complete && expected == h.Bits,
		HistoryTruncated: !complete,
	}
	// Only SHA256d blocks are identified by their proof-of-work hash.
	if h.Algo == algo.SHA256d {
		result.PowChecked = true
		result.PowValid = pow.CheckProofOfWork(h.Hash, h.Bits, s.params)
	}

	outcome := result.Outcome()
	s.metrics.ObserveHeader(result.Algo, outcome, h.Height)
	switch outcome {
	case model.OutcomeMatch:
	case model.OutcomeUnverified:
		s.logger.Debug("history below window start; bits not verified",
			zap.Uint64("height", h.Height),
			zap.String("algo", result.Algo),
		)
	default:
		s.logger.Warn("retarget anomaly",
			zap.Uint64("height", h.Height),
			zap.String("hash", result.Hash),
			zap.String("algo", result.Algo),
			zap.String("outcome", outcome),
			zap.String("bits", fmt.Sprintf("%08x", h.Bits)),
			zap.String("expected", fmt.Sprintf("%08x", expected)),
		)
	}

	if err := s.writer.Write(ctx, result); err != nil {
		return fmt.Errorf("write audit result %d: %w", h.Height, err)
	}
	if _, err := appendHeader(idx, h); err != nil {
		return err
	}
	s.next = h.Height + 1
	return nil
}

// NextTarget computes the bits the block after the indexed tip must carry for id.
func (s *Service) NextTarget(id algo.ID) (Prediction, error) {
	if !id.Valid() {
		return Prediction{}, fmt.Errorf("%w: %d", algo.ErrUnknown, id)
	}
	idx := s.currentIndex()
	if idx == nil {
		return Prediction{}, ErrNotReady
	}
	tip := idx.Tip()
	if tip == chainindex.NoRef {
		return Prediction{}, ErrNotReady
	}

	bits := s.calculator.NextWorkRequired(idx, tip, s.params, id)
	height, err := safe.Uint64(idx.Record(tip).Height + 1)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Network: s.network, Algo: id, Height: height, Bits: bits}, nil
}

// Ready reports whether NextTarget can answer.
func (s *Service) Ready() bool {
	idx := s.currentIndex()
	return idx != nil && idx.Tip() != chainindex.NoRef
}

func (s *Service) currentIndex() *chainindex.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Service) setIndex(idx *chainindex.Index) {
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
}

// IndexHeaders builds an index rooted at the first header. Headers must be
// ordered by height and each must build on the one before it.
func IndexHeaders(headers []model.Header) (*chainindex.Index, error) {
	if len(headers) == 0 {
		return chainindex.New(), nil
	}
	base, err := safe.Int64(headers[0].Height)
	if err != nil {
		return nil, fmt.Errorf("base height: %w", err)
	}
	idx := chainindex.NewAt(base)
	for _, h := range headers {
		if _, err := appendHeader(idx, h); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// HistoryComplete reports whether idx holds everything the retarget engine
// reads when computing the next bits of id on tip. An index rooted above
// genesis can cut off the averaging window, its median-time span or the last
// block of id, and the engine then falls back to the pow limit.
func HistoryComplete(idx *chainindex.Index, tip chainindex.Ref, params *consensus.Params, id algo.ID) bool {
	if params.PowNoRetargeting || idx.Base() == 0 {
		return true
	}
	if tip == chainindex.NoRef {
		return false
	}
	if idx.Record(tip).Height-idx.Base() < algo.NumAlgos*params.AveragingInterval+chainindex.MedianTimeSpan-1 {
		return false
	}
	prev, ok := pow.LastBlockForAlgo(idx, tip, params, id)
	if !ok {
		return false
	}
	// The min-difficulty skip rule compares a match with its parent.
	return !params.PowAllowMinDifficultyBlocks || idx.Parent(prev) != chainindex.NoRef
}

// checkLink reports ErrReorg when h does not build on tip.
func checkLink(idx *chainindex.Index, tip chainindex.Ref, h model.Header) error {
	if tip == chainindex.NoRef {
		return nil
	}
	if prev := idx.Record(tip); prev.Hash != h.PrevHash {
		return fmt.Errorf("%w: header %d builds on %s, indexed tip is %s", ErrReorg, h.Height, h.PrevHash, prev.Hash)
	}
	return nil
}

// appendHeader links h under the index tip after checking it builds on it.
func appendHeader(idx *chainindex.Index, h model.Header) (chainindex.Ref, error) {
	tip := idx.Tip()
	if err := checkLink(idx, tip, h); err != nil {
		return chainindex.NoRef, err
	}
	height, err := safe.Int64(h.Height)
	if err != nil {
		return chainindex.NoRef, fmt.Errorf("header height: %w", err)
	}
	ref, err := idx.Append(tip, chainindex.Record{
		Hash:   h.Hash,
		Height: height,
		Time:   h.Time,
		Bits:   h.Bits,
		Algo:   h.Algo,
	})
	if err != nil {
		return chainindex.NoRef, fmt.Errorf("index header %d: %w", h.Height, err)
	}
	return ref, nil
}
