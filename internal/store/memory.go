package store

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// MemoryStore is an in-memory ResultStore. It is the default backend and the
// one used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]*models.BacktestRun
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*models.BacktestRun),
	}
}

// CreateRun persists a new run.
func (s *MemoryStore) CreateRun(ctx context.Context, run *models.BacktestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	cp := cloneRun(run)
	s.runs[run.ID] = &cp
	return nil
}

// UpdateStatus moves the run to the given status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, runID string, status models.RunStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	if !run.Status.CanTransition(status) {
		return apperrors.Wrapf(apperrors.ErrStatusTransition, "%s -> %s", run.Status, status)
	}
	run.Status = status
	if status == models.StatusFailed {
		run.Error = errMsg
	}
	if status.Terminal() {
		run.FinishedAt = time.Now()
	}
	return nil
}

// AppendDecision appends one date's decision and signals under a single lock,
// so readers see both or neither.
func (s *MemoryStore) AppendDecision(ctx context.Context, runID string, record models.DecisionRecord, signals models.SignalSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	run.Decisions = append(run.Decisions, record)
	run.Signals = append(run.Signals, cloneSignalSet(signals))
	return nil
}

// GetRun returns a copy of the full run.
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*models.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	cp := cloneRun(run)
	return &cp, nil
}

// LatestDecision returns the most recent decision record, or nil.
func (s *MemoryStore) LatestDecision(ctx context.Context, runID string) (*models.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	if len(run.Decisions) == 0 {
		return nil, nil
	}
	cp := run.Decisions[len(run.Decisions)-1]
	return &cp, nil
}

// LatestSignals returns the signal set for the most recently processed date, or nil.
func (s *MemoryStore) LatestSignals(ctx context.Context, runID string) (*models.SignalSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	if len(run.Signals) == 0 {
		return nil, nil
	}
	cp := cloneSignalSet(run.Signals[len(run.Signals)-1])
	return &cp, nil
}

// History returns the portfolio snapshots in chronological order.
func (s *MemoryStore) History(ctx context.Context, runID string) ([]models.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	history := make([]models.PortfolioSnapshot, len(run.Decisions))
	for i, d := range run.Decisions {
		history[i] = d.Snapshot
	}
	return history, nil
}

// Close marks the store closed; further calls return ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.runs = nil
	return nil
}

func cloneRun(run *models.BacktestRun) models.BacktestRun {
	cp := *run
	cp.Decisions = append([]models.DecisionRecord(nil), run.Decisions...)
	cp.Signals = make([]models.SignalSet, len(run.Signals))
	for i, set := range run.Signals {
		cp.Signals[i] = cloneSignalSet(set)
	}
	return cp
}

func cloneSignalSet(set models.SignalSet) models.SignalSet {
	cp := set
	cp.Signals = make([]models.AnalystSignal, len(set.Signals))
	for i, sig := range set.Signals {
		cp.Signals[i] = sig
		if sig.Metrics != nil {
			m := make(map[string]float64, len(sig.Metrics))
			for k, v := range sig.Metrics {
				m[k] = v
			}
			cp.Signals[i].Metrics = m
		}
	}
	return cp
}
