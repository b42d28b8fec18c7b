// Package dataset owns the loaded ledger for the lifetime of a process.
//
// A Store runs the ingest pipeline on first use and hands out the same
// immutable snapshot afterwards, until it is cleared or reloaded.
package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ingest"
	"ledgerdash/internal/log"
)

// Snapshot is one pipeline result. It is never modified after Get returns it.
type Snapshot struct {
	Table       *core.Table
	Diagnostics ingest.Diagnostics
	LoadedAt    time.Time
	Version     uint64
}

// PrepareFunc produces a cleaned table from a source path.
type PrepareFunc func(ctx context.Context, path string, logger *log.Logger) (*core.Table, ingest.Diagnostics, error)

// Options configures a Store.
type Options struct {
	Logger  *log.Logger
	Prepare PrepareFunc
	Now     func() time.Time
}

// Store computes the dataset once and shares it between callers.
type Store struct {
	path    string
	logger  *log.Logger
	prepare PrepareFunc
	now     func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *Snapshot
	version  uint64
	loads    uint64
	lastErr  error
}

// New returns a store for the ledger at path. Nothing is read until Get.
func New(path string, opts Options) *Store {
	s := &Store{
		path:    path,
		logger:  opts.Logger,
		prepare: opts.Prepare,
		now:     opts.Now,
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentDataset)
	if s.prepare == nil {
		s.prepare = ingest.Prepare
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Path returns the source file of the store.
func (s *Store) Path() string { return s.path }

// Get returns the current snapshot, running the pipeline if there is none.
// Concurrent callers share a single load. Failed loads are not cached.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	ch := s.group.DoChan(s.path, func() (any, error) {
		s.mu.RLock()
		current := s.snapshot
		s.mu.RUnlock()
		if current != nil {
			return current, nil
		}
		return s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	start := s.now()
	table, diag, err := s.prepare(ctx, s.path, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if err != nil {
		s.lastErr = err
		s.logger.ErrorContext(ctx, "Dataset load failed", log.FieldSource, s.path, log.FieldError, err)
		return nil, err
	}

	s.version++
	s.lastErr = nil
	s.snapshot = &Snapshot{
		Table:       table,
		Diagnostics: diag,
		LoadedAt:    s.now(),
		Version:     s.version,
	}
	log.NewStructuredLogger(s.logger).LogDatasetLoaded(ctx, s.version, s.now().Sub(start).Milliseconds(), diag.LogArgs())
	return s.snapshot, nil
}

// Clear drops the current snapshot. The next Get reloads the file.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil {
		s.logger.Info("Dataset cleared", log.FieldVersion, s.snapshot.Version)
	}
	s.snapshot = nil
}

// Reload clears the snapshot and loads the file again.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.Clear()
	return s.Get(ctx)
}

// Loaded returns the current snapshot without loading.
func (s *Store) Loaded() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshot != nil
}

// Status describes the store for health and metrics output.
type Status struct {
	Path      string
	Loaded    bool
	Version   uint64
	Loads     uint64
	Rows      int
	LoadedAt  time.Time
	LastError string
}

// Status returns a consistent view of the store counters.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{Path: s.path, Version: s.version, Loads: s.loads}
	if s.snapshot != nil {
		st.Loaded = true
		st.Rows = s.snapshot.Table.Len()
		st.LoadedAt = s.snapshot.LoadedAt
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
