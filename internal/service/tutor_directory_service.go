package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/discovery"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type tutorDocumentRepository interface {
	ListDocuments(ctx context.Context) ([]models.TutorDocument, error)
	FindDocument(ctx context.Context, id string) (*models.TutorDocument, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DirectoryConfig tunes the tutor directory.
type DirectoryConfig struct {
	SnapshotTTL     time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// TutorSnapshot is an immutable view of every discoverable tutor. A new
// snapshot replaces the previous one wholesale.
type TutorSnapshot struct {
	Tutors   []discovery.TutorRecord `json:"tutors"`
	Facets   discovery.Facets        `json:"facets"`
	LoadedAt time.Time               `json:"loaded_at"`
	Sequence uint64                  `json:"-"`

	generation uint64
}

// SearchResult is one page of a tutor search.
type SearchResult struct {
	discovery.Result
	Pagination *models.Pagination `json:"-"`
}

// TutorDirectoryService serves tutor discovery over the latest snapshot.
type TutorDirectoryService struct {
	repo    tutorDocumentRepository
	cache   snapshotCache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DirectoryConfig
	now     func() time.Time

	nextSeq uint64

	mu         sync.RWMutex
	current    *TutorSnapshot
	stale      bool
	generation uint64
}

// NewTutorDirectoryService constructs the directory.
func NewTutorDirectoryService(repo tutorDocumentRepository, cache snapshotCache, metrics *MetricsService, cfg DirectoryConfig, logger *zap.Logger) *TutorDirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = time.Minute
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 12
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &TutorDirectoryService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Snapshot returns the installed snapshot, reloading it when it is missing,
// invalidated or older than the configured TTL.
func (s *TutorDirectoryService) Snapshot(ctx context.Context) (*TutorSnapshot, error) {
	s.mu.RLock()
	current, stale := s.current, s.stale
	s.mu.RUnlock()
	if current != nil && !stale && s.now().Sub(current.LoadedAt) < s.cfg.SnapshotTTL {
		return current, nil
	}
	return s.Refresh(ctx)
}

// Refresh loads a fresh snapshot and installs it unless a newer load finished
// first, in which case the newer snapshot is returned. A load that overlaps an
// Invalidate is installed but stays stale.
func (s *TutorDirectoryService) Refresh(ctx context.Context) (*TutorSnapshot, error) {
	seq := atomic.AddUint64(&s.nextSeq, 1)
	gen := s.currentGeneration()
	tutors, err := s.load(ctx, gen)
	if err != nil {
		s.mu.RLock()
		current := s.current
		s.mu.RUnlock()
		if current != nil {
			s.logger.Warn("tutor snapshot reload failed, serving previous snapshot", zap.Error(err))
			return current, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutors")
	}
	snap := &TutorSnapshot{
		Tutors:   tutors,
		Facets:   discovery.ComputeFacets(tutors),
		LoadedAt: s.now(),
		Sequence: seq,

		generation: gen,
	}
	return s.install(snap), nil
}

// install swaps in snap when it is newer than the installed snapshot and
// returns whichever snapshot is current afterwards.
func (s *TutorDirectoryService) install(snap *TutorSnapshot) *TutorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Sequence > snap.Sequence {
		s.logger.Debug("discarding outdated tutor snapshot",
			zap.Uint64("sequence", snap.Sequence),
			zap.Uint64("installed", s.current.Sequence))
		return s.current
	}
	s.current = snap
	if snap.generation == s.generation {
		s.stale = false
	}
	return snap
}

func (s *TutorDirectoryService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *TutorDirectoryService) load(ctx context.Context, gen uint64) ([]discovery.TutorRecord, error) {
	if s.cache != nil {
		var cached []discovery.TutorRecord
		hit, err := s.cache.Get(ctx, cacheKeyTutorSnapshot, &cached)
		if err == nil && hit {
			s.metrics.RecordSnapshotLoad("cache", nil)
			return cached, nil
		}
	}

	start := time.Now()
	docs, err := s.repo.ListDocuments(ctx)
	s.metrics.ObserveDBQuery("tutor_documents", time.Since(start))
	s.metrics.RecordSnapshotLoad("store", err)
	if err != nil {
		return nil, err
	}
	tutors := discovery.FromDocuments(docs)

	if s.cache != nil && s.currentGeneration() == gen {
		if err := s.cache.Set(ctx, cacheKeyTutorSnapshot, tutors, s.cfg.SnapshotTTL); err != nil {
			s.logger.Warn("failed to cache tutor snapshot", zap.Error(err))
		}
		// an Invalidate between the check and the write must not leave this list cached
		if s.currentGeneration() != gen {
			s.dropCached(ctx)
		}
	}
	return tutors, nil
}

func (s *TutorDirectoryService) dropCached(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKeyTutorSnapshot); err != nil {
		s.logger.Warn("failed to drop cached tutor snapshot", zap.Error(err))
	}
}

// Invalidate drops the cached snapshot so the next read reloads from the
// store. It is called after any write that changes a tutor's public data.
func (s *TutorDirectoryService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.stale = true
	s.mu.Unlock()
	if s.cache != nil {
		s.dropCached(ctx)
	}
}

// Search evaluates state against the snapshot and returns the requested page.
func (s *TutorDirectoryService) Search(ctx context.Context, state discovery.FilterState, page, pageSize int) (*SearchResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result := discovery.Evaluate(snap.Tutors, state)
	s.metrics.ObserveSearch(result.Total)

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	start := len(result.Tutors)
	if page-1 <= len(result.Tutors)/pageSize {
		start = min((page-1)*pageSize, len(result.Tutors))
	}
	end := start + pageSize
	if end > len(result.Tutors) {
		end = len(result.Tutors)
	}
	result.Tutors = result.Tutors[start:end]

	return &SearchResult{
		Result:     result,
		Pagination: &models.Pagination{Page: page, PageSize: pageSize, TotalCount: result.Total},
	}, nil
}

// Recommended returns the top tutors under the default filter state.
func (s *TutorDirectoryService) Recommended(ctx context.Context, limit int) ([]discovery.TutorRecord, error) {
	res, err := s.Search(ctx, discovery.DefaultFilterState(), 1, limit)
	if err != nil {
		return nil, err
	}
	return res.Tutors, nil
}

// Facets returns the subject and location facets of the snapshot.
func (s *TutorDirectoryService) Facets(ctx context.Context) (discovery.Facets, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return discovery.Facets{}, err
	}
	return snap.Facets, nil
}

// Get returns one tutor's public record. Tutors missing from the snapshot
// are looked up directly so a new tutor is visible before the next reload.
func (s *TutorDirectoryService) Get(ctx context.Context, id string) (*discovery.TutorRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Tutors {
		if snap.Tutors[i].ID == id {
			record := snap.Tutors[i]
			return &record, nil
		}
	}
	doc, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	record := discovery.FromDocument(*doc)
	return &record, nil
}
