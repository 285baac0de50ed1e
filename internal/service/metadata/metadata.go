package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/logger"
)

// MetadataKey is the well-known object holding the instrument catalog.
const MetadataKey = "metadata/instruments.json"

// Option configures the metadata service.
type Option func(*Service)

// WithTTL overrides how long a loaded catalog stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock sets the time source used for cache freshness.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service loads the instrument catalog wholesale from the object store and
// caches it in process. Loading trouble falls back to the last good copy.
type Service struct {
	store repository.ObjectStore
	log   *logger.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	cached   map[string]models.InstrumentMetadata
	cachedAt time.Time
}

// New creates the metadata service.
func New(store repository.ObjectStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log,
		ttl:   5 * time.Minute,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All returns the full catalog, loading it if the cache is stale. When the
// store is unreachable the last loaded copy is served instead.
func (s *Service) All(ctx context.Context) (map[string]models.InstrumentMetadata, error) {
	s.mu.RLock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	loaded, err := s.load(ctx)
	if err != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.cached != nil {
			s.log.Warn("metadata reload failed, serving stale copy",
				logger.Error(err),
				logger.Duration("age", s.now().Sub(s.cachedAt)),
			)
			return s.cached, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cached = loaded
	s.cachedAt = s.now()
	s.mu.Unlock()
	return loaded, nil
}

// Get returns metadata for one symbol.
func (s *Service) Get(ctx context.Context, symbol string) (models.InstrumentMetadata, bool, error) {
	all, err := s.All(ctx)
	if err != nil {
		return models.InstrumentMetadata{}, false, err
	}
	md, ok := all[symbol]
	return md, ok, nil
}

// InstrumentsWithData lists symbols that advertise data for the given source
// resolution, sorted. A symbol with only a general data range counts when it
// has no per-source breakdown.
func (s *Service) InstrumentsWithData(ctx context.Context, source repository.SourceResolution) ([]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	var instruments []string
	for symbol, md := range all {
		dr := md.DataRange
		if dr == nil {
			continue
		}
		if _, ok := dr.Sources[string(source)]; ok {
			instruments = append(instruments, symbol)
		} else if len(dr.Sources) == 0 && dr.Earliest != "" {
			instruments = append(instruments, symbol)
		}
	}
	sort.Strings(instruments)
	return instruments, nil
}

// DataBoundaries resolves the available [earliest, latest] window for symbol,
// preferring the source-specific range over the general one. Unknown
// boundaries come back as empty strings.
func (s *Service) DataBoundaries(ctx context.Context, symbol string, source repository.SourceResolution) (models.SourceRange, error) {
	md, ok, err := s.Get(ctx, symbol)
	if err != nil {
		return models.SourceRange{}, err
	}
	if !ok || md.DataRange == nil {
		return models.SourceRange{}, nil
	}

	if sr, found := md.DataRange.Sources[string(source)]; found {
		return sr, nil
	}
	return models.SourceRange{
		Earliest: md.DataRange.Earliest,
		Latest:   md.DataRange.Latest,
	}, nil
}

// Upload replaces the instrument catalog in the store and drops the cache so
// the next read observes the new copy. Administrative operation.
func (s *Service) Upload(ctx context.Context, catalog map[string]models.InstrumentMetadata) error {
	payload, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if err := s.store.Upload(ctx, MetadataKey, payload); err != nil {
		return fmt.Errorf("upload catalog: %w", err)
	}

	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()

	s.log.Info("instrument catalog uploaded",
		logger.Int("instruments", len(catalog)),
		logger.String("key", MetadataKey),
	)
	return nil
}

// Refresh drops the cache and reloads immediately.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()

	_, err := s.All(ctx)
	return err
}

// CacheInfo reports the current cache state for diagnostics.
func (s *Service) CacheInfo() (cached bool, age time.Duration, instruments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return false, 0, 0
	}
	return true, s.now().Sub(s.cachedAt), len(s.cached)
}

func (s *Service) load(ctx context.Context) (map[string]models.InstrumentMetadata, error) {
	rc, err := s.store.GetStream(ctx, MetadataKey)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", MetadataKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MetadataKey, err)
	}

	// Top-level keys starting with "_" carry schema annotations, not
	// instruments, and may have arbitrary shape.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetadataKey, err)
	}

	catalog := make(map[string]models.InstrumentMetadata, len(raw))
	for symbol, blob := range raw {
		if strings.HasPrefix(symbol, "_") {
			continue
		}
		var md models.InstrumentMetadata
		if err := json.Unmarshal(blob, &md); err != nil {
			s.log.Warn("skipping malformed instrument entry",
				logger.String("symbol", symbol),
				logger.Error(err),
			)
			continue
		}
		if md.Symbol == "" {
			md.Symbol = symbol
		}
		catalog[symbol] = md
	}

	s.log.Info("instrument catalog loaded",
		logger.Int("instruments", len(catalog)),
		logger.String("key", MetadataKey),
	)
	return catalog, nil
}
