package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/logger"
)

// Service discovers what actually exists in the partition layout by listing
// the object store, independent of the instrument metadata blob.
type Service struct {
	store repository.ObjectStore
	log   *logger.Logger
}

// New creates the catalog service.
func New(store repository.ObjectStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// AvailableSymbols lists the distinct symbols stored under a source layout.
func (s *Service) AvailableSymbols(ctx context.Context, source repository.SourceResolution) ([]string, error) {
	prefix := fmt.Sprintf("ohlcv/%s/", source)
	objects, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	seen := make(map[string]bool)
	for _, obj := range objects {
		if sym, ok := symbolFromPath(obj.Name); ok {
			seen[sym] = true
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// AvailableDates lists the date keys (YYYY-MM-DD for daily layout, YYYY for
// yearly) present for one symbol, sorted ascending.
func (s *Service) AvailableDates(ctx context.Context, symbol string, source repository.SourceResolution) ([]string, error) {
	prefix := fmt.Sprintf("ohlcv/%s/symbol=%s/", source, symbol)
	objects, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	var dates []string
	for _, obj := range objects {
		if d, ok := dateKeyFromPath(obj.Name, source); ok {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// StructureInfo summarizes one partition layout: file counts, total size,
// and per-symbol date coverage.
func (s *Service) StructureInfo(ctx context.Context, source repository.SourceResolution) (*models.StorageStructureInfo, error) {
	prefix := fmt.Sprintf("ohlcv/%s/", source)
	objects, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	info := &models.StorageStructureInfo{
		SourceResolution: string(source),
		DateRanges:       make(map[string]map[string]string),
	}

	datesBySymbol := make(map[string][]string)
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Name, ".parquet") {
			continue
		}
		sym, ok := symbolFromPath(obj.Name)
		if !ok {
			continue
		}
		info.TotalFiles++
		info.TotalSizeBytes += obj.Size
		if d, ok := dateKeyFromPath(obj.Name, source); ok {
			datesBySymbol[sym] = append(datesBySymbol[sym], d)
		}
	}

	for sym, dates := range datesBySymbol {
		sort.Strings(dates)
		info.Symbols = append(info.Symbols, sym)
		info.DateRanges[sym] = map[string]string{
			"earliest": dates[0],
			"latest":   dates[len(dates)-1],
		}
	}
	sort.Strings(info.Symbols)
	info.SymbolCount = len(info.Symbols)

	return info, nil
}

// CompareStructures summarizes both layouts side by side.
func (s *Service) CompareStructures(ctx context.Context) (map[string]*models.StorageStructureInfo, error) {
	out := make(map[string]*models.StorageStructureInfo, 2)
	for _, source := range repository.SourceResolutions() {
		info, err := s.StructureInfo(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("structure %s: %w", source, err)
		}
		out[string(source)] = info
	}
	return out, nil
}

// symbolFromPath extracts the symbol from a partition object name, e.g.
// ohlcv/1m/symbol=DAX/date=2013-10-01/DAX_2013-10-01.parquet.
func symbolFromPath(name string) (string, bool) {
	parts := strings.Split(name, "/")
	if len(parts) < 3 || !strings.HasPrefix(parts[2], "symbol=") {
		return "", false
	}
	sym := strings.TrimPrefix(parts[2], "symbol=")
	return sym, sym != ""
}

// dateKeyFromPath extracts the date or year directory key.
func dateKeyFromPath(name string, source repository.SourceResolution) (string, bool) {
	parts := strings.Split(name, "/")
	if len(parts) < 4 {
		return "", false
	}
	key := "date="
	if source == repository.SourceYearly {
		key = "year="
	}
	if !strings.HasPrefix(parts[3], key) {
		return "", false
	}
	d := strings.TrimPrefix(parts[3], key)
	return d, d != ""
}
