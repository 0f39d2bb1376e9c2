package dataset

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"painel/internal/cache"
	"painel/internal/core"
	"painel/internal/log"
	"painel/internal/sheets"
)

// Store is the application-scoped dataset cache. Entries are keyed by the
// reader's source name, so swapping the backend never serves stale data.
type Store struct {
	reader sheets.TableReader
	key    string
	cache  cache.Cache[*core.Dataset]
	flight singleflight.Group
	logger *log.StructuredLogger
	now    func() time.Time

	mu         sync.Mutex
	generation uint64
}

func NewStore(reader sheets.TableReader, c cache.Cache[*core.Dataset], logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		reader: reader,
		key:    SourceKey(reader),
		cache:  c,
		logger: log.NewStructuredLogger(logger.WithComponent(log.ComponentDataset)),
		now:    time.Now,
	}
}

// SourceKey identifies a reader for caching purposes.
func SourceKey(reader sheets.TableReader) string {
	if n, ok := reader.(sheets.SourceNamer); ok {
		return n.SourceName()
	}
	return fmt.Sprintf("%T:%p", reader, reader)
}

func (s *Store) Key() string { return s.key }

// Load returns the cached dataset, reading and decoding the four extracts on
// a miss. Concurrent misses share a single read. The shared read ignores the
// cancellation of whichever caller started it; each caller only stops
// waiting when its own ctx is done.
func (s *Store) Load(ctx context.Context) (*core.Dataset, error) {
	if ds, ok := s.cache.Get(s.key); ok {
		return ds, nil
	}

	gen := s.currentGeneration()
	loadCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(s.key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		// a flight that just finished may already have filled the cache
		if ds, ok := s.cache.Get(s.key); ok {
			return ds, nil
		}
		return s.read(loadCtx, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.LogError(ctx, "Dataset load failed", res.Err, log.OpLoad, log.LogFields{log.FieldSource: s.key})
			return nil, res.Err
		}
		return res.Val.(*core.Dataset), nil
	}
}

func (s *Store) read(ctx context.Context, gen uint64) (*core.Dataset, error) {
	start := s.now()
	tables, err := ReadAll(ctx, s.reader)
	if err != nil {
		return nil, err
	}
	ds, err := Decode(tables)
	if err != nil {
		return nil, err
	}
	ds.LoadedAt = s.now()

	s.mu.Lock()
	if s.generation == gen {
		s.cache.Set(s.key, ds)
	}
	s.mu.Unlock()

	s.logger.LogDatasetLoaded(ctx, s.key, rowCount(ds), s.now().Sub(start))
	return ds, nil
}

// Invalidate drops the cached dataset. A load already in progress still
// returns its result to its callers but does not repopulate the cache.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cache.Delete(s.key)
	s.mu.Unlock()
}

// Reload invalidates the cache and loads the dataset again.
func (s *Store) Reload(ctx context.Context) (*core.Dataset, error) {
	s.Invalidate()
	return s.Load(ctx)
}

func (s *Store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ReadAll reads the four extracts concurrently. The first failure cancels
// the others and is returned.
func ReadAll(ctx context.Context, reader sheets.TableReader) (map[core.Kind]core.Table, error) {
	kinds := core.Kinds()
	tables := make([]core.Table, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			t, err := reader.ReadTable(ctx, kind)
			if err != nil {
				return fmt.Errorf("read %s: %w", kind, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.Kind]core.Table, len(kinds))
	for i, kind := range kinds {
		out[kind] = tables[i]
	}
	return out, nil
}

func rowCount(ds *core.Dataset) int {
	return ds.Realized.Len() + ds.Receivables.Len() + ds.Scheduled.Len() + ds.Forecast.Len()
}
