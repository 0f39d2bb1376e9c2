package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"painel/internal/cache"
	"painel/internal/core"
	"painel/internal/sheets/memory"
)

func sampleTables() map[core.Kind]core.Table {
	return map[core.Kind]core.Table{
		core.KindRealized: {
			Header: []string{"Grupo", "Minha Empresa (Nome Fantasia)", "Pago ou Recebido"},
			Rows:   [][]string{{"Alpha", "Alpha Foods", "100"}},
		},
		core.KindReceivables: {
			Header: []string{"Grupo", "Minha Empresa (Razão Social)", "Pago ou Recebido"},
			Rows:   [][]string{{"Alpha", "Alpha Foods Ltda", "250"}, {"Beta", "Beta SA", "50"}},
		},
		core.KindScheduled: {
			Header: []string{"Vencimento", "Valor Líquido"},
			Rows:   [][]string{{"2024-03-01", "75,50"}},
		},
		core.KindForecast: {
			Header: []string{"Minha Empresa (Nome Fantasia)", "2024-01-01"},
			Rows:   [][]string{{"Alpha Foods", "300"}},
		},
	}
}

func newTestStore(reader *memory.Store) *Store {
	return NewStore(reader, cache.NewLRUCache[*core.Dataset](4, time.Minute), nil)
}

func TestStoreCachesDataset(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(sampleTables())
	store := newTestStore(mem)

	first, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Receivables.Len() != 2 || first.Scheduled.Records[0].NetAmount.Cents != 7550 {
		t.Fatalf("unexpected dataset %+v", first)
	}
	if first.LoadedAt.IsZero() {
		t.Error("LoadedAt should be set")
	}
	if mem.Reads() != 4 {
		t.Fatalf("expected 4 reads, got %d", mem.Reads())
	}

	second, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != first || mem.Reads() != 4 {
		t.Errorf("second load should be served from cache (reads=%d)", mem.Reads())
	}
}

func TestStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(sampleTables())
	store := newTestStore(mem)

	if _, err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}

	tables := sampleTables()
	tables[core.KindRealized] = core.Table{
		Header: []string{"Pago ou Recebido"},
		Rows:   [][]string{{"1"}, {"2"}, {"3"}},
	}
	if err := mem.WriteTable(ctx, core.KindRealized, tables[core.KindRealized]); err != nil {
		t.Fatal(err)
	}

	cached, _ := store.Load(ctx)
	if cached.Realized.Len() != 1 {
		t.Fatalf("cache should still hold the old extract, got %d rows", cached.Realized.Len())
	}

	reloaded, err := store.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Realized.Len() != 3 || mem.Reads() != 8 {
		t.Errorf("reload should read every extract again (rows=%d reads=%d)", reloaded.Realized.Len(), mem.Reads())
	}
}

func TestStoreKeyedBySource(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewLRUCache[*core.Dataset](4, time.Minute)

	a := NewStore(memory.New(sampleTables()), shared, nil)
	b := NewStore(memory.New(nil), shared, nil)
	if a.Key() == b.Key() {
		t.Fatal("different sources must not share a key")
	}

	dsA, err := a.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	dsB, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dsA.Realized.Len() != 1 || dsB.Realized.Len() != 0 {
		t.Errorf("sources mixed up: a=%d b=%d", dsA.Realized.Len(), dsB.Realized.Len())
	}
}

func TestStoreConcurrentMissesShareOneRead(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(sampleTables())
	store := newTestStore(mem)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Load(ctx); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if mem.Reads() != 4 {
		t.Errorf("expected a single load (4 reads), got %d", mem.Reads())
	}
}

type failingReader struct{ err error }

func (f failingReader) ReadTable(_ context.Context, kind core.Kind) (core.Table, error) {
	if kind == core.KindScheduled {
		return core.Table{}, f.err
	}
	return core.Table{}, nil
}

func TestStoreLoadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	c := cache.NewLRUCache[*core.Dataset](4, time.Minute)
	store := NewStore(failingReader{err: boom}, c, nil)

	_, err := store.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
	if c.Size() != 0 {
		t.Error("failed load must not be cached")
	}
}

func TestStoreDecodeFailure(t *testing.T) {
	tables := sampleTables()
	tables[core.KindForecast] = core.Table{
		Header: []string{"Minha Empresa (Nome Fantasia)", "2024-01-01"},
		Rows:   [][]string{{"Alpha Foods", "muito"}},
	}
	store := newTestStore(memory.New(tables))

	if _, err := store.Load(context.Background()); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// gatedReader blocks every read until release is closed or ctx is done.
type gatedReader struct {
	tables  map[core.Kind]core.Table
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedReader) ReadTable(ctx context.Context, kind core.Kind) (core.Table, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.tables[kind], nil
	case <-ctx.Done():
		return core.Table{}, ctx.Err()
	}
}

func TestStoreSharedLoadSurvivesCallerCancel(t *testing.T) {
	reader := &gatedReader{
		tables:  sampleTables(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewStore(reader, cache.NewLRUCache[*core.Dataset](4, time.Minute), nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := store.Load(leaderCtx)
		leader <- err
	}()
	<-reader.started

	type result struct {
		ds  *core.Dataset
		err error
	}
	follower := make(chan result, 1)
	go func() {
		ds, err := store.Load(context.Background())
		follower <- result{ds, err}
	}()

	cancel()
	select {
	case err := <-leader:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(reader.release)
	select {
	case res := <-follower:
		if res.err != nil {
			t.Fatalf("other caller failed: %v", res.err)
		}
		if res.ds.Receivables.Len() != 2 {
			t.Errorf("receivables = %d, want 2", res.ds.Receivables.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("load never finished")
	}

	if _, ok := store.cache.Get(store.Key()); !ok {
		t.Error("completed load should be cached")
	}
}
