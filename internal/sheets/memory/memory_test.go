package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"painel/internal/core"
)

func TestStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	empty, err := s.ReadTable(ctx, core.KindRealized)
	if err != nil || len(empty.Header) != 0 {
		t.Fatalf("unwritten extract should be empty, got %+v (err=%v)", empty, err)
	}

	in := core.Table{Header: []string{"Grupo"}, Rows: [][]string{{"Alpha"}}}
	if err := s.WriteTable(ctx, core.KindRealized, in); err != nil {
		t.Fatal(err)
	}
	in.Rows[0][0] = "mutated"

	got, err := s.ReadTable(ctx, core.KindRealized)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows[0][0] != "Alpha" {
		t.Fatalf("store must keep its own copy, got %q", got.Rows[0][0])
	}
	if s.Reads() != 2 {
		t.Fatalf("reads = %d", s.Reads())
	}

	if _, err := s.ReadTable(ctx, core.Kind("payroll")); !errors.Is(err, core.ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	content := "Grupo;Categoria;Pago ou Recebido\nAlpha;PIS;1.234,56\n"
	if err := os.WriteFile(filepath.Join(dir, "realized.csv"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.ReadTable(context.Background(), core.KindRealized)
	if len(got.Rows) != 1 || got.Rows[0][2] != "1.234,56" {
		t.Fatalf("unexpected seeded table %+v", got)
	}
	other, _ := s.ReadTable(context.Background(), core.KindScheduled)
	if len(other.Rows) != 0 {
		t.Fatalf("scheduled should be empty")
	}
}
