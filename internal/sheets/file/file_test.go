package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"painel/internal/core"
)

// writeWorkbook writes rows keyed by 1-based row number; missing numbers stay blank.
func writeWorkbook(t *testing.T, path string, rows map[int][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "realized.xlsx")
	writeWorkbook(t, path, map[int][]any{
		1: {"Grupo", "Categoria", "Pago ou Recebido", "Data de Registro (completa)"},
		2: {"Alpha", "PIS", 1234.56, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		4: {"Beta", "COFINS", 10},
	})

	r := New(dir, map[core.Kind]string{core.KindRealized: "realized.xlsx"})
	got, err := r.ReadTable(context.Background(), core.KindRealized)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"Grupo", "Categoria", "Pago ou Recebido", "Data de Registro (completa)"}; !reflect.DeepEqual(got.Header, want) {
		t.Fatalf("header = %v", got.Header)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("blank rows should be dropped, got %d rows", len(got.Rows))
	}
	if got.Rows[0][2] != "1234.56" {
		t.Errorf("amount should be the raw value, got %q", got.Rows[0][2])
	}
	if got.Rows[0][3] == "" || got.Rows[0][3] == "2024-01-15" {
		t.Errorf("date should come back as an Excel serial, got %q", got.Rows[0][3])
	}
	if len(got.Rows[1]) != 4 || got.Rows[1][3] != "" {
		t.Errorf("short rows should be padded, got %q", got.Rows[1])
	}
}

func TestReadTableUnknownKind(t *testing.T) {
	r := New(t.TempDir(), nil)
	if _, err := r.ReadTable(context.Background(), core.KindForecast); !errors.Is(err, core.ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadCSVWindows1252(t *testing.T) {
	text := "Grupo;Minha Empresa (Razão Social);Pago ou Recebido\nAlpha;Padaria São João;\"1.234,56\"\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "receivables.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Header[1] != "Minha Empresa (Razão Social)" || got.Rows[0][1] != "Padaria São João" {
		t.Fatalf("decoding failed: %+v", got)
	}
	if got.Rows[0][2] != "1.234,56" {
		t.Fatalf("amount = %q", got.Rows[0][2])
	}
}

func TestReadCSVCommaUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	content := "\xef\xbb\xbfMinha Empresa (Nome Fantasia),2024-01-01\nLoja A,100.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := core.Table{
		Header: []string{"Minha Empresa (Nome Fantasia)", "2024-01-01"},
		Rows:   [][]string{{"Loja A", "100.5"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestSourceNameListsPaths(t *testing.T) {
	r := New("/data", map[core.Kind]string{core.KindRealized: "a.xlsx", core.KindForecast: "/abs/f.xlsx"})
	if got := r.SourceName(); got != "file:/data/a.xlsx:::/abs/f.xlsx" {
		t.Fatalf("got %q", got)
	}
}
