// Package file reads the dashboard extracts from spreadsheet exports on disk:
// Excel workbooks (first sheet, raw cell values) and semicolon or comma
// separated CSV files in UTF-8 or Windows-1252.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"painel/internal/core"
	"painel/internal/sheets"
)

var (
	_ sheets.TableReader = (*Reader)(nil)
	_ sheets.SourceNamer = (*Reader)(nil)
)

// Reader maps each extract to a file.
type Reader struct {
	paths map[core.Kind]string
}

// New creates a reader for files under dir. Relative names are joined to dir.
func New(dir string, names map[core.Kind]string) *Reader {
	paths := make(map[core.Kind]string, len(names))
	for kind, name := range names {
		if name == "" {
			continue
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		paths[kind] = name
	}
	return &Reader{paths: paths}
}

// Path returns the file backing the extract.
func (r *Reader) Path(kind core.Kind) (string, bool) {
	p, ok := r.paths[kind]
	return p, ok
}

func (r *Reader) SourceName() string {
	var b strings.Builder
	b.WriteString("file")
	for _, kind := range core.Kinds() {
		b.WriteString(":")
		b.WriteString(r.paths[kind])
	}
	return b.String()
}

func (r *Reader) ReadTable(ctx context.Context, kind core.Kind) (core.Table, error) {
	path, ok := r.paths[kind]
	if !ok {
		return core.Table{}, fmt.Errorf("%w: no file configured for %s", core.ErrUnknownDataset, kind)
	}
	return ReadFile(ctx, path)
}

// ReadFile reads a workbook or CSV file, choosing the format by extension.
func ReadFile(ctx context.Context, path string) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		rows, err = readCSV(f)
	default:
		rows, err = readWorkbook(f)
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return toTable(rows), nil
}

// ReadWorkbook reads the first sheet of an Excel workbook.
func ReadWorkbook(r io.Reader) (core.Table, error) {
	rows, err := readWorkbook(r)
	if err != nil {
		return core.Table{}, err
	}
	return toTable(rows), nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, core.ErrMissingSheet
	}
	// Raw values keep dates as serial numbers and amounts unformatted.
	return f.GetRows(list[0], excelize.Options{RawCellValue: true})
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows, nil
}

// detectDelimiter picks ';' or ',' by counting them in the first line.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) >= bytes.Count(line, []byte(",")) && bytes.Contains(line, []byte(";")) {
		return ';'
	}
	return ','
}

// toTable takes the first non-empty row as header, drops blank rows and pads
// every row to the header width.
func toTable(rows [][]string) core.Table {
	var t core.Table
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return t
	}
	t.Header = trimTrailingBlank(rows[start])
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		cells := make([]string, len(t.Header))
		copy(cells, row)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return append([]string(nil), row[:end]...)
}
