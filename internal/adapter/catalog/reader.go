// Package catalog reads earthquake catalogs from delimited text files.
package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// Columns are matched case-insensitively against the header row.
const (
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnMagnitude = "magnitude"
	ColumnDepth     = "depth"
)

// ctxCheckEvery bounds how many rows are parsed between cancellation checks.
const ctxCheckEvery = 1024

// Reader loads a catalog file. It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the catalog at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Source names the catalog for reports and logs.
func (r *Reader) Source() string {
	return filepath.Base(r.path)
}

// Extract reads every data row of the catalog. The delimiter (tab or comma) is taken from
// the header line. Rows that cannot be parsed come back with nil fields so the filter can
// count them; a missing file or a header without the required columns is reported as
// domain.ErrDataUnavailable.
func (r *Reader) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w: %w", r.path, domain.ErrDataUnavailable, err)
	}

	records, err := Parse(ctx, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("parse catalog %s: %w", r.path, err)
	}

	r.logger.Debug("catalog read", "path", r.path, "rows", len(records))
	return records, nil
}

// Parse reads a delimited catalog from src.
func Parse(ctx context.Context, src io.Reader) ([]domain.RawRecord, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrDataUnavailable, err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			records = append(records, domain.RawRecord{Line: parseErr.Line})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := cr.FieldPos(0)
		records = append(records, domain.RawRecord{
			Line:      line,
			Latitude:  field(row, cols.latitude),
			Longitude: field(row, cols.longitude),
			Magnitude: field(row, cols.magnitude),
			Depth:     field(row, cols.depth),
		})
	}
	return records, nil
}

type columnIndex struct {
	latitude, longitude, magnitude, depth int
}

func locateColumns(header []string) (columnIndex, error) {
	idx := map[string]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	cols := columnIndex{
		latitude:  lookup(ColumnLatitude),
		longitude: lookup(ColumnLongitude),
		magnitude: lookup(ColumnMagnitude),
		depth:     lookup(ColumnDepth),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("%w: missing columns %s", domain.ErrDataUnavailable, strings.Join(missing, ", "))
	}
	return cols, nil
}

// detectDelimiter picks tab when the header line contains one, comma otherwise.
func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.IndexByte(header, '\t') >= 0 {
		return '\t'
	}
	return ','
}

func field(row []string, i int) *float64 {
	if i >= len(row) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
