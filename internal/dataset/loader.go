// Package dataset reads the retail transaction file into typed rows.
//
// CSV and XLSX inputs are supported. Columns are matched by header name, so
// their order is free and extra columns are ignored.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"retail-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

const (
	ColInvoiceNo    = "InvoiceNo"
	ColCustomerID   = "CustomerID"
	ColCountry      = "Country"
	ColDescription  = "Description"
	ColQuantity     = "Quantity"
	ColTotalRevenue = "Total Revenue"
	ColDate         = "Date"
)

// RequiredColumns is the header set every input file must carry.
var RequiredColumns = []string{
	ColInvoiceNo,
	ColCustomerID,
	ColCountry,
	ColDescription,
	ColQuantity,
	ColTotalRevenue,
	ColDate,
}

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoRows         = errors.New("no valid rows")
	ErrEmptyFile      = errors.New("empty file")
)

// MissingColumnsError names the required headers absent from a file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

var dateLayouts = []string{
	time.DateTime,
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"02-01-2006 15:04",
}

type loadOptions struct {
	cacheDir string
	logger   *slog.Logger
}

type Option func(*loadOptions)

// WithCacheDir enables the parsed-rows cache under dir.
func WithCacheDir(dir string) Option {
	return func(o *loadOptions) {
		o.cacheDir = dir
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Load reads the dataset at path. Files ending in .xlsx are read from their
// first sheet; anything else is treated as CSV. Rows with an unparsable date
// are kept without one, rows with unparsable numbers are skipped and counted.
func Load(ctx context.Context, path string, opts ...Option) (*Dataset, error) {
	o := loadOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	if o.cacheDir != "" {
		if entry, err := readCache(o.cacheDir, path); err == nil && info.ModTime().Before(entry.WrittenAt) {
			ds := New(entry.Rows)
			ds.source = path
			ds.skipped = entry.Skipped
			o.logger.Info("dataset loaded from cache", "file", path, "rows", ds.Len())
			return ds, nil
		}
	}

	start := time.Now()
	excel := isExcel(path)

	var records [][]string
	if excel {
		records, err = readExcel(ctx, path)
	} else {
		records, err = readCSV(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, ErrEmptyFile)
	}

	index, err := headerIndex(records[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rows, skipped, err := parseRecords(ctx, records[1:], index, excel)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if skipped > 0 {
		o.logger.Warn("skipped rows with unparsable numbers", "file", path, "count", skipped)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse %s: %w", path, ErrNoRows)
	}

	ds := New(rows)
	ds.source = path
	ds.skipped = skipped

	if o.cacheDir != "" {
		entry := &cacheEntry{Rows: rows, Skipped: skipped, WrittenAt: time.Now()}
		if err := writeCache(o.cacheDir, path, entry); err != nil {
			o.logger.Warn("failed to save dataset cache", "error", err)
		}
	}

	duration := time.Since(start)
	o.logger.Info("dataset parsed",
		"file", path,
		"rows", ds.Len(),
		"skipped", skipped,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f rows/sec", float64(len(records)-1)/duration.Seconds()))

	return ds, nil
}

func isExcel(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func readCSV(ctx context.Context, path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		if len(records)%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

func readExcel(ctx context.Context, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, ErrEmptyFile)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		if len(records)%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
		records = append(records, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return records, nil
}

// headerIndex maps each required column to its position in header.
func headerIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}

	index := make(map[string]int, len(RequiredColumns))
	var missing []string
	for _, col := range RequiredColumns {
		i, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return index, nil
}

type parsedRow struct {
	tx models.Transaction
	ok bool
}

// parseRecords converts data lines in batches on a bounded worker pool. Each
// batch writes only its own slots, so input order survives.
func parseRecords(ctx context.Context, records [][]string, index map[string]int, excel bool) ([]models.Transaction, int, error) {
	parsed := make([]parsedRow, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				if isBlank(records[i]) {
					continue
				}
				tx, err := parseRow(records[i], index, excel)
				if err != nil {
					continue
				}
				parsed[i] = parsedRow{tx: tx, ok: true}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	rows := make([]models.Transaction, 0, len(records))
	skipped := 0
	for i, p := range parsed {
		if p.ok {
			rows = append(rows, p.tx)
			continue
		}
		if !isBlank(records[i]) {
			skipped++
		}
	}
	return rows, skipped, nil
}

func parseRow(record []string, index map[string]int, excel bool) (models.Transaction, error) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	quantity, err := parseQuantity(field(ColQuantity))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("quantity: %w", err)
	}

	revenue, err := decimal.NewFromString(field(ColTotalRevenue))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("total revenue: %w", err)
	}

	return models.Transaction{
		InvoiceNo:    field(ColInvoiceNo),
		CustomerID:   normalizeCustomerID(field(ColCustomerID)),
		Country:      field(ColCountry),
		Description:  field(ColDescription),
		Quantity:     quantity,
		TotalRevenue: revenue,
		Date:         parseDate(field(ColDate), excel),
	}, nil
}

// parseQuantity accepts integers and integral decimals such as "6.0".
func parseQuantity(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return d.IntPart(), nil
}

// parseDate returns the zero time when s matches no known layout.
func parseDate(s string, excel bool) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if excel {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// normalizeCustomerID strips the ".0" left behind when IDs were stored as
// floats, and maps NaN spellings to the missing marker.
func normalizeCustomerID(s string) string {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return ""
	}
	if trimmed, ok := strings.CutSuffix(s, ".0"); ok {
		if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return trimmed
		}
	}
	return s
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
