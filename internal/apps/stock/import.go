package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Positional columns of an import row. Row 0 is a header.
const (
	colName = iota
	colReference
	colQuantity
	colMinThreshold
	colLocation
	colSupplier
)

var (
	errNegative        = errors.New("must not be negative")
	errAmbiguousNumber = errors.New("ambiguous digit grouping")
)

type importRow struct {
	index        int
	name         string
	reference    string
	quantity     float64
	minThreshold float64
	location     string
	supplier     string
}

// ImportRows upserts stock items keyed by barcode == reference column.
// Every row is parsed before storage is touched; one malformed quantity or
// threshold fails the whole batch with *apperr.ParseError. Storage writes
// run in a single transaction. Rows sharing a reference collapse onto one
// item, the later row winning.
func (s *StockService) ImportRows(ctx context.Context, rows [][]string) (*ImportResult, error) {
	res := &ImportResult{}
	if len(rows) > 0 {
		res.TotalRows = len(rows) - 1
	}

	parsed := make([]importRow, 0, res.TotalRows)
	for i := 1; i < len(rows); i++ {
		r, ok, err := parseImportRow(i, rows[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Skipped++
			continue
		}
		parsed = append(parsed, r)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range parsed {
			var item StockItem
			err := tx.Where("barcode = ?", r.reference).First(&item).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				ref := r.reference
				item = StockItem{
					Name:         r.name,
					Quantity:     r.quantity,
					Unit:         DefaultUnit,
					MinThreshold: r.minThreshold,
					Location:     r.location,
					Supplier:     r.supplier,
					Barcode:      &ref,
				}
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("row %d: %w", r.index, err)
				}
				res.Created++
			case err != nil:
				return fmt.Errorf("row %d: %w", r.index, err)
			default:
				err := tx.Model(&item).Updates(map[string]interface{}{
					"name":          r.name,
					"quantity":      r.quantity,
					"min_threshold": r.minThreshold,
					"location":      r.location,
					"supplier":      r.supplier,
				}).Error
				if err != nil {
					return fmt.Errorf("row %d: %w", r.index, err)
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// parseImportRow returns ok=false for rows that are skipped silently: fewer
// than two populated cells, an empty name or an empty reference.
func parseImportRow(index int, row []string) (importRow, bool, error) {
	populated := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			populated++
		}
	}
	r := importRow{
		index:     index,
		name:      cell(row, colName),
		reference: cell(row, colReference),
		location:  cell(row, colLocation),
		supplier:  cell(row, colSupplier),
	}
	// The reference is the upsert key; a row without one cannot be matched.
	if populated < 2 || r.name == "" || r.reference == "" {
		return r, false, nil
	}

	var err error
	if r.quantity, err = parseAmount(index, "quantity", cell(row, colQuantity), 0); err != nil {
		return r, false, err
	}
	if r.minThreshold, err = parseAmount(index, "min_threshold", cell(row, colMinThreshold), DefaultMinThreshold); err != nil {
		return r, false, err
	}
	return r, true, nil
}

// parseAmount returns fallback for a blank value. A single comma is accepted
// as the decimal separator; forms that read as digit grouping ("1,000",
// "1.000,5") are rejected rather than guessed.
func parseAmount(row int, column, raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	normalized, err := normalizeDecimal(raw)
	if err != nil {
		return 0, &apperr.ParseError{Row: row, Column: column, Value: raw, Err: err}
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, &apperr.ParseError{Row: row, Column: column, Value: raw, Err: err}
	}
	if d.IsNegative() {
		return 0, &apperr.ParseError{Row: row, Column: column, Value: raw, Err: errNegative}
	}
	f, _ := d.Float64()
	return f, nil
}

func normalizeDecimal(raw string) (string, error) {
	seps := strings.Count(raw, ",") + strings.Count(raw, ".")
	if seps > 1 {
		return "", errAmbiguousNumber
	}
	i := strings.IndexByte(raw, ',')
	if i < 0 {
		return raw, nil
	}
	if len(raw)-i-1 == 3 {
		return "", errAmbiguousNumber
	}
	return raw[:i] + "." + raw[i+1:], nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
