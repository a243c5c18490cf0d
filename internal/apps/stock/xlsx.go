package stock

import (
	"fmt"
	"io"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Stock"

var exportHeaders = []string{"Name", "Reference", "Quantity", "Min threshold", "Location", "Supplier", "Category", "Unit", "Price per unit", "Low stock"}

// BuildWorkbook lays items out with the import column order first, so an
// exported file can be re-imported unchanged.
func BuildWorkbook(items []StockItem) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}

	for i, it := range items {
		row := i + 2
		barcode := ""
		if it.Barcode != nil {
			barcode = *it.Barcode
		}
		f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), it.Name)
		f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), barcode)
		f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), it.Quantity)
		f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), it.MinThreshold)
		f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), it.Location)
		f.SetCellValue(exportSheet, fmt.Sprintf("F%d", row), it.Supplier)
		f.SetCellValue(exportSheet, fmt.Sprintf("G%d", row), it.Category)
		f.SetCellValue(exportSheet, fmt.Sprintf("H%d", row), it.Unit)
		if it.PricePerUnit.Valid {
			f.SetCellValue(exportSheet, fmt.Sprintf("I%d", row), it.PricePerUnit.Decimal.String())
		}
		lowStock := "no"
		if it.LowStock() {
			lowStock = "yes"
		}
		f.SetCellValue(exportSheet, fmt.Sprintf("J%d", row), lowStock)
	}
	return f, nil
}

// ReadWorkbookRows returns the raw rows of the first worksheet of an xlsx
// file. Number formats such as #,##0 are not applied.
func ReadWorkbookRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &apperr.SourceUnavailableError{Source: "xlsx upload", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &apperr.SourceUnavailableError{Source: "xlsx upload", Err: fmt.Errorf("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &apperr.SourceUnavailableError{Source: "xlsx upload", Err: err}
	}
	return rows, nil
}
