package stock

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
)

// SheetReader fetches the cell values of a spreadsheet range.
type SheetReader interface {
	GetValues(ctx context.Context, sheetID, rng string) ([][]string, error)
}

// RowSource yields the rows of one import batch.
type RowSource func(ctx context.Context) ([][]string, error)

// SheetRows adapts a SheetReader range into a RowSource.
func SheetRows(r SheetReader, sheetID, rng string) RowSource {
	return func(ctx context.Context) ([][]string, error) {
		return r.GetValues(ctx, sheetID, rng)
	}
}

// Importer runs the Sheet Import Engine against a row source and records
// the run in the sync history.
type Importer struct {
	stock   *StockService
	history *services.SyncHistory
}

func NewImporter(stock *StockService, history *services.SyncHistory) *Importer {
	return &Importer{stock: stock, history: history}
}

func (i *Importer) Import(ctx context.Context, userID, target string, source RowSource) (*ImportResult, error) {
	started := time.Now()

	res, err := i.run(ctx, source)

	if i.history != nil {
		sum := services.RunSummary{Kind: models.SyncKindStockImport, UserID: userID, Target: target}
		if res != nil {
			sum.Imported = res.Created
			sum.Updated = res.Updated
			sum.Total = res.TotalRows
			sum.Details = map[string]interface{}{"skipped": res.Skipped}
		}
		i.history.Record(ctx, started, sum, err)
	}
	return res, err
}

func (i *Importer) run(ctx context.Context, source RowSource) (*ImportResult, error) {
	rows, err := source(ctx)
	if err != nil {
		return nil, err
	}
	return i.stock.ImportRows(ctx, rows)
}
