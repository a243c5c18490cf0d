package stock

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/google"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StockPlugin struct {
	history   *services.SyncHistory
	newReader func(ctx context.Context) (SheetReader, error)
}

// New builds the plugin. A nil history disables run recording.
func New(history *services.SyncHistory) *StockPlugin {
	return &StockPlugin{history: history}
}

// WithSheetReader replaces the Google Sheets client, mainly for tests.
func (p *StockPlugin) WithSheetReader(fn func(ctx context.Context) (SheetReader, error)) *StockPlugin {
	p.newReader = fn
	return p
}

func (p *StockPlugin) ID() string { return "stock" }

func (p *StockPlugin) Models() []interface{} {
	return []interface{}{&StockItem{}}
}

func (p *StockPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewStockService(db)
	handler := NewStockHandler(svc)

	newReader := p.newReader
	if newReader == nil {
		newReader = func(ctx context.Context) (SheetReader, error) {
			c, err := google.NewSheetsClient(ctx, cfg.SheetsAPIKey)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	sheets := &SheetsHandler{
		stock:     svc,
		importer:  NewImporter(svc, p.history),
		newReader: newReader,
		sheetID:   cfg.SheetsID,
		sheetRng:  cfg.SheetsRange,
	}

	router.Get("/stock/stats/low-stock", handler.LowStock)
	router.Get("/stock/stats/by-category", handler.ByCategory)
	router.Get("/stock/stats/valuation", handler.Valuation)
	router.Get("/stock/export.xlsx", handler.ExportXLSX)
	router.Post("/stock", handler.Create)
	router.Get("/stock", handler.List)
	router.Get("/stock/:id", handler.Get)
	router.Put("/stock/:id", handler.Update)
	router.Delete("/stock/:id", handler.Delete)
	router.Post("/stock/:id/adjust-quantity", handler.AdjustQuantity)

	router.Get("/sheets/sync-stock", sheets.SyncStock)
	router.Post("/sheets/import-xlsx", sheets.ImportXLSX)
	router.Get("/sheets/stock-with-alerts", sheets.StockWithAlerts)
	router.Post("/sheets/webhook/low-stock-alert", sheets.LowStockWebhook)
}
