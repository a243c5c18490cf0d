package stock

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/identity"
	"github.com/gofiber/fiber/v2"
)

type StockHandler struct {
	service *StockService
}

func NewStockHandler(service *StockService) *StockHandler {
	return &StockHandler{service: service}
}

func (h *StockHandler) Create(c *fiber.Ctx) error {
	var req CreateStockItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	item, err := h.service.Create(req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to create stock item")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *StockHandler) List(c *fiber.Ctx) error {
	items, err := h.service.List(ListFilter{
		Category: c.Query("category"),
		Location: c.Query("location"),
		Search:   c.Query("search"),
		LowStock: c.QueryBool("low_stock", false),
		Skip:     c.QueryInt("skip", 0),
		Limit:    c.QueryInt("limit", 100),
	})
	if err != nil {
		return apperr.Respond(c, err, "Failed to list stock items")
	}
	return c.JSON(items)
}

func (h *StockHandler) Get(c *fiber.Ctx) error {
	item, err := h.service.Get(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err, "Failed to get stock item")
	}
	return c.JSON(item)
}

func (h *StockHandler) Update(c *fiber.Ctx) error {
	var req UpdateStockItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	item, err := h.service.Update(c.Params("id"), req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to update stock item")
	}
	return c.JSON(item)
}

func (h *StockHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return apperr.Respond(c, err, "Failed to delete stock item")
	}
	return c.JSON(dto.MessageResponse{Message: "Stock item deleted"})
}

func (h *StockHandler) AdjustQuantity(c *fiber.Ctx) error {
	delta, err := strconv.ParseFloat(c.Query("adjustment"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "adjustment query parameter must be a number",
		})
	}

	item, err := h.service.AdjustQuantity(c.Params("id"), delta)
	if err != nil {
		return apperr.Respond(c, err, "Failed to adjust quantity")
	}
	return c.JSON(item)
}

func (h *StockHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.service.LowStock()
	if err != nil {
		return apperr.Respond(c, err, "Failed to list low stock items")
	}
	return c.JSON(items)
}

func (h *StockHandler) ByCategory(c *fiber.Ctx) error {
	counts, err := h.service.CountByCategory()
	if err != nil {
		return apperr.Respond(c, err, "Failed to count stock by category")
	}
	return c.JSON(counts)
}

func (h *StockHandler) Valuation(c *fiber.Ctx) error {
	v, err := h.service.Valuation()
	if err != nil {
		return apperr.Respond(c, err, "Failed to compute valuation")
	}
	return c.JSON(v)
}

func (h *StockHandler) ExportXLSX(c *fiber.Ctx) error {
	items, err := h.service.All()
	if err != nil {
		return apperr.Respond(c, err, "Failed to fetch stock for export")
	}

	f, err := BuildWorkbook(items)
	if err != nil {
		return apperr.Respond(c, err, "Failed to build Excel file")
	}
	defer f.Close()

	fileName := fmt.Sprintf("stock_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+fileName)
	return f.Write(c)
}

// SheetsHandler serves the spreadsheet import endpoints.
type SheetsHandler struct {
	stock     *StockService
	importer  *Importer
	newReader func(ctx context.Context) (SheetReader, error)
	sheetID   string
	sheetRng  string
}

func (h *SheetsHandler) SyncStock(c *fiber.Ctx) error {
	if h.sheetID == "" {
		return apperr.Respond(c, &apperr.ConfigurationError{Setting: "GOOGLE_SHEETS_ID"}, "Failed to sync stock")
	}
	reader, err := h.newReader(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err, "Failed to sync stock")
	}

	userID := identity.GetUserID(c)
	res, err := h.importer.Import(c.UserContext(), userID, "google_sheets:"+h.sheetID, SheetRows(reader, h.sheetID, h.sheetRng))
	if err != nil {
		return apperr.Respond(c, err, "Failed to sync stock")
	}

	slog.Info("stock synced from sheet", "user_id", userID, "created", res.Created, "updated", res.Updated, "total_rows", res.TotalRows)
	return c.JSON(res)
}

func (h *SheetsHandler) ImportXLSX(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "multipart field 'file' is required",
		})
	}
	file, err := fh.Open()
	if err != nil {
		return apperr.Respond(c, &apperr.SourceUnavailableError{Source: "xlsx upload", Err: err}, "Failed to import workbook")
	}
	defer file.Close()

	source := func(context.Context) ([][]string, error) { return ReadWorkbookRows(file) }
	res, err := h.importer.Import(c.UserContext(), identity.GetUserID(c), "xlsx:"+fh.Filename, source)
	if err != nil {
		return apperr.Respond(c, err, "Failed to import workbook")
	}
	return c.JSON(res)
}

func (h *SheetsHandler) StockWithAlerts(c *fiber.Ctx) error {
	items, err := h.stock.LowStock()
	if err != nil {
		return apperr.Respond(c, err, "Failed to list stock alerts")
	}
	return c.JSON(LowStockAlert{AlertCount: len(items), Items: items})
}

// LowStockWebhook is called by a sheet automation; it answers with the
// current alert set so the caller can notify.
func (h *SheetsHandler) LowStockWebhook(c *fiber.Ctx) error {
	items, err := h.stock.LowStock()
	if err != nil {
		return apperr.Respond(c, err, "Failed to list stock alerts")
	}
	if len(items) > 0 {
		slog.Warn("low stock alert", "alert_count", len(items))
	}
	return c.JSON(fiber.Map{
		"status":      "received",
		"alert_count": len(items),
		"items":       items,
	})
}
