package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultUnit         = "unit"
	DefaultMinThreshold = 10.0
	Uncategorized       = "Uncategorized"
)

type StockItem struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string              `gorm:"size:200;not null;index" json:"name"`
	Description  string              `gorm:"type:text" json:"description"`
	Quantity     float64             `gorm:"not null;default:0;check:chk_stock_quantity,quantity >= 0" json:"quantity"`
	Unit         string              `gorm:"size:50;not null;default:unit" json:"unit"`
	MinThreshold float64             `gorm:"not null;check:chk_stock_min_threshold,min_threshold >= 0" json:"min_threshold"`
	Location     string              `gorm:"size:100" json:"location"`
	Category     string              `gorm:"size:100;index" json:"category"`
	Supplier     string              `gorm:"size:200" json:"supplier"`
	PricePerUnit decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price_per_unit"`
	Barcode      *string             `gorm:"size:100;uniqueIndex" json:"barcode"`
	IsLowStock   bool                `gorm:"-" json:"is_low_stock"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *StockItem) AfterFind(tx *gorm.DB) error {
	s.IsLowStock = s.LowStock()
	return nil
}

func (s *StockItem) AfterSave(tx *gorm.DB) error {
	s.IsLowStock = s.LowStock()
	return nil
}

// LowStock reports quantity <= min threshold.
func (s *StockItem) LowStock() bool {
	return s.Quantity <= s.MinThreshold
}

// --- DTOs ---

type CreateStockItemRequest struct {
	Name         string              `json:"name" validate:"required,min=1,max=200"`
	Description  string              `json:"description"`
	Quantity     float64             `json:"quantity" validate:"gte=0"`
	Unit         string              `json:"unit" validate:"max=50"`
	MinThreshold *float64            `json:"min_threshold" validate:"omitempty,gte=0"`
	Location     string              `json:"location" validate:"max=100"`
	Category     string              `json:"category" validate:"max=100"`
	Supplier     string              `json:"supplier" validate:"max=200"`
	PricePerUnit decimal.NullDecimal `json:"price_per_unit"`
	Barcode      *string             `json:"barcode" validate:"omitempty,max=100"`
}

type UpdateStockItemRequest struct {
	Name         *string              `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string              `json:"description"`
	Quantity     *float64             `json:"quantity" validate:"omitempty,gte=0"`
	Unit         *string              `json:"unit" validate:"omitempty,max=50"`
	MinThreshold *float64             `json:"min_threshold" validate:"omitempty,gte=0"`
	Location     *string              `json:"location" validate:"omitempty,max=100"`
	Category     *string              `json:"category" validate:"omitempty,max=100"`
	Supplier     *string              `json:"supplier" validate:"omitempty,max=200"`
	PricePerUnit *decimal.NullDecimal `json:"price_per_unit"`
	Barcode      *string              `json:"barcode" validate:"omitempty,max=100"`
}

type ListFilter struct {
	Category string
	Location string
	Search   string
	LowStock bool
	Skip     int
	Limit    int
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type CategoryValuation struct {
	Category string          `json:"category"`
	Items    int             `json:"items"`
	Value    decimal.Decimal `json:"value"`
}

type Valuation struct {
	Total      decimal.Decimal     `json:"total"`
	Unpriced   int                 `json:"unpriced_items"`
	Categories []CategoryValuation `json:"categories"`
}

// ImportResult summarises one Sheet Import Engine batch.
type ImportResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	TotalRows int `json:"total_rows"`
}

type LowStockAlert struct {
	AlertCount int         `json:"alert_count"`
	Items      []StockItem `json:"items"`
}
