package stock

import (
	"errors"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrDuplicateBarcode = errors.New("barcode already used by another item")

type StockService struct {
	db *gorm.DB
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db}
}

func (s *StockService) Create(req CreateStockItemRequest) (*StockItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validatePrice(req.PricePerUnit); err != nil {
		return nil, err
	}

	item := StockItem{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		MinThreshold: DefaultMinThreshold,
		Location:     req.Location,
		Category:     req.Category,
		Supplier:     req.Supplier,
		PricePerUnit: req.PricePerUnit,
		Barcode:      normalizeBarcode(req.Barcode),
	}
	if item.Unit == "" {
		item.Unit = DefaultUnit
	}
	if req.MinThreshold != nil {
		item.MinThreshold = *req.MinThreshold
	}

	if err := s.ensureBarcodeFree(item.Barcode, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *StockService) Get(id string) (*StockItem, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("stock item", id)
	}

	var item StockItem
	if err := s.db.First(&item, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("stock item", id)
		}
		return nil, err
	}
	return &item, nil
}

func (s *StockService) List(f ListFilter) ([]StockItem, error) {
	q := s.db.Model(&StockItem{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(barcode) LIKE ?", like, like)
	}
	if f.LowStock {
		q = q.Where("quantity <= min_threshold")
	}

	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Skip < 0 {
		f.Skip = 0
	}

	var items []StockItem
	err := q.Order("name ASC").Offset(f.Skip).Limit(f.Limit).Find(&items).Error
	return items, err
}

// All returns every item by name, for exports.
func (s *StockService) All() ([]StockItem, error) {
	var items []StockItem
	err := s.db.Order("name ASC").Find(&items).Error
	return items, err
}

func (s *StockService) Update(id string, req UpdateStockItemRequest) (*StockItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.PricePerUnit != nil {
		if err := validatePrice(*req.PricePerUnit); err != nil {
			return nil, err
		}
	}

	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.MinThreshold != nil {
		item.MinThreshold = *req.MinThreshold
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Supplier != nil {
		item.Supplier = *req.Supplier
	}
	if req.PricePerUnit != nil {
		item.PricePerUnit = *req.PricePerUnit
	}
	if req.Barcode != nil {
		item.Barcode = normalizeBarcode(req.Barcode)
		if err := s.ensureBarcodeFree(item.Barcode, item.ID); err != nil {
			return nil, err
		}
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *StockService) Delete(id string) error {
	item, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Delete(item).Error
}

// AdjustQuantity adds a signed delta; the result never drops below zero.
func (s *StockService) AdjustQuantity(id string, delta float64) (*StockItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	item.Quantity += delta
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	if err := s.db.Model(item).Update("quantity", item.Quantity).Error; err != nil {
		return nil, err
	}
	item.IsLowStock = item.LowStock()
	return item, nil
}

// LowStock returns every item with quantity <= min_threshold.
func (s *StockService) LowStock() ([]StockItem, error) {
	var items []StockItem
	err := s.db.Where("quantity <= min_threshold").Order("quantity ASC, name ASC").Find(&items).Error
	return items, err
}

func (s *StockService) CountLowStock() (int64, error) {
	var n int64
	err := s.db.Model(&StockItem{}).Where("quantity <= min_threshold").Count(&n).Error
	return n, err
}

func (s *StockService) Count() (int64, error) {
	var n int64
	err := s.db.Model(&StockItem{}).Count(&n).Error
	return n, err
}

func (s *StockService) CountByCategory() ([]CategoryCount, error) {
	var rows []CategoryCount
	err := s.db.Model(&StockItem{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	merged := map[string]int64{}
	for _, r := range rows {
		merged[categoryName(r.Category)] += r.Count
	}
	out := make([]CategoryCount, 0, len(merged))
	for cat, n := range merged {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Valuation sums quantity * price per category. Items without a price are
// counted as unpriced and contribute nothing.
func (s *StockService) Valuation() (*Valuation, error) {
	var items []StockItem
	if err := s.db.Select("category, quantity, price_per_unit").Find(&items).Error; err != nil {
		return nil, err
	}

	byCat := map[string]*CategoryValuation{}
	v := &Valuation{Total: decimal.Zero}
	for _, it := range items {
		name := categoryName(it.Category)
		cv, ok := byCat[name]
		if !ok {
			cv = &CategoryValuation{Category: name, Value: decimal.Zero}
			byCat[name] = cv
		}
		cv.Items++
		if !it.PricePerUnit.Valid {
			v.Unpriced++
			continue
		}
		line := it.PricePerUnit.Decimal.Mul(decimal.NewFromFloat(it.Quantity))
		cv.Value = cv.Value.Add(line)
		v.Total = v.Total.Add(line)
	}

	v.Categories = make([]CategoryValuation, 0, len(byCat))
	for _, cv := range byCat {
		cv.Value = cv.Value.Round(2)
		v.Categories = append(v.Categories, *cv)
	}
	sort.Slice(v.Categories, func(i, j int) bool { return v.Categories[i].Category < v.Categories[j].Category })
	v.Total = v.Total.Round(2)
	return v, nil
}

func (s *StockService) ensureBarcodeFree(barcode *string, self uuid.UUID) error {
	if barcode == nil {
		return nil
	}
	var n int64
	if err := s.db.Model(&StockItem{}).Where("barcode = ? AND id <> ?", *barcode, self).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return &apperr.ValidationError{Fields: map[string]string{"barcode": ErrDuplicateBarcode.Error()}}
	}
	return nil
}

func validatePrice(p decimal.NullDecimal) error {
	if p.Valid && p.Decimal.IsNegative() {
		return &apperr.ValidationError{Fields: map[string]string{"price_per_unit": "must be greater than or equal to 0"}}
	}
	return nil
}

func normalizeBarcode(b *string) *string {
	if b == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*b)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func categoryName(c string) string {
	if strings.TrimSpace(c) == "" {
		return Uncategorized
	}
	return c
}
