package service

import (
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ConversionResult represents the result of converting a recipe-unit quantity
// into the canonical stock unit of an inventory item.
type ConversionResult struct {
	// The quantity in the recipe unit (what was input)
	RecipeQuantity decimal.Decimal
	// The conversion factor: recipe units that equal one canonical stock unit
	Factor decimal.Decimal
	// The quantity in canonical stock units (RecipeQuantity / Factor, possibly rounded up)
	StockQuantity decimal.Decimal
	// The canonical stock unit code
	StockUnitCode string
	// Rounded is true when a non-fractional stock unit forced rounding up
	Rounded bool
}

// UnitConversionService converts recipe-declared quantities into canonical
// stock units. This is a domain service: it operates on recipe lines and
// inventory items without belonging to either aggregate.
type UnitConversionService struct{}

// NewUnitConversionService creates a new unit conversion service
func NewUnitConversionService() *UnitConversionService {
	return &UnitConversionService{}
}

// ConvertToStockUnit converts a recipe-unit quantity to the canonical stock
// unit using the line's conversion factor.
//
// Example: a recipe consumes 2 pieces per serving and the item is stocked in
// packs of 20 pieces (factor = 20), so one serving consumes 0.1 pack.
//
// Quantities for items stocked in a non-fractional unit are rounded up to the
// next whole unit, since a partial unit cannot be consumed.
func (s *UnitConversionService) ConvertToStockUnit(
	quantity decimal.Decimal,
	factor decimal.Decimal,
	stockUnit valueobject.Unit,
) (*ConversionResult, error) {
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if err := s.ValidateConversionFactor(factor); err != nil {
		return nil, err
	}

	stockQuantity := quantity.Div(factor).Round(4)
	rounded := false
	if !stockUnit.Fractional() && !stockQuantity.Equal(stockQuantity.Ceil()) {
		stockQuantity = stockQuantity.Ceil()
		rounded = true
	}

	return &ConversionResult{
		RecipeQuantity: quantity,
		Factor:         factor,
		StockQuantity:  stockQuantity,
		StockUnitCode:  stockUnit.Code(),
		Rounded:        rounded,
	}, nil
}

// RoundForUnit rounds an aggregated stock quantity for the target unit.
// Totals for non-fractional units are rounded up to the next whole unit;
// the returned bool reports whether rounding changed the value. Aggregation
// rounds once per item, after summing across the cart, so two lines sharing
// an ingredient are not each rounded up separately.
func (s *UnitConversionService) RoundForUnit(quantity decimal.Decimal, stockUnit valueobject.Unit) (decimal.Decimal, bool) {
	quantity = quantity.Round(4)
	if !stockUnit.Fractional() && !quantity.Equal(quantity.Ceil()) {
		return quantity.Ceil(), true
	}
	return quantity, false
}

// ConvertFromStockUnit converts a canonical stock quantity back into recipe
// units (used by reporting to display ledger rows in recipe terms).
func (s *UnitConversionService) ConvertFromStockUnit(
	stockQuantity decimal.Decimal,
	factor decimal.Decimal,
) (decimal.Decimal, error) {
	if stockQuantity.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if err := s.ValidateConversionFactor(factor); err != nil {
		return decimal.Zero, err
	}
	return stockQuantity.Mul(factor).Round(4), nil
}

// ValidateConversionFactor validates a recipe line's conversion factor
func (s *UnitConversionService) ValidateConversionFactor(factor decimal.Decimal) error {
	if factor.IsZero() {
		return shared.NewDomainError("INVALID_CONVERSION_FACTOR", "Conversion factor cannot be zero")
	}
	if factor.IsNegative() {
		return shared.NewDomainError("INVALID_CONVERSION_FACTOR", "Conversion factor cannot be negative")
	}
	return nil
}
