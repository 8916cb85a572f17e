package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsufficientStockError reports a guarded decrement that failed at commit
// time because another terminal consumed the stock after the advisory check.
// It names the limiting item so the cashier can reduce or remove that line.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q at commit: requested %s, available %s",
		e.ItemName, e.Requested.String(), e.Available.String())
}

// Code returns the machine-readable error code
func (e *InsufficientStockError) Code() string {
	return "INSUFFICIENT_STOCK_AT_COMMIT"
}

// UnmappedIngredientError blocks a sale whose recipe has lines without an
// inventory item binding. The ingredient is named so an operator can repair
// the recipe directly.
type UnmappedIngredientError struct {
	RecipeID       uuid.UUID
	ProductID      uuid.UUID
	IngredientName string
}

// Error implements the error interface
func (e *UnmappedIngredientError) Error() string {
	return fmt.Sprintf("ingredient %q of recipe %s has no inventory mapping", e.IngredientName, e.RecipeID)
}

// Code returns the machine-readable error code
func (e *UnmappedIngredientError) Code() string {
	return "UNMAPPED_INGREDIENT"
}

// ForeignMappingError blocks a sale whose recipe references inventory owned
// by a different store than the one selling.
type ForeignMappingError struct {
	RecipeID       uuid.UUID
	LineID         uuid.UUID
	IngredientName string
	ItemStoreID    uuid.UUID
	SellingStoreID uuid.UUID
}

// Error implements the error interface
func (e *ForeignMappingError) Error() string {
	return fmt.Sprintf("ingredient %q is mapped to inventory of store %s, not selling store %s",
		e.IngredientName, e.ItemStoreID, e.SellingStoreID)
}

// Code returns the machine-readable error code
func (e *ForeignMappingError) Code() string {
	return "FOREIGN_MAPPING"
}

// RecipeNotFoundError marks a product with no active recipe. It is
// recoverable: the sale proceeds without inventory tracking and the condition
// is logged.
type RecipeNotFoundError struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
}

// Error implements the error interface
func (e *RecipeNotFoundError) Error() string {
	return fmt.Sprintf("no active recipe for product %s", e.ProductID)
}

// Code returns the machine-readable error code
func (e *RecipeNotFoundError) Code() string {
	return "RECIPE_NOT_FOUND"
}
