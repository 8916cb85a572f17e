package recipe

import (
	"time"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe maps a sellable product (optionally a specific variation) to the raw
// material ingredients it consumes. It is the aggregate root for ingredient
// lines. Recipes are edited by the back-office subsystem; this core only reads
// them with the single exception of mapping repair on individual lines.
type Recipe struct {
	shared.StoreAggregateRoot
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_store_product,priority:2"`
	VariationID      *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_recipe_store_product,priority:3"`
	TemplateID       *uuid.UUID      `gorm:"type:uuid;index"` // Store-independent master recipe this was derived from
	ServingsPerBatch decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	Active           bool            `gorm:"not null;default:true"`

	Lines []IngredientLine `gorm:"foreignKey:RecipeID;references:ID"`
}

// TableName returns the table name for GORM
func (Recipe) TableName() string {
	return "recipes"
}

// NewRecipe creates a new recipe for a store-product combination
func NewRecipe(storeID, productID uuid.UUID, servingsPerBatch decimal.Decimal) (*Recipe, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if servingsPerBatch.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_SERVINGS", "Servings per batch must be positive")
	}

	return &Recipe{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		ProductID:          productID,
		ServingsPerBatch:   servingsPerBatch,
		Active:             true,
		Lines:              make([]IngredientLine, 0),
	}, nil
}

// AddLine appends an ingredient line to the recipe
func (r *Recipe) AddLine(line IngredientLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	line.RecipeID = r.ID
	r.Lines = append(r.Lines, line)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// HasUnmappedLines returns true if any line lacks an inventory item binding
func (r *Recipe) HasUnmappedLines() bool {
	for i := range r.Lines {
		if r.Lines[i].IsUnmapped() {
			return true
		}
	}
	return false
}

// IngredientLine declares how much of one inventory item a single serving of
// the recipe consumes. QuantityPerServing is expressed in the recipe unit;
// ConversionFactor is the recipe-unit quantity that equals one canonical
// stock unit of the referenced item.
//
// A line with a nil InventoryItemID is "unmapped"; a line whose item belongs
// to a different store than the recipe is "foreign-mapped". Both block a sale
// until repaired.
type IngredientLine struct {
	shared.BaseEntity
	RecipeID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID    *uuid.UUID      `gorm:"type:uuid;index"`
	IngredientName     string          `gorm:"type:varchar(120);not null"`
	QuantityPerServing decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RecipeUnit         string          `gorm:"type:varchar(20);not null"`
	ConversionFactor   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (IngredientLine) TableName() string {
	return "ingredient_lines"
}

// NewIngredientLine creates a new ingredient line
func NewIngredientLine(ingredientName string, itemID *uuid.UUID, quantityPerServing decimal.Decimal, recipeUnit string, conversionFactor decimal.Decimal) (IngredientLine, error) {
	line := IngredientLine{
		BaseEntity:         shared.NewBaseEntity(),
		InventoryItemID:    itemID,
		IngredientName:     ingredientName,
		QuantityPerServing: quantityPerServing,
		RecipeUnit:         recipeUnit,
		ConversionFactor:   conversionFactor,
	}
	if err := line.Validate(); err != nil {
		return IngredientLine{}, err
	}
	return line, nil
}

// Validate checks the line's invariants
func (l *IngredientLine) Validate() error {
	if l.IngredientName == "" {
		return shared.NewDomainError("INVALID_INGREDIENT", "Ingredient name cannot be empty")
	}
	if l.QuantityPerServing.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity per serving must be positive")
	}
	if l.ConversionFactor.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_CONVERSION_FACTOR", "Conversion factor must be positive")
	}
	return nil
}

// IsUnmapped returns true if the line has no inventory item binding
func (l *IngredientLine) IsUnmapped() bool {
	return l.InventoryItemID == nil || *l.InventoryItemID == uuid.Nil
}

// Remap rewrites the line's inventory item binding (used by mapping repair)
func (l *IngredientLine) Remap(itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	l.InventoryItemID = &itemID
	l.UpdatedAt = time.Now()
	return nil
}
