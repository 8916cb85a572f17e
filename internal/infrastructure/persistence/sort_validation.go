package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ItemSortFields contains allowed sort fields for inventory items
var ItemSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"quantity":     true,
	"min_quantity": true,
	"unit_cost":    true,
	"active":       true,
}

// MovementSortFields contains allowed sort fields for movement records
var MovementSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"occurred_at":       true,
	"movement_type":     true,
	"quantity_change":   true,
	"reference_id":      true,
	"inventory_item_id": true,
}

// RecipeSortFields contains allowed sort fields for recipes
var RecipeSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"product_id": true,
	"active":     true,
}

// QueueSortFields contains allowed sort fields for queued deductions
var QueueSortFields = map[string]bool{
	"id":          true,
	"seq":         true,
	"enqueued_at": true,
	"sale_at":     true,
	"status":      true,
}
