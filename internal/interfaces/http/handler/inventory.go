package handler

import (
	"github.com/cafepos/backend/internal/application/pos"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryHandler serves the back-office inventory surface: the item
// catalog, the movement ledger, stock administration, and recipe mapping
// hygiene.
type InventoryHandler struct {
	BaseHandler
	items     *pos.ItemService
	movements *pos.MovementQueryService
	admin     *pos.StockAdminService
	mappings  *pos.MappingService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(
	items *pos.ItemService,
	movements *pos.MovementQueryService,
	admin *pos.StockAdminService,
	mappings *pos.MappingService,
) *InventoryHandler {
	return &InventoryHandler{
		items:     items,
		movements: movements,
		admin:     admin,
		mappings:  mappings,
	}
}

func (h *InventoryHandler) bindItemID(c *gin.Context) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID")
		return uuid.Nil, false
	}
	return itemID, true
}

// ListItems handles GET /inventory/items
func (h *InventoryHandler) ListItems(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}
	req.ApplyDefaults()

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	items, total, err := h.items.List(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// GetItem handles GET /inventory/items/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}
	itemID, ok := h.bindItemID(c)
	if !ok {
		return
	}

	item, err := h.items.Get(c.Request.Context(), storeID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// CreateItem handles POST /inventory/items
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var cmd pos.CreateItemCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid item request: "+err.Error())
		return
	}
	cmd.StoreID = storeID

	item, err := h.items.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItem handles PUT /inventory/items/:id
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}
	itemID, ok := h.bindItemID(c)
	if !ok {
		return
	}

	var cmd pos.UpdateItemCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid item request: "+err.Error())
		return
	}
	cmd.StoreID = storeID
	cmd.ItemID = itemID

	item, err := h.items.Update(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeactivateItem handles DELETE /inventory/items/:id
func (h *InventoryHandler) DeactivateItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}
	itemID, ok := h.bindItemID(c)
	if !ok {
		return
	}

	if err := h.items.Deactivate(c.Request.Context(), storeID, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListLowStock handles GET /inventory/items/low-stock
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}
	req.ApplyDefaults()

	items, err := h.movements.LowStockItems(c.Request.Context(), storeID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// ListMovements handles GET /inventory/movements with item, type, reference
// and date-range filters.
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var query pos.MovementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid movement query: "+err.Error())
		return
	}

	page, err := h.movements.QueryMovements(c.Request.Context(), storeID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetMovementsByTransaction handles GET /inventory/movements/transaction/:reference_id
func (h *InventoryHandler) GetMovementsByTransaction(c *gin.Context) {
	referenceID := c.Param("reference_id")
	if referenceID == "" {
		h.BadRequest(c, "Reference ID is required")
		return
	}

	records, err := h.movements.FindByTransaction(c.Request.Context(), referenceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// AdjustStock handles POST /inventory/items/:id/adjust: set the quantity to a
// physically counted value, recording the difference.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}
	itemID, ok := h.bindItemID(c)
	if !ok {
		return
	}

	var cmd pos.AdjustStockCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid adjustment request: "+err.Error())
		return
	}
	cmd.StoreID = storeID
	cmd.ItemID = itemID
	if cmd.ActorID == nil {
		cmd.ActorID = getActorID(c)
	}

	movement, err := h.admin.Adjust(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if movement == nil {
		// Counted quantity matched the books; nothing was written
		h.Success(c, gin.H{"changed": false})
		return
	}
	h.Success(c, movement)
}

// RestockItem handles POST /inventory/items/:id/restock
func (h *InventoryHandler) RestockItem(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}
	itemID, ok := h.bindItemID(c)
	if !ok {
		return
	}

	var cmd pos.RestockCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid restock request: "+err.Error())
		return
	}
	cmd.StoreID = storeID
	cmd.ItemID = itemID
	if cmd.ActorID == nil {
		cmd.ActorID = getActorID(c)
	}

	movement, err := h.admin.Restock(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// TransferStock handles POST /inventory/transfers. The source store is the
// caller's own store from the JWT; the destination comes from the body.
func (h *InventoryHandler) TransferStock(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var cmd pos.TransferCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid transfer request: "+err.Error())
		return
	}
	cmd.FromStoreID = storeID
	if cmd.ActorID == nil {
		cmd.ActorID = getActorID(c)
	}

	result, err := h.admin.Transfer(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ValidateMappings handles GET /inventory/mappings/validate: lists recipe
// lines bound to another store's inventory.
func (h *InventoryHandler) ValidateMappings(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	foreign, err := h.mappings.DetectForeignMappings(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"valid":            len(foreign) == 0,
		"foreign_mappings": foreign,
	})
}

// RepairMappings handles POST /inventory/mappings/repair: rewrites foreign
// lines to same-named local items and reports what could not be matched.
func (h *InventoryHandler) RepairMappings(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	report, err := h.mappings.RepairForeignMappings(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
