package handler

import (
	"github.com/cafepos/backend/internal/application/pos"
	"github.com/gin-gonic/gin"
)

// POSHandler serves the point-of-sale surface: advisory availability checks,
// sale commits, and the offline deduction queue.
type POSHandler struct {
	BaseHandler
	availability *pos.AvailabilityService
	deduction    *pos.DeductionService
	replay       *pos.ReplayService
}

// NewPOSHandler creates a new POSHandler
func NewPOSHandler(
	availability *pos.AvailabilityService,
	deduction *pos.DeductionService,
	replay *pos.ReplayService,
) *POSHandler {
	return &POSHandler{
		availability: availability,
		deduction:    deduction,
		replay:       replay,
	}
}

// CheckAvailability handles POST /pos/availability. The result is advisory:
// stock can change between the check and the commit, which re-verifies.
func (h *POSHandler) CheckAvailability(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var query pos.AvailabilityQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		h.BadRequest(c, "Invalid availability request: "+err.Error())
		return
	}
	query.StoreID = storeID

	result, err := h.availability.Check(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CommitSale handles POST /pos/sales. The transaction ID is the idempotency
// key: resubmitting a committed sale returns the recorded result without
// deducting again.
func (h *POSHandler) CommitSale(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var cmd pos.SaleCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid sale request: "+err.Error())
		return
	}
	cmd.StoreID = storeID
	if cmd.ActorID == nil {
		cmd.ActorID = getActorID(c)
	}

	result, err := h.deduction.CommitSale(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EnqueueSale handles POST /pos/queue: durable capture of a sale made while
// the terminal was offline.
func (h *POSHandler) EnqueueSale(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var cmd pos.SaleCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BadRequest(c, "Invalid queue request: "+err.Error())
		return
	}
	cmd.StoreID = storeID
	if cmd.ActorID == nil {
		cmd.ActorID = getActorID(c)
	}

	entry, err := h.replay.Enqueue(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// ListQueue handles GET /pos/queue. The status query selects pending
// (default) or conflicted entries.
func (h *POSHandler) ListQueue(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	var entries []pos.QueueEntryResponse
	switch status := c.DefaultQuery("status", "pending"); status {
	case "pending":
		entries, err = h.replay.ListPending(c.Request.Context(), storeID)
	case "conflicted":
		entries, err = h.replay.ListConflicted(c.Request.Context(), storeID)
	default:
		h.BadRequest(c, "Unknown queue status filter: "+status)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// ReplayQueue handles POST /pos/queue/replay: applies the store's pending
// entries in enqueue order and reports per-entry outcomes.
func (h *POSHandler) ReplayQueue(c *gin.Context) {
	storeID, err := getStoreID(c)
	if err != nil {
		h.Unauthorized(c, "Store context required")
		return
	}

	report, err := h.replay.Replay(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// CancelQueued handles DELETE /pos/queue/:transaction_id for entries that
// have not been replayed yet.
func (h *POSHandler) CancelQueued(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		h.BadRequest(c, "Transaction ID is required")
		return
	}

	if err := h.replay.Cancel(c.Request.Context(), transactionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ResolveConflict handles POST /pos/queue/:transaction_id/resolve after an
// operator has compensated a conflicted entry.
func (h *POSHandler) ResolveConflict(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		h.BadRequest(c, "Transaction ID is required")
		return
	}

	entry, err := h.replay.ResolveConflict(c.Request.Context(), transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// AbandonConflict handles POST /pos/queue/:transaction_id/abandon for
// conflicted entries whose sale was voided.
func (h *POSHandler) AbandonConflict(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		h.BadRequest(c, "Transaction ID is required")
		return
	}

	entry, err := h.replay.AbandonConflict(c.Request.Context(), transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
