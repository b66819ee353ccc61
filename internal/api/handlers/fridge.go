package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipe-discovery/internal/api/middleware"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// HandleListFridge GET /api/v1/fridge
func (h *Handler) HandleListFridge(c *gin.Context) {
	items, err := h.deps.Fridge.ListItems(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleAddFridgeItem POST /api/v1/fridge
func (h *Handler) HandleAddFridgeItem(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var req ItemRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Quantity <= 0 {
		h.fail(c, common.NewFieldValidationError("quantity", "must be positive"))
		return
	}

	ctx := c.Request.Context()
	items, err := h.availableItems(ctx, ownerID, []ItemRequest{req})
	if err != nil {
		h.fail(c, err)
		return
	}
	item := items[0]

	id, err := h.deps.Fridge.AddItem(ctx, ownerID, item)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, struct {
		ID int64 `json:"id"`
		domain.AvailableItem
	}{ID: id, AvailableItem: item})
}
