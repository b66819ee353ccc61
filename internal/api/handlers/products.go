package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipe-discovery/internal/api/middleware"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// ResolveProductRequest 商品解析請求
type ResolveProductRequest struct {
	Name string `json:"name"`
}

// QuantityRequest 數量與自由文字單位
type QuantityRequest struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// ReconcileRequest 單位比對請求；ManualAmount 以現有數量的單位表示
type ReconcileRequest struct {
	Required     QuantityRequest `json:"required"`
	Available    QuantityRequest `json:"available"`
	ManualAmount *float64        `json:"manual_amount"`
}

// HandleResolveProduct POST /api/v1/products/resolve
func (h *Handler) HandleResolveProduct(c *gin.Context) {
	var req ResolveProductRequest
	if !h.bind(c, &req) {
		return
	}

	ref, err := h.deps.Products.Resolve(c.Request.Context(), req.Name, middleware.OwnerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if ref.Created {
		status = http.StatusCreated
	}
	c.JSON(status, ref)
}

// HandleReconcileUnits POST /api/v1/units/reconcile
func (h *Handler) HandleReconcileUnits(c *gin.Context) {
	var req ReconcileRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Required.Amount < 0 || req.Available.Amount < 0 {
		h.fail(c, common.NewValidationError("amounts must not be negative"))
		return
	}

	required := domain.Quantity{Amount: req.Required.Amount, Unit: h.deps.Registry.Parse(req.Required.Unit)}
	available := domain.Quantity{Amount: req.Available.Amount, Unit: h.deps.Registry.Parse(req.Available.Unit)}

	if req.ManualAmount != nil {
		c.JSON(http.StatusOK, h.deps.Units.ReconcileManual(required, available, *req.ManualAmount))
		return
	}
	c.JSON(http.StatusOK, h.deps.Units.Reconcile(required, available))
}

// HandleListUnits GET /api/v1/units
func (h *Handler) HandleListUnits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"units": h.deps.Registry.Units()})
}
