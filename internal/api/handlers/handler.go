package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/product"
	"recipe-discovery/internal/core/units"
	"recipe-discovery/internal/pkg/common"
)

// Discoverer 食譜探索
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) (*discovery.Response, error)
}

// ProductResolver 商品名稱解析
type ProductResolver interface {
	Resolve(ctx context.Context, name, ownerID string) (product.Ref, error)
}

// UnitReconciler 單位相容性判斷
type UnitReconciler interface {
	Reconcile(required, available domain.Quantity) units.Reconciliation
	ReconcileManual(required, available domain.Quantity, manualAmount float64) units.Reconciliation
}

// UnitRegistry 自由文字單位解析與內建單位列表
type UnitRegistry interface {
	Parse(label string) domain.Unit
	Units() []domain.Unit
}

// RecipeScorer 單一食譜的比對
type RecipeScorer interface {
	ScoreRecipe(recipe domain.Recipe, available []domain.AvailableItem) domain.MatchResult
}

// FridgeStore 使用者冰箱
type FridgeStore interface {
	ListItems(ctx context.Context, ownerID string) ([]domain.AvailableItem, error)
	AddItem(ctx context.Context, ownerID string, item domain.AvailableItem) (int64, error)
	// GetProduct 商品不存在或對使用者不可見時回傳 NotFoundError
	GetProduct(ctx context.Context, ownerID string, id int64) (domain.Product, error)
}

// RecipeStore 使用者食譜
type RecipeStore interface {
	SaveRecipe(ctx context.Context, ownerID string, r domain.Recipe) (domain.Recipe, error)
	GetRecipe(ctx context.Context, ownerID, id string) (domain.Recipe, error)
	ListOwned(ctx context.Context, ownerID string) ([]domain.Recipe, error)
}

// Dependencies 處理程序依賴
type Dependencies struct {
	Discoverer Discoverer
	Products   ProductResolver
	Units      UnitReconciler
	Registry   UnitRegistry
	Scorer     RecipeScorer
	Fridge     FridgeStore
	Recipes    RecipeStore
	Debug      bool
}

// Handler API 處理程序
type Handler struct {
	deps Dependencies
}

// NewHandler 創建處理程序
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// ItemRequest 冰箱品項或食材；ProductID 為 0 時以 Name 解析商品
type ItemRequest struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
}

// bind 解析 JSON，失敗時直接回應 400/413
func (h *Handler) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
				Code:    "REQUEST_TOO_LARGE",
				Message: "request body too large",
			})
			return false
		}
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		h.fail(c, common.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// fail 依錯誤類型回應
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, common.ErrConflict) {
		c.AbortWithStatusJSON(http.StatusConflict, common.ErrorResponse{
			Code:    common.ErrCodeConflict,
			Message: "resource belongs to another owner",
		})
		return
	}

	status, resp := common.ToErrorResponse(err, h.deps.Debug)
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// availableItems 將請求品項轉為冰箱品項，必要時解析商品名稱
func (h *Handler) availableItems(ctx context.Context, ownerID string, in []ItemRequest) ([]domain.AvailableItem, error) {
	items := make([]domain.AvailableItem, 0, len(in))
	for i, it := range in {
		if it.Quantity < 0 {
			return nil, common.NewFieldValidationError("available", "quantity must not be negative")
		}
		id, name, err := h.productID(ctx, ownerID, it, true)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, common.NewFieldValidationError("available", "item "+strconv.Itoa(i)+" needs product_id or name")
		}
		items = append(items, domain.AvailableItem{
			ProductID: id,
			Name:      name,
			Quantity:  it.Quantity,
			Unit:      h.deps.Registry.Parse(it.Unit),
		})
	}
	return items, nil
}

// requiredIngredients 將請求食材轉為所需食材；名稱無法解析時保留為未解析
func (h *Handler) requiredIngredients(ctx context.Context, ownerID string, in []ItemRequest) ([]domain.RequiredIngredient, error) {
	out := make([]domain.RequiredIngredient, 0, len(in))
	for i, it := range in {
		if it.Quantity < 0 {
			return nil, common.NewFieldValidationError("ingredients", "quantity must not be negative")
		}
		if it.ProductID == 0 && strings.TrimSpace(it.Name) == "" {
			return nil, common.NewFieldValidationError("ingredients", "ingredient "+strconv.Itoa(i)+" needs product_id or name")
		}
		id, name, err := h.productID(ctx, ownerID, it, false)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.RequiredIngredient{
			ProductID: id,
			Name:      name,
			Quantity:  it.Quantity,
			Unit:      h.deps.Registry.Parse(it.Unit),
		})
	}
	return out, nil
}

// productID 已指定 id 時確認使用者可見並帶回商品名稱，否則透過商品解析器取得
func (h *Handler) productID(ctx context.Context, ownerID string, it ItemRequest, strict bool) (int64, string, error) {
	name := strings.TrimSpace(it.Name)
	if it.ProductID != 0 {
		p, err := h.deps.Fridge.GetProduct(ctx, ownerID, it.ProductID)
		if err != nil {
			return 0, "", err
		}
		return p.ID, p.Name, nil
	}
	if name == "" {
		return 0, name, nil
	}
	ref, err := h.deps.Products.Resolve(ctx, name, ownerID)
	if err != nil {
		if !strict && common.IsValidationError(err) {
			return 0, name, nil
		}
		return 0, "", err
	}
	return ref.Product.ID, ref.Product.Name, nil
}
