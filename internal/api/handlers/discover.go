package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-discovery/internal/api/middleware"
	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// DiscoverRequest 食譜探索請求；Available 省略時使用冰箱內容
type DiscoverRequest struct {
	Available   []ItemRequest      `json:"available"`
	ProductIDs  []int64            `json:"product_ids"`
	Preferences domain.Preferences `json:"preferences"`
	Source      string             `json:"source"`
}

// MatchRequest 單一食譜比對；RecipeID 與 Ingredients 擇一
type MatchRequest struct {
	RecipeID    string        `json:"recipe_id"`
	Ingredients []ItemRequest `json:"ingredients"`
	Available   []ItemRequest `json:"available"`
}

// MatchResponse 比對結果
type MatchResponse struct {
	RecipeID string             `json:"recipe_id,omitempty"`
	Match    domain.MatchResult `json:"match"`
}

// HandleDiscover POST /api/v1/discover
func (h *Handler) HandleDiscover(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var req DiscoverRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	available, err := h.loadAvailable(ctx, ownerID, req.Available)
	if err != nil {
		h.fail(c, err)
		return
	}

	common.LogInfo("開始處理食譜探索請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("owner_id", ownerID),
		zap.Int("available", len(available)),
		zap.String("source", req.Source),
	)

	resp, err := h.deps.Discoverer.Discover(ctx, discovery.Request{
		OwnerID:     ownerID,
		Available:   available,
		ProductIDs:  req.ProductIDs,
		Preferences: req.Preferences,
		Source:      strings.TrimSpace(req.Source),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleMatch POST /api/v1/match
func (h *Handler) HandleMatch(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var req MatchRequest
	if !h.bind(c, &req) {
		return
	}

	recipeID := strings.TrimSpace(req.RecipeID)
	if (recipeID == "") == (len(req.Ingredients) == 0) {
		h.fail(c, common.NewValidationError("exactly one of recipe_id or ingredients is required"))
		return
	}

	ctx := c.Request.Context()
	var recipe domain.Recipe
	if recipeID != "" {
		r, err := h.deps.Recipes.GetRecipe(ctx, ownerID, recipeID)
		if err != nil {
			h.fail(c, err)
			return
		}
		recipe = r
	} else {
		ingredients, err := h.requiredIngredients(ctx, ownerID, req.Ingredients)
		if err != nil {
			h.fail(c, err)
			return
		}
		recipe = domain.Recipe{Ingredients: ingredients}
	}

	available, err := h.loadAvailable(ctx, ownerID, req.Available)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		RecipeID: recipeID,
		Match:    h.deps.Scorer.ScoreRecipe(recipe, available),
	})
}

// loadAvailable 請求有帶品項時使用請求內容，否則讀取冰箱
func (h *Handler) loadAvailable(ctx context.Context, ownerID string, in []ItemRequest) ([]domain.AvailableItem, error) {
	if len(in) > 0 {
		return h.availableItems(ctx, ownerID, in)
	}
	return h.deps.Fridge.ListItems(ctx, ownerID)
}
