package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recipe-discovery/internal/api/middleware"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// SaveRecipeRequest 新增或更新使用者食譜
type SaveRecipeRequest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CookMinutes int           `json:"cook_minutes"`
	Difficulty  string        `json:"difficulty"`
	Tags        []string      `json:"tags"`
	Ingredients []ItemRequest `json:"ingredients"`
	Steps       []string      `json:"steps"`
}

// HandleSaveRecipe POST /api/v1/recipes
func (h *Handler) HandleSaveRecipe(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var req SaveRecipeRequest
	if !h.bind(c, &req) {
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.fail(c, common.NewFieldValidationError("title", "is required"))
		return
	}
	if req.CookMinutes < 0 {
		h.fail(c, common.NewFieldValidationError("cook_minutes", "must not be negative"))
		return
	}
	difficulty := domain.Difficulty(strings.ToLower(strings.TrimSpace(req.Difficulty)))
	if difficulty != "" && !difficulty.Valid() {
		h.fail(c, common.NewFieldValidationError("difficulty", "must be easy, medium or hard"))
		return
	}

	ctx := c.Request.Context()
	ingredients, err := h.requiredIngredients(ctx, ownerID, req.Ingredients)
	if err != nil {
		h.fail(c, err)
		return
	}

	saved, err := h.deps.Recipes.SaveRecipe(ctx, ownerID, domain.Recipe{
		ID:          strings.TrimSpace(req.ID),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		CookMinutes: req.CookMinutes,
		Difficulty:  difficulty,
		Tags:        common.SortedLowerSet(req.Tags),
		Ingredients: ingredients,
		Steps:       req.Steps,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// HandleListRecipes GET /api/v1/recipes
func (h *Handler) HandleListRecipes(c *gin.Context) {
	recipes, err := h.deps.Recipes.ListOwned(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// HandleGetRecipe GET /api/v1/recipes/:id
func (h *Handler) HandleGetRecipe(c *gin.Context) {
	recipe, err := h.deps.Recipes.GetRecipe(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
