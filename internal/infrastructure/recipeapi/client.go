package recipeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/pkg/common"
)

// ErrUpstream 外部 API 回傳非 200
var ErrUpstream = errors.New("recipe api error")

// Client 第三方食譜 API（spoonacular complexSearch 格式）
type Client struct {
	client     *resty.Client
	limiter    *rate.Limiter
	maxRecipes int
}

var _ discovery.ExternalSource = (*Client)(nil)

// NewClient 創建外部食譜 API 客戶端
func NewClient(cfg config.RecipeAPIConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxRecipes := cfg.MaxRecipes
	if maxRecipes <= 0 {
		maxRecipes = 10
	}

	return &Client{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerS), burst),
		maxRecipes: maxRecipes,
	}
}

type searchResponse struct {
	Results []apiRecipe `json:"results"`
}

type apiRecipe struct {
	ID                   int64           `json:"id"`
	Title                string          `json:"title"`
	ReadyInMinutes       int             `json:"readyInMinutes"`
	DishTypes            []string        `json:"dishTypes"`
	Diets                []string        `json:"diets"`
	UsedIngredients      []apiIngredient `json:"usedIngredients"`
	MissedIngredients    []apiIngredient `json:"missedIngredients"`
	AnalyzedInstructions []struct {
		Steps []struct {
			Step string `json:"step"`
		} `json:"steps"`
	} `json:"analyzedInstructions"`
}

type apiIngredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// SearchByIngredientNames 以食材名稱查詢食譜
func (c *Client) SearchByIngredientNames(ctx context.Context, names []string, prefs domain.Preferences) ([]domain.ExternalRecipe, error) {
	names = common.SortedLowerSet(names)
	if len(names) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	number := c.maxRecipes
	if prefs.MaxResults > 0 && prefs.MaxResults < number {
		number = prefs.MaxResults
	}
	params := map[string]string{
		"includeIngredients":   strings.Join(names, ","),
		"fillIngredients":      "true",
		"addRecipeInformation": "true",
		"sort":                 "max-used-ingredients",
		"number":               strconv.Itoa(number),
	}
	if prefs.MaxCookMinutes > 0 {
		params["maxReadyTime"] = strconv.Itoa(prefs.MaxCookMinutes)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/recipes/complexSearch")
	if err != nil {
		common.LogCollaboratorCall("recipe_api", time.Since(start), err)
		return nil, fmt.Errorf("failed to send request to recipe api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
		common.LogCollaboratorCall("recipe_api", time.Since(start), err)
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse recipe api response: %w", err)
	}
	common.LogCollaboratorCall("recipe_api", time.Since(start), nil)
	common.LogDebug("外部食譜查詢結果",
		zap.Strings("ingredients", names),
		zap.Int("count", len(result.Results)),
	)

	recipes := make([]domain.ExternalRecipe, 0, len(result.Results))
	for _, r := range result.Results {
		recipes = append(recipes, r.toDomain())
	}
	return recipes, nil
}

func (r apiRecipe) toDomain() domain.ExternalRecipe {
	out := domain.ExternalRecipe{
		SourceID:    "spoonacular:" + strconv.FormatInt(r.ID, 10),
		Title:       r.Title,
		CookMinutes: r.ReadyInMinutes,
		Tags:        append(append([]string{}, r.DishTypes...), r.Diets...),
	}
	for _, ing := range append(append([]apiIngredient{}, r.UsedIngredients...), r.MissedIngredients...) {
		out.Ingredients = append(out.Ingredients, domain.FreeTextIngredient{
			Name:     ing.Name,
			Quantity: ing.Amount,
			Unit:     ing.Unit,
		})
	}
	for _, block := range r.AnalyzedInstructions {
		for _, s := range block.Steps {
			out.Steps = append(out.Steps, s.Step)
		}
	}
	return out
}
