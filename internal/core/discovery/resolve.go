package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// refCache 單次請求內的名稱解析快取，避免多份食譜重複解析同一食材
type refCache struct {
	mu   sync.Mutex
	refs map[string]int64
}

func (c *refCache) get(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.refs[key]
	return id, ok
}

func (c *refCache) put(key string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[key] = id
}

// resolveRecipes 將外部/AI 食譜的自由文字食材對應到標準商品。
// 各食譜平行處理，數量受 ResolveWorkers 限制；任一儲存錯誤使整層失敗
func (o *Orchestrator) resolveRecipes(ctx context.Context, ownerID string, source domain.Source, in []domain.ExternalRecipe) ([]domain.Recipe, error) {
	out := make([]domain.Recipe, len(in))
	cache := &refCache{refs: make(map[string]int64)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ResolveWorkers)
	for i := range in {
		i := i
		g.Go(func() error {
			recipe, err := o.resolveRecipe(gctx, ownerID, source, in[i], cache)
			if err != nil {
				return err
			}
			out[i] = recipe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) resolveRecipe(ctx context.Context, ownerID string, source domain.Source, ext domain.ExternalRecipe, cache *refCache) (domain.Recipe, error) {
	recipe := domain.Recipe{
		ID:          ext.SourceID,
		Title:       ext.Title,
		Description: ext.Description,
		CookMinutes: ext.CookMinutes,
		Difficulty:  ext.Difficulty,
		Tags:        ext.Tags,
		Steps:       ext.Steps,
		Ingredients: make([]domain.RequiredIngredient, 0, len(ext.Ingredients)),
	}
	if recipe.ID == "" {
		recipe.ID = string(source) + ":" + common.GenerateUUID()
	}

	for _, ing := range ext.Ingredients {
		req := domain.RequiredIngredient{
			Name:     strings.TrimSpace(ing.Name),
			Quantity: ing.Quantity,
			Unit:     o.units.Parse(ing.Unit),
		}
		if req.Name == "" {
			// 沒有名稱的食材無法解析，保留為未解析（計入缺少）
			recipe.Ingredients = append(recipe.Ingredients, req)
			continue
		}

		key := strings.ToLower(req.Name)
		if id, ok := cache.get(key); ok {
			req.ProductID = id
		} else {
			ref, err := o.products.Resolve(ctx, req.Name, ownerID)
			if err != nil {
				if common.IsValidationError(err) {
					common.LogDebug("略過無法解析的食材", zap.String("name", req.Name), zap.Error(err))
					recipe.Ingredients = append(recipe.Ingredients, req)
					continue
				}
				return domain.Recipe{}, fmt.Errorf("resolve ingredient %q: %w", req.Name, err)
			}
			req.ProductID = ref.Product.ID
			cache.put(key, ref.Product.ID)
		}
		recipe.Ingredients = append(recipe.Ingredients, req)
	}
	return recipe, nil
}
