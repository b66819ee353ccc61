package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// Observer 快取命中回呼（指標用）
type Observer func(kind string, hit bool)

// CachedExternal 以快取包裝外部食譜來源
type CachedExternal struct {
	next    discovery.ExternalSource
	cache   Cache
	observe Observer
}

// CachedGenerator 以快取包裝 AI 食譜生成
type CachedGenerator struct {
	next    discovery.GenerativeSource
	cache   Cache
	observe Observer
}

var (
	_ discovery.ExternalSource   = (*CachedExternal)(nil)
	_ discovery.GenerativeSource = (*CachedGenerator)(nil)
)

// WrapExternal 建立有快取的外部來源；c 為 nil 時直接回傳 next
func WrapExternal(next discovery.ExternalSource, c Cache, observe Observer) discovery.ExternalSource {
	if c == nil || next == nil {
		return next
	}
	return &CachedExternal{next: next, cache: c, observe: observe}
}

// WrapGenerator 建立有快取的 AI 來源；c 為 nil 時直接回傳 next
func WrapGenerator(next discovery.GenerativeSource, c Cache, observe Observer) discovery.GenerativeSource {
	if c == nil || next == nil {
		return next
	}
	return &CachedGenerator{next: next, cache: c, observe: observe}
}

// SearchByIngredientNames 命中時直接回傳；只快取成功且非空的結果
func (c *CachedExternal) SearchByIngredientNames(ctx context.Context, names []string, prefs domain.Preferences) ([]domain.ExternalRecipe, error) {
	key := RecipeKey("external", names, prefs)
	if recipes, ok := lookup(ctx, c.cache, key, "external", c.observe); ok {
		return recipes, nil
	}

	recipes, err := c.next.SearchByIngredientNames(ctx, names, prefs)
	if err != nil {
		return nil, err
	}
	store(ctx, c.cache, key, recipes)
	return recipes, nil
}

// Generate 命中時直接回傳；只快取成功且非空的結果
func (c *CachedGenerator) Generate(ctx context.Context, products []string, prefs domain.Preferences) ([]domain.GeneratedRecipe, error) {
	key := RecipeKey("generated", products, prefs)
	if recipes, ok := lookup(ctx, c.cache, key, "generated", c.observe); ok {
		return recipes, nil
	}

	recipes, err := c.next.Generate(ctx, products, prefs)
	if err != nil {
		return nil, err
	}
	store(ctx, c.cache, key, recipes)
	return recipes, nil
}

// RecipeKey 與食材順序、大小寫無關的快取鍵
func RecipeKey(kind string, names []string, prefs domain.Preferences) string {
	tags := common.SortedLowerSet(prefs.Tags)
	raw := fmt.Sprintf("%s|%d|%s|%s|%d",
		strings.Join(common.SortedLowerSet(names), ","),
		prefs.MaxCookMinutes,
		strings.ToLower(string(prefs.Difficulty)),
		strings.Join(tags, ","),
		prefs.MaxResults,
	)
	return kind + ":" + hashString(raw)
}

func lookup(ctx context.Context, c Cache, key, kind string, observe Observer) ([]domain.ExternalRecipe, bool) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("鍵", key), zap.Error(err))
		}
		common.LogCacheMiss(kind, key)
		if observe != nil {
			observe(kind, false)
		}
		return nil, false
	}

	var recipes []domain.ExternalRecipe
	if err := json.Unmarshal([]byte(raw), &recipes); err != nil {
		common.LogWarn("快取內容無法解析", zap.String("鍵", key), zap.Error(err))
		if observe != nil {
			observe(kind, false)
		}
		return nil, false
	}

	common.LogCacheHit(kind, key)
	if observe != nil {
		observe(kind, true)
	}
	return recipes, true
}

func store(ctx context.Context, c Cache, key string, recipes []domain.ExternalRecipe) {
	if len(recipes) == 0 {
		return
	}
	data, err := json.Marshal(recipes)
	if err != nil {
		common.LogWarn("快取序列化失敗", zap.String("鍵", key), zap.Error(err))
		return
	}
	if err := c.Set(ctx, key, string(data)); err != nil {
		common.LogWarn("寫入快取失敗", zap.String("鍵", key), zap.Error(err))
	}
}
