package discovery

import (
	"context"
	"time"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/product"
)

// RecipeStore 使用者自己的食譜
type RecipeStore interface {
	ListOwned(ctx context.Context, ownerID string) ([]domain.Recipe, error)
}

// ExternalSource 第三方食譜 API
type ExternalSource interface {
	SearchByIngredientNames(ctx context.Context, names []string, prefs domain.Preferences) ([]domain.ExternalRecipe, error)
}

// GenerativeSource AI 食譜生成；Orchestrator 中為 nil 代表未設定
type GenerativeSource interface {
	Generate(ctx context.Context, products []string, prefs domain.Preferences) ([]domain.GeneratedRecipe, error)
}

// ProductResolver 自由文字名稱 -> 標準商品
type ProductResolver interface {
	Resolve(ctx context.Context, name, ownerID string) (product.Ref, error)
}

// Scorer 覆蓋率計算
type Scorer interface {
	Score(required []domain.RequiredIngredient, available []domain.AvailableItem) domain.MatchResult
}

// UnitParser 自由文字單位 -> Unit
type UnitParser interface {
	Parse(label string) domain.Unit
}

// Observer 各層結果與整體耗時（指標用）
type Observer interface {
	ObserveTier(source domain.Source, outcome Outcome, elapsed time.Duration)
	ObserveDiscovery(source domain.Source, elapsed time.Duration)
}
