package domain

import (
	"fmt"
	"time"
)

// Product 商品（冰箱品項與食譜食材共用的標準商品）
type Product struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id,omitempty"`
	Global  bool   `json:"global"`
}

// ProductQuery 查詢使用者可見的商品（全域 + 私有）。
// NameFilter 為小寫子字串比對；結果依名稱長度、id 遞增排序。Limit 為 0 表示不限
type ProductQuery struct {
	OwnerID    string
	NameFilter string
	Limit      int
}

// Dimension 單位所屬的物理量
type Dimension string

const (
	DimensionMass   Dimension = "mass"
	DimensionVolume Dimension = "volume"
	DimensionCount  Dimension = "count"
)

// Unit 計量單位
type Unit struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Dimension    Dimension `json:"dimension,omitempty"`
}

// Label 顯示用標籤，優先使用縮寫
func (u Unit) Label() string {
	if u.Abbreviation != "" {
		return u.Abbreviation
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Quantity 數量與單位
type Quantity struct {
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"unit"`
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Amount, q.Unit.Label())
}

// AvailableItem 使用者冰箱中的一筆品項；同一商品可有多筆不同單位
type AvailableItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
}

// RequiredIngredient 食譜所需食材。ProductID 為 0 表示尚未解析，只有 Name
type RequiredIngredient struct {
	ProductID int64   `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
}

// Resolved 是否已對應到標準商品
func (r RequiredIngredient) Resolved() bool {
	return r.ProductID != 0
}

// Difficulty 食譜難度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid 是否為已知難度
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Recipe 候選食譜。CookMinutes 為 0、Difficulty 為空代表來源未提供
type Recipe struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	CookMinutes int                  `json:"cook_minutes,omitempty"`
	Difficulty  Difficulty           `json:"difficulty,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Ingredients []RequiredIngredient `json:"ingredients"`
	Steps       []string             `json:"steps,omitempty"`
}

// FreeTextIngredient 外部 API 或 AI 產生的食材：名稱與單位皆為自由文字
type FreeTextIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ExternalRecipe 外部來源的食譜（外部 API 與 AI 生成共用此形狀）
type ExternalRecipe struct {
	SourceID    string               `json:"source_id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	CookMinutes int                  `json:"cook_minutes,omitempty"`
	Difficulty  Difficulty           `json:"difficulty,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Ingredients []FreeTextIngredient `json:"ingredients"`
	Steps       []string             `json:"steps,omitempty"`
}

// GeneratedRecipe AI 生成的食譜
type GeneratedRecipe = ExternalRecipe

// Preferences 搜尋偏好
type Preferences struct {
	MaxCookMinutes int        `json:"max_cook_minutes,omitempty"`
	Difficulty     Difficulty `json:"difficulty,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	MaxResults     int        `json:"max_results,omitempty"`
}

// Verdict 單一食材的可用性判定
type Verdict string

const (
	VerdictFull    Verdict = "full"
	VerdictPartial Verdict = "partial"
	VerdictUnknown Verdict = "unknown"
	VerdictNone    Verdict = "none"
)

// Rank 判定的優先順序：full > partial > unknown > none
func (v Verdict) Rank() int {
	switch v {
	case VerdictFull:
		return 3
	case VerdictPartial:
		return 2
	case VerdictUnknown:
		return 1
	default:
		return 0
	}
}

// Covered 是否計入覆蓋率
func (v Verdict) Covered() bool {
	return v == VerdictFull || v == VerdictPartial
}

// IngredientAvailability 單一食材的判定結果。
// AvailableAmount 在可換算時以所需單位表示；unknown 時為冰箱中原單位的數量
type IngredientAvailability struct {
	ProductID          int64   `json:"product_id"`
	Name               string  `json:"name"`
	Verdict            Verdict `json:"verdict"`
	RequiredAmount     float64 `json:"required_amount"`
	RequiredUnit       string  `json:"required_unit"`
	AvailableAmount    float64 `json:"available_amount"`
	MissingAmount      float64 `json:"missing_amount"`
	AvailableUnitLabel string  `json:"available_unit_label,omitempty"`
}

// MatchResult 一份食譜的比對結果
type MatchResult struct {
	Score     float64                  `json:"score"`
	Available []IngredientAvailability `json:"available"`
	Missing   []IngredientAvailability `json:"missing"`
}

// Source 食譜來源層級
type Source string

const (
	SourceUserRecipes Source = "user_recipes"
	SourceExternalAPI Source = "external_api"
	SourceAIGenerated Source = "ai_generated"
)

// ParseSource 解析來源字串；空字串代表未指定
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceUserRecipes, SourceExternalAPI, SourceAIGenerated:
		return Source(s), true
	}
	return "", false
}

// Provenance 結果來源與耗時
type Provenance struct {
	Source  Source        `json:"source"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// SearchResult 單筆搜尋結果
type SearchResult struct {
	Recipe     Recipe      `json:"recipe"`
	Match      MatchResult `json:"match"`
	Provenance Provenance  `json:"provenance"`
}
