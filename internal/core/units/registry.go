package units

import (
	"strings"

	"recipe-discovery/internal/core/domain"
)

// unitDef 內建單位定義；base 為換算到該維度基準單位（g、ml、piece）的倍率，0 表示不可換算
type unitDef struct {
	unit    domain.Unit
	base    float64
	aliases []string
}

var builtinUnits = []unitDef{
	// 質量，基準 g
	{unit: domain.Unit{ID: "mg", Name: "milligram", Abbreviation: "mg", Dimension: domain.DimensionMass}, base: 0.001,
		aliases: []string{"milligram", "milligrams", "mgs"}},
	{unit: domain.Unit{ID: "g", Name: "gram", Abbreviation: "g", Dimension: domain.DimensionMass}, base: 1,
		aliases: []string{"gram", "grams", "gr", "grs", "gramme", "grammes"}},
	{unit: domain.Unit{ID: "kg", Name: "kilogram", Abbreviation: "kg", Dimension: domain.DimensionMass}, base: 1000,
		aliases: []string{"kilogram", "kilograms", "kgs", "kilo", "kilos"}},
	{unit: domain.Unit{ID: "oz", Name: "ounce", Abbreviation: "oz", Dimension: domain.DimensionMass}, base: 28.349523125,
		aliases: []string{"ounce", "ounces", "ozs"}},
	{unit: domain.Unit{ID: "lb", Name: "pound", Abbreviation: "lb", Dimension: domain.DimensionMass}, base: 453.59237,
		aliases: []string{"lbs", "pound", "pounds"}},

	// 體積，基準 ml
	{unit: domain.Unit{ID: "ml", Name: "milliliter", Abbreviation: "ml", Dimension: domain.DimensionVolume}, base: 1,
		aliases: []string{"milliliter", "milliliters", "millilitre", "millilitres", "mls"}},
	{unit: domain.Unit{ID: "cl", Name: "centiliter", Abbreviation: "cl", Dimension: domain.DimensionVolume}, base: 10,
		aliases: []string{"centiliter", "centiliters", "centilitre", "centilitres"}},
	{unit: domain.Unit{ID: "dl", Name: "deciliter", Abbreviation: "dl", Dimension: domain.DimensionVolume}, base: 100,
		aliases: []string{"deciliter", "deciliters", "decilitre", "decilitres"}},
	{unit: domain.Unit{ID: "l", Name: "liter", Abbreviation: "l", Dimension: domain.DimensionVolume}, base: 1000,
		aliases: []string{"liter", "liters", "litre", "litres", "ltr"}},
	{unit: domain.Unit{ID: "tsp", Name: "teaspoon", Abbreviation: "tsp", Dimension: domain.DimensionVolume}, base: 4.92892159375,
		aliases: []string{"teaspoon", "teaspoons", "tsps"}},
	{unit: domain.Unit{ID: "tbsp", Name: "tablespoon", Abbreviation: "tbsp", Dimension: domain.DimensionVolume}, base: 14.78676478125,
		aliases: []string{"tablespoon", "tablespoons", "tbsps", "tbs", "tbl"}},
	{unit: domain.Unit{ID: "cup", Name: "cup", Abbreviation: "cup", Dimension: domain.DimensionVolume}, base: 240,
		aliases: []string{"cups", "c"}},
	{unit: domain.Unit{ID: "fl oz", Name: "fluid ounce", Abbreviation: "fl oz", Dimension: domain.DimensionVolume}, base: 29.5735295625,
		aliases: []string{"floz", "fl. oz", "fluid ounce", "fluid ounces"}},

	// 數量，基準 piece；空白單位視為個數
	{unit: domain.Unit{ID: "piece", Name: "piece", Abbreviation: "pc", Dimension: domain.DimensionCount}, base: 1,
		aliases: []string{"", "pieces", "pc", "pcs", "whole", "each", "ea", "unit", "units", "item", "items"}},
	{unit: domain.Unit{ID: "dozen", Name: "dozen", Abbreviation: "doz", Dimension: domain.DimensionCount}, base: 12,
		aliases: []string{"dozens", "doz"}},

	// 無法換算，只與自身比較
	{unit: domain.Unit{ID: "pinch", Name: "pinch", Abbreviation: "pinch"},
		aliases: []string{"pinches"}},
	{unit: domain.Unit{ID: "clove", Name: "clove", Abbreviation: "clove"},
		aliases: []string{"cloves"}},
	{unit: domain.Unit{ID: "slice", Name: "slice", Abbreviation: "slice"},
		aliases: []string{"slices"}},
	{unit: domain.Unit{ID: "can", Name: "can", Abbreviation: "can"},
		aliases: []string{"cans", "tin", "tins"}},
}

// Registry 單位登錄表：將自由文字單位對應到內建單位
type Registry struct {
	byID    map[string]domain.Unit
	byAlias map[string]string
}

// NewRegistry 建立包含所有內建單位與別名的登錄表
func NewRegistry() *Registry {
	r := &Registry{
		byID:    make(map[string]domain.Unit, len(builtinUnits)),
		byAlias: make(map[string]string, len(builtinUnits)*4),
	}
	for _, def := range builtinUnits {
		r.byID[def.unit.ID] = def.unit
		r.byAlias[def.unit.ID] = def.unit.ID
		r.byAlias[NormalizeLabel(def.unit.Abbreviation)] = def.unit.ID
		for _, alias := range def.aliases {
			r.byAlias[NormalizeLabel(alias)] = def.unit.ID
		}
	}
	return r
}

// NormalizeLabel 單位標籤正規化：小寫、去頭尾空白與句點、壓縮空白
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimSuffix(label, ".")
	return strings.Join(strings.Fields(label), " ")
}

// Lookup 以 id、縮寫或別名查找內建單位
func (r *Registry) Lookup(label string) (domain.Unit, bool) {
	id, ok := r.byAlias[NormalizeLabel(label)]
	if !ok {
		return domain.Unit{}, false
	}
	return r.byID[id], true
}

// Parse 將自由文字單位轉為 Unit；未知標籤產生只與相同標籤相容的臨時單位
func (r *Registry) Parse(label string) domain.Unit {
	if u, ok := r.Lookup(label); ok {
		return u
	}
	key := NormalizeLabel(label)
	return domain.Unit{ID: key, Name: key, Abbreviation: key}
}

// Units 回傳所有內建單位（依定義順序）
func (r *Registry) Units() []domain.Unit {
	out := make([]domain.Unit, 0, len(builtinUnits))
	for _, def := range builtinUnits {
		out = append(out, def.unit)
	}
	return out
}

type unitPair struct {
	from, to string
}

// Table 靜態換算表 (from, to) -> factor，只包含同維度的單位
type Table struct {
	factors map[unitPair]float64
}

// NewTable 由內建單位的基準倍率展開所有同維度單位對
func NewTable() *Table {
	t := &Table{factors: make(map[unitPair]float64)}
	for _, from := range builtinUnits {
		if from.base == 0 || from.unit.Dimension == "" {
			continue
		}
		for _, to := range builtinUnits {
			if to.base == 0 || to.unit.Dimension != from.unit.Dimension || to.unit.ID == from.unit.ID {
				continue
			}
			t.factors[unitPair{from.unit.ID, to.unit.ID}] = from.base / to.base
		}
	}
	return t
}

// NewTableFromFactors 以明確的倍率建立換算表（測試與自訂換算用）
func NewTableFromFactors(factors map[[2]string]float64) *Table {
	t := &Table{factors: make(map[unitPair]float64, len(factors))}
	for k, v := range factors {
		t.factors[unitPair{k[0], k[1]}] = v
	}
	return t
}

// Factor 取得 1 個 from 單位等於多少 to 單位
func (t *Table) Factor(from, to string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	f, ok := t.factors[unitPair{from, to}]
	return f, ok
}

// Len 換算表項目數
func (t *Table) Len() int {
	return len(t.factors)
}
