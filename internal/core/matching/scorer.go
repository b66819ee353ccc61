package matching

import (
	"sort"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/units"
)

// Reconciler 單位比對
type Reconciler interface {
	Reconcile(required, available domain.Quantity) units.Reconciliation
}

// Scorer 計算食譜對冰箱品項的覆蓋率
type Scorer struct {
	units Reconciler
}

// NewScorer 建立評分器；units 為 nil 時使用內建換算表
func NewScorer(r Reconciler) *Scorer {
	if r == nil {
		r = units.NewResolver(nil)
	}
	return &Scorer{units: r}
}

// Score 對每個所需食材取最佳判定，分數為 full/partial 的比例。
// 沒有食材的食譜分數為 1.0；數量 <= 0 的冰箱品項視為沒有
func (s *Scorer) Score(required []domain.RequiredIngredient, available []domain.AvailableItem) domain.MatchResult {
	result := domain.MatchResult{
		Available: []domain.IngredientAvailability{},
		Missing:   []domain.IngredientAvailability{},
	}
	if len(required) == 0 {
		result.Score = 1.0
		return result
	}

	byProduct := groupAvailable(available)

	covered := 0
	for _, ing := range required {
		ia := s.best(ing, byProduct[ing.ProductID])
		if ia.Verdict.Covered() {
			covered++
		}
		if ia.Verdict != domain.VerdictNone && ia.AvailableAmount > 0 {
			result.Available = append(result.Available, ia)
		} else {
			result.Missing = append(result.Missing, ia)
		}
	}

	result.Score = float64(covered) / float64(len(required))
	return result
}

// ScoreRecipe Score 的便利包裝
func (s *Scorer) ScoreRecipe(recipe domain.Recipe, available []domain.AvailableItem) domain.MatchResult {
	return s.Score(recipe.Ingredients, available)
}

// best 逐一比對同商品的冰箱品項，保留最佳判定
func (s *Scorer) best(ing domain.RequiredIngredient, items []domain.AvailableItem) domain.IngredientAvailability {
	out := domain.IngredientAvailability{
		ProductID:      ing.ProductID,
		Name:           ing.Name,
		Verdict:        domain.VerdictNone,
		RequiredAmount: ing.Quantity,
		RequiredUnit:   ing.Unit.Label(),
		MissingAmount:  ing.Quantity,
	}
	if !ing.Resolved() || len(items) == 0 {
		return out
	}

	required := domain.Quantity{Amount: ing.Quantity, Unit: ing.Unit}
	var (
		bestRec units.Reconciliation
		found   bool
	)
	for _, item := range items {
		rec := s.units.Reconcile(required, domain.Quantity{Amount: item.Quantity, Unit: item.Unit})
		if !found || better(rec, bestRec) {
			bestRec = rec
			found = true
		}
		if out.Name == "" {
			out.Name = item.Name
		}
	}

	out.Verdict = bestRec.Verdict
	out.AvailableAmount = bestRec.AvailableAmount
	out.MissingAmount = bestRec.MissingAmount
	if bestRec.Verdict == domain.VerdictUnknown {
		out.AvailableUnitLabel = bestRec.AvailableUnitLabel
	}
	return out
}

// better 判定優先；同判定時取現有數量較多者，其餘保留先出現的
func better(a, b units.Reconciliation) bool {
	if a.Verdict.Rank() != b.Verdict.Rank() {
		return a.Verdict.Rank() > b.Verdict.Rank()
	}
	return a.AvailableAmount > b.AvailableAmount
}

// groupAvailable 依商品分組並排序，讓結果與輸入順序無關
func groupAvailable(available []domain.AvailableItem) map[int64][]domain.AvailableItem {
	groups := make(map[int64][]domain.AvailableItem)
	for _, item := range available {
		if item.Quantity <= 0 {
			continue
		}
		groups[item.ProductID] = append(groups[item.ProductID], item)
	}
	for _, items := range groups {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Unit.ID != items[j].Unit.ID {
				return items[i].Unit.ID < items[j].Unit.ID
			}
			if items[i].Quantity != items[j].Quantity {
				return items[i].Quantity < items[j].Quantity
			}
			return items[i].Name < items[j].Name
		})
	}
	return groups
}
