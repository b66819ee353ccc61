package discovery

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// Outcome 單一層的結果標記
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeEmpty       Outcome = "empty"
	OutcomeUnavailable Outcome = "unavailable"
)

// Config 探索流程設定
type Config struct {
	GoodMatchThreshold float64
	DefaultMaxResults  int
	MaxResultsLimit    int
	ResolveWorkers     int
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		GoodMatchThreshold: 0.7,
		DefaultMaxResults:  10,
		MaxResultsLimit:    50,
		ResolveWorkers:     4,
	}
}

// Request 探索請求
type Request struct {
	OwnerID     string
	Available   []domain.AvailableItem
	ProductIDs  []int64
	Preferences domain.Preferences
	// Source 為空時依序嘗試各層；指定時只執行該層
	Source string
}

// TierReport 單一層的執行紀錄
type TierReport struct {
	Source  domain.Source `json:"source"`
	Outcome Outcome       `json:"outcome"`
	Count   int           `json:"count"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Response 探索結果
type Response struct {
	Results []domain.SearchResult `json:"results"`
	Source  domain.Source         `json:"source"`
	Elapsed time.Duration         `json:"elapsed_ns"`
	Tiers   []TierReport          `json:"tiers"`
}

type tierResult struct {
	source   domain.Source
	outcome  Outcome
	results  []domain.SearchResult
	elapsed  time.Duration
	maxScore float64
}

// Orchestrator 依成本由低到高嘗試食譜來源
type Orchestrator struct {
	recipes   RecipeStore
	external  ExternalSource
	generator GenerativeSource
	products  ProductResolver
	scorer    Scorer
	units     UnitParser
	observer  Observer
	cfg       Config
}

// Option Orchestrator 選項
type Option func(*Orchestrator)

// WithExternalSource 設定第二層
func WithExternalSource(src ExternalSource) Option {
	return func(o *Orchestrator) { o.external = src }
}

// WithGenerativeSource 設定第三層；未設定時第三層視為不可用
func WithGenerativeSource(src GenerativeSource) Option {
	return func(o *Orchestrator) { o.generator = src }
}

// WithObserver 設定指標觀察者
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// NewOrchestrator 建立探索流程
func NewOrchestrator(recipes RecipeStore, products ProductResolver, scorer Scorer, units UnitParser, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.GoodMatchThreshold <= 0 || cfg.GoodMatchThreshold > 1 {
		cfg.GoodMatchThreshold = def.GoodMatchThreshold
	}
	if cfg.MaxResultsLimit <= 0 {
		cfg.MaxResultsLimit = def.MaxResultsLimit
	}
	if cfg.DefaultMaxResults <= 0 || cfg.DefaultMaxResults > cfg.MaxResultsLimit {
		cfg.DefaultMaxResults = min(def.DefaultMaxResults, cfg.MaxResultsLimit)
	}
	if cfg.ResolveWorkers <= 0 {
		cfg.ResolveWorkers = def.ResolveWorkers
	}

	o := &Orchestrator{
		recipes:  recipes,
		products: products,
		scorer:   scorer,
		units:    units,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Discover 執行探索。
// 只有輸入無效（ValidationError）或指定的商品不在冰箱中（NotFoundError）會回傳錯誤；
// 來源失敗一律降級為空結果並繼續下一層
func (o *Orchestrator) Discover(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	prefs, available, pinned, err := o.validate(req)
	if err != nil {
		return nil, err
	}

	resp := &Response{}
	record := func(t tierResult) tierResult {
		resp.Tiers = append(resp.Tiers, TierReport{
			Source:  t.source,
			Outcome: t.outcome,
			Count:   len(t.results),
			Elapsed: t.elapsed,
		})
		if o.observer != nil {
			o.observer.ObserveTier(t.source, t.outcome, t.elapsed)
		}
		return t
	}

	var final tierResult
	if pinned != "" {
		final = record(o.runTier(ctx, pinned, req.OwnerID, available, prefs))
	} else {
		final = o.cascade(ctx, req.OwnerID, available, prefs, record)
	}

	resp.Results = final.results
	if resp.Results == nil {
		resp.Results = []domain.SearchResult{}
	}
	resp.Source = final.source
	resp.Elapsed = time.Since(start)

	if o.observer != nil {
		o.observer.ObserveDiscovery(resp.Source, resp.Elapsed)
	}
	common.LogInfo("食譜探索完成",
		zap.String("owner_id", req.OwnerID),
		zap.String("source", string(resp.Source)),
		zap.Int("results", len(resp.Results)),
		zap.Duration("elapsed", resp.Elapsed),
	)
	return resp, nil
}

// cascade 三層決策表：
// 第一層有好結果即回傳；否則第二層有結果即回傳；否則第三層有結果即回傳；最後退回第一層結果
func (o *Orchestrator) cascade(ctx context.Context, ownerID string, available []domain.AvailableItem, prefs domain.Preferences, record func(tierResult) tierResult) tierResult {
	user := record(o.runTier(ctx, domain.SourceUserRecipes, ownerID, available, prefs))
	if user.outcome == OutcomeOK && user.maxScore >= o.cfg.GoodMatchThreshold {
		return user
	}

	external := record(o.runTier(ctx, domain.SourceExternalAPI, ownerID, available, prefs))
	if external.outcome == OutcomeOK {
		return external
	}

	generated := record(o.runTier(ctx, domain.SourceAIGenerated, ownerID, available, prefs))
	if generated.outcome == OutcomeOK {
		return generated
	}

	common.LogDebug("退回使用者食譜結果",
		zap.String("owner_id", ownerID),
		zap.String("external", string(external.outcome)),
		zap.String("generated", string(generated.outcome)),
	)
	return user
}

func (o *Orchestrator) runTier(ctx context.Context, source domain.Source, ownerID string, available []domain.AvailableItem, prefs domain.Preferences) tierResult {
	start := time.Now()
	var (
		recipes []domain.Recipe
		err     error
		skipped bool
	)

	switch source {
	case domain.SourceUserRecipes:
		recipes, err = o.recipes.ListOwned(ctx, ownerID)
	case domain.SourceExternalAPI:
		if o.external == nil {
			skipped = true
			break
		}
		var ext []domain.ExternalRecipe
		ext, err = o.external.SearchByIngredientNames(ctx, productNames(available), prefs)
		if err == nil {
			recipes, err = o.resolveRecipes(ctx, ownerID, source, ext)
		}
	case domain.SourceAIGenerated:
		if o.generator == nil {
			skipped = true
			break
		}
		var gen []domain.GeneratedRecipe
		gen, err = o.generator.Generate(ctx, productNames(available), prefs)
		if err == nil {
			recipes, err = o.resolveRecipes(ctx, ownerID, source, gen)
		}
	}

	elapsed := time.Since(start)
	if skipped {
		return tierResult{source: source, outcome: OutcomeUnavailable, elapsed: elapsed}
	}
	if err != nil {
		common.LogWarn("來源失敗，視為無結果",
			zap.String("owner_id", ownerID),
			zap.String("source", string(source)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return tierResult{source: source, outcome: OutcomeUnavailable, elapsed: elapsed}
	}

	results, maxScore := o.rank(recipes, available, prefs, source)
	elapsed = time.Since(start)
	for i := range results {
		results[i].Provenance.Elapsed = elapsed
	}
	outcome := OutcomeOK
	if len(results) == 0 {
		outcome = OutcomeEmpty
	}
	return tierResult{
		source:   source,
		outcome:  outcome,
		results:  results,
		elapsed:  elapsed,
		maxScore: maxScore,
	}
}

// rank 評分、依偏好過濾、分數遞減排序並截斷
func (o *Orchestrator) rank(recipes []domain.Recipe, available []domain.AvailableItem, prefs domain.Preferences, source domain.Source) ([]domain.SearchResult, float64) {
	results := make([]domain.SearchResult, 0, len(recipes))
	for _, r := range recipes {
		if !matchesPreferences(r, prefs) {
			continue
		}
		results = append(results, domain.SearchResult{
			Recipe:     r,
			Match:      o.scorer.Score(r.Ingredients, available),
			Provenance: domain.Provenance{Source: source},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Match.Score != results[j].Match.Score {
			return results[i].Match.Score > results[j].Match.Score
		}
		if results[i].Recipe.Title != results[j].Recipe.Title {
			return results[i].Recipe.Title < results[j].Recipe.Title
		}
		return results[i].Recipe.ID < results[j].Recipe.ID
	})
	if len(results) > prefs.MaxResults {
		results = results[:prefs.MaxResults]
	}

	maxScore := 0.0
	if len(results) > 0 {
		maxScore = results[0].Match.Score
	}
	return results, maxScore
}

// validate 在任何來源查詢前檢查輸入
func (o *Orchestrator) validate(req Request) (domain.Preferences, []domain.AvailableItem, domain.Source, error) {
	if len(req.Available) == 0 {
		return domain.Preferences{}, nil, "", common.NewFieldValidationError("available", "no products supplied")
	}

	prefs, err := normalizePreferences(req.Preferences, o.cfg)
	if err != nil {
		return domain.Preferences{}, nil, "", err
	}

	var pinned domain.Source
	if s := strings.TrimSpace(req.Source); s != "" {
		src, ok := domain.ParseSource(s)
		if !ok {
			return domain.Preferences{}, nil, "", common.NewFieldValidationError("source", "unknown source "+strconv.Quote(s))
		}
		pinned = src
	}

	available := req.Available
	if len(req.ProductIDs) > 0 {
		available, err = pinProducts(req.Available, req.ProductIDs)
		if err != nil {
			return domain.Preferences{}, nil, "", err
		}
	}
	return prefs, available, pinned, nil
}

// pinProducts 只保留指定商品；任何不在冰箱中的 id 回傳 NotFoundError
func pinProducts(available []domain.AvailableItem, ids []int64) ([]domain.AvailableItem, error) {
	owned := make(map[int64]bool, len(available))
	for _, item := range available {
		owned[item.ProductID] = true
	}

	want := make(map[int64]bool, len(ids))
	var missing []string
	for _, id := range ids {
		if want[id] {
			continue
		}
		want[id] = true
		if !owned[id] {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	if len(missing) > 0 {
		return nil, common.NewNotFoundError("product", missing...)
	}

	out := make([]domain.AvailableItem, 0, len(ids))
	for _, item := range available {
		if want[item.ProductID] {
			out = append(out, item)
		}
	}
	return out, nil
}

// productNames 冰箱中有數量的商品名稱（去重、排序）
func productNames(available []domain.AvailableItem) []string {
	names := make([]string, 0, len(available))
	for _, item := range available {
		if item.Quantity <= 0 {
			continue
		}
		names = append(names, item.Name)
	}
	return common.SortedLowerSet(names)
}
