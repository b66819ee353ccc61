package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// Store 商品儲存層
type Store interface {
	FindVisible(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	// Create 在 (owner, 名稱) 重複時回傳 common.ErrConflict
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
}

// Method 商品解析方式
type Method string

const (
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodCreated  Method = "created"
	MethodConflict Method = "conflict"
)

// Ref 解析結果
type Ref struct {
	Product    domain.Product `json:"product"`
	Method     Method         `json:"method"`
	Confidence float64        `json:"confidence"`
	Created    bool           `json:"created"`
}

// Config 模糊比對設定
type Config struct {
	FuzzyThreshold float64
	CandidateLimit int
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{FuzzyThreshold: 0.7, CandidateLimit: 10}
}

// Option 解析器選項
type Option func(*Resolver)

// WithObserver 每次解析完成時回呼（用於指標）
func WithObserver(fn func(Method)) Option {
	return func(r *Resolver) {
		r.observe = fn
	}
}

// Resolver 將自由文字名稱對應到標準商品，必要時建立新商品
type Resolver struct {
	store   Store
	cfg     Config
	observe func(Method)
}

// NewResolver 建立商品解析器
func NewResolver(store Store, cfg Config, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	r := &Resolver{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 依序嘗試完全比對、模糊比對，最後建立私有商品。
// 建立時遇到唯一性衝突代表有並行請求先建立，重新查詢並回傳勝出者
func (r *Resolver) Resolve(ctx context.Context, name, ownerID string) (Ref, error) {
	norm := Normalize(name)
	if norm == "" {
		return Ref{}, common.NewFieldValidationError("name", "product name is empty")
	}

	if p, ok, err := r.findExact(ctx, norm, ownerID); err != nil {
		return Ref{}, err
	} else if ok {
		return r.done(Ref{Product: p, Method: MethodExact, Confidence: 1}), nil
	}

	if p, score, ok, err := r.findFuzzy(ctx, norm, ownerID); err != nil {
		return Ref{}, err
	} else if ok {
		return r.done(Ref{Product: p, Method: MethodFuzzy, Confidence: score}), nil
	}

	created, err := r.store.Create(ctx, domain.Product{
		Name:    DisplayName(norm),
		OwnerID: ownerID,
		Global:  ownerID == "",
	})
	if err == nil {
		common.LogInfo("建立新商品",
			zap.String("owner_id", ownerID),
			zap.Int64("product_id", created.ID),
			zap.String("name", created.Name),
		)
		return r.done(Ref{Product: created, Method: MethodCreated, Confidence: 1, Created: true}), nil
	}
	if !errors.Is(err, common.ErrConflict) {
		return Ref{}, fmt.Errorf("create product %q: %w", norm, err)
	}

	common.LogDebug("商品建立衝突，重新查詢",
		zap.String("owner_id", ownerID),
		zap.String("name", norm),
	)
	p, ok, err := r.findExact(ctx, norm, ownerID)
	if err != nil {
		return Ref{}, err
	}
	if !ok {
		return Ref{}, fmt.Errorf("product %q conflicted but could not be re-read: %w", norm, common.ErrConflict)
	}
	return r.done(Ref{Product: p, Method: MethodConflict, Confidence: 1}), nil
}

func (r *Resolver) done(ref Ref) Ref {
	if r.observe != nil {
		r.observe(ref.Method)
	}
	return ref
}

// findExact 名稱鍵或正規化名稱與查詢相同者，多筆時取 id 最小。
// 已建立的商品名稱不一定能再次正規化回同一個值（例如 Lemongras）
func (r *Resolver) findExact(ctx context.Context, norm, ownerID string) (domain.Product, bool, error) {
	products, err := r.store.FindVisible(ctx, domain.ProductQuery{OwnerID: ownerID, NameFilter: norm})
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("find products: %w", err)
	}

	var (
		best  domain.Product
		found bool
	)
	for _, p := range products {
		if NameKey(p.Name) != norm && Normalize(p.Name) != norm {
			continue
		}
		if !found || p.ID < best.ID {
			best = p
			found = true
		}
	}
	return best, found, nil
}

// findFuzzy 在有限候選集中取相似度最高者；同分取 id 最小
func (r *Resolver) findFuzzy(ctx context.Context, norm, ownerID string) (domain.Product, float64, bool, error) {
	candidates, err := r.candidates(ctx, norm, ownerID)
	if err != nil {
		return domain.Product{}, 0, false, err
	}

	var (
		best      domain.Product
		bestScore float64
		found     bool
	)
	for _, p := range candidates {
		score := Similarity(norm, Normalize(p.Name))
		if score < r.cfg.FuzzyThreshold {
			continue
		}
		if !found || score > bestScore || (score == bestScore && p.ID < best.ID) {
			best, bestScore, found = p, score, true
		}
	}
	return best, bestScore, found, nil
}

// candidates 以每個長度 >= 3 的單字前 4 個字元查詢，累積到上限為止
func (r *Resolver) candidates(ctx context.Context, norm, ownerID string) ([]domain.Product, error) {
	limit := r.cfg.CandidateLimit
	var prefixes []string
	seenPrefix := make(map[string]bool)
	for _, w := range strings.Fields(norm) {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		p := w
		if runes := []rune(w); len(runes) > 4 {
			p = string(runes[:4])
		}
		if !seenPrefix[p] {
			seenPrefix[p] = true
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	seen := make(map[int64]bool)
	out := make([]domain.Product, 0, limit)
	for _, prefix := range prefixes {
		if len(out) >= limit {
			break
		}
		products, err := r.store.FindVisible(ctx, domain.ProductQuery{
			OwnerID:    ownerID,
			NameFilter: prefix,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("find fuzzy candidates: %w", err)
		}
		for _, p := range products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// NameKey 小寫並合併空白，與儲存層的唯一鍵一致
func NameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Normalize 名稱鍵；長度大於 3 且以 s 結尾時去掉 s
func Normalize(name string) string {
	n := NameKey(name)
	if utf8.RuneCountInString(n) > 3 && strings.HasSuffix(n, "s") {
		n = strings.TrimSuffix(n, "s")
	}
	return n
}

// DisplayName 第一個字元大寫
func DisplayName(norm string) string {
	r, size := utf8.DecodeRuneInString(norm)
	if r == utf8.RuneError {
		return norm
	}
	return string(unicode.ToUpper(r)) + norm[size:]
}

// Similarity 兩個正規化名稱的相似度：
// 相同為 1；互為子字串為 0.9；否則為單字集合交集 / 較小集合大小
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	small, large := wordsA, wordsB
	if len(small) > len(large) {
		small, large = large, small
	}
	if len(small) == 0 {
		return 0
	}
	shared := 0
	for w := range small {
		if large[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
