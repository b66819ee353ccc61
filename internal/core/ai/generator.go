package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

// Completer 文字補全介面，OpenRouterClient 實作
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RecipeGenerator 依現有食材讓模型生成食譜
type RecipeGenerator struct {
	completer  Completer
	maxRecipes int
}

var _ discovery.GenerativeSource = (*RecipeGenerator)(nil)

// NewRecipeGenerator 創建食譜生成器；maxRecipes <= 0 時預設 3
func NewRecipeGenerator(completer Completer, maxRecipes int) *RecipeGenerator {
	if maxRecipes <= 0 {
		maxRecipes = 3
	}
	return &RecipeGenerator{completer: completer, maxRecipes: maxRecipes}
}

// Generate 生成食譜，模型輸出缺少標題的項目會被略過
func (g *RecipeGenerator) Generate(ctx context.Context, products []string, prefs domain.Preferences) ([]domain.GeneratedRecipe, error) {
	if len(products) == 0 {
		return nil, nil
	}

	count := g.maxRecipes
	if prefs.MaxResults > 0 && prefs.MaxResults < count {
		count = prefs.MaxResults
	}
	prompt := buildPrompt(products, prefs, count)
	common.LogDebug("食譜生成 prompt", zap.String("prompt", prompt))

	start := time.Now()
	content, err := g.completer.Complete(ctx, prompt)
	common.LogCollaboratorCall("openrouter", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("AI service error: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty AI response")
	}

	var payload generatedPayload
	if err := common.ParseModelJSON(content, &payload); err != nil {
		common.LogError("AI 回應解析失敗", zap.Error(err), zap.Int("ai_response_length", len(content)))
		return nil, err
	}

	recipes := make([]domain.GeneratedRecipe, 0, len(payload.Recipes))
	for _, r := range payload.Recipes {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		recipes = append(recipes, toDomain(r))
		if len(recipes) == count {
			break
		}
	}
	return recipes, nil
}

func buildPrompt(products []string, prefs domain.Preferences, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Suggest up to %d recipes that can be cooked mainly with the available products.

Available products:
%s
`, count, strings.Join(products, ", "))

	var constraints []string
	if prefs.MaxCookMinutes > 0 {
		constraints = append(constraints, fmt.Sprintf("- cook time at most %d minutes", prefs.MaxCookMinutes))
	}
	if prefs.Difficulty != "" {
		constraints = append(constraints, fmt.Sprintf("- difficulty no harder than %s", prefs.Difficulty))
	}
	if len(prefs.Tags) > 0 {
		constraints = append(constraints, fmt.Sprintf("- every recipe must carry the tags: %s", strings.Join(prefs.Tags, ", ")))
	}
	if len(constraints) > 0 {
		b.WriteString("\nPreferences:\n")
		b.WriteString(strings.Join(constraints, "\n"))
		b.WriteString("\n")
	}

	b.WriteString(`
Requirements:
1. Prefer the available products; keep extra ingredients to a minimum
2. Use the available product names verbatim for ingredient names
3. quantity must be a number; unit must be a short unit such as g, kg, ml, l, tsp, tbsp, cup or piece
4. cook_minutes must be an integer
5. difficulty must be one of easy, medium, hard
6. All keys and strings must use double quotes
7. Return one compact JSON object only, no markdown and no line breaks

Format (example only, do not copy the content):
{"recipes":[{"title":"Title","description":"Description","cook_minutes":20,"difficulty":"easy","tags":["tag"],"ingredients":[{"name":"egg","quantity":2,"unit":"piece"}],"steps":["Step one"]}]}`)
	return b.String()
}

func toDomain(r generatedRecipe) domain.GeneratedRecipe {
	difficulty := domain.Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty)))
	if !difficulty.Valid() {
		difficulty = ""
	}
	cook := r.CookMinutes
	if cook < 0 {
		cook = 0
	}

	ingredients := make([]domain.FreeTextIngredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		qty := ing.Quantity
		if qty < 0 {
			qty = 0
		}
		ingredients = append(ingredients, domain.FreeTextIngredient{
			Name:     name,
			Quantity: qty,
			Unit:     strings.TrimSpace(ing.Unit),
		})
	}

	steps := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}

	return domain.GeneratedRecipe{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		CookMinutes: cook,
		Difficulty:  difficulty,
		Tags:        common.SortedLowerSet(r.Tags),
		Ingredients: ingredients,
		Steps:       steps,
	}
}
