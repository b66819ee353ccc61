package discovery

import (
	"fmt"
	"strings"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

var difficultyRank = map[domain.Difficulty]int{
	domain.DifficultyEasy:   1,
	domain.DifficultyMedium: 2,
	domain.DifficultyHard:   3,
}

// normalizePreferences 驗證偏好並補上預設值
func normalizePreferences(p domain.Preferences, cfg Config) (domain.Preferences, error) {
	if p.MaxCookMinutes < 0 {
		return p, common.NewFieldValidationError("preferences.max_cook_minutes", "must not be negative")
	}
	if p.MaxResults < 0 {
		return p, common.NewFieldValidationError("preferences.max_results", "must not be negative")
	}
	if p.MaxResults > cfg.MaxResultsLimit {
		return p, common.NewFieldValidationError("preferences.max_results",
			fmt.Sprintf("must not exceed %d", cfg.MaxResultsLimit))
	}
	if p.MaxResults == 0 {
		p.MaxResults = cfg.DefaultMaxResults
	}

	p.Difficulty = domain.Difficulty(strings.ToLower(strings.TrimSpace(string(p.Difficulty))))
	if p.Difficulty != "" && !p.Difficulty.Valid() {
		return p, common.NewFieldValidationError("preferences.difficulty",
			fmt.Sprintf("unknown difficulty %q", p.Difficulty))
	}

	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return p, common.NewFieldValidationError("preferences.tags", "tag must not be blank")
		}
		tags = append(tags, tag)
	}
	p.Tags = tags
	return p, nil
}

// matchesPreferences 保守判斷：食譜缺少偏好相關欄位時排除
func matchesPreferences(r domain.Recipe, p domain.Preferences) bool {
	if p.MaxCookMinutes > 0 {
		if r.CookMinutes <= 0 || r.CookMinutes > p.MaxCookMinutes {
			return false
		}
	}

	if p.Difficulty != "" {
		rank, ok := difficultyRank[domain.Difficulty(strings.ToLower(string(r.Difficulty)))]
		if !ok || rank > difficultyRank[p.Difficulty] {
			return false
		}
	}

	if len(p.Tags) > 0 {
		have := make(map[string]bool, len(r.Tags))
		for _, tag := range r.Tags {
			have[strings.ToLower(strings.TrimSpace(tag))] = true
		}
		for _, tag := range p.Tags {
			if !have[tag] {
				return false
			}
		}
	}
	return true
}
