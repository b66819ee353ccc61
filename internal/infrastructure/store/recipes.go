package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/pkg/common"
)

var _ discovery.RecipeStore = (*SQLiteStore)(nil)

// SaveRecipe 新增或覆寫使用者食譜（含食材與標籤）
func (s *SQLiteStore) SaveRecipe(ctx context.Context, ownerID string, r domain.Recipe) (domain.Recipe, error) {
	if r.ID == "" {
		r.ID = common.GenerateUUID()
	}
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("encode steps: %w", err)
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		var existingOwner string
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM recipes WHERE id = ?`, r.ID).Scan(&existingOwner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("check recipe: %w", err)
		case existingOwner != ownerID:
			return common.ErrConflict
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipes (id, owner_id, title, description, cook_minutes, difficulty, steps)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				cook_minutes = excluded.cook_minutes,
				difficulty = excluded.difficulty,
				steps = excluded.steps`,
			r.ID, ownerID, r.Title, r.Description, r.CookMinutes, string(r.Difficulty), string(steps),
		); err != nil {
			return fmt.Errorf("upsert recipe: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clear ingredients: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}

		for i, ing := range r.Ingredients {
			var productID interface{}
			if ing.ProductID != 0 {
				productID = ing.ProductID
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recipe_ingredients (recipe_id, position, product_id, name, quantity, unit_id)
				VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, i, productID, ing.Name, ing.Quantity, ing.Unit.ID,
			); err != nil {
				return fmt.Errorf("insert ingredient %d: %w", i, err)
			}
		}
		for _, tag := range common.SortedLowerSet(r.Tags) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO recipe_tags (recipe_id, tag) VALUES (?, ?)`, r.ID, tag,
			); err != nil {
				return fmt.Errorf("insert tag %q: %w", tag, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	return r, nil
}

// ListOwned 使用者的所有食譜，依建立順序
func (s *SQLiteStore) ListOwned(ctx context.Context, ownerID string) ([]domain.Recipe, error) {
	return s.queryRecipes(ctx, `WHERE r.owner_id = ?`, ownerID)
}

// GetRecipe 取得使用者的單一食譜
func (s *SQLiteStore) GetRecipe(ctx context.Context, ownerID, id string) (domain.Recipe, error) {
	recipes, err := s.queryRecipes(ctx, `WHERE r.owner_id = ? AND r.id = ?`, ownerID, id)
	if err != nil {
		return domain.Recipe{}, err
	}
	if len(recipes) == 0 {
		return domain.Recipe{}, common.NewNotFoundError("recipe", id)
	}
	return recipes[0], nil
}

func (s *SQLiteStore) queryRecipes(ctx context.Context, where string, args ...interface{}) ([]domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.description, r.cook_minutes, r.difficulty, r.steps
		FROM recipes r `+where+`
		ORDER BY r.created_at, r.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}

	var (
		recipes []domain.Recipe
		index   = make(map[string]int)
	)
	for rows.Next() {
		var (
			r     domain.Recipe
			diff  string
			steps string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.CookMinutes, &diff, &steps); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		r.Difficulty = domain.Difficulty(diff)
		if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode steps of %s: %w", r.ID, err)
		}
		r.Ingredients = []domain.RequiredIngredient{}
		index[r.ID] = len(recipes)
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(recipes) == 0 {
		return recipes, nil
	}

	ids := make([]interface{}, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	if err := s.loadIngredients(ctx, recipes, index, placeholders, ids); err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, recipes, index, placeholders, ids); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *SQLiteStore) loadIngredients(ctx context.Context, recipes []domain.Recipe, index map[string]int, placeholders string, ids []interface{}) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.recipe_id, COALESCE(ri.product_id, 0), ri.name, COALESCE(p.name, ''),
		       ri.quantity, ri.unit_id, u.name, u.abbreviation, u.dimension
		FROM recipe_ingredients ri
		LEFT JOIN products p ON p.id = ri.product_id
		LEFT JOIN units u ON u.id = ri.unit_id
		WHERE ri.recipe_id IN (`+placeholders+`)
		ORDER BY ri.recipe_id, ri.position`, ids...)
	if err != nil {
		return fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			recipeID, productName, unitID string
			uName, uAbbr, uDim            sql.NullString
			ing                           domain.RequiredIngredient
		)
		if err := rows.Scan(&recipeID, &ing.ProductID, &ing.Name, &productName,
			&ing.Quantity, &unitID, &uName, &uAbbr, &uDim); err != nil {
			return fmt.Errorf("scan ingredient: %w", err)
		}
		if ing.Name == "" {
			ing.Name = productName
		}
		ing.Unit = unitFromRow(unitID, uName, uAbbr, uDim)
		i := index[recipeID]
		recipes[i].Ingredients = append(recipes[i].Ingredients, ing)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadTags(ctx context.Context, recipes []domain.Recipe, index map[string]int, placeholders string, ids []interface{}) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipe_id, tag FROM recipe_tags
		WHERE recipe_id IN (`+placeholders+`)
		ORDER BY recipe_id, tag`, ids...)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID, tag string
		if err := rows.Scan(&recipeID, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		i := index[recipeID]
		recipes[i].Tags = append(recipes[i].Tags, tag)
	}
	return rows.Err()
}
