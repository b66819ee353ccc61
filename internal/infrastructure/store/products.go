package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/product"
	"recipe-discovery/internal/pkg/common"
)

var _ product.Store = (*SQLiteStore)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindVisible 全域商品與該使用者私有商品中，名稱鍵包含 NameFilter 者
func (s *SQLiteStore) FindVisible(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q.NameFilter)) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, is_global
		FROM products
		WHERE (is_global = 1 OR owner_id = ?) AND name_key LIKE ? ESCAPE '\'
		ORDER BY length(name_key), id
		LIMIT ?`,
		q.OwnerID, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.Global); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create 新增商品；(owner, 名稱鍵) 已存在時回傳 common.ErrConflict
func (s *SQLiteStore) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	ownerID := p.OwnerID
	if p.Global {
		ownerID = ""
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, name_key, owner_id, is_global)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, name_key) DO NOTHING`,
		p.Name, product.NameKey(p.Name), ownerID, p.Global,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	if n == 0 {
		return domain.Product{}, common.ErrConflict
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	p.ID = id
	p.OwnerID = ownerID
	return p, nil
}

// GetProduct 依 id 取得使用者可見的商品
func (s *SQLiteStore) GetProduct(ctx context.Context, ownerID string, id int64) (domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, is_global
		FROM products
		WHERE id = ? AND (is_global = 1 OR owner_id = ?)`,
		id, ownerID,
	).Scan(&p.ID, &p.Name, &p.OwnerID, &p.Global)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, common.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// SeedUnits 寫入單位定義；已存在者略過
func (s *SQLiteStore) SeedUnits(ctx context.Context, units []domain.Unit) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO units (id, name, abbreviation, dimension)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare unit insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range units {
			if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Abbreviation, string(u.Dimension)); err != nil {
				return fmt.Errorf("insert unit %q: %w", u.ID, err)
			}
		}
		return nil
	})
}

// unitFromRow 由 LEFT JOIN units 的結果組出 Unit；沒有定義的單位以 id 作為標籤
func unitFromRow(id string, name, abbr, dim sql.NullString) domain.Unit {
	if !name.Valid {
		return domain.Unit{ID: id, Name: id, Abbreviation: id}
	}
	return domain.Unit{
		ID:           id,
		Name:         name.String,
		Abbreviation: abbr.String,
		Dimension:    domain.Dimension(dim.String),
	}
}
