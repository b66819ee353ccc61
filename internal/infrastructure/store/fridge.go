package store

import (
	"context"
	"database/sql"
	"fmt"

	"recipe-discovery/internal/core/domain"
)

// ListItems 使用者冰箱品項（含商品名稱與單位定義），不做彙總
func (s *SQLiteStore) ListItems(ctx context.Context, ownerID string) ([]domain.AvailableItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.product_id, p.name, f.quantity, f.unit_id, u.name, u.abbreviation, u.dimension
		FROM fridge_items f
		JOIN products p ON p.id = f.product_id
		LEFT JOIN units u ON u.id = f.unit_id
		WHERE f.owner_id = ?
		ORDER BY f.id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query fridge: %w", err)
	}
	defer rows.Close()

	items := []domain.AvailableItem{}
	for rows.Next() {
		var (
			item               domain.AvailableItem
			unitID             string
			uName, uAbbr, uDim sql.NullString
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &unitID, &uName, &uAbbr, &uDim); err != nil {
			return nil, fmt.Errorf("scan fridge item: %w", err)
		}
		item.Unit = unitFromRow(unitID, uName, uAbbr, uDim)
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddItem 新增冰箱品項，商品必須對使用者可見
func (s *SQLiteStore) AddItem(ctx context.Context, ownerID string, item domain.AvailableItem) (int64, error) {
	if _, err := s.GetProduct(ctx, ownerID, item.ProductID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fridge_items (owner_id, product_id, quantity, unit_id)
		VALUES (?, ?, ?, ?)`,
		ownerID, item.ProductID, item.Quantity, item.Unit.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fridge item: %w", err)
	}
	return res.LastInsertId()
}
