package store

import "database/sql"

const schemaName = "recipe-discovery"

// Migration 單一版本的 schema 變更
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "products and units",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE products (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					name       TEXT     NOT NULL,
					name_key   TEXT     NOT NULL,
					owner_id   TEXT     NOT NULL DEFAULT '',
					is_global  INTEGER  NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (owner_id, name_key)
				)`,
				`CREATE INDEX idx_products_visible ON products (is_global, owner_id)`,
				`CREATE TABLE units (
					id           TEXT PRIMARY KEY,
					name         TEXT NOT NULL,
					abbreviation TEXT NOT NULL,
					dimension    TEXT NOT NULL DEFAULT ''
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "recipes, ingredients and tags",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE recipes (
					id           TEXT PRIMARY KEY,
					owner_id     TEXT     NOT NULL,
					title        TEXT     NOT NULL,
					description  TEXT     NOT NULL DEFAULT '',
					cook_minutes INTEGER  NOT NULL DEFAULT 0,
					difficulty   TEXT     NOT NULL DEFAULT '',
					steps        TEXT     NOT NULL DEFAULT '[]',
					created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_recipes_owner ON recipes (owner_id)`,
				`CREATE TABLE recipe_ingredients (
					recipe_id  TEXT    NOT NULL REFERENCES recipes (id) ON DELETE CASCADE,
					position   INTEGER NOT NULL,
					product_id INTEGER REFERENCES products (id),
					name       TEXT    NOT NULL DEFAULT '',
					quantity   REAL    NOT NULL,
					unit_id    TEXT    NOT NULL DEFAULT '',
					PRIMARY KEY (recipe_id, position)
				)`,
				`CREATE TABLE recipe_tags (
					recipe_id TEXT NOT NULL REFERENCES recipes (id) ON DELETE CASCADE,
					tag       TEXT NOT NULL,
					PRIMARY KEY (recipe_id, tag)
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "fridge items",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE fridge_items (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id   TEXT     NOT NULL,
					product_id INTEGER  NOT NULL REFERENCES products (id),
					quantity   REAL     NOT NULL,
					unit_id    TEXT     NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_fridge_owner ON fridge_items (owner_id)`,
			)
		},
	},
}
