package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adiwira/gudang/internal/model"
)

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return &model.Category{ID: id, Name: name}, nil
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category. Items keep working without one;
// their category reference is cleared first.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET category_id = NULL WHERE category_id = ?`, id,
	); err != nil {
		return fmt.Errorf("detaching items from category: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category deletion: %w", err)
	}
	return nil
}
