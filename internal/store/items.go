package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/adiwira/gudang/internal/model"
)

const itemColumns = `i.id, i.code, i.name, i.category_id, i.unit, i.stock,
	i.min_stock, i.max_stock, i.unit_price, i.description, i.image_mime,
	i.created_at, i.updated_at, i.deleted_at, c.name`

// ItemParams holds the editable fields of an item.
type ItemParams struct {
	Code        string
	Name        string
	CategoryID  *int64
	Unit        string
	MinStock    int
	MaxStock    int
	UnitPrice   decimal.Decimal
	Description string
}

// CreateItem creates a new item with an initial stock level.
func CreateItem(ctx context.Context, db *sql.DB, p ItemParams, initialStock int) (*model.Item, error) {
	if initialStock < 0 {
		return nil, fmt.Errorf("initial stock must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (code, name, category_id, unit, stock, min_stock, max_stock, unit_price, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.Name, p.CategoryID, p.Unit, initialStock, p.MinStock, p.MaxStock, p.UnitPrice.String(), p.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i LEFT JOIN categories c ON c.id = i.category_id
		 WHERE i.id = ?`, id,
	)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by a
// name/code search string and a low-stock-only flag.
func ListItems(ctx context.Context, db *sql.DB, search string, lowOnly bool) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + `
	          FROM items i LEFT JOIN categories c ON c.id = i.category_id
	          WHERE i.deleted_at IS NULL`
	var args []any

	if search != "" {
		query += ` AND (i.name LIKE ? OR i.code LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if lowOnly {
		query += ` AND i.stock <= i.min_stock`
	}

	query += ` ORDER BY i.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata. Stock is not part of the
// update; it moves only through posting or AdjustStock.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, p ItemParams) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET code = ?, name = ?, category_id = ?, unit = ?,
		        min_stock = ?, max_stock = ?, unit_price = ?, description = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Code, p.Name, p.CategoryID, p.Unit, p.MinStock, p.MaxStock,
		p.UnitPrice.String(), p.Description, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// AdjustStock applies a direct stock correction. Delta can be negative;
// the update is conditional so the stock can never go below zero, even
// against a concurrent posting.
func AdjustStock(ctx context.Context, db *sql.DB, id int64, delta int) error {
	if delta == 0 {
		return fmt.Errorf("delta must be non-zero")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND stock + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking adjustment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("adjustment rejected: %w", ErrInsufficientStock)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// CountItems returns the number of non-deleted items.
func CountItems(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE deleted_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// CountLowStock returns the number of items at or below their minimum.
func CountLowStock(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE deleted_at IS NULL AND stock <= min_stock`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting low stock items: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var categoryID sql.NullInt64
	var description, imageMime, categoryName sql.NullString
	var price string

	err := row.Scan(&item.ID, &item.Code, &item.Name, &categoryID, &item.Unit,
		&item.Stock, &item.MinStock, &item.MaxStock, &price, &description,
		&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &categoryName)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		item.CategoryID = &categoryID.Int64
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	item.CategoryName = categoryName.String

	item.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing unit price %q: %w", price, err)
	}

	return item, nil
}
