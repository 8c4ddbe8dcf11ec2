package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/report"
)

// PostLine is one requested line of a posting.
type PostLine struct {
	ItemID   int64
	Quantity int
	Note     string
}

// PostTransaction posts a stock-in or stock-out with all its lines in a
// single database transaction. Stock-out decrements are conditional
// (stock >= quantity) so a shortfall on any line rolls back the whole
// posting: no header, no lines, no partial stock movement. Stock-out
// lines that land at or below the item's minimum also write a low-stock
// notification inside the same transaction; alerted reports whether any
// line did.
func PostTransaction(ctx context.Context, db *sql.DB, typ, date, party string, createdBy *int64, lines []PostLine) (_ *model.Transaction, alerted bool, _ error) {
	if typ != model.TransactionIn && typ != model.TransactionOut {
		return nil, false, fmt.Errorf("invalid transaction type %q", typ)
	}
	if party == "" {
		return nil, false, fmt.Errorf("party is required")
	}
	if len(lines) == 0 {
		return nil, false, fmt.Errorf("at least one line is required")
	}
	for _, line := range lines {
		if line.ItemID <= 0 || line.Quantity <= 0 {
			return nil, false, fmt.Errorf("every line needs an item and a positive quantity")
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	code := "TRX-" + strings.ToUpper(uuid.NewString()[:8])

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (code, type, date, party, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		code, typ, date, party, model.TransactionDone, createdBy,
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating transaction: %w", err)
	}

	transactionID, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("getting transaction id: %w", err)
	}

	for _, line := range lines {
		if typ == model.TransactionOut {
			res, err := tx.ExecContext(ctx,
				`UPDATE items SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ? AND deleted_at IS NULL AND stock >= ?`,
				line.Quantity, line.ItemID, line.Quantity,
			)
			if err != nil {
				return nil, false, fmt.Errorf("decrementing stock: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, false, fmt.Errorf("checking stock decrement: %w", err)
			}
			if n == 0 {
				return nil, false, shortfallError(ctx, tx, line)
			}
		} else {
			res, err := tx.ExecContext(ctx,
				`UPDATE items SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ? AND deleted_at IS NULL`,
				line.Quantity, line.ItemID,
			)
			if err != nil {
				return nil, false, fmt.Errorf("incrementing stock: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, false, fmt.Errorf("checking stock increment: %w", err)
			}
			if n == 0 {
				return nil, false, fmt.Errorf("item %d: %w", line.ItemID, ErrItemNotFound)
			}
		}

		// Snapshot the item's unit for the line and read back the new
		// stock level for the low-stock alert.
		var name, unit string
		var stock, minStock int
		err = tx.QueryRowContext(ctx,
			`SELECT name, unit, stock, min_stock FROM items WHERE id = ?`, line.ItemID,
		).Scan(&name, &unit, &stock, &minStock)
		if err != nil {
			return nil, false, fmt.Errorf("reading item after stock update: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, item_id, quantity, unit, note)
			 VALUES (?, ?, ?, ?, ?)`,
			transactionID, line.ItemID, line.Quantity, unit, line.Note,
		)
		if err != nil {
			return nil, false, fmt.Errorf("creating transaction line: %w", err)
		}

		if typ == model.TransactionOut && stock <= minStock {
			err = CreateNotification(ctx, tx, "Low stock",
				fmt.Sprintf("%s is down to %d %s (minimum %d)", name, stock, unit, minStock))
			if err != nil {
				return nil, false, fmt.Errorf("creating low stock notification: %w", err)
			}
			alerted = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing posting: %w", err)
	}

	posted, err := GetTransaction(ctx, db, transactionID)
	if err != nil {
		return nil, false, err
	}
	return posted, alerted, nil
}

// shortfallError builds the error for a failed conditional decrement,
// distinguishing a missing item from insufficient stock.
func shortfallError(ctx context.Context, tx *sql.Tx, line PostLine) error {
	var name string
	var stock int
	err := tx.QueryRowContext(ctx,
		`SELECT name, stock FROM items WHERE id = ? AND deleted_at IS NULL`, line.ItemID,
	).Scan(&name, &stock)
	if err == sql.ErrNoRows {
		return fmt.Errorf("item %d: %w", line.ItemID, ErrItemNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking item after failed decrement: %w", err)
	}
	return fmt.Errorf("%s: have %d, need %d: %w", name, stock, line.Quantity, ErrInsufficientStock)
}

// GetTransaction returns a transaction with its lines.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	t := &model.Transaction{}
	var creatorName sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT t.id, t.code, t.type, t.date, t.party, t.status, t.created_by, t.created_at, p.full_name
		 FROM transactions t
		 LEFT JOIN profiles p ON p.user_id = t.created_by
		 WHERE t.id = ?`, id,
	).Scan(&t.ID, &t.Code, &t.Type, &t.Date, &t.Party, &t.Status, &t.CreatedBy, &t.CreatedAt, &creatorName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	t.CreatorName = creatorName.String

	t.Lines, err = listLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions returns transactions with joined lines, newest first.
// Type filters by in/out, search matches the party or any line's item
// name, and limit caps the result (0 means no cap).
func ListTransactions(ctx context.Context, db *sql.DB, typ, search string, limit int) ([]model.Transaction, error) {
	query := `SELECT t.id, t.code, t.type, t.date, t.party, t.status, t.created_by, t.created_at, p.full_name
	          FROM transactions t
	          LEFT JOIN profiles p ON p.user_id = t.created_by
	          WHERE 1=1`
	var args []any

	if typ != "" {
		query += ` AND t.type = ?`
		args = append(args, typ)
	}
	if search != "" {
		query += ` AND (t.party LIKE ? OR EXISTS (
		               SELECT 1 FROM transaction_items ti
		               JOIN items i ON i.id = ti.item_id
		               WHERE ti.transaction_id = t.id AND i.name LIKE ?))`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY t.date DESC, t.id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var creatorName sql.NullString
		if err := rows.Scan(&t.ID, &t.Code, &t.Type, &t.Date, &t.Party, &t.Status, &t.CreatedBy, &t.CreatedAt, &creatorName); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.CreatorName = creatorName.String
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range transactions {
		transactions[i].Lines, err = listLines(ctx, db, transactions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return transactions, nil
}

func listLines(ctx context.Context, db *sql.DB, transactionID int64) ([]model.TransactionLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ti.id, ti.transaction_id, ti.item_id, ti.quantity, ti.unit, ti.note, i.name
		 FROM transaction_items ti
		 JOIN items i ON i.id = ti.item_id
		 WHERE ti.transaction_id = ?
		 ORDER BY ti.id`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []model.TransactionLine
	for rows.Next() {
		var l model.TransactionLine
		var note sql.NullString
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.ItemID, &l.Quantity, &l.Unit, &note, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning transaction line: %w", err)
		}
		l.Note = note.String
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListMovements returns flattened line movements dated on or after since
// (YYYY-MM-DD), as input for the trend and top-N derivations.
func ListMovements(ctx context.Context, db *sql.DB, since string) ([]report.Movement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.date, t.type, i.name, ti.quantity
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 JOIN items i ON i.id = ti.item_id
		 WHERE t.date >= ?
		 ORDER BY t.date`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var moves []report.Movement
	for rows.Next() {
		var m report.Movement
		if err := rows.Scan(&m.Date, &m.Type, &m.ItemName, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// ReportRow is one flattened transaction line joined with the pricing
// fields the report tabs need.
type ReportRow struct {
	Date      string          `json:"date"`
	Code      string          `json:"code"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
	Party     string          `json:"party"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ListReportRows returns all lines of the given transaction type,
// newest first, with each line's item name and current unit price.
func ListReportRows(ctx context.Context, db *sql.DB, typ string) ([]ReportRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.date, t.code, i.name, ti.quantity, ti.unit, t.party, i.unit_price
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 JOIN items i ON i.id = ti.item_id
		 WHERE t.type = ?
		 ORDER BY t.date DESC, ti.id DESC`, typ,
	)
	if err != nil {
		return nil, fmt.Errorf("listing report rows: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		var price string
		if err := rows.Scan(&r.Date, &r.Code, &r.ItemName, &r.Quantity, &r.Unit, &r.Party, &price); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		if r.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing unit price %q: %w", price, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TodayTotals returns today's total in and out quantities.
func TodayTotals(ctx context.Context, db *sql.DB, date string) (in, out int, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN t.type = 'in' THEN ti.quantity ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN t.type = 'out' THEN ti.quantity ELSE 0 END), 0)
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 WHERE t.date = ?`, date,
	).Scan(&in, &out)
	if err != nil {
		return 0, 0, fmt.Errorf("summing today's totals: %w", err)
	}
	return in, out, nil
}
