package model

import "time"

// Transaction represents a posted stock-in or stock-out event.
// Transactions are created once at posting time and never edited.
type Transaction struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	Date      string    `json:"date"`
	Party     string    `json:"party"`
	Status    string    `json:"status"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	CreatorName string            `json:"creator_name,omitempty"`
	Lines       []TransactionLine `json:"lines,omitempty"`
}

// TransactionLine is one item row within a transaction.
type TransactionLine struct {
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction_id"`
	ItemID        int64  `json:"item_id"`
	Quantity      int    `json:"quantity"`
	Unit          string `json:"unit"`
	Note          string `json:"note,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Transaction types.
const (
	TransactionIn  = "in"
	TransactionOut = "out"
)

// Transaction statuses.
const (
	TransactionPending = "pending"
	TransactionDone    = "done"
)
