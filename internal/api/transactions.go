package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/store"
)

// TransactionsHandler handles posting and history endpoints.
type TransactionsHandler struct {
	DB  *sql.DB
	Bus *events.Bus
}

type postLineRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type postTransactionRequest struct {
	Type  string            `json:"type"`
	Date  string            `json:"date"`
	Party string            `json:"party"`
	Lines []postLineRequest `json:"lines"`
}

// Create handles POST /api/transactions: a stock-in or stock-out posting.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type != model.TransactionIn && req.Type != model.TransactionOut {
		jsonError(w, http.StatusBadRequest, "type must be in or out")
		return
	}
	if req.Party == "" {
		jsonError(w, http.StatusBadRequest, "party required")
		return
	}
	if len(req.Lines) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one line required")
		return
	}
	for _, line := range req.Lines {
		if line.ItemID <= 0 || line.Quantity <= 0 {
			jsonError(w, http.StatusBadRequest, "every line needs an item and a positive quantity")
			return
		}
	}

	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	claims := GetClaims(r.Context())
	var userID *int64
	if claims != nil {
		userID = &claims.UserID
	}

	lines := make([]store.PostLine, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = store.PostLine{ItemID: line.ItemID, Quantity: line.Quantity, Note: line.Note}
	}

	transaction, alerted, err := store.PostTransaction(r.Context(), h.DB, req.Type, date, req.Party, userID, lines)
	if errors.Is(err, store.ErrInsufficientStock) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, store.ErrItemNotFound) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to post transaction", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to post transaction")
		return
	}

	if alerted {
		h.Bus.Publish("transactions", "transaction_items", "items", "notifications")
	} else {
		h.Bus.Publish("transactions", "transaction_items", "items")
	}
	slog.Info("transaction posted", "user", claims.Email, "code", transaction.Code,
		"type", transaction.Type, "party", transaction.Party, "lines", len(transaction.Lines))
	jsonResponse(w, http.StatusCreated, transaction)
}

// List handles GET /api/transactions with type filter and name search.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ != "" && typ != model.TransactionIn && typ != model.TransactionOut {
		jsonError(w, http.StatusBadRequest, "type must be in or out")
		return
	}
	search := r.URL.Query().Get("search")

	transactions, err := store.ListTransactions(r.Context(), h.DB, typ, search, 0)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, transactions)
}
