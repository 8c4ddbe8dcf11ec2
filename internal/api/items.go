package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/imaging"
	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/report"
	"github.com/adiwira/gudang/internal/store"
)

// ItemsHandler handles item catalog endpoints.
type ItemsHandler struct {
	DB  *sql.DB
	Bus *events.Bus
}

type itemRequest struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CategoryID   *int64          `json:"category_id"`
	Unit         string          `json:"unit"`
	InitialStock int             `json:"initial_stock"`
	MinStock     int             `json:"min_stock"`
	MaxStock     int             `json:"max_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Description  string          `json:"description"`
}

func (req *itemRequest) params() store.ItemParams {
	unit := req.Unit
	if unit == "" {
		unit = "Pcs"
	}
	return store.ItemParams{
		Code:        req.Code,
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Unit:        unit,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		UnitPrice:   req.UnitPrice,
		Description: req.Description,
	}
}

// itemView decorates an item with its derived stock status and fill
// percentage, matching what every stock table renders.
type itemView struct {
	model.Item
	StockStatus report.Status `json:"stock_status"`
	FillPercent float64       `json:"fill_percent"`
}

func viewItems(items []model.Item) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = itemView{
			Item:        item,
			StockStatus: report.Classify(item.Stock, item.MinStock),
			FillPercent: report.FillPercent(item.Stock, item.MaxStock),
		}
	}
	return views
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	lowOnly := r.URL.Query().Get("low") == "true"

	items, err := store.ListItems(r.Context(), h.DB, search, lowOnly)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, viewItems(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Code == "" {
		jsonError(w, http.StatusBadRequest, "name and code required")
		return
	}
	if req.InitialStock < 0 {
		jsonError(w, http.StatusBadRequest, "initial stock must not be negative")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.params(), req.InitialStock)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.Bus.Publish("items")
	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Email, "item", item.Name, "code", item.Code)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	// The store keeps soft-deleted items resolvable for history joins;
	// the public catalog does not.
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	views := viewItems([]model.Item{*item})
	jsonResponse(w, http.StatusOK, views[0])
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Code == "" {
		jsonError(w, http.StatusBadRequest, "name and code required")
		return
	}

	existing, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, req.params()); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.Bus.Publish("items")
	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Email, "item", req.Name)

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// Adjust handles POST /api/items/{id}/adjust, the direct stock
// correction path alongside transaction posting.
func (h *ItemsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "non-zero delta required")
		return
	}

	if err := store.AdjustStock(r.Context(), h.DB, id, req.Delta); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	h.Bus.Publish("items")
	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.Bus.Publish("items")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles POST /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	h.Bus.Publish("items")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
