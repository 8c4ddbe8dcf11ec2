package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB  *sql.DB
	Bus *events.Bus
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	h.Bus.Publish("categories")
	jsonResponse(w, http.StatusCreated, category)
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	h.Bus.Publish("categories", "items")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deleted"})
}
