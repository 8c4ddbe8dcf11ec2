package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/report"
	"github.com/adiwira/gudang/internal/store"
)

// ReportsHandler serves the three report tabs as JSON or as a PDF
// download.
type ReportsHandler struct {
	DB *sql.DB
}

type lineReportRow struct {
	Date     string `json:"date"`
	Code     string `json:"code"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
	Party    string `json:"party"`
	Total    string `json:"total"`
}

type stockReportRow struct {
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Stock    int           `json:"stock"`
	Unit     string        `json:"unit"`
	MinStock int           `json:"min_stock"`
	MaxStock int           `json:"max_stock"`
	Status   report.Status `json:"status"`
}

// Get handles GET /api/reports/{tab}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	switch tab := r.PathValue("tab"); tab {
	case model.TransactionIn, model.TransactionOut:
		rows, err := h.lineRows(r, tab)
		if err != nil {
			slog.Error("failed to build report", "tab", tab, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		jsonResponse(w, http.StatusOK, rows)
	case "stock":
		rows, err := h.stockRows(r)
		if err != nil {
			slog.Error("failed to build report", "tab", tab, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		jsonResponse(w, http.StatusOK, rows)
	default:
		jsonError(w, http.StatusNotFound, "unknown report tab")
	}
}

// Export handles GET /api/reports/{tab}/pdf.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	tab := r.PathValue("tab")
	now := time.Now()

	var table report.Table
	switch tab {
	case model.TransactionIn, model.TransactionOut:
		rows, err := h.lineRows(r, tab)
		if err != nil {
			slog.Error("failed to build report", "tab", tab, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		title := "Stock In Report"
		party := "Supplier"
		if tab == model.TransactionOut {
			title = "Stock Out Report"
			party = "Destination"
		}
		table = report.Table{
			Title:     title,
			Columns:   []string{"Date", "Code", "Item", "Qty", "Unit", party, "Total"},
			Widths:    []float64{2, 2.5, 4, 1, 1.5, 3, 2.5},
			Landscape: true,
		}
		for _, row := range rows {
			table.Rows = append(table.Rows, []string{
				row.Date, row.Code, row.ItemName,
				fmt.Sprintf("%d", row.Quantity), row.Unit, row.Party, row.Total,
			})
		}
	case "stock":
		rows, err := h.stockRows(r)
		if err != nil {
			slog.Error("failed to build report", "tab", tab, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
		table = report.Table{
			Title:   "Stock Report",
			Columns: []string{"Code", "Item", "Category", "Stock", "Unit", "Min", "Max", "Status"},
			Widths:  []float64{2, 4, 2.5, 1.5, 1.5, 1, 1, 2},
		}
		for _, row := range rows {
			table.Rows = append(table.Rows, []string{
				row.Code, row.Name, row.Category,
				fmt.Sprintf("%d", row.Stock), row.Unit,
				fmt.Sprintf("%d", row.MinStock), fmt.Sprintf("%d", row.MaxStock),
				string(row.Status),
			})
		}
	default:
		jsonError(w, http.StatusNotFound, "unknown report tab")
		return
	}

	data, err := report.RenderPDF(table, now)
	if err != nil {
		slog.Error("failed to render PDF", "tab", tab, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", report.Filename(tab, now)))
	w.Write(data)
}

func (h *ReportsHandler) lineRows(r *http.Request, typ string) ([]lineReportRow, error) {
	raw, err := store.ListReportRows(r.Context(), h.DB, typ)
	if err != nil {
		return nil, err
	}
	rows := make([]lineReportRow, 0, len(raw))
	for _, rr := range raw {
		total := rr.UnitPrice.Mul(decimal.NewFromInt(int64(rr.Quantity)))
		rows = append(rows, lineReportRow{
			Date:     rr.Date,
			Code:     rr.Code,
			ItemName: rr.ItemName,
			Quantity: rr.Quantity,
			Unit:     rr.Unit,
			Party:    rr.Party,
			Total:    report.FormatMoney(total),
		})
	}
	return rows, nil
}

func (h *ReportsHandler) stockRows(r *http.Request) ([]stockReportRow, error) {
	items, err := store.ListItems(r.Context(), h.DB, "", false)
	if err != nil {
		return nil, err
	}
	rows := make([]stockReportRow, 0, len(items))
	for _, it := range items {
		category := it.CategoryName
		if category == "" {
			category = report.UncategorizedName
		}
		rows = append(rows, stockReportRow{
			Code:     it.Code,
			Name:     it.Name,
			Category: category,
			Stock:    it.Stock,
			Unit:     it.Unit,
			MinStock: it.MinStock,
			MaxStock: it.MaxStock,
			Status:   report.Classify(it.Stock, it.MinStock),
		})
	}
	return rows, nil
}
