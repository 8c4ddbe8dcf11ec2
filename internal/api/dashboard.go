package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/report"
	"github.com/adiwira/gudang/internal/store"
)

// Window sizes for the two trend charts.
const (
	dashboardTrendDays = 7
	stockTrendDays     = 14
)

// DashboardHandler serves the derived data behind the dashboard and
// stock monitor pages. Everything is recomputed from fresh rows on each
// request; clients refetch when the event stream reports changes.
type DashboardHandler struct {
	DB *sql.DB
}

type dashboardResponse struct {
	TotalItems int                  `json:"total_items"`
	TodayIn    int                  `json:"today_in"`
	TodayOut   int                  `json:"today_out"`
	LowStock   int                  `json:"low_stock"`
	Trend      []report.TrendBucket `json:"trend"`
	Recent     []model.Transaction  `json:"recent_transactions"`
}

// Dashboard handles GET /api/dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()
	today := now.Format("2006-01-02")

	totalItems, err := store.CountItems(ctx, h.DB)
	if err != nil {
		slog.Error("failed to count items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	todayIn, todayOut, err := store.TodayTotals(ctx, h.DB, today)
	if err != nil {
		slog.Error("failed to sum today's totals", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	lowStock, err := store.CountLowStock(ctx, h.DB)
	if err != nil {
		slog.Error("failed to count low stock", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	since := now.AddDate(0, 0, 1-dashboardTrendDays).Format("2006-01-02")
	moves, err := store.ListMovements(ctx, h.DB, since)
	if err != nil {
		slog.Error("failed to list movements", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	recent, err := store.ListTransactions(ctx, h.DB, "", "", 10)
	if err != nil {
		slog.Error("failed to list recent transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if recent == nil {
		recent = []model.Transaction{}
	}

	jsonResponse(w, http.StatusOK, dashboardResponse{
		TotalItems: totalItems,
		TodayIn:    todayIn,
		TodayOut:   todayOut,
		LowStock:   lowStock,
		Trend:      report.DailyTrend(now, dashboardTrendDays, moves),
		Recent:     recent,
	})
}

type stockResponse struct {
	Summary      report.StockSummary    `json:"summary"`
	Items        []itemView             `json:"items"`
	Trend        []report.TrendBucket   `json:"trend"`
	Distribution []report.CategorySlice `json:"distribution"`
	TopMovement  []report.ItemMovement  `json:"top_movement"`
}

// Stock handles GET /api/stock: the stock monitor's charts and table.
func (h *DashboardHandler) Stock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()
	search := r.URL.Query().Get("search")

	// The summary and charts always cover the full catalog; the search
	// only narrows the table rows.
	all, err := store.ListItems(ctx, h.DB, "", false)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load stock data")
		return
	}

	filtered := all
	if search != "" {
		filtered, err = store.ListItems(ctx, h.DB, search, false)
		if err != nil {
			slog.Error("failed to search items", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to load stock data")
			return
		}
	}

	since := now.AddDate(0, 0, 1-stockTrendDays).Format("2006-01-02")
	moves, err := store.ListMovements(ctx, h.DB, since)
	if err != nil {
		slog.Error("failed to list movements", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load stock data")
		return
	}

	jsonResponse(w, http.StatusOK, stockResponse{
		Summary:      report.Summarize(all),
		Items:        viewItems(filtered),
		Trend:        report.DailyTrend(now, stockTrendDays, moves),
		Distribution: report.CategoryDistribution(all),
		TopMovement:  report.TopMovement(moves, 8),
	})
}
