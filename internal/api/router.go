package api

import (
	"database/sql"
	"net/http"

	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/model"
)

// NewRouter builds the HTTP routing table. Register and login are
// public; everything else sits behind token auth plus a capability
// check matching the role policy.
func NewRouter(db *sql.DB, bus *events.Bus, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Bus: bus, JWTSecret: jwtSecret}
	items := &ItemsHandler{DB: db, Bus: bus}
	categories := &CategoriesHandler{DB: db, Bus: bus}
	transactions := &TransactionsHandler{DB: db, Bus: bus}
	dashboard := &DashboardHandler{DB: db}
	reports := &ReportsHandler{DB: db}
	users := &UsersHandler{DB: db, Bus: bus}
	notifications := &NotificationsHandler{DB: db, Bus: bus}
	eventsHandler := &EventsHandler{Bus: bus}

	authMW := AuthMiddleware(jwtSecret, db)
	view := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapViewInventory)(h))
	}
	manage := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapManageItems)(h))
	}
	post := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapPostTransactions)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapManageUsers)(h))
	}
	export := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapExportReports)(h))
	}
	notify := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireCapability(model.CapReadNotifications)(h))
	}

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("GET /api/items", view(items.List))
	mux.Handle("POST /api/items", manage(items.Create))
	mux.Handle("GET /api/items/{id}", view(items.Get))
	mux.Handle("PUT /api/items/{id}", manage(items.Update))
	mux.Handle("DELETE /api/items/{id}", manage(items.Delete))
	mux.Handle("POST /api/items/{id}/adjust", manage(items.Adjust))
	mux.Handle("POST /api/items/{id}/image", manage(items.UploadImage))
	mux.Handle("GET /api/items/{id}/image", view(items.GetImage))

	mux.Handle("GET /api/categories", view(categories.List))
	mux.Handle("POST /api/categories", manage(categories.Create))
	mux.Handle("DELETE /api/categories/{id}", manage(categories.Delete))

	mux.Handle("GET /api/transactions", view(transactions.List))
	mux.Handle("POST /api/transactions", post(transactions.Create))

	mux.Handle("GET /api/dashboard", view(dashboard.Dashboard))
	mux.Handle("GET /api/stock", view(dashboard.Stock))

	mux.Handle("GET /api/reports/{tab}", view(reports.Get))
	mux.Handle("GET /api/reports/{tab}/pdf", export(reports.Export))

	mux.Handle("GET /api/users", admin(users.List))
	mux.Handle("POST /api/users", admin(users.Create))
	mux.Handle("GET /api/users/{id}", admin(users.Get))
	mux.Handle("PUT /api/users/{id}", admin(users.Update))
	mux.Handle("DELETE /api/users/{id}", admin(users.Delete))
	mux.Handle("PUT /api/users/{id}/role", admin(users.SetRole))
	mux.Handle("PUT /api/users/{id}/status", admin(users.SetStatus))
	mux.Handle("PUT /api/users/{id}/password", admin(users.ResetPassword))

	mux.Handle("GET /api/notifications", notify(notifications.List))
	mux.Handle("PUT /api/notifications/read", notify(notifications.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", notify(notifications.MarkRead))

	mux.Handle("GET /api/events", view(eventsHandler.Stream))

	return LoggingMiddleware(mux)
}
