package api

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adiwira/gudang/internal/db"
	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, string) {
	t.Helper()
	database := db.NewTestDB(t)

	bus := events.NewBus()
	bus.CoalesceWindow = 10 * time.Millisecond

	server := httptest.NewServer(NewRouter(database, bus, testJWTSecret))
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin@example.com", string(hash), "Admin", "admin", model.RoleAdmin)

	return server, database, loginAs(t, server, "admin@example.com", "password123")
}

func loginAs(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func createTestItem(t *testing.T, server *httptest.Server, token, code, name string, stock, minStock int) model.Item {
	t.Helper()
	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"code": code, "name": name, "initial_stock": stock,
		"min_stock": minStock, "max_stock": stock * 2, "unit_price": "10000",
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d", resp.StatusCode)
	}
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	return item
}

func TestLoginEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRejected(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestViewerForbiddenFromMutations(t *testing.T) {
	server, database, _ := setupTestServer(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(context.Background(), database, "viewer@example.com", string(hash), "Viewer", "viewer", model.RoleViewer)
	token := loginAs(t, server, "viewer@example.com", "password123")

	// Reads are allowed.
	req, _ := authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected viewer to read items, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Writes are not.
	req, _ = authRequest("POST", server.URL+"/api/items", token, map[string]any{"code": "V-1", "name": "Nope"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for viewer item create, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/users", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for viewer user list, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	item := createTestItem(t, server, token, "BRG-001", "Printer Paper", 20, 5)

	// List.
	req, _ := authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var views []itemView
	json.NewDecoder(resp.Body).Decode(&views)
	resp.Body.Close()
	if len(views) != 1 {
		t.Fatalf("expected 1 item, got %d", len(views))
	}
	if views[0].StockStatus != "normal" {
		t.Errorf("expected normal status, got %q", views[0].StockStatus)
	}

	// Adjust down past zero conflicts and leaves stock alone.
	req, _ = authRequest("POST", server.URL+"/api/items/"+itoa(item.ID)+"/adjust", token, map[string]int{"delta": -25})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for overdraw adjust, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("POST", server.URL+"/api/items/"+itoa(item.ID)+"/adjust", token, map[string]int{"delta": -5})
	resp, _ = http.DefaultClient.Do(req)
	var adjusted model.Item
	json.NewDecoder(resp.Body).Decode(&adjusted)
	resp.Body.Close()
	if adjusted.Stock != 15 {
		t.Errorf("expected stock 15 after adjust, got %d", adjusted.Stock)
	}

	// Delete, then 404 on fetch.
	req, _ = authRequest("DELETE", server.URL+"/api/items/"+itoa(item.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/items/"+itoa(item.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionPostingFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	item := createTestItem(t, server, token, "BRG-002", "Toner", 10, 3)

	// Overdraw is rejected with 409 and writes nothing.
	req, _ := authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "out", "party": "Branch",
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 99}},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for overdraw, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/transactions", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var transactions []model.Transaction
	json.NewDecoder(resp.Body).Decode(&transactions)
	resp.Body.Close()
	if len(transactions) != 0 {
		t.Fatalf("expected no transactions after failed posting, got %d", len(transactions))
	}

	// A valid posting decrements and shows up in history.
	req, _ = authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "out", "party": "Branch",
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 4}},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var posted model.Transaction
	json.NewDecoder(resp.Body).Decode(&posted)
	resp.Body.Close()
	if !strings.HasPrefix(posted.Code, "TRX-") {
		t.Errorf("expected TRX- code, got %q", posted.Code)
	}
	if posted.CreatorName != "Admin" {
		t.Errorf("expected creator name 'Admin', got %q", posted.CreatorName)
	}

	req, _ = authRequest("GET", server.URL+"/api/items/"+itoa(item.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var got model.Item
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.Stock != 6 {
		t.Errorf("expected stock 6, got %d", got.Stock)
	}

	// 6 is still above the minimum of 3; the next posting crosses it
	// and raises a notification.
	req, _ = authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "out", "party": "Branch",
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 4}},
	})
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/notifications?unread=true", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var notifications []model.Notification
	json.NewDecoder(resp.Body).Decode(&notifications)
	resp.Body.Close()
	if len(notifications) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(notifications))
	}
	if notifications[0].Title != "Low stock" {
		t.Errorf("unexpected notification title %q", notifications[0].Title)
	}
}

func TestPostingUnknownItemRejected(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "out", "party": "Branch",
		"lines": []map[string]any{{"item_id": 999, "quantity": 1}},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown item, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPostingPublishesNotificationsOnlyOnAlert(t *testing.T) {
	database := db.NewTestDB(t)
	bus := events.NewBus()
	bus.CoalesceWindow = 10 * time.Millisecond
	server := httptest.NewServer(NewRouter(database, bus, testJWTSecret))
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin@example.com", string(hash), "Admin", "admin", model.RoleAdmin)
	token := loginAs(t, server, "admin@example.com", "password123")

	item := createTestItem(t, server, token, "BRG-006", "Stapler", 10, 3)

	sub := bus.Subscribe()
	defer sub.Close()

	post := func(quantity int) {
		t.Helper()
		req, _ := authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
			"type": "out", "party": "Branch",
			"lines": []map[string]any{{"item_id": item.ID, "quantity": quantity}},
		})
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("posting: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("posting: expected 201, got %d", resp.StatusCode)
		}
	}
	waitTables := func() []string {
		t.Helper()
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		tables, err := sub.Wait(waitCtx)
		if err != nil {
			t.Fatalf("waiting for change batch: %v", err)
		}
		return tables
	}

	// 10 -> 5 stays above the minimum; subscribers get no notifications
	// refetch for a posting that raised no alert.
	post(5)
	for _, table := range waitTables() {
		if table == "notifications" {
			t.Error("notifications published without an alert")
		}
	}

	// 5 -> 2 crosses the minimum.
	post(3)
	found := false
	for _, table := range waitTables() {
		if table == "notifications" {
			found = true
		}
	}
	if !found {
		t.Error("expected notifications in the alerting posting's batch")
	}
}

func TestDashboardAndStockEndpoints(t *testing.T) {
	server, _, token := setupTestServer(t)

	item := createTestItem(t, server, token, "BRG-003", "Cable", 30, 5)
	req, _ := authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "in", "party": "Supplier",
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 10}},
	})
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/dashboard", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from dashboard, got %d", resp.StatusCode)
	}
	var dash dashboardResponse
	json.NewDecoder(resp.Body).Decode(&dash)
	resp.Body.Close()
	if dash.TotalItems != 1 {
		t.Errorf("expected 1 item, got %d", dash.TotalItems)
	}
	if dash.TodayIn != 10 {
		t.Errorf("expected today in 10, got %d", dash.TodayIn)
	}
	if len(dash.Trend) != 7 {
		t.Errorf("expected 7 trend buckets, got %d", len(dash.Trend))
	}
	if len(dash.Recent) != 1 {
		t.Errorf("expected 1 recent transaction, got %d", len(dash.Recent))
	}

	req, _ = authRequest("GET", server.URL+"/api/stock", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var stock stockResponse
	json.NewDecoder(resp.Body).Decode(&stock)
	resp.Body.Close()
	if len(stock.Trend) != 14 {
		t.Errorf("expected 14 trend buckets, got %d", len(stock.Trend))
	}
	if stock.Summary.TotalItems != 1 {
		t.Errorf("expected summary with 1 item, got %+v", stock.Summary)
	}
	if len(stock.TopMovement) != 1 || stock.TopMovement[0].Name != "Cable" {
		t.Errorf("expected Cable in top movement, got %+v", stock.TopMovement)
	}
}

func TestReportsEndpoints(t *testing.T) {
	server, _, token := setupTestServer(t)

	item := createTestItem(t, server, token, "BRG-004", "Desk", 10, 1)
	req, _ := authRequest("POST", server.URL+"/api/transactions", token, map[string]any{
		"type": "in", "party": "Supplier",
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 3}},
	})
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/reports/in", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var rows []lineReportRow
	json.NewDecoder(resp.Body).Decode(&rows)
	resp.Body.Close()
	if len(rows) != 1 || rows[0].ItemName != "Desk" {
		t.Fatalf("unexpected in-report rows: %+v", rows)
	}
	if rows[0].Total != "Rp 30.000" {
		t.Errorf("expected line total 'Rp 30.000', got %q", rows[0].Total)
	}

	req, _ = authRequest("GET", server.URL+"/api/reports/bogus", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown tab, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/reports/stock/pdf", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from PDF export, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "report-stock-") {
		t.Errorf("expected attachment filename, got %q", cd)
	}
	buf := make([]byte, 4)
	resp.Body.Read(buf)
	resp.Body.Close()
	if string(buf) != "%PDF" {
		t.Errorf("expected PDF magic, got %q", string(buf))
	}
}

func TestUserAdminFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Create a staff account.
	req, _ := authRequest("POST", server.URL+"/api/users", token, map[string]string{
		"email": "sari@example.com", "password": "password123", "full_name": "Sari Dewi",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.User
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.Role != model.RoleStaff {
		t.Errorf("expected default staff role, got %q", created.Role)
	}

	// Promote to admin.
	req, _ = authRequest("PUT", server.URL+"/api/users/"+itoa(created.ID)+"/role", token, map[string]string{"role": model.RoleAdmin})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for role change, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Admins cannot change their own role.
	req, _ = authRequest("PUT", server.URL+"/api/users/1/role", token, map[string]string{"role": model.RoleViewer})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for self role change, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Nor delete themselves.
	req, _ = authRequest("DELETE", server.URL+"/api/users/1", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for self delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Deactivated accounts cannot log in.
	req, _ = authRequest("PUT", server.URL+"/api/users/"+itoa(created.ID)+"/status", token, map[string]string{"status": model.ProfileInactive})
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()

	body, _ := json.Marshal(map[string]string{"email": "sari@example.com", "password": "password123"})
	loginResp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if loginResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for deactivated account, got %d", loginResp.StatusCode)
	}
	loginResp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// syncBuffer guards log writes from the server's handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestQueryTokenOnlyOnEventStreamAndNeverLogged(t *testing.T) {
	logs := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	server, _, token := setupTestServer(t)

	// The query-string token works only for the event stream.
	resp, err := http.Get(server.URL + "/api/items?access_token=" + token)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for query token outside the event stream, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/events?access_token="+token, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("event stream request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for query token on the event stream, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The token must never appear in the request log.
	if strings.Contains(logs.String(), token) {
		t.Error("session token leaked into the request log")
	}
	if !strings.Contains(logs.String(), "/api/items") {
		t.Error("expected the request path in the log")
	}
}

func TestEventStream(t *testing.T) {
	server, _, token := setupTestServer(t)

	// EventSource cannot set headers, so the token rides the query string.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/events?access_token="+token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("event stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	_ = createTestItem(t, server, token, "BRG-005", "Trigger", 5, 1)

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	if eventLine != "event: change" {
		t.Errorf("expected change event, got %q", eventLine)
	}

	var payload changeEvent
	json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &payload)
	found := false
	for _, table := range payload.Tables {
		if table == "items" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected items in changed tables, got %v", payload.Tables)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
