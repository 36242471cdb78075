package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/config"
	"github.com/ncbao26/POS/internal/db"
	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/services/invoicing"
)

const testPassword = "secret123"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{JwtSecret: "test-secret", JwtAccessMinutes: 60, JwtRefreshHours: 1}
	engine := invoicing.NewEngine(d,
		invoicing.WithLocation(time.UTC),
		invoicing.WithClock(func() time.Time { return time.Now().UTC() }),
	)

	router := gin.New()
	Register(router, d, cfg, engine)
	return router, d
}

func addUser(t *testing.T, d *gorm.DB, username, role string) {
	t.Helper()
	_, err := db.CreateUserIfNotExists(d, db.SeedUser{
		Username: username,
		Email:    username + "@test.local",
		FullName: strings.ToUpper(username),
		Password: testPassword,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, router *gin.Engine, username, password string) map[string]any {
	t.Helper()
	rec := call(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var out map[string]any
	decode(t, rec, &out)
	return out
}

func tokenFor(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	return login(t, router, username, testPassword)["token"].(string)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, path := range []string{"/", "/api/health"} {
		if rec := call(t, router, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newTestRouter(t)

	register := gin.H{"username": "alice", "email": "alice@shop.vn", "fullName": "Alice", "password": testPassword}
	rec := call(t, router, http.MethodPost, "/api/auth/register", "", register)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Đăng ký thành công!") {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = call(t, router, http.MethodPost, "/api/auth/register", "", register)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Tên đăng nhập đã tồn tại!") {
		t.Fatalf("duplicate username: %d %s", rec.Code, rec.Body.String())
	}

	register["username"] = "alice2"
	rec = call(t, router, http.MethodPost, "/api/auth/register", "", register)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Email đã được sử dụng!") {
		t.Fatalf("duplicate email: %d %s", rec.Code, rec.Body.String())
	}

	rec = call(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Tên đăng nhập hoặc mật khẩu không đúng") {
		t.Fatalf("bad login: %d %s", rec.Code, rec.Body.String())
	}

	session := login(t, router, "alice", testPassword)
	if session["type"] != "Bearer" || session["role"] != models.RoleUser || session["username"] != "alice" {
		t.Fatalf("unexpected login reply %v", session)
	}
	token := session["token"].(string)

	rec = call(t, router, http.MethodGet, "/api/auth/me", token, nil)
	var me map[string]any
	decode(t, rec, &me)
	if rec.Code != http.StatusOK || me["email"] != "alice@shop.vn" || me["fullName"] != "Alice" {
		t.Fatalf("me: %d %v", rec.Code, me)
	}

	if rec := call(t, router, http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodGet, "/api/products", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401 got %d", rec.Code)
	}
}

func TestRefreshAndChangePassword(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, "alice", models.RoleUser)

	session := login(t, router, "alice", testPassword)
	refresh := session["refreshToken"].(string)

	rec := call(t, router, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refresh})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}

	change := gin.H{"currentPassword": testPassword, "newPassword": "newsecret456"}
	rec = call(t, router, http.MethodPut, "/api/auth/me/password", session["token"].(string), change)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: %d %s", rec.Code, rec.Body.String())
	}

	if rec := call(t, router, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refresh}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token should be revoked, got %d", rec.Code)
	}
	login(t, router, "alice", "newsecret456")
}

func TestInactiveUserIsRejected(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, "alice", models.RoleUser)
	token := tokenFor(t, router, "alice")

	d.Model(&models.User{}).Where("username = ?", "alice").Update("is_active", false)

	if rec := call(t, router, http.MethodGet, "/api/products", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: expected 401 got %d", rec.Code)
	}
	rec := call(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": testPassword})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inactive login: expected 400 got %d", rec.Code)
	}
}

func TestProductsAreScopedToOwner(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, "alice", models.RoleUser)
	addUser(t, d, "bob", models.RoleUser)
	alice, bob := tokenFor(t, router, "alice"), tokenFor(t, router, "bob")

	rec := call(t, router, http.MethodPost, "/api/products", alice, gin.H{"name": "Áo thun", "price": 150000, "costPrice": 90000, "stock": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("create product: %d %s", rec.Code, rec.Body.String())
	}
	var product map[string]any
	decode(t, rec, &product)
	id := product["id"].(string)
	if product["isActive"] != true || product["price"].(float64) != 150000 {
		t.Fatalf("unexpected product %v", product)
	}

	if rec := call(t, router, http.MethodPost, "/api/products", alice, gin.H{"name": "Bad", "price": -1}); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative price: expected 400 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodPost, "/api/products", alice, gin.H{"price": 10}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400 got %d", rec.Code)
	}

	if rec := call(t, router, http.MethodGet, "/api/products/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign get: expected 403 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodPut, "/api/products/"+id, bob, gin.H{"name": "x", "price": 1}); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign update: expected 403 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodDelete, "/api/products/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodGet, "/api/products/00000000-0000-0000-0000-000000000001", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing product: expected 404 got %d", rec.Code)
	}

	var list []map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/products", bob, nil), &list)
	if len(list) != 0 {
		t.Fatalf("bob must not list alice's products: %v", list)
	}

	decode(t, call(t, router, http.MethodGet, "/api/products/search?name=THUN", alice, nil), &list)
	if len(list) != 1 {
		t.Fatalf("case-insensitive search failed: %v", list)
	}
	decode(t, call(t, router, http.MethodGet, "/api/products/low-stock?threshold=3", alice, nil), &list)
	if len(list) != 0 {
		t.Fatalf("stock 4 is above threshold 3: %v", list)
	}
	decode(t, call(t, router, http.MethodGet, "/api/products/low-stock", alice, nil), &list)
	if len(list) != 1 {
		t.Fatalf("default threshold should include stock 4: %v", list)
	}

	if rec := call(t, router, http.MethodDelete, "/api/products/"+id, alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	decode(t, call(t, router, http.MethodGet, "/api/products", alice, nil), &list)
	if len(list) != 0 {
		t.Fatalf("deleted product still listed: %v", list)
	}
	var stored models.Product
	if err := d.First(&stored, "id = ?", id).Error; err != nil || stored.IsActive {
		t.Fatalf("product must be kept but inactive: %+v %v", stored, err)
	}
}

func TestCustomersSearchAndDelete(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, "alice", models.RoleUser)
	addUser(t, d, "bob", models.RoleUser)
	alice, bob := tokenFor(t, router, "alice"), tokenFor(t, router, "bob")

	var customer map[string]any
	rec := call(t, router, http.MethodPost, "/api/customers", alice, gin.H{"name": "Nguyễn Văn A", "phone": "0901234567"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create customer: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &customer)
	id := customer["id"].(string)

	var list []map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/customers/search?search=0901", alice, nil), &list)
	if len(list) != 1 {
		t.Fatalf("phone search failed: %v", list)
	}
	decode(t, call(t, router, http.MethodGet, "/api/customers/search?search=0901", bob, nil), &list)
	if len(list) != 0 {
		t.Fatalf("search leaked across users: %v", list)
	}
	if rec := call(t, router, http.MethodGet, "/api/customers/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign customer: expected 403 got %d", rec.Code)
	}

	var product map[string]any
	decode(t, call(t, router, http.MethodPost, "/api/products", alice, gin.H{"name": "Quần", "price": 200000, "stock": 5}), &product)
	sale := gin.H{"customerId": id, "paymentMethod": "cash", "items": []gin.H{{"productId": product["id"], "quantity": 1}}}
	rec = call(t, router, http.MethodPost, "/api/invoices", alice, sale)
	if rec.Code != http.StatusOK {
		t.Fatalf("create invoice: %d %s", rec.Code, rec.Body.String())
	}
	var invoice map[string]any
	decode(t, rec, &invoice)

	if rec := call(t, router, http.MethodDelete, "/api/customers/"+id, alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete customer: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, router, http.MethodGet, "/api/customers/"+id, alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted customer: expected 404 got %d", rec.Code)
	}
	rec = call(t, router, http.MethodGet, "/api/invoices/"+invoice["id"].(string), alice, nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `"customer"`) {
		t.Fatalf("invoice should survive without customer: %d %s", rec.Code, rec.Body.String())
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, "alice", models.RoleUser)
	addUser(t, d, "bob", models.RoleUser)
	alice, bob := tokenFor(t, router, "alice"), tokenFor(t, router, "bob")

	var product map[string]any
	decode(t, call(t, router, http.MethodPost, "/api/products", alice, gin.H{"name": "Phone", "price": 100000, "stock": 10}), &product)
	pid := product["id"].(string)

	rec := call(t, router, http.MethodPost, "/api/invoices", alice, gin.H{
		"paymentMethod": "cash",
		"items":         []gin.H{{"productId": pid, "quantity": 3}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create invoice: %d %s", rec.Code, rec.Body.String())
	}
	var invoice map[string]any
	decode(t, rec, &invoice)
	if invoice["totalAmount"].(float64) != 300000 || invoice["paymentStatus"] != models.PaymentStatusPaid || invoice["paymentMethod"] != "CASH" {
		t.Fatalf("unexpected invoice %v", invoice)
	}
	id := invoice["id"].(string)

	decode(t, call(t, router, http.MethodGet, "/api/products/"+pid, alice, nil), &product)
	if product["stock"].(float64) != 7 {
		t.Fatalf("expected stock 7 got %v", product["stock"])
	}

	rec = call(t, router, http.MethodPost, "/api/invoices", alice, gin.H{
		"paymentMethod": "cash",
		"items":         []gin.H{{"productId": pid, "quantity": 50}},
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Phone") {
		t.Fatalf("insufficient stock: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, router, http.MethodPost, "/api/invoices", alice, gin.H{"paymentMethod": "cash", "items": []gin.H{}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty items: expected 400 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodPost, "/api/invoices", bob, gin.H{"paymentMethod": "cash", "items": []gin.H{{"productId": pid, "quantity": 1}}}); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign product: expected 403 got %d", rec.Code)
	}

	if rec := call(t, router, http.MethodGet, "/api/invoices/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign invoice: expected 403 got %d", rec.Code)
	}
	rec = call(t, router, http.MethodGet, "/api/invoices/"+id, alice, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"product"`) {
		t.Fatalf("get invoice: %d %s", rec.Code, rec.Body.String())
	}

	today := time.Now().UTC().Format("2006-01-02")
	var filtered []map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/invoices/filter?startDate="+today+"&endDate="+today+"&status=PAID", alice, nil), &filtered)
	if len(filtered) != 1 {
		t.Fatalf("filter: expected 1 invoice got %d", len(filtered))
	}

	var points []map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/invoices/revenue-by-date?startDate="+today+"&endDate="+today, alice, nil), &points)
	if len(points) != 1 || points[0]["date"] != today || points[0]["revenue"].(float64) != 300000 {
		t.Fatalf("revenue by date: %v", points)
	}
	if rec := call(t, router, http.MethodGet, "/api/invoices/revenue-by-date?startDate="+today, alice, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing endDate: expected 400 got %d", rec.Code)
	}

	var summary map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/invoices/revenue-summary", alice, nil), &summary)
	if summary["todayRevenue"].(float64) != 300000 || summary["date"] != today {
		t.Fatalf("revenue summary: %v", summary)
	}

	if rec := call(t, router, http.MethodDelete, "/api/invoices/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403 got %d", rec.Code)
	}
	if rec := call(t, router, http.MethodDelete, "/api/invoices/"+id, alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete invoice: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, router, http.MethodGet, "/api/invoices/"+id, alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted invoice: expected 404 got %d", rec.Code)
	}
	decode(t, call(t, router, http.MethodGet, "/api/products/"+pid, alice, nil), &product)
	if product["stock"].(float64) != 10 {
		t.Fatalf("stock not restored, got %v", product["stock"])
	}

	var moves []map[string]any
	decode(t, call(t, router, http.MethodGet, "/api/products/"+pid+"/stock-movements", alice, nil), &moves)
	if len(moves) != 2 {
		t.Fatalf("expected sale and restore ledger rows, got %v", moves)
	}

	rec = call(t, router, http.MethodGet, "/api/dashboard", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminMigration(t *testing.T) {
	router, d := newTestRouter(t)
	addUser(t, d, db.AdminUsername, models.RoleAdmin)
	addUser(t, d, "cashier", models.RoleUser)
	admin, cashier := tokenFor(t, router, db.AdminUsername), tokenFor(t, router, "cashier")

	if rec := call(t, router, http.MethodGet, "/api/admin/migration/export-users", cashier, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin export: expected 403 got %d", rec.Code)
	}

	rec := call(t, router, http.MethodGet, "/api/admin/migration/export-users", admin, nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	var exported []map[string]any
	decode(t, rec, &exported)
	if len(exported) != 2 {
		t.Fatalf("expected 2 exported users got %v", exported)
	}

	bad := []gin.H{{"username": "ghost", "email": "ghost@test.local", "fullName": "Ghost", "role": "OWNER"}}
	if rec := call(t, router, http.MethodPost, "/api/admin/migration/import-users", admin, bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: expected 400 got %d", rec.Code)
	}

	batch := []gin.H{
		{"username": "cashier", "email": "cashier@test.local", "fullName": "Cashier", "role": "USER"},
		{"username": "newbie", "email": "newbie@test.local", "fullName": "Newbie", "role": "USER"},
	}
	rec = call(t, router, http.MethodPost, "/api/admin/migration/import-users", admin, batch)
	var result map[string]any
	decode(t, rec, &result)
	if rec.Code != http.StatusOK || result["imported"].(float64) != 1 || result["skipped"].(float64) != 1 {
		t.Fatalf("import: %d %v", rec.Code, result)
	}
	login(t, router, "newbie", "defaultpassword123")

	rec = call(t, router, http.MethodGet, "/api/admin/migration/generate-datainitializer", admin, nil)
	var generated map[string]string
	decode(t, rec, &generated)
	if !strings.Contains(generated["code"], `Username: "newbie"`) || strings.Contains(generated["code"], `Username: "admin"`) {
		t.Fatalf("unexpected generated code %q", generated["code"])
	}
	if generated["instructions"] == "" {
		t.Fatalf("instructions missing")
	}
}
