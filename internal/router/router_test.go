package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"walletwise/internal/clock"
	"walletwise/internal/config"
	"walletwise/internal/handlers"
	"walletwise/internal/idempotency"
	"walletwise/internal/logger"
	"walletwise/internal/metrics"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/repository"
	"walletwise/internal/services"
	"walletwise/internal/testutil"
	"walletwise/internal/validator"
)

const adminKey = "admin-test-key"

var startTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
	config.Set(&config.Config{Env: "test", JWTSecret: "router-test-secret"})
}

// testApp holds the full application stack backed by in-memory SQLite.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Clock  *clock.Mock
}

type appOptions struct {
	redis    redis.Cmdable
	adminKey string
}

func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clk := clock.NewMock(startTime)
	m := metrics.New("test")

	ledger := repository.NewGormLedgerRepository(db)
	accounts := repository.NewGormAccountRepository(db)

	gamificationService := services.NewGamificationService(db, clk)
	userService := services.NewUserService(db, accounts, clk)
	transactionService := services.NewTransactionService(services.TransactionDeps{
		Ledger:     ledger,
		Accounts:   accounts,
		Transactor: repository.NewGormTransactor(db),
		Notifier:   gamificationService,
		Clock:      clk,
		Metrics:    m,
	}, services.TransactionConfig{})

	engine := New(Deps{
		Handlers: Handlers{
			Auth:         handlers.NewAuthHandler(userService),
			Transaction:  handlers.NewTransactionHandler(transactionService),
			Budget:       handlers.NewBudgetHandler(services.NewBudgetService(db, ledger, clk)),
			Goal:         handlers.NewGoalHandler(services.NewGoalService(db, clk)),
			Report:       handlers.NewReportHandler(services.NewReportService(ledger)),
			Gamification: handlers.NewGamificationHandler(gamificationService),
			Admin:        handlers.NewAdminHandler(transactionService),
			Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
				"sqlite": func(ctx context.Context) error {
					sqlDB, err := db.DB()
					if err != nil {
						return err
					}
					return sqlDB.PingContext(ctx)
				},
			}),
		},
		Metrics:     m,
		Redis:       opts.redis,
		Idempotency: idempotency.DefaultConfig(),
		AdminAPIKey: opts.adminKey,
	})

	return &testApp{DB: db, Router: engine, Clock: clk}
}

func (app *testApp) request(method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseJSON(t, rec)
	detail, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return detail["code"].(string)
}

// registerUser registers a user with an opening balance and returns the
// access token, refresh token and user ID.
func (app *testApp) registerUser(t *testing.T, email, openingBalance string) (string, string, string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","opening_balance":%q}`, email, openingBalance)
	rec := app.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), result["refresh_token"].(string), user["id"].(string)
}

func (app *testApp) balance(t *testing.T, token string) decimal.Decimal {
	t.Helper()
	rec := app.request(http.MethodGet, "/api/v1/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decimal.RequireFromString(parseJSON(t, rec)["balance"].(string))
}

func (app *testApp) addTransaction(t *testing.T, token, body string, wantStatus int) map[string]interface{} {
	t.Helper()
	rec := app.request(http.MethodPost, "/api/v1/transactions", body, token)
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	return parseJSON(t, rec)
}

func assertBalance(t *testing.T, app *testApp, token, want string) {
	t.Helper()
	got := app.balance(t, token)
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "balance = %s, want %s", got, want)
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t, appOptions{})

	access, refresh, _ := app.registerUser(t, "auth@test.com", "1000")
	assertBalance(t, app, access, "1000")

	t.Run("login", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/api/v1/auth/login", `{"email":"auth@test.com","password":"password123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, parseJSON(t, rec)["token"])

		rec = app.request(http.MethodPost, "/api/v1/auth/login", `{"email":"auth@test.com","password":"wrong-password"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/api/v1/auth/register", `{"email":"auth@test.com","password":"password123"}`, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "DUPLICATE_EMAIL", errorCode(t, rec))
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		// The earlier login rotated the stored hash, so start from a fresh login.
		rec := app.request(http.MethodPost, "/api/v1/auth/login", `{"email":"auth@test.com","password":"password123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
		current := parseJSON(t, rec)["refresh_token"].(string)
		assert.NotEqual(t, refresh, current)

		rec = app.request(http.MethodPost, "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, current), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		newAccess := parseJSON(t, rec)["token"].(string)
		assertBalance(t, app, newAccess, "1000")

		rec = app.request(http.MethodPost, "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, current), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/v1/transactions", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

		rec = app.request(http.MethodGet, "/api/v1/transactions", "", refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	})
}

func TestTransactionLifecycle(t *testing.T) {
	app := setupApp(t, appOptions{})
	token, _, _ := app.registerUser(t, "ledger@test.com", "1000")

	expense := `{"type":"expense","amount":"150","category":"food","mood":"happy","payment_method":"upi"}`

	created := app.addTransaction(t, token, expense, http.StatusCreated)
	assert.Equal(t, false, created["duplicate"])
	tx := created["transaction"].(map[string]interface{})
	txID := tx["id"].(string)
	assertBalance(t, app, token, "850")

	t.Run("duplicate inside the window is not stored", func(t *testing.T) {
		app.Clock.Advance(time.Hour)
		result := app.addTransaction(t, token, expense, http.StatusOK)
		assert.Equal(t, true, result["duplicate"])
		assert.Nil(t, result["transaction"])
		assertBalance(t, app, token, "850")
	})

	t.Run("force stores a duplicate", func(t *testing.T) {
		forced := `{"type":"expense","amount":"150","category":"food","force_duplicate":true}`
		app.addTransaction(t, token, forced, http.StatusCreated)
		assertBalance(t, app, token, "700")
	})

	t.Run("income after the window", func(t *testing.T) {
		app.Clock.Advance(25 * time.Hour)
		app.addTransaction(t, token, `{"type":"income","amount":"2000.50","category":"salary"}`, http.StatusCreated)
		assertBalance(t, app, token, "2700.50")
	})

	t.Run("listing is newest first and filterable", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/v1/transactions?limit=2", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		page := parseJSON(t, rec)
		items := page["transactions"].([]interface{})
		require.Len(t, items, 2)
		assert.Equal(t, "salary", items[0].(map[string]interface{})["category"])
		meta := page["pagination"].(map[string]interface{})
		assert.Equal(t, float64(3), meta["total"])
		assert.Equal(t, float64(2), meta["pages"])

		rec = app.request(http.MethodGet, "/api/v1/transactions?type=expense", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, parseJSON(t, rec)["transactions"].([]interface{}), 2)

		rec = app.request(http.MethodGet, "/api/v1/transactions?type=transfer", "", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete reverses the balance and hides the row", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/api/v1/transactions/"+txID, "", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assertBalance(t, app, token, "2850.50")

		rec = app.request(http.MethodGet, "/api/v1/transactions/"+txID, "", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "TRANSACTION_NOT_FOUND", errorCode(t, rec))

		rec = app.request(http.MethodDelete, "/api/v1/transactions/"+txID, "", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("undo restores within the window", func(t *testing.T) {
		app.Clock.Advance(10 * time.Minute)
		rec := app.request(http.MethodPost, "/api/v1/transactions/"+txID+"/undo", "", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assertBalance(t, app, token, "2700.50")

		rec = app.request(http.MethodPost, "/api/v1/transactions/"+txID+"/undo", "", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NO_DELETED_TRANSACTION", errorCode(t, rec))
	})

	t.Run("undo after the window is gone", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/api/v1/transactions/"+txID, "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		app.Clock.Advance(31 * time.Minute)

		rec = app.request(http.MethodPost, "/api/v1/transactions/"+txID+"/undo", "", token)
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "UNDO_WINDOW_EXPIRED", errorCode(t, rec))
		assertBalance(t, app, token, "2850.50")
	})

	t.Run("other users cannot see the row", func(t *testing.T) {
		other, _, _ := app.registerUser(t, "other@test.com", "0")
		rec := app.request(http.MethodDelete, "/api/v1/transactions/"+txID, "", other)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/api/v1/transactions", `{"type":"expense","amount":"-5","category":"food"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

		rec = app.request(http.MethodGet, "/api/v1/transactions/not-a-uuid", "", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("amounts finer than four decimals are rejected", func(t *testing.T) {
		before := app.balance(t, token)
		for _, amount := range []string{"0.00005", "0.00001", "12.34567"} {
			rec := app.request(http.MethodPost, "/api/v1/transactions", fmt.Sprintf(`{"type":"expense","amount":%q,"category":"fees","force_duplicate":true}`, amount), token)
			assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
		}
		assertBalance(t, app, token, before.String())
	})

	t.Run("huge page number returns an empty page", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/api/v1/transactions?page=9223372036854775807&limit=100", "", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		page := parseJSON(t, rec)
		assert.Empty(t, page["transactions"].([]interface{}))
		assert.Equal(t, float64(pagination.MaxPage), page["pagination"].(map[string]interface{})["page"])
	})
}

func TestGamificationAndReports(t *testing.T) {
	app := setupApp(t, appOptions{})
	token, _, _ := app.registerUser(t, "stats@test.com", "500")

	app.addTransaction(t, token, `{"type":"expense","amount":"40","category":"food","mood":"stressed"}`, http.StatusCreated)
	app.addTransaction(t, token, `{"type":"income","amount":"100","category":"gift"}`, http.StatusCreated)

	rec := app.request(http.MethodGet, "/api/v1/gamification/stats", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := parseJSON(t, rec)["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["transactions_logged"])
	assert.Equal(t, float64(services.PointsPerTransaction*2), stats["points"])
	assert.Equal(t, float64(1), stats["current_streak"])

	rec = app.request(http.MethodGet, "/api/v1/reports/summary?from=2024-06-01&to=2024-06-30", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	assert.True(t, decimal.RequireFromString(summary["net"].(string)).Equal(decimal.NewFromInt(60)))
}

func TestBudgetAndGoalRoutes(t *testing.T) {
	app := setupApp(t, appOptions{})
	token, _, _ := app.registerUser(t, "plans@test.com", "1000")

	rec := app.request(http.MethodPost, "/api/v1/budgets",
		`{"category":"food","name":"Groceries","amount":"300","period":"monthly","start_date":"2024-06-01"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	app.addTransaction(t, token, `{"type":"expense","amount":"120","category":"food"}`, http.StatusCreated)

	rec = app.request(http.MethodGet, "/api/v1/budgets/"+budgetID+"/progress", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	assert.True(t, decimal.RequireFromString(progress["spent"].(string)).Equal(decimal.NewFromInt(120)))

	rec = app.request(http.MethodPost, "/api/v1/goals",
		`{"name":"Trip","target_amount":"1000","target_date":"2025-01-01","category":"Travel","priority":"High"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goalID := parseJSON(t, rec)["goal"].(map[string]interface{})["id"].(string)

	rec = app.request(http.MethodPost, "/api/v1/goals/"+goalID+"/contribute", `{"amount":"250"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	goal := parseJSON(t, rec)["goal"].(map[string]interface{})
	assert.Equal(t, 25.0, goal["progress"])

	// Contributions do not move the wallet.
	assertBalance(t, app, token, "880")
}

func TestIdempotentCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := setupApp(t, appOptions{redis: client})
	token, _, userID := app.registerUser(t, "retry@test.com", "1000")

	body := `{"type":"expense","amount":"75","category":"transport"}`
	first := app.request(http.MethodPost, "/api/v1/transactions", body, token, idempotency.HeaderKey, "retry-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := app.request(http.MethodPost, "/api/v1/transactions", body, token, idempotency.HeaderKey, "retry-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	var count int64
	app.DB.Model(&models.Transaction{}).Where("owner_id = ?", userID).Count(&count)
	assert.Equal(t, int64(1), count)
	assertBalance(t, app, token, "925")
}

func TestAdminRoutes(t *testing.T) {
	t.Run("disabled without a key", func(t *testing.T) {
		app := setupApp(t, appOptions{})
		_, _, userID := app.registerUser(t, "nokey@test.com", "0")
		rec := app.request(http.MethodGet, "/api/v1/admin/users/"+userID+"/transactions/deleted", "", "", "X-API-Key", "anything")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("lists deleted transactions", func(t *testing.T) {
		app := setupApp(t, appOptions{adminKey: adminKey})
		token, _, userID := app.registerUser(t, "audited@test.com", "100")
		created := app.addTransaction(t, token, `{"type":"expense","amount":"10","category":"food"}`, http.StatusCreated)
		txID := created["transaction"].(map[string]interface{})["id"].(string)
		require.Equal(t, http.StatusOK, app.request(http.MethodDelete, "/api/v1/transactions/"+txID, "", token).Code)

		path := "/api/v1/admin/users/" + userID + "/transactions/deleted"
		rec := app.request(http.MethodGet, path, "", "", "X-API-Key", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = app.request(http.MethodGet, path, "", "", "X-API-Key", adminKey)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		items := parseJSON(t, rec)["transactions"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, txID, items[0].(map[string]interface{})["id"])
	})
}

func TestOperationalEndpoints(t *testing.T) {
	app := setupApp(t, appOptions{})

	rec := app.request(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", parseJSON(t, rec)["status"])

	rec = app.request(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "walletwise_http_requests_total")

	rec = app.request(http.MethodOptions, "/api/v1/transactions", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), idempotency.HeaderKey)
}
