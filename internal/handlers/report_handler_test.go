package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/services"
)

type mockReportService struct {
	getSummaryFn func(userID string, from, to time.Time) (*services.Summary, error)
}

func (m *mockReportService) GetSummary(_ context.Context, userID string, from, to time.Time) (*services.Summary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(userID, from, to)
	}
	return &services.Summary{From: from, To: to}, nil
}

type mockGamificationService struct {
	getStatsFn func(userID string) (*services.GamificationStats, error)
}

func (m *mockGamificationService) RecordUserActivity(context.Context, string, services.Activity) error {
	return nil
}

func (m *mockGamificationService) GetStats(_ context.Context, userID string) (*services.GamificationStats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn(userID)
	}
	return &services.GamificationStats{}, nil
}

var (
	_ services.ReportServicer       = (*mockReportService)(nil)
	_ services.GamificationServicer = (*mockGamificationService)(nil)
)

func TestReportHandler_GetSummary(t *testing.T) {
	newRouter := func(svc services.ReportServicer) *gin.Engine {
		h := NewReportHandler(svc)
		h.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
		r := gin.New()
		r.GET("/reports/summary", injectUserID(testUserID), h.GetSummary)
		return r
	}

	t.Run("defaults to current month", func(t *testing.T) {
		var gotFrom, gotTo time.Time
		svc := &mockReportService{
			getSummaryFn: func(_ string, from, to time.Time) (*services.Summary, error) {
				gotFrom, gotTo = from, to
				return &services.Summary{Net: decimal.NewFromInt(1650)}, nil
			},
		}
		rec := doRequest(newRouter(svc), "GET", "/reports/summary", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotFrom.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) || !gotTo.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected range %v - %v", gotFrom, gotTo)
		}
		summary := parseJSON(t, rec)["summary"].(map[string]interface{})
		if summary["net"] != "1650" {
			t.Errorf("unexpected net %v", summary["net"])
		}
	})

	t.Run("plain end date is inclusive", func(t *testing.T) {
		var gotTo time.Time
		svc := &mockReportService{
			getSummaryFn: func(_ string, _, to time.Time) (*services.Summary, error) {
				gotTo = to
				return &services.Summary{}, nil
			},
		}
		doRequest(newRouter(svc), "GET", "/reports/summary?from=2024-01-01&to=2024-01-31", "")
		if !gotTo.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected exclusive end 2024-02-01, got %v", gotTo)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		rec := doRequest(newRouter(&mockReportService{}), "GET", "/reports/summary?from=yesterday", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})

	t.Run("returns service validation error", func(t *testing.T) {
		svc := &mockReportService{
			getSummaryFn: func(string, time.Time, time.Time) (*services.Summary, error) {
				return nil, apperrors.Validation("to", "to must be after from")
			},
		}
		rec := doRequest(newRouter(svc), "GET", "/reports/summary?from=2024-02-01&to=2024-01-01", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGamificationHandler_GetStats(t *testing.T) {
	svc := &mockGamificationService{
		getStatsFn: func(string) (*services.GamificationStats, error) {
			return &services.GamificationStats{Points: 30, Level: 1, CurrentStreak: 3, LongestStreak: 5, TransactionsLogged: 3}, nil
		},
	}
	r := gin.New()
	r.GET("/gamification/stats", injectUserID(testUserID), NewGamificationHandler(svc).GetStats)

	rec := doRequest(r, "GET", "/gamification/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := parseJSON(t, rec)["stats"].(map[string]interface{})
	if stats["points"].(float64) != 30 || stats["current_streak"].(float64) != 3 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestAdminHandler_GetDeletedTransactions(t *testing.T) {
	t.Run("lists deleted transactions for user", func(t *testing.T) {
		var gotOwner string
		svc := &mockTransactionService{
			getDeletedTransactionsFn: func(ownerID string, page pagination.PageRequest) (*services.TransactionPage, error) {
				gotOwner = ownerID
				return &services.TransactionPage{
					Transactions: []models.Transaction{{ID: testTxID, IsDeleted: true}},
					Pagination:   pagination.NewPagination(1, page),
				}, nil
			},
		}
		r := gin.New()
		r.GET("/admin/users/:id/transactions/deleted", NewAdminHandler(svc).GetDeletedTransactions)

		rec := doRequest(r, "GET", "/admin/users/"+testUserID+"/transactions/deleted", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotOwner != testUserID {
			t.Errorf("expected owner %s, got %s", testUserID, gotOwner)
		}
	})

	t.Run("returns 400 on invalid user id", func(t *testing.T) {
		r := gin.New()
		r.GET("/admin/users/:id/transactions/deleted", NewAdminHandler(&mockTransactionService{}).GetDeletedTransactions)
		rec := doRequest(r, "GET", "/admin/users/42/transactions/deleted", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		r := gin.New()
		r.GET("/health", h.Health)
		rec := doRequest(r, "GET", "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["status"] != "ok" {
			t.Error("expected ok status")
		}
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		r := gin.New()
		r.GET("/health", h.Health)
		rec := doRequest(r, "GET", "/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		checks := parseJSON(t, rec)["checks"].(map[string]interface{})
		if checks["redis"] != "connection refused" || checks["database"] != "ok" {
			t.Errorf("unexpected checks %v", checks)
		}
	})
}
