package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	ordersvc "github.com/aridelgado/blindbox-backend/internal/orders"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
)

type stubOrderService struct {
	buyCalls []ordersvc.BuyInput
	buyErr   error
	order    *models.Order
	getErr   error
}

func (s *stubOrderService) ProductPrice(ctx context.Context, productID int64, isSet bool, qty int) (int64, error) {
	return 0, nil
}

func (s *stubOrderService) Buy(ctx context.Context, buyerID uuid.UUID, input ordersvc.BuyInput) (*models.Order, error) {
	s.buyCalls = append(s.buyCalls, input)
	if s.buyErr != nil {
		return nil, s.buyErr
	}
	return &models.Order{ID: 1, BuyerID: buyerID, Status: enums.OrderStatusPaid, PaidWei: input.PaymentWei}, nil
}

func (s *stubOrderService) PayDirect(ctx context.Context, buyerID uuid.UUID, input ordersvc.PayDirectInput) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.order, nil
}

func (s *stubOrderService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{}, nil
}

func (s *stubOrderService) ListAll(ctx context.Context, cursor string, limit int) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestOrderBuy(t *testing.T) {
	logg := testLogger()
	buyerID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubOrderService{}
		body, _ := json.Marshal(map[string]any{
			"product_id":  int64(42),
			"qty":         2,
			"is_set":      false,
			"payment_wei": int64(2000),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/buy", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
		rec := httptest.NewRecorder()
		OrderBuy(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(stub.buyCalls) != 1 || stub.buyCalls[0].ProductID != 42 || stub.buyCalls[0].Qty != 2 {
			t.Fatalf("unexpected buy input: %+v", stub.buyCalls)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		stub := &stubOrderService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/buy", bytes.NewReader([]byte(`{"product_id":`)))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
		rec := httptest.NewRecorder()
		OrderBuy(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(stub.buyCalls) != 0 {
			t.Fatalf("service should not be called on bad input")
		}
	})

	t.Run("maps stock exhaustion", func(t *testing.T) {
		stub := &stubOrderService{buyErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
		body, _ := json.Marshal(map[string]any{"product_id": int64(42), "qty": 1, "payment_wei": int64(1000)})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/buy", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithUserID(req.Context(), buyerID.String()))
		rec := httptest.NewRecorder()
		OrderBuy(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestOrderGetOwnership(t *testing.T) {
	logg := testLogger()
	ownerID := uuid.New()
	strangerID := uuid.New()

	makeRequest := func(actorID uuid.UUID, role string) *httptest.ResponseRecorder {
		stub := &stubOrderService{order: &models.Order{ID: 9, BuyerID: ownerID, Status: enums.OrderStatusPaid}}
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("orderId", "9")
		ctx := context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx)
		ctx = middleware.WithUserID(ctx, actorID.String())
		if role != "" {
			ctx = middleware.WithRole(ctx, role)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/9", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		OrderGet(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("owner can read", func(t *testing.T) {
		rec := makeRequest(ownerID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		rec := makeRequest(strangerID, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("admin can read any order", func(t *testing.T) {
		rec := makeRequest(strangerID, enums.RoleAdmin.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
