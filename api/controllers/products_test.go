package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/internal/catalog"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

type stubCatalogService struct {
	activeOnly []bool
}

func (s *stubCatalogService) AddProduct(ctx context.Context, actorID uuid.UUID, input catalog.ProductInput) (*models.Product, error) {
	return &models.Product{ID: 1, Name: input.Name}, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, actorID uuid.UUID, productID int64, input catalog.ProductInput) (*models.Product, error) {
	return &models.Product{ID: productID, Name: input.Name}, nil
}

func (s *stubCatalogService) DeactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error {
	return nil
}

func (s *stubCatalogService) ReactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error {
	return nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return &models.Product{ID: productID}, nil
}

func (s *stubCatalogService) ListProducts(ctx context.Context, cursor string, limit int, activeOnly bool) (*catalog.ListResult, error) {
	s.activeOnly = append(s.activeOnly, activeOnly)
	return &catalog.ListResult{}, nil
}

func (s *stubCatalogService) IsInStock(ctx context.Context, productID int64) (bool, error) {
	return true, nil
}

func (s *stubCatalogService) GetAuditTrail(ctx context.Context, productID int64) ([]models.CatalogAudit, error) {
	return nil, nil
}

func TestProductListInactiveVisibility(t *testing.T) {
	tests := []struct {
		name           string
		role           enums.Role
		query          string
		wantActiveOnly bool
	}{
		{"buyer default sees active", enums.RoleBuyer, "", true},
		{"buyer cannot opt into inactive", enums.RoleBuyer, "?include_inactive=true", true},
		{"admin default sees active", enums.RoleAdmin, "", true},
		{"admin may include inactive", enums.RoleAdmin, "?include_inactive=true", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCatalogService{}
			handler := ProductList(svc, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/products"+tc.query, nil)
			req = req.WithContext(middleware.WithRole(req.Context(), tc.role.String()))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("status %d, want %d", resp.Code, http.StatusOK)
			}
			if len(svc.activeOnly) != 1 {
				t.Fatalf("list called %d times, want 1", len(svc.activeOnly))
			}
			if svc.activeOnly[0] != tc.wantActiveOnly {
				t.Fatalf("activeOnly = %v, want %v", svc.activeOnly[0], tc.wantActiveOnly)
			}
		})
	}
}
