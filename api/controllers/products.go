package controllers

import (
	"net/http"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/catalog"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
	"github.com/aridelgado/blindbox-backend/pkg/pagination"
)

type productRequest struct {
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description"`
	EnableIndividual   bool   `json:"enable_individual"`
	EnableSet          bool   `json:"enable_set"`
	IndividualPriceWei int64  `json:"individual_price_wei" validate:"gte=0"`
	IndividualStock    int    `json:"individual_stock" validate:"gte=0"`
	SetPriceWei        int64  `json:"set_price_wei" validate:"gte=0"`
	SetStock           int    `json:"set_stock" validate:"gte=0"`
	SetBoxes           int    `json:"set_boxes" validate:"gte=0"`
	LegacyPriceWei     int64  `json:"legacy_price_wei" validate:"gte=0"`
}

func (p productRequest) toInput() catalog.ProductInput {
	return catalog.ProductInput{
		Name:               p.Name,
		Description:        p.Description,
		EnableIndividual:   p.EnableIndividual,
		EnableSet:          p.EnableSet,
		IndividualPriceWei: p.IndividualPriceWei,
		IndividualStock:    p.IndividualStock,
		SetPriceWei:        p.SetPriceWei,
		SetStock:           p.SetStock,
		SetBoxes:           p.SetBoxes,
		LegacyPriceWei:     p.LegacyPriceWei,
	}
}

func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AddProduct(r.Context(), middleware.ActorID(r.Context()), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), middleware.ActorID(r.Context()), productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductDeactivate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateProduct(r.Context(), middleware.ActorID(r.Context()), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"product_id": productID, "status": "inactive"})
	}
}

func ProductReactivate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReactivateProduct(r.Context(), middleware.ActorID(r.Context()), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"product_id": productID, "status": "active"})
	}
}

func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// only admins may list soft-deleted entries
		includeInactive := r.URL.Query().Get("include_inactive") == "true" &&
			middleware.RoleFromContext(r.Context()) == enums.RoleAdmin.String()

		result, err := svc.ListProducts(r.Context(), r.URL.Query().Get("cursor"), limit, !includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"products":    result.Products,
			"next_cursor": result.NextCursor,
		})
	}
}

func ProductStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inStock, err := svc.IsInStock(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"product_id": productID, "in_stock": inStock})
	}
}

func ProductAuditTrail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		audits, err := svc.GetAuditTrail(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, audits)
	}
}
