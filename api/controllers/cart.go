package controllers

import (
	"net/http"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/cart"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
	IsSet     bool  `json:"is_set"`
}

func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddToCart(r.Context(), middleware.ActorID(r.Context()), payload.ProductID, payload.Quantity, payload.IsSet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := validators.ParseQueryInt(r, "index", -1, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveFromCart(r.Context(), middleware.ActorID(r.Context()), index); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"removed_index": index})
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearCart(r.Context(), middleware.ActorID(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"cleared": true})
	}
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.ActorID(r.Context())

		lines, err := svc.GetCart(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		total, err := svc.GetCartTotal(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"items":     lines,
			"total_wei": total,
		})
	}
}
