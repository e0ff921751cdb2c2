package controllers

import (
	"net/http"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/orders"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
	"github.com/aridelgado/blindbox-backend/pkg/pagination"
)

type buyRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	IsSet      bool   `json:"is_set"`
	Qty        int    `json:"qty" validate:"required,gt=0"`
	DeliveryID string `json:"delivery_id"`
	PaymentWei int64  `json:"payment_wei" validate:"gte=0"`
}

type payDirectRequest struct {
	OrderID    int64  `json:"order_id" validate:"required,gt=0"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	DeliveryID string `json:"delivery_id"`
	PaymentWei int64  `json:"payment_wei" validate:"gte=0"`
}

func OrderBuy(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload buyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Buy(r.Context(), middleware.ActorID(r.Context()), orders.BuyInput{
			ProductID:  payload.ProductID,
			IsSet:      payload.IsSet,
			Qty:        payload.Qty,
			DeliveryID: payload.DeliveryID,
			PaymentWei: payload.PaymentWei,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderPayDirect(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload payDirectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PayDirect(r.Context(), middleware.ActorID(r.Context()), orders.PayDirectInput{
			OrderID:    payload.OrderID,
			ProductID:  payload.ProductID,
			DeliveryID: payload.DeliveryID,
			PaymentWei: payload.PaymentWei,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		role := middleware.RoleFromContext(ctx)
		if role != enums.RoleAdmin.String() && role != enums.RoleDelivery.String() && order.BuyerID != middleware.ActorID(ctx) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer"))
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func OrderListMine(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByBuyer(r.Context(), middleware.ActorID(r.Context()), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      result.Orders,
			"next_cursor": result.NextCursor,
		})
	}
}

func OrderListAll(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      result.Orders,
			"next_cursor": result.NextCursor,
		})
	}
}

func OrderQuote(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isSet := r.URL.Query().Get("mode") == enums.SaleModeSet.String()

		total, err := svc.ProductPrice(r.Context(), productID, isSet, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"qty":        qty,
			"mode":       enums.SaleModeFor(isSet),
			"total_wei":  total,
		})
	}
}
