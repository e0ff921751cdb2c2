package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/delivery"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
)

type outForDeliveryRequest struct {
	DeliveryID string `json:"delivery_id"`
	Note       string `json:"note"`
}

type proofRequest struct {
	ProofImage string `json:"proof_image" validate:"required"`
	Note       string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

type assignDeliveryRequest struct {
	DeliveryManID string `json:"delivery_man_id" validate:"required,uuid"`
}

func DeliveryMarkOut(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload outForDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkOutForDelivery(r.Context(), middleware.ActorID(r.Context()), orderID, payload.DeliveryID, payload.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": enums.OrderStatusOutForDelivery})
	}
}

func DeliverySubmitProof(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload proofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SubmitProof(r.Context(), middleware.ActorID(r.Context()), orderID, payload.ProofImage, payload.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": enums.OrderStatusPendingConfirmation})
	}
}

func DeliveryConfirm(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ConfirmDelivery(r.Context(), middleware.ActorID(r.Context()), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": enums.OrderStatusCompleted})
	}
}

func DeliveryAddStatus(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.OrderStatus(payload.Status)
		if err := svc.AddStatus(r.Context(), middleware.ActorID(r.Context()), orderID, status, payload.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": status})
	}
}

func DeliveryAssign(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetID, err := uuid.Parse(payload.DeliveryManID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delivery_man_id must be a valid uuid"))
			return
		}

		if err := svc.AssignDeliveryMan(r.Context(), middleware.ActorID(r.Context()), orderID, targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "delivery_man_id": targetID})
	}
}

func DeliveryHistory(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.GetDeliveryHistory(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}
