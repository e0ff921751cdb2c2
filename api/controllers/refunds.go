package controllers

import (
	"net/http"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/refunds"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
)

type openRefundRequest struct {
	OrderID   int64  `json:"order_id" validate:"required,gt=0"`
	Type      string `json:"type" validate:"required"`
	AmountWei int64  `json:"amount_wei" validate:"required,gt=0"`
}

type partialRefundRequest struct {
	AmountWei int64 `json:"amount_wei" validate:"gte=0"`
}

func RefundOpen(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.OpenRefund(r.Context(), middleware.ActorID(r.Context()), payload.OrderID, enums.RefundType(payload.Type), payload.AmountWei)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

func RefundApprove(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseURLInt64(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApproveRefund(r.Context(), middleware.ActorID(r.Context()), ticketID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"refund_id": ticketID, "status": enums.RefundTicketStatusApproved})
	}
}

func RefundReject(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseURLInt64(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RejectRefund(r.Context(), middleware.ActorID(r.Context()), ticketID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"refund_id": ticketID, "status": enums.RefundTicketStatusRejected})
	}
}

func RefundPay(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseURLInt64(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.PayRefund(r.Context(), middleware.ActorID(r.Context()), ticketID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"refund_id": ticketID, "status": enums.RefundTicketStatusPaid})
	}
}

func RefundGet(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseURLInt64(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.GetTicket(r.Context(), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}

func RefundListByOrder(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tickets, err := svc.ListTicketsByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tickets)
	}
}

// PaymentApproveRefund is the legacy per-payment refund approval. A zero
// or omitted amount approves the full paid amount.
func PaymentApproveRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload partialRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.ActorID(r.Context())
		if payload.AmountWei > 0 {
			err = svc.ApprovePartialRefund(r.Context(), actorID, orderID, payload.AmountWei)
		} else {
			err = svc.ApproveFullRefund(r.Context(), actorID, orderID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "approved_wei": payload.AmountWei})
	}
}

func PaymentClaimRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLInt64(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.ClaimRefund(r.Context(), middleware.ActorID(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "claimed_wei": amount})
	}
}
