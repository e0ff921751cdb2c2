package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/api/responses"
	"github.com/aridelgado/blindbox-backend/api/validators"
	"github.com/aridelgado/blindbox-backend/internal/roles"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
)

type grantRoleRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

type assignRoleRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Role      string `json:"role" validate:"required"`
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "account_id must be a valid uuid")
	}
	return id, nil
}

func RoleGrantAdmin(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload grantRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetID, err := parseAccountID(payload.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AddAdmin(r.Context(), middleware.ActorID(r.Context()), targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"account_id": targetID, "role": enums.RoleAdmin})
	}
}

func RoleGrantDelivery(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload grantRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetID, err := parseAccountID(payload.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AddDeliveryMan(r.Context(), middleware.ActorID(r.Context()), targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"account_id": targetID, "role": enums.RoleDelivery})
	}
}

func RoleAssign(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload assignRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetID, err := parseAccountID(payload.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.Role(payload.Role)
		if err := svc.AssignRole(r.Context(), middleware.ActorID(r.Context()), targetID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"account_id": targetID, "role": role})
	}
}
