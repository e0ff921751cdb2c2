package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type roleChecker interface {
	IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error)
	IsDelivery(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// Service advances orders through the delivery lifecycle. Every status write
// passes the transition table and appends an immutable log entry in the same
// transaction.
type Service interface {
	MarkOutForDelivery(ctx context.Context, actorID uuid.UUID, orderID int64, deliveryID, note string) error
	SubmitProof(ctx context.Context, actorID uuid.UUID, orderID int64, proofImage, note string) error
	ConfirmDelivery(ctx context.Context, actorID uuid.UUID, orderID int64) error
	AddStatus(ctx context.Context, actorID uuid.UUID, orderID int64, status enums.OrderStatus, note string) error
	AssignDeliveryMan(ctx context.Context, actorID uuid.UUID, orderID int64, targetID uuid.UUID) error
	GetDeliveryHistory(ctx context.Context, orderID int64) ([]models.DeliveryLogEntry, error)
}

type service struct {
	repo  Repository
	roles roleChecker
	tx    txRunner
}

// NewService builds the delivery service.
func NewService(repo Repository, roles roleChecker, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, roles: roles, tx: tx}, nil
}

// MarkOutForDelivery hands the order to a carrier. Admin only.
func (s *service) MarkOutForDelivery(ctx context.Context, actorID uuid.UUID, orderID int64, deliveryID, note string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	extra := map[string]any{}
	if strings.TrimSpace(deliveryID) != "" {
		extra["delivery_id"] = deliveryID
	}
	return s.transition(ctx, actorID, orderID, enums.OrderStatusOutForDelivery, note, "", extra)
}

// SubmitProof attaches delivery evidence and moves the order to pending
// confirmation. Callable by delivery agents and admins.
func (s *service) SubmitProof(ctx context.Context, actorID uuid.UUID, orderID int64, proofImage, note string) error {
	if err := s.requireDeliveryOrAdmin(ctx, actorID); err != nil {
		return err
	}
	if strings.TrimSpace(proofImage) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "proof image required")
	}
	extra := map[string]any{"proof_image": proofImage}
	return s.transition(ctx, actorID, orderID, enums.OrderStatusPendingConfirmation, note, proofImage, extra)
}

// ConfirmDelivery closes the order. Admin only.
func (s *service) ConfirmDelivery(ctx context.Context, actorID uuid.UUID, orderID int64) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.transition(ctx, actorID, orderID, enums.OrderStatusCompleted, "", "", nil)
}

// AddStatus sets a caller-specified status. Non-admin callers may only set
// the two mid-delivery statuses, and every request still has to be a legal
// transition from the order's current state.
func (s *service) AddStatus(ctx context.Context, actorID uuid.UUID, orderID int64, status enums.OrderStatus, note string) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	isAdmin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		isDelivery, err := s.roles.IsDelivery(ctx, actorID)
		if err != nil {
			return err
		}
		if !isDelivery {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery or admin role required")
		}
		if !nonAdminStatuses[status] {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery agents may only set delivery progress statuses")
		}
	}
	return s.transition(ctx, actorID, orderID, status, note, "", nil)
}

// AssignDeliveryMan records which agent is responsible for the order. The
// relation is orthogonal to the status lifecycle.
func (s *service) AssignDeliveryMan(ctx context.Context, actorID uuid.UUID, orderID int64, targetID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if targetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target account id required")
	}
	isDelivery, err := s.roles.IsDelivery(ctx, targetID)
	if err != nil {
		return err
	}
	if !isDelivery {
		return pkgerrors.New(pkgerrors.CodeValidation, "target must hold the delivery role")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadOrder(ctx, repo, orderID); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, orderID, map[string]any{"assigned_delivery_id": targetID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign delivery agent")
		}
		return nil
	})
}

func (s *service) GetDeliveryHistory(ctx context.Context, orderID int64) ([]models.DeliveryLogEntry, error) {
	if _, err := loadOrder(ctx, s.repo, orderID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListLogs(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery history")
	}
	return entries, nil
}

func (s *service) transition(ctx context.Context, actorID uuid.UUID, orderID int64, to enums.OrderStatus, note, proofImage string, extra map[string]any) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
		}

		updates := map[string]any{"status": to}
		for key, value := range extra {
			updates[key] = value
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		entry := &models.DeliveryLogEntry{
			OrderID:    orderID,
			Status:     to,
			Note:       note,
			ProofImage: proofImage,
			ActorID:    actorID,
		}
		if err := repo.AppendLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append delivery log")
		}
		return nil
	})
}

func (s *service) isAdmin(ctx context.Context, actorID uuid.UUID) (bool, error) {
	if actorID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	return s.roles.IsAdmin(ctx, actorID)
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	isAdmin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (s *service) requireDeliveryOrAdmin(ctx context.Context, actorID uuid.UUID) error {
	isAdmin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if isAdmin {
		return nil
	}
	isDelivery, err := s.roles.IsDelivery(ctx, actorID)
	if err != nil {
		return err
	}
	if !isDelivery {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery or admin role required")
	}
	return nil
}

func loadOrder(ctx context.Context, repo Repository, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	return order, nil
}
