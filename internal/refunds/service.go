package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/aridelgado/blindbox-backend/internal/delivery"
	"github.com/aridelgado/blindbox-backend/internal/payout"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type roleChecker interface {
	IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// Service resolves refunds. The ticket flow and the legacy payment-claim
// flow are two front-ends over one disburse-once settlement: state writes
// commit in the same transaction as the payout, and a payout failure rolls
// everything back.
type Service interface {
	OpenRefund(ctx context.Context, requesterID uuid.UUID, orderID int64, refundType enums.RefundType, amountWei int64) (*models.RefundTicket, error)
	ApproveRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error
	RejectRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error
	PayRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error
	GetTicket(ctx context.Context, ticketID int64) (*models.RefundTicket, error)
	ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.RefundTicket, error)

	ApproveFullRefund(ctx context.Context, actorID uuid.UUID, orderID int64) error
	ApprovePartialRefund(ctx context.Context, actorID uuid.UUID, orderID int64, amountWei int64) error
	ClaimRefund(ctx context.Context, buyerID uuid.UUID, orderID int64) (int64, error)
}

type service struct {
	repo      Repository
	roles     roleChecker
	disburser payout.Disburser
	tx        txRunner
	metrics   *metrics.CommerceMetrics
}

// NewService builds the refund service. Metrics may be nil.
func NewService(repo Repository, roles roleChecker, disburser payout.Disburser, tx txRunner, m *metrics.CommerceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker required")
	}
	if disburser == nil {
		return nil, fmt.Errorf("disburser required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, roles: roles, disburser: disburser, tx: tx, metrics: m}, nil
}

// OpenRefund files a ticket. Only the order's buyer may file, only against
// a delivered order, and only for an amount within what was paid.
func (s *service) OpenRefund(ctx context.Context, requesterID uuid.UUID, orderID int64, refundType enums.RefundType, amountWei int64) (*models.RefundTicket, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if !refundType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund type")
	}

	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the order's buyer may request a refund")
	}
	if order.Status != enums.OrderStatusCompleted && order.Status != enums.OrderStatusPendingConfirmation {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not refundable in its current state")
	}
	if amountWei <= 0 || amountWei > order.PaidWei {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive and within the paid amount")
	}
	if refundType == enums.RefundTypeFull && amountWei != order.PaidWei {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full refund must match the paid amount")
	}

	ticket := &models.RefundTicket{
		OrderID:     orderID,
		RequesterID: requesterID,
		Type:        refundType,
		AmountWei:   amountWei,
		Status:      enums.RefundTicketStatusOpen,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund ticket")
	}
	return ticket, nil
}

func (s *service) ApproveRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error {
	return s.moveTicket(ctx, actorID, ticketID, enums.RefundTicketStatusOpen, enums.RefundTicketStatusApproved)
}

func (s *service) RejectRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error {
	return s.moveTicket(ctx, actorID, ticketID, enums.RefundTicketStatusOpen, enums.RefundTicketStatusRejected)
}

func (s *service) moveTicket(ctx context.Context, actorID uuid.UUID, ticketID int64, from, to enums.RefundTicketStatus) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status != from {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("ticket is %s, expected %s", ticket.Status, from))
		}
		if err := repo.UpdateTicket(ctx, ticketID, map[string]any{"status": to}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ticket")
		}
		return nil
	})
}

// PayRefund settles an approved ticket: the order flips to refunded and the
// ticket to paid before the transfer runs, and the whole transaction rolls
// back if the transfer fails. A ticket can therefore never pay out twice.
func (s *service) PayRefund(ctx context.Context, actorID uuid.UUID, ticketID int64) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status != enums.RefundTicketStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("ticket is %s, expected approved", ticket.Status))
		}

		order, err := s.loadOrder(ctx, repo, ticket.OrderID)
		if err != nil {
			return err
		}
		if !delivery.CanTransition(order.Status, enums.OrderStatusRefunded) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be refunded")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusRefunded}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.UpdateTicket(ctx, ticketID, map[string]any{"status": enums.RefundTicketStatusPaid}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ticket")
		}
		entry := &models.DeliveryLogEntry{
			OrderID: order.ID,
			Status:  enums.OrderStatusRefunded,
			Note:    "REFUND_PAID",
			ActorID: actorID,
		}
		if err := repo.AppendLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append delivery log")
		}

		// transfer runs last; its failure aborts every write above
		if err := s.disburser.Disburse(ctx, ticket.RequesterID, ticket.AmountWei); err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodePayoutFailed {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodePayoutFailed, err, "disburse refund")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncRefundPaid()
	}
	return nil
}

func (s *service) GetTicket(ctx context.Context, ticketID int64) (*models.RefundTicket, error) {
	return s.loadTicket(ctx, s.repo, ticketID)
}

func (s *service) ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.RefundTicket, error) {
	if _, err := s.loadOrder(ctx, s.repo, orderID); err != nil {
		return nil, err
	}
	tickets, err := s.repo.ListTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return tickets, nil
}

// ApproveFullRefund marks the whole legacy payment refundable.
func (s *service) ApproveFullRefund(ctx context.Context, actorID uuid.UUID, orderID int64) error {
	return s.approveLegacy(ctx, actorID, orderID, 0)
}

// ApprovePartialRefund marks part of the legacy payment refundable.
func (s *service) ApprovePartialRefund(ctx context.Context, actorID uuid.UUID, orderID int64, amountWei int64) error {
	if amountWei <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	return s.approveLegacy(ctx, actorID, orderID, amountWei)
}

func (s *service) approveLegacy(ctx context.Context, actorID uuid.UUID, orderID int64, amountWei int64) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.loadPayment(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if payment.RefundClaimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already claimed")
		}
		approved := amountWei
		if approved == 0 {
			approved = payment.AmountWei
		}
		if approved > payment.AmountWei {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds the payment")
		}
		if err := repo.UpdatePayment(ctx, orderID, map[string]any{"refund_approved_wei": approved}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve refund")
		}
		return nil
	})
}

// ClaimRefund pays an approved legacy refund out to the buyer. The claimed
// flag flips in the same transaction as the transfer, guarded so a second
// claim matches no row and pays nothing.
func (s *service) ClaimRefund(ctx context.Context, buyerID uuid.UUID, orderID int64) (int64, error) {
	if buyerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var amount int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.loadPayment(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if payment.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the payer may claim the refund")
		}
		if payment.RefundApprovedWei <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no refund approved for this payment")
		}

		claimed, err := repo.ClaimPayment(ctx, orderID, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already claimed")
		}

		// a legacy payment may predate its order row; anything beyond
		// not-found must abort so the claim does not outrun the flip
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
		}
		if order != nil && delivery.CanTransition(order.Status, enums.OrderStatusRefunded) {
			if err := repo.UpdateOrder(ctx, orderID, map[string]any{"status": enums.OrderStatusRefunded}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}

		amount = payment.RefundApprovedWei
		if err := s.disburser.Disburse(ctx, buyerID, amount); err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodePayoutFailed {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodePayoutFailed, err, "disburse refund")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.IncRefundPaid()
	}
	return amount, nil
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	isAdmin, err := s.roles.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (s *service) loadTicket(ctx context.Context, repo Repository, ticketID int64) (*models.RefundTicket, error) {
	if ticketID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund ticket not found")
	}
	ticket, err := repo.FindTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ticket")
	}
	return ticket, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID int64) (*models.Order, error) {
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

func (s *service) loadPayment(ctx context.Context, repo Repository, orderID int64) (*models.Payment, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	payment, err := repo.FindPayment(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	return payment, nil
}
