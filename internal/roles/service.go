package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/aridelgado/blindbox-backend/internal/accounts"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the role registry: it gates every privileged operation in the
// system. Admin and delivery flags are mutually exclusive; any assignment
// rewrites both flags so an account can never hold both.
type Service interface {
	AddAdmin(ctx context.Context, callerID, targetID uuid.UUID) error
	AddDeliveryMan(ctx context.Context, callerID, targetID uuid.UUID) error
	AssignRole(ctx context.Context, callerID, targetID uuid.UUID, role enums.Role) error
	IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error)
	IsDelivery(ctx context.Context, accountID uuid.UUID) (bool, error)
}

type service struct {
	repo accounts.Repository
	tx   txRunner
}

// NewService builds the role registry over the accounts repository.
func NewService(repo accounts.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// AddAdmin grants the admin role. Only the owner may call it; repeat calls
// are idempotent.
func (s *service) AddAdmin(ctx context.Context, callerID, targetID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		caller, err := loadAccount(ctx, repo, callerID)
		if err != nil {
			return err
		}
		if !caller.IsOwner {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner may grant admin")
		}
		return applyRole(ctx, repo, targetID, enums.RoleAdmin)
	})
}

// AddDeliveryMan grants the delivery role. Caller must hold admin.
func (s *service) AddDeliveryMan(ctx context.Context, callerID, targetID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireAdmin(ctx, repo, callerID); err != nil {
			return err
		}
		return applyRole(ctx, repo, targetID, enums.RoleDelivery)
	})
}

// AssignRole sets an arbitrary role. Caller must hold admin.
func (s *service) AssignRole(ctx context.Context, callerID, targetID uuid.UUID, role enums.Role) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireAdmin(ctx, repo, callerID); err != nil {
			return err
		}
		return applyRole(ctx, repo, targetID, role)
	})
}

func (s *service) IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error) {
	account, err := loadAccount(ctx, s.repo, accountID)
	if err != nil {
		return false, err
	}
	return account.IsAdmin, nil
}

func (s *service) IsDelivery(ctx context.Context, accountID uuid.UUID) (bool, error) {
	account, err := loadAccount(ctx, s.repo, accountID)
	if err != nil {
		return false, err
	}
	return account.IsDeliveryMan, nil
}

func requireAdmin(ctx context.Context, repo accounts.Repository, callerID uuid.UUID) error {
	caller, err := loadAccount(ctx, repo, callerID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func applyRole(ctx context.Context, repo accounts.Repository, targetID uuid.UUID, role enums.Role) error {
	if targetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target account id required")
	}
	if _, err := loadAccount(ctx, repo, targetID); err != nil {
		return err
	}
	updates := map[string]any{
		"role":            role,
		"is_admin":        role == enums.RoleAdmin,
		"is_delivery_man": role == enums.RoleDelivery,
	}
	if err := repo.Update(ctx, targetID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	return nil
}

func loadAccount(ctx context.Context, repo accounts.Repository, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}
	return account, nil
}
