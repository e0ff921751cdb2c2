package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/aridelgado/blindbox-backend/pkg/auth"
	"github.com/aridelgado/blindbox-backend/pkg/auth/session"
	"github.com/aridelgado/blindbox-backend/pkg/config"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes account registration and authentication.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AccountDTO, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	EnsureOwner(ctx context.Context) (*models.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*AccountDTO, error)
}

// RegisterInput holds the validated payload for a new buyer account.
type RegisterInput struct {
	Email    string
	Password string
}

// AccountDTO is the public read shape of an account.
type AccountDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Role          enums.Role `json:"role"`
	IsAdmin       bool       `json:"is_admin"`
	IsDeliveryMan bool       `json:"is_delivery_man"`
}

// LoginResult bundles the freshly minted token pair with the account shape.
type LoginResult struct {
	Account      AccountDTO `json:"account"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

type sessionIssuer interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type service struct {
	repo        Repository
	sessions    sessionIssuer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	ownerCfg    config.OwnerConfig
}

// NewService constructs an account service instance.
func NewService(repo Repository, sessions sessionIssuer, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig, ownerCfg config.OwnerConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session issuer required")
	}
	return &service{
		repo:        repo,
		sessions:    sessions,
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		ownerCfg:    ownerCfg,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         enums.RoleBuyer,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return toDTO(account), nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account disabled")
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	accessID := session.NewAccessID()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: account.ID,
		Role:   account.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	return &LoginResult{
		Account:      *toDTO(account),
		AccessToken:  token,
		RefreshToken: refresh,
	}, nil
}

// EnsureOwner bootstraps the single privileged deployer account from config.
// The owner is created once and never demoted.
func (s *service) EnsureOwner(ctx context.Context) (*models.Account, error) {
	if owner, err := s.repo.FindOwner(ctx); err == nil {
		return owner, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup owner")
	}

	email := strings.ToLower(strings.TrimSpace(s.ownerCfg.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email not configured")
	}
	password := s.ownerCfg.Password
	if password == "" {
		password = uuid.NewString()
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash owner password")
	}

	owner := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         enums.RoleAdmin,
		IsAdmin:      true,
		IsOwner:      true,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, owner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner")
	}
	return owner, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}
	return toDTO(account), nil
}

func toDTO(account *models.Account) *AccountDTO {
	return &AccountDTO{
		ID:            account.ID,
		Email:         account.Email,
		Role:          account.Role,
		IsAdmin:       account.IsAdmin,
		IsDeliveryMan: account.IsDeliveryMan,
	}
}
