package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"petfinder/internal/models/db_models"
	"petfinder/internal/models/request_models"
	"petfinder/internal/repositories"
	"petfinder/pkg/utils"
)

type AccountServiceInterface interface {
	Login(ctx context.Context, request request_models.LoginRequest) (string, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	cfg         AuthConfig
	log         *zap.Logger
}

func NewAccountService(accountRepo repositories.AccountRepository, cfg AuthConfig, log *zap.Logger) AccountServiceInterface {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &AccountService{
		accountRepo: accountRepo,
		cfg:         cfg,
		log:         log.Named("accounts"),
	}
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (string, error) {
	if len(a.cfg.Secret) == 0 {
		return "", fmt.Errorf("%w: jwt secret not configured", utils.ErrUnauthorized)
	}

	account, err := a.accountRepo.FindByEmail(ctx, normalizeEmail(request.Email))
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return "", utils.ErrInvalidCredentials
	}

	token, err := utils.CreateToken(a.cfg.Secret, account.ID, account.Role, a.cfg.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", utils.ErrUnauthorized, err)
	}
	a.log.Info("operator logged in", zap.String("email", account.Email), zap.String("role", account.Role))
	return token, nil
}

// EnsureAdmin creates the admin account, or resets its password and role
// when it already exists. Empty credentials are a no-op.
func (a *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}

	existing, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if utils.ComparePasswords(existing.PasswordHash, password) == nil && existing.Role == utils.RoleAdmin {
			return nil
		}
		existing.PasswordHash = hash
		existing.Role = utils.RoleAdmin
		return a.accountRepo.UpdatePassword(ctx, existing)
	}

	err = a.accountRepo.Create(ctx, &db_models.Account{
		Name:         "admin",
		Email:        email,
		PasswordHash: hash,
		Role:         utils.RoleAdmin,
	})
	if err != nil {
		return err
	}
	a.log.Info("admin account created", zap.String("email", email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
