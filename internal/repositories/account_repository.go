package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"petfinder/internal/models/db_models"
	"petfinder/pkg/utils"
)

type AccountRepository interface {
	Create(ctx context.Context, account *db_models.Account) error
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)
	UpdatePassword(ctx context.Context, account *db_models.Account) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find account: %v", utils.ErrDatabaseError, err)
	}
	return &account, nil
}

func (a *accountRepository) Create(ctx context.Context, account *db_models.Account) error {
	if err := a.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("%w: create account: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (a *accountRepository) UpdatePassword(ctx context.Context, account *db_models.Account) error {
	err := a.db.WithContext(ctx).Model(account).
		Updates(map[string]interface{}{"password_hash": account.PasswordHash, "role": account.Role}).Error
	if err != nil {
		return fmt.Errorf("%w: update account: %v", utils.ErrDatabaseError, err)
	}
	return nil
}
