package dao

import (
	"context"

	"smarttrading/internal/model"

	"gorm.io/gorm"
)

type AccountDao struct {
	db *gorm.DB
}

func NewAccountDao(db *gorm.DB) *AccountDao {
	return &AccountDao{db: db}
}

// ListByStrategy 查出订阅了某个策略的全部账户
// strategies是JSON数组，用JSON_CONTAINS匹配
func (d *AccountDao) ListByStrategy(ctx context.Context, strategy string) ([]model.Account, error) {
	var accounts []model.Account
	err := d.db.WithContext(ctx).Model(&model.Account{}).
		Where("JSON_CONTAINS(strategies, JSON_QUOTE(?))", strategy).
		Find(&accounts).Error
	return accounts, err
}

func (d *AccountDao) GetByAccountID(ctx context.Context, accountID string) (model.Account, error) {
	var account model.Account
	err := d.db.WithContext(ctx).Model(&model.Account{}).
		Where("account_id = ?", accountID).
		First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return model.Account{}, ErrNotFound
	}
	return account, err
}
