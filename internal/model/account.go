package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// Account 订阅了信号策略的账户，凭证字段是chacha20poly1305密文的base64
type Account struct {
	ID        int64     `gorm:"column:id;primary_key" json:"id"`
	AccountID string    `gorm:"column:account_id;uniqueIndex" json:"account_id"`
	Exchange  string    `gorm:"column:exchange" json:"exchange"` // bitget / okx
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	Role          int  `gorm:"column:role" json:"role"`
	PaymentActive bool `gorm:"column:payment_active" json:"payment_active"`

	// 订阅的策略名列表(JSON数组)
	Strategies datatypes.JSON `gorm:"column:strategies" json:"strategies"`

	Leverage      int     `gorm:"column:leverage" json:"leverage"`
	FixedNotional float64 `gorm:"column:fixed_notional" json:"fixed_notional"`
	PartialTP     bool    `gorm:"column:partial_tp" json:"partial_tp"`

	AllowSymbols datatypes.JSON `gorm:"column:allow_symbols" json:"allow_symbols"`
	DenySymbols  datatypes.JSON `gorm:"column:deny_symbols" json:"deny_symbols"`

	// 加密后的交易所凭证
	ApiKeyEnc     string `gorm:"column:api_key_enc" json:"-"`
	SecretKeyEnc  string `gorm:"column:secret_key_enc" json:"-"`
	PassphraseEnc string `gorm:"column:passphrase_enc" json:"-"`
	// 客户端侧加密用的公钥
	PublicKey string `gorm:"column:public_key" json:"-"`

	DeletedAt soft_delete.DeletedAt `gorm:"column:deleted_at" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}
