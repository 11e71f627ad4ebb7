package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// TradeRecord 一次信号处理后的结果记录，每个(信号,账户)一条
type TradeRecord struct {
	ID        int64     `gorm:"column:id;primary_key" json:"id"` // snowflake id
	TradeID   string    `gorm:"column:trade_id;index" json:"trade_id"`
	AccountID string    `gorm:"column:account_id;index" json:"account_id"`
	Strategy  string    `gorm:"column:strategy" json:"strategy"`
	Exchange  string    `gorm:"column:exchange" json:"exchange"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`

	Category AlertCategory `gorm:"column:category" json:"category"`
	Symbol   string        `gorm:"column:symbol" json:"symbol"`
	Side     AlertSide     `gorm:"column:side" json:"side"`

	Success bool   `gorm:"column:success" json:"success"`
	State   string `gorm:"column:state" json:"state"`   // 终态，如 OPEN_PROTECTED / ABORTED
	Reason  string `gorm:"column:reason" json:"reason"` // 失败/丢弃时的可读原因

	OrderID    string  `gorm:"column:order_id" json:"order_id"`
	Size       float64 `gorm:"column:size" json:"size"` // 交易所回报的真实数量
	EntryPrice float64 `gorm:"column:entry_price" json:"entry_price"`
	StopLoss   float64 `gorm:"column:stop_loss" json:"stop_loss"`
	TakeProfit float64 `gorm:"column:take_profit" json:"take_profit"`
	Leverage   int     `gorm:"column:leverage" json:"leverage"`

	// 每个步骤的结果明细(JSON数组)，排障时不用翻审计日志
	Steps datatypes.JSON `gorm:"column:steps" json:"steps"`

	DeletedAt soft_delete.DeletedAt `gorm:"column:deleted_at" json:"-"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}
