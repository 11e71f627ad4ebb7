package model

import (
	"errors"
	"strings"
	"time"
)

// 信号类型
type AlertCategory string

const (
	// 入场信号，开仓并挂保护单
	AlertEntry AlertCategory = "ENTRY"
	// 保本信号，止损移动到入场价
	AlertBreakeven AlertCategory = "BREAKEVEN"
	// 信息信号，仅做记录，不触发交易
	AlertInfo AlertCategory = "INFO"
)

// 持仓方向
type AlertSide string

const (
	SideLong  AlertSide = "LONG"
	SideShort AlertSide = "SHORT"
)

// Alert 外部信号源推送的一条交易信号，接收后不可变
type Alert struct {
	Category AlertCategory `json:"category" binding:"required"`
	Symbol   string        `json:"symbol" binding:"required"` // BTCUSDT
	Side     AlertSide     `json:"side"`

	EntryPrice     float64 `json:"entry_price,omitempty"`
	StopLoss       float64 `json:"stop_loss,omitempty"`
	TakeProfit     float64 `json:"take_profit,omitempty"`
	BreakevenPrice float64 `json:"breakeven_price,omitempty"`
	Size           float64 `json:"size,omitempty"` // 显式指定的下单数量，可为空

	// 信号源侧的交易id，用于把同一笔逻辑交易的 ENTRY→BREAKEVEN→INFO 关联起来
	TradeID string `json:"trade_id" binding:"required"`

	Strategy  string    `json:"strategy"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate 基础校验，细的业务校验（订阅、白名单）在执行层做
func (a *Alert) Validate() error {
	switch a.Category {
	case AlertEntry, AlertBreakeven, AlertInfo:
	default:
		return errors.New("unknown alert category: " + string(a.Category))
	}
	if strings.TrimSpace(a.Symbol) == "" {
		return errors.New("alert symbol is empty")
	}
	if a.TradeID == "" {
		return errors.New("alert trade_id is empty")
	}
	if a.Category == AlertEntry {
		if a.Side != SideLong && a.Side != SideShort {
			return errors.New("entry alert requires side LONG or SHORT")
		}
		if a.StopLoss <= 0 || a.TakeProfit <= 0 {
			return errors.New("entry alert requires stop_loss and take_profit")
		}
	}
	return nil
}

// HoldSide 把信号方向换算成交易所的持仓方向
func (a *Alert) HoldSide() HoldSide {
	if a.Side == SideShort {
		return HoldShort
	}
	return HoldLong
}
