package model

import "strings"

// 交易所凭证，由凭证库解密后下发，执行层不落盘不打日志
type Credential struct {
	ApiKey     string
	SecretKey  string
	Passphrase string
}

// Redacted 用于审计日志里展示的脱敏key
func (c Credential) Redacted() string {
	if len(c.ApiKey) <= 6 {
		return "******"
	}
	return c.ApiKey[:4] + "****" + c.ApiKey[len(c.ApiKey)-2:]
}

// ExecutionContext 一次信号处理中某个账户的执行上下文，处理期间只读
type ExecutionContext struct {
	AccountID string
	Strategy  string
	Exchange  string // bitget / okx

	Credential Credential

	Role           int  // consts.StandardUser / Privileged ...
	PaymentActive  bool // 付费订阅是否有效
	StrategyActive bool // 策略订阅是否有效

	// 杠杆优先级：账户级 > 策略级 > 系统默认
	Leverage         int
	StrategyLeverage int

	// 仓位偏好：FixedNotional > 0 时按固定名义价值下单，否则按交易所最小值自动计算
	FixedNotional float64

	PartialTP bool // 是否启用分批止盈

	AllowSymbols []string // 为空表示全部允许
	DenySymbols  []string
}

// ResolveLeverage 按优先级解析杠杆倍数
func (c *ExecutionContext) ResolveLeverage(systemDefault int) int {
	if c.Leverage > 0 {
		return c.Leverage
	}
	if c.StrategyLeverage > 0 {
		return c.StrategyLeverage
	}
	return systemDefault
}

// SymbolAllowed 校验币种黑白名单，deny优先于allow
func (c *ExecutionContext) SymbolAllowed(symbol string) bool {
	for _, s := range c.DenySymbols {
		if strings.EqualFold(s, symbol) {
			return false
		}
	}
	if len(c.AllowSymbols) == 0 {
		return true
	}
	for _, s := range c.AllowSymbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}
