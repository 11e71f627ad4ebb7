package orchestrator

import (
	"context"
	"fmt"
	"time"

	"smarttrading/internal/consts"
	"smarttrading/internal/exchange"
	"smarttrading/internal/model"
	"smarttrading/internal/notify"
	"smarttrading/pkg/errors/ecode"
	"smarttrading/pkg/logger"
)

// ConnectorFactory 按账户构建交易所连接，每个账户用自己的凭证
type ConnectorFactory func(ec model.ExecutionContext) (exchange.Connector, error)

// TradeStore 交易记录的持久层，由dao.TradeDao实现
type TradeStore interface {
	InsertRecord(ctx context.Context, record *model.TradeRecord) error
	GetEntryRecord(ctx context.Context, tradeID, accountID string) (model.TradeRecord, error)
}

// EntryCache 入场记录的快路径，由cache.TradeCache实现
type EntryCache interface {
	SetEntry(ctx context.Context, record model.TradeRecord)
	GetEntry(ctx context.Context, tradeID, accountID string) (model.TradeRecord, bool)
}

// Config 执行参数，来自系统配置
type Config struct {
	DefaultLeverage int
	NotionalMargin  float64 // 最小名义价值的安全系数，如1.05
	PartialTP       bool    // 系统级分批止盈默认值
}

// Orchestrator 单账户信号执行器
// 一次Process处理一个(信号,账户)对，无论结果如何都会产出一条交易记录
type Orchestrator struct {
	connectors ConnectorFactory
	trades     TradeStore
	tradeCache EntryCache
	notifier   notify.Notifier
	cfg        Config
}

func New(connectors ConnectorFactory, trades TradeStore, tc EntryCache, n notify.Notifier, cfg Config) *Orchestrator {
	if cfg.DefaultLeverage <= 0 {
		cfg.DefaultLeverage = 10
	}
	if cfg.NotionalMargin < 1 {
		cfg.NotionalMargin = 1.05
	}
	return &Orchestrator{
		connectors: connectors,
		trades:     trades,
		tradeCache: tc,
		notifier:   n,
		cfg:        cfg,
	}
}

// Process 处理一条信号，返回落库后的交易记录
// 所有异常路径都收敛成记录里的终态，只有落库失败才返回error
func (o *Orchestrator) Process(ctx context.Context, alert model.Alert, ec model.ExecutionContext) (*model.TradeRecord, error) {
	record := &model.TradeRecord{
		TradeID:   alert.TradeID,
		AccountID: ec.AccountID,
		Strategy:  alert.Strategy,
		Exchange:  ec.Exchange,
		CreatedAt: time.Now(),
		Category:  alert.Category,
		Symbol:    alert.Symbol,
		Side:      alert.Side,
	}

	var report *Report
	switch alert.Category {
	case model.AlertEntry:
		report = o.processEntry(ctx, alert, ec, record)
	case model.AlertBreakeven:
		report = o.processBreakeven(ctx, alert, ec, record)
	case model.AlertInfo:
		report = o.processInfo(ctx, alert, ec, record)
	default:
		report = newReport()
		report.advance(StateAborted)
		report.failed("validate", fmt.Errorf("unknown category %s", alert.Category))
		record.Reason = "unknown alert category"
	}

	record.State = string(report.State)
	record.Steps = report.StepsJSON()

	if err := o.trades.InsertRecord(ctx, record); err != nil {
		// 交易已经发生，记录丢失是要人工介入的事故
		logger.Errorf("insert trade record failed, trade=%s account=%s: %v", alert.TradeID, ec.AccountID, err)
		return record, err
	}
	if record.Category == model.AlertEntry && record.Success {
		o.tradeCache.SetEntry(ctx, *record)
	}
	return record, nil
}

// 前置校验，失败返回错误码供记录终态
func (o *Orchestrator) eligibility(alert model.Alert, ec model.ExecutionContext) (int, string) {
	if ec.Credential.ApiKey == "" || ec.Credential.SecretKey == "" {
		return ecode.NoCredential, "missing exchange credential"
	}
	if ec.Role != consts.Privileged {
		if !ec.PaymentActive {
			return ecode.NoSubscription, "payment subscription inactive"
		}
		if !ec.StrategyActive {
			return ecode.NoSubscription, "strategy subscription inactive"
		}
	}
	if !ec.SymbolAllowed(alert.Symbol) {
		return ecode.SymbolNotAllowed, "symbol not allowed for account"
	}
	return ecode.Success, ""
}

func (o *Orchestrator) notify(ctx context.Context, severity notify.Severity, alert model.Alert, ec model.ExecutionContext, message string) {
	o.notifier.Notify(ctx, notify.Event{
		Severity:  severity,
		AccountID: ec.AccountID,
		TradeID:   alert.TradeID,
		Symbol:    alert.Symbol,
		Message:   message,
	})
}
