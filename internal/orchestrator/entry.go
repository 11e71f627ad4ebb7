package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smarttrading/internal/exchange"
	"smarttrading/internal/model"
	"smarttrading/internal/notify"
	"smarttrading/internal/orderid"
	"smarttrading/internal/sizing"
	"smarttrading/pkg/errors/ecode"

	"go.uber.org/multierr"
)

// processEntry ENTRY信号：开仓并挂上止损止盈保护单
// 设杠杆和开仓失败是致命错误直接终止；保护单失败降级记录并告警，仓位留着
func (o *Orchestrator) processEntry(ctx context.Context, alert model.Alert, ec model.ExecutionContext, record *model.TradeRecord) *Report {
	report := newReport()

	// 1. 资格校验
	if code, reason := o.eligibility(alert, ec); code != ecode.Success {
		report.failed("eligibility", errors.New(reason))
		report.advance(StateAborted)
		record.Reason = reason
		return report
	}
	report.success("eligibility")

	// 2. 同一笔信号在同一账户只入场一次，重放不再下单，按已有仓位回成功
	if prior, ok := o.findEntry(ctx, alert.TradeID, ec.AccountID); ok {
		return o.replayEntry(ctx, alert, ec, prior, record)
	}
	report.success("duplicate_check")

	conn, err := o.connectors(ec)
	if err != nil {
		report.failed("connector", err)
		report.advance(StateAborted)
		record.Reason = "build exchange connector failed"
		return report
	}

	// 3. 合约规格
	spec, err := conn.GetContractSpec(ctx, alert.Symbol)
	if err != nil {
		report.failed("contract_spec", err)
		report.advance(StateAborted)
		record.Reason = "query contract spec failed"
		return report
	}
	report.success("contract_spec")

	// 4. 数量计算
	requested := alert.Size
	if requested <= 0 && ec.FixedNotional > 0 && alert.EntryPrice > 0 {
		requested = ec.FixedNotional / alert.EntryPrice
	}
	if requested <= 0 {
		requested = spec.MinSize
	}
	sized, err := sizing.ComputeOpenSize(requested, alert.EntryPrice, spec, o.cfg.NotionalMargin)
	if err != nil {
		report.failed("sizing", err)
		report.advance(StateAborted)
		record.Reason = "position sizing failed"
		return report
	}
	if sized.Bumped {
		report.step("sizing", StepSuccess, fmt.Sprintf("bumped to min notional, size=%v", sized.Size))
	} else {
		report.success("sizing")
	}

	// 5. 设杠杆，失败不下单
	leverage := ec.ResolveLeverage(o.cfg.DefaultLeverage)
	hold := alert.HoldSide()
	if err := conn.SetLeverage(ctx, alert.Symbol, leverage, hold); err != nil {
		report.failed("set_leverage", err)
		report.advance(StateAborted)
		record.Reason = "set leverage failed"
		return report
	}
	report.success("set_leverage")
	report.advance(StateLeverageSet)
	record.Leverage = leverage

	// 6. 开仓前核对交易所真实仓位，同向仓位已存在就沿用，绝不开第二笔
	report.advance(StateOpening)
	size, entryPrice := o.reconcilePosition(ctx, conn, alert.Symbol, hold, report)
	if size > 0 {
		report.skipped("place_order", "matching position already open, adopting its size")
	} else {
		resp, err := conn.PlaceOrder(ctx, model.OrderRequest{
			Symbol:        alert.Symbol,
			Side:          hold.OpenSide(),
			HoldSide:      hold,
			OrderType:     model.Market,
			Size:          sized.Size,
			ClientOrderID: orderid.New(orderid.KindEntry, alert.Symbol),
		})
		switch {
		case err == nil:
			report.success("place_order")
			record.OrderID = resp.ExchangeOrderID
		case exchange.IsDuplicateClientOrderID(err):
			// 重放的请求，之前那次可能已经成交，按真实仓位对齐
			report.skipped("place_order", "duplicate client order id, adopting exchange position")
		default:
			report.failed("place_order", err)
			report.advance(StateAborted)
			record.Reason = "place entry order failed"
			return report
		}
		// 7. 成交后再查一次，后续数量计算以交易所回报为准
		size, entryPrice = o.reconcilePosition(ctx, conn, alert.Symbol, hold, report)
	}
	report.advance(StateOpenUnprotected)
	if size <= 0 {
		size = sized.Size
	}
	if entryPrice <= 0 {
		entryPrice = alert.EntryPrice
	}
	record.Size = size
	record.EntryPrice = entryPrice

	// 8. 止损+止盈保护单，落库的保护价位只记真正挂上的腿
	o.placeProtection(ctx, conn, alert, ec, spec, hold, size, record, report)

	record.Success = true
	return report
}

// replayEntry 重放的入场信号：不下第二笔单，对齐真实仓位后按成功上报
func (o *Orchestrator) replayEntry(ctx context.Context, alert model.Alert, ec model.ExecutionContext, prior model.TradeRecord, record *model.TradeRecord) *Report {
	report := newReport()
	report.skipped("duplicate_check", "entry already executed for this trade id, adopting existing position")
	if prior.State != "" {
		report.resume(State(prior.State))
	}

	record.Success = true
	record.Reason = "duplicate entry alert, existing position adopted"
	record.Size = prior.Size
	record.EntryPrice = prior.EntryPrice
	record.StopLoss = prior.StopLoss
	record.TakeProfit = prior.TakeProfit
	record.Leverage = prior.Leverage

	// 能查到交易所仓位就以交易所为准
	conn, err := o.connectors(ec)
	if err != nil {
		report.step("reconcile_position", StepFailed, err.Error())
		return report
	}
	size, entryPrice := o.reconcilePosition(ctx, conn, alert.Symbol, alert.HoldSide(), report)
	if size > 0 {
		record.Size = size
		record.EntryPrice = entryPrice
	}
	return report
}

// reconcilePosition 查交易所真实仓位，查不到不算致命
func (o *Orchestrator) reconcilePosition(ctx context.Context, conn exchange.Connector, symbol string, hold model.HoldSide, report *Report) (float64, float64) {
	positions, err := conn.GetOpenPositions(ctx, symbol)
	if err != nil {
		report.step("reconcile_position", StepFailed, err.Error())
		return 0, 0
	}
	for _, p := range positions {
		if p.Side == hold {
			report.success("reconcile_position")
			return p.Size, p.EntryPrice
		}
	}
	report.skipped("reconcile_position", "no open position reported yet")
	return 0, 0
}

// placeProtection 保护腿并发挂出，一起等结果
// 信号带保本价且开启分批止盈时，止盈拆成两笔：一半在保本价，一半在目标价
// 止损失败是critical，止盈失败是warning，都不回滚已有仓位
func (o *Orchestrator) placeProtection(ctx context.Context, conn exchange.Connector, alert model.Alert, ec model.ExecutionContext, spec model.ContractSpec, hold model.HoldSide, size float64, record *model.TradeRecord, report *Report) {
	type leg struct {
		kind  model.TriggerKind
		oid   orderid.Kind
		price float64
		size  float64
	}
	legs := []leg{{model.TriggerStopLoss, orderid.KindStopLoss, alert.StopLoss, size}}

	split := false
	if (ec.PartialTP || o.cfg.PartialTP) && alert.BreakevenPrice > 0 {
		if first, second, ok := sizing.SplitHalf(size, spec); ok {
			legs = append(legs,
				leg{model.TriggerTakeProfit, orderid.KindTakeProf, alert.BreakevenPrice, first},
				leg{model.TriggerTakeProfit, orderid.KindTakeProf, alert.TakeProfit, second})
			report.step("partial_tp", StepSuccess, fmt.Sprintf("take profit split %v + %v", first, second))
			split = true
		} else {
			// 拆一半达不到最小下单数量，退回整仓止盈
			report.skipped("partial_tp", "half below min size, fallback to single take profit")
		}
	}
	if !split {
		legs = append(legs, leg{model.TriggerTakeProfit, orderid.KindTakeProf, alert.TakeProfit, size})
	}

	errs := make([]error, len(legs))
	var wg sync.WaitGroup
	for i, l := range legs {
		wg.Add(1)
		go func(i int, l leg) {
			defer wg.Done()
			_, errs[i] = conn.PlaceTriggerOrder(ctx, model.TriggerOrderRequest{
				Kind:          l.kind,
				Symbol:        alert.Symbol,
				HoldSide:      hold,
				TriggerPrice:  l.price,
				Size:          l.size,
				ClientOrderID: orderid.New(l.oid, alert.Symbol),
			})
		}(i, l)
	}
	wg.Wait()

	slErr := errs[0]
	var tpErr error
	for _, e := range errs[1:] {
		tpErr = multierr.Append(tpErr, e)
	}

	if slErr == nil {
		report.success("place_stop_loss")
		record.StopLoss = alert.StopLoss
	} else {
		report.failed("place_stop_loss", slErr)
	}
	if tpErr == nil {
		report.success("place_take_profit")
		record.TakeProfit = alert.TakeProfit
	} else {
		report.failed("place_take_profit", tpErr)
	}

	// 两条腿都在才算受保护，缺任何一条都停在裸仓状态
	switch {
	case slErr == nil && tpErr == nil:
		report.advance(StateOpenProtected)
	case slErr == nil:
		// 止损还在，风险敞口有底，降级告警
		record.Reason = "take profit leg failed"
		o.notify(ctx, notify.SeverityWarning, alert, ec, "take profit order failed: "+tpErr.Error())
	default:
		// 止损都没挂上，必须立刻人工介入
		combined := multierr.Combine(slErr, tpErr)
		record.Reason = "protection legs failed: " + combined.Error()
		o.notify(ctx, notify.SeverityCritical, alert, ec, "position open without stop loss: "+combined.Error())
	}
}
