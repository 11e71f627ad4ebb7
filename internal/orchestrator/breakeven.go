package orchestrator

import (
	"context"
	"fmt"

	"smarttrading/internal/dao"
	"smarttrading/internal/exchange"
	"smarttrading/internal/model"
	"smarttrading/internal/notify"
	"smarttrading/internal/orderid"
	"smarttrading/internal/sizing"
	"smarttrading/pkg/logger"
)

// processBreakeven BREAKEVEN信号：平掉一半锁定利润，剩余仓位的止损移到入场价
// 不校验付费状态，已有仓位的保护动作不应该因为订阅过期被卡住
// 顺序不变式：必须先撤旧止损再挂新止损，两个止损并存会导致重复平仓
func (o *Orchestrator) processBreakeven(ctx context.Context, alert model.Alert, ec model.ExecutionContext, record *model.TradeRecord) *Report {
	report := newReport()

	if ec.Credential.ApiKey == "" || ec.Credential.SecretKey == "" {
		report.failed("eligibility", fmt.Errorf("missing exchange credential"))
		report.advance(StateAborted)
		record.Reason = "missing exchange credential"
		return report
	}

	// 1. 找到对应的入场记录，没有就不动任何订单
	entry, found := o.findEntry(ctx, alert.TradeID, ec.AccountID)
	if !found {
		report.skipped("find_entry", "no prior entry for this trade id")
		record.Reason = "no prior entry, ignored"
		return report
	}
	report.success("find_entry")
	// 从入场后落库的状态续起，不算一次状态迁移
	report.resume(StateOpenProtected)

	conn, err := o.connectors(ec)
	if err != nil {
		report.failed("connector", err)
		report.advance(StateAborted)
		record.Reason = "build exchange connector failed"
		return report
	}

	// 2. 查当前仓位，已经平掉就什么都不用做
	hold := model.HoldLong
	if entry.Side == model.SideShort {
		hold = model.HoldShort
	}
	positions, err := conn.GetOpenPositions(ctx, alert.Symbol)
	if err != nil {
		report.failed("query_position", err)
		report.advance(StateAborted)
		record.Reason = "query position failed"
		return report
	}
	var current *model.PositionInfo
	for i := range positions {
		if positions[i].Side == hold {
			current = &positions[i]
			break
		}
	}
	if current == nil {
		report.skipped("query_position", "position already closed")
		report.advance(StateClosed)
		record.Success = true
		record.Reason = "position already closed"
		return report
	}
	report.success("query_position")
	record.EntryPrice = current.EntryPrice

	// 保本止损落在入场价上，交易所回报的开仓均价优先
	slPrice := current.EntryPrice
	if slPrice <= 0 {
		slPrice = entry.EntryPrice
	}
	if slPrice <= 0 {
		slPrice = alert.BreakevenPrice
	}

	// 3. 先撤旧止损
	report.advance(StateBreakevenMigrating)
	cancelled, err := conn.CancelTriggerOrders(ctx, alert.Symbol, model.TriggerStopLoss)
	if err != nil {
		// 旧止损还在，仓位仍受保护，放弃这次迁移
		report.failed("cancel_stop_loss", err)
		report.advance(StateOpenProtected)
		record.Reason = "cancel old stop loss failed, migration aborted"
		o.notify(ctx, notify.SeverityWarning, alert, ec, "breakeven migration aborted: "+err.Error())
		return report
	}
	report.step("cancel_stop_loss", StepSuccess, fmt.Sprintf("cancelled %d stop loss orders", cancelled))

	// 4. 市价平掉一半锁定利润，拆半低于最小数量时整仓保留
	// 平仓失败不阻塞止损迁移，带着整仓继续
	remaining, closed := o.partialClose(ctx, conn, alert, hold, current.Size, report)
	if closed {
		report.advance(StateClosed)
		record.Success = true
		record.Reason = "position closed by trigger during breakeven"
		return report
	}
	record.Size = remaining

	// 5. 挂入场价止损
	_, err = conn.PlaceTriggerOrder(ctx, model.TriggerOrderRequest{
		Kind:          model.TriggerStopLoss,
		Symbol:        alert.Symbol,
		HoldSide:      hold,
		TriggerPrice:  slPrice,
		Size:          remaining,
		ClientOrderID: orderid.New(orderid.KindBreakeven, alert.Symbol),
	})
	if err == nil || exchange.IsDuplicateClientOrderID(err) {
		report.success("place_breakeven_stop")
		// 止盈单可能被上面那笔平仓带没了，缺了就补一笔
		o.ensureTakeProfit(ctx, conn, alert, entry, hold, remaining, report)
		report.advance(StateBreakevenDone)
		record.Success = true
		record.StopLoss = slPrice
		return report
	}
	report.failed("place_breakeven_stop", err)

	// 6. 兜底恢复：新止损挂不上就把原价位的止损补回去
	// 入场记录没有止损价时不能往交易所发0价触发单
	if entry.StopLoss > 0 {
		_, recoverErr := conn.PlaceTriggerOrder(ctx, model.TriggerOrderRequest{
			Kind:          model.TriggerStopLoss,
			Symbol:        alert.Symbol,
			HoldSide:      hold,
			TriggerPrice:  entry.StopLoss,
			Size:          remaining,
			ClientOrderID: orderid.New(orderid.KindStopLoss, alert.Symbol),
		})
		if recoverErr == nil {
			report.step("restore_stop_loss", StepSuccess, "restored original stop loss")
			report.advance(StateOpenProtected)
			record.Reason = "breakeven failed, original stop loss restored"
			o.notify(ctx, notify.SeverityWarning, alert, ec, "breakeven failed, original stop loss restored")
			return report
		}
		report.failed("restore_stop_loss", recoverErr)
	} else {
		report.skipped("restore_stop_loss", "no stop price on entry record")
	}

	// 旧止损已撤、新止损挂不上，裸仓
	report.advance(StateOpenUnprotected)
	record.Reason = "stop loss removed and re-place failed"
	o.notify(ctx, notify.SeverityCritical, alert, ec, "position left without stop loss after breakeven failure: "+err.Error())
	return report
}

// partialClose 平掉一半仓位，返回剩余数量
// closed=true表示仓位已经不存在（被触发单平掉），调用方直接收尾
func (o *Orchestrator) partialClose(ctx context.Context, conn exchange.Connector, alert model.Alert, hold model.HoldSide, size float64, report *Report) (remaining float64, closed bool) {
	spec, err := conn.GetContractSpec(ctx, alert.Symbol)
	if err != nil {
		report.step("partial_close", StepFailed, "query contract spec failed: "+err.Error())
		return size, false
	}
	half, rest, ok := sizing.SplitHalf(size, spec)
	if !ok {
		// 拆一半达不到最小下单数量，只移止损不减仓
		report.skipped("partial_close", "half below min size, keep full position")
		return size, false
	}

	_, err = conn.PlaceOrder(ctx, model.OrderRequest{
		Symbol:        alert.Symbol,
		Side:          hold.CloseSide(),
		HoldSide:      hold,
		OrderType:     model.Market,
		Size:          sizing.ComputeCloseSize(half, size, spec),
		ReduceOnly:    true,
		ClientOrderID: orderid.New(orderid.KindClose, alert.Symbol),
	})
	switch {
	case err == nil || exchange.IsDuplicateClientOrderID(err):
		report.step("partial_close", StepSuccess, fmt.Sprintf("closed %v at market", half))
		return rest, false
	case exchange.IsNoPositionToClose(err):
		// 仓位已被触发单平掉，清掉残留的触发单收尾
		report.skipped("partial_close", "position already closed by trigger")
		if _, err := conn.CancelTriggerOrders(ctx, alert.Symbol, ""); err != nil {
			report.step("cleanup_triggers", StepFailed, err.Error())
		} else {
			report.success("cleanup_triggers")
		}
		return 0, true
	default:
		report.failed("partial_close", err)
		return size, false
	}
}

// ensureTakeProfit 止盈单缺失时按入场记录的目标价补一笔
func (o *Orchestrator) ensureTakeProfit(ctx context.Context, conn exchange.Connector, alert model.Alert, entry model.TradeRecord, hold model.HoldSide, size float64, report *Report) {
	pending, err := conn.GetPendingTriggerOrders(ctx, alert.Symbol, model.TriggerTakeProfit)
	if err != nil {
		report.step("ensure_take_profit", StepFailed, err.Error())
		return
	}
	if len(pending) > 0 {
		report.skipped("ensure_take_profit", "take profit already armed")
		return
	}
	if entry.TakeProfit <= 0 {
		report.skipped("ensure_take_profit", "no take profit price on record")
		return
	}
	if _, err := conn.PlaceTriggerOrder(ctx, model.TriggerOrderRequest{
		Kind:          model.TriggerTakeProfit,
		Symbol:        alert.Symbol,
		HoldSide:      hold,
		TriggerPrice:  entry.TakeProfit,
		Size:          size,
		ClientOrderID: orderid.New(orderid.KindTakeProf, alert.Symbol),
	}); err != nil {
		report.step("ensure_take_profit", StepFailed, err.Error())
		return
	}
	report.success("ensure_take_profit")
}

// processInfo INFO信号：只留痕，不触发任何交易动作
func (o *Orchestrator) processInfo(ctx context.Context, alert model.Alert, ec model.ExecutionContext, record *model.TradeRecord) *Report {
	report := newReport()
	if _, found := o.findEntry(ctx, alert.TradeID, ec.AccountID); found {
		report.success("find_entry")
	} else {
		report.skipped("find_entry", "no prior entry for this trade id")
	}
	report.step("record_info", StepSuccess, "informational alert recorded")
	record.Success = true
	record.Reason = "info recorded"
	return report
}

// findEntry redis快路径优先，miss回源数据库
func (o *Orchestrator) findEntry(ctx context.Context, tradeID, accountID string) (model.TradeRecord, bool) {
	if rec, ok := o.tradeCache.GetEntry(ctx, tradeID, accountID); ok {
		return rec, true
	}
	rec, err := o.trades.GetEntryRecord(ctx, tradeID, accountID)
	if err != nil {
		if err != dao.ErrNotFound {
			logger.Warnf("get entry record failed, trade=%s: %v", tradeID, err)
		}
		return model.TradeRecord{}, false
	}
	return rec, true
}
