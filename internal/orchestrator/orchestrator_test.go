package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"smarttrading/internal/dao"
	"smarttrading/internal/exchange"
	"smarttrading/internal/model"
	"smarttrading/internal/notify"
)

// ---- 测试替身 ----

type fakeConnector struct {
	mu    sync.Mutex
	calls []string

	spec        model.ContractSpec
	specErr     error
	leverageErr error
	orderErr    error
	triggerErrs map[model.TriggerKind]error
	cancelErr   error
	cancelCount int

	positions    []model.PositionInfo
	positionsSeq [][]model.PositionInfo // 每次查询弹出一个，弹空后回落到positions
	positionsErr error

	placedOrders   []model.OrderRequest
	placedTriggers []model.TriggerOrderRequest

	// 触发单失败一次后成功，用于兜底恢复场景
	failTriggerOnce bool
	triggerFailed   bool
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		spec: model.ContractSpec{
			Symbol:      "BTCUSDT",
			MinSize:     0.001,
			SizeStep:    0.001,
			MinNotional: 5,
			PricePlaces: 1,
			SizePlaces:  3,
		},
		triggerErrs: map[model.TriggerKind]error{},
	}
}

func (f *fakeConnector) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeConnector) Name() string { return "fake" }

func (f *fakeConnector) GetContractSpec(_ context.Context, _ string) (model.ContractSpec, error) {
	f.record("spec")
	return f.spec, f.specErr
}

func (f *fakeConnector) SetLeverage(_ context.Context, _ string, _ int, _ model.HoldSide) error {
	f.record("leverage")
	return f.leverageErr
}

func (f *fakeConnector) PlaceOrder(_ context.Context, req model.OrderRequest) (model.OrderResponse, error) {
	f.record("order")
	if f.orderErr != nil {
		return model.OrderResponse{}, f.orderErr
	}
	f.mu.Lock()
	f.placedOrders = append(f.placedOrders, req)
	f.mu.Unlock()
	return model.OrderResponse{ExchangeOrderID: "ex-1", ClientOrderID: req.ClientOrderID}, nil
}

func (f *fakeConnector) PlaceTriggerOrder(_ context.Context, req model.TriggerOrderRequest) (model.OrderResponse, error) {
	f.record("trigger:" + string(req.Kind))
	if err := f.triggerErrs[req.Kind]; err != nil {
		if f.failTriggerOnce {
			if f.triggerFailed {
				// 第二次放行
			} else {
				f.triggerFailed = true
				return model.OrderResponse{}, err
			}
		} else {
			return model.OrderResponse{}, err
		}
	}
	f.mu.Lock()
	f.placedTriggers = append(f.placedTriggers, req)
	f.mu.Unlock()
	return model.OrderResponse{ExchangeOrderID: "trg-1", ClientOrderID: req.ClientOrderID}, nil
}

func (f *fakeConnector) CancelTriggerOrders(_ context.Context, _ string, _ model.TriggerKind) (int, error) {
	f.record("cancel")
	return f.cancelCount, f.cancelErr
}

func (f *fakeConnector) GetOpenPositions(_ context.Context, _ string) ([]model.PositionInfo, error) {
	f.record("positions")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.positionsSeq) > 0 {
		p := f.positionsSeq[0]
		f.positionsSeq = f.positionsSeq[1:]
		return p, f.positionsErr
	}
	return f.positions, f.positionsErr
}

func (f *fakeConnector) GetPendingTriggerOrders(_ context.Context, _ string, _ model.TriggerKind) ([]model.TriggerOrderInfo, error) {
	f.record("pending")
	return nil, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records []*model.TradeRecord
	entries map[string]model.TradeRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]model.TradeRecord{}}
}

func (s *fakeStore) key(tradeID, accountID string) string { return tradeID + ":" + accountID }

func (s *fakeStore) InsertRecord(_ context.Context, record *model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStore) GetEntryRecord(_ context.Context, tradeID, accountID string) (model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[s.key(tradeID, accountID)]
	if !ok {
		return model.TradeRecord{}, dao.ErrNotFound
	}
	return rec, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]model.TradeRecord
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]model.TradeRecord{}} }

func (c *fakeCache) SetEntry(_ context.Context, record model.TradeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[record.TradeID+":"+record.AccountID] = record
}

func (c *fakeCache) GetEntry(_ context.Context, tradeID, accountID string) (model.TradeRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[tradeID+":"+accountID]
	return rec, ok
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *fakeNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *fakeNotifier) severities() []notify.Severity {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Severity
	for _, e := range n.events {
		out = append(out, e.Severity)
	}
	return out
}

// ---- 脚手架 ----

type fixture struct {
	conn     *fakeConnector
	store    *fakeStore
	cache    *fakeCache
	notifier *fakeNotifier
	orch     *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		conn:     newFakeConnector(),
		store:    newFakeStore(),
		cache:    newFakeCache(),
		notifier: &fakeNotifier{},
	}
	factory := func(_ model.ExecutionContext) (exchange.Connector, error) {
		return f.conn, nil
	}
	f.orch = New(factory, f.store, f.cache, f.notifier, Config{
		DefaultLeverage: 10,
		NotionalMargin:  1.05,
	})
	return f
}

func entryAlert() model.Alert {
	return model.Alert{
		Category:   model.AlertEntry,
		Symbol:     "BTCUSDT",
		Side:       model.SideLong,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 53000,
		TradeID:    "trade-1",
		Strategy:   "breakout",
	}
}

func activeContext() model.ExecutionContext {
	return model.ExecutionContext{
		AccountID:      "acct-1",
		Strategy:       "breakout",
		Exchange:       "bitget",
		Credential:     model.Credential{ApiKey: "key", SecretKey: "secret", Passphrase: "pass"},
		PaymentActive:  true,
		StrategyActive: true,
	}
}

// ---- ENTRY ----

func TestEntryHappyPath(t *testing.T) {
	f := newFixture()
	// 开仓前没有仓位，成交后交易所回报0.002@50010
	f.conn.positionsSeq = [][]model.PositionInfo{
		nil,
		{{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50010}},
	}

	record, err := f.orch.Process(context.Background(), entryAlert(), activeContext())
	if err != nil {
		t.Fatal(err)
	}
	if !record.Success {
		t.Fatalf("expected success, reason=%s", record.Reason)
	}
	if record.State != string(StateOpenProtected) {
		t.Errorf("state = %s, want OPEN_PROTECTED", record.State)
	}
	if record.Leverage != 10 {
		t.Errorf("leverage = %d, want default 10", record.Leverage)
	}
	if len(f.conn.placedOrders) != 1 {
		t.Fatalf("placed %d orders, want 1 entry order", len(f.conn.placedOrders))
	}
	// 交易所回报的仓位数据优先于信号里的参考值
	if record.Size != 0.002 || record.EntryPrice != 50010 {
		t.Errorf("size/price = %v/%v, want exchange-reported 0.002/50010", record.Size, record.EntryPrice)
	}
	if len(f.conn.placedTriggers) != 2 {
		t.Fatalf("placed %d trigger orders, want 2", len(f.conn.placedTriggers))
	}
	if len(f.store.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(f.store.records))
	}
	if _, ok := f.cache.GetEntry(context.Background(), "trade-1", "acct-1"); !ok {
		t.Error("entry should be cached after success")
	}
}

func TestEntryAdoptsPreexistingPosition(t *testing.T) {
	f := newFixture()
	// 同向仓位已经在了（比如另一个进程开的），不能再开第二笔
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.004, EntryPrice: 49950},
	}

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	if !record.Success {
		t.Fatalf("expected success, reason=%s", record.Reason)
	}
	if len(f.conn.placedOrders) != 0 {
		t.Errorf("must not open a second position, placed %+v", f.conn.placedOrders)
	}
	if record.Size != 0.004 {
		t.Errorf("size = %v, want adopted 0.004", record.Size)
	}
	// 保护单照常要挂
	if len(f.conn.placedTriggers) != 2 {
		t.Errorf("placed %d trigger orders, want 2", len(f.conn.placedTriggers))
	}
}

func TestEntryIneligibleAccount(t *testing.T) {
	f := newFixture()
	ec := activeContext()
	ec.PaymentActive = false

	record, _ := f.orch.Process(context.Background(), entryAlert(), ec)
	if record.Success {
		t.Fatal("expected failure")
	}
	if record.State != string(StateAborted) {
		t.Errorf("state = %s, want ABORTED", record.State)
	}
	if len(f.conn.calls) != 0 {
		t.Errorf("no exchange call expected, got %v", f.conn.calls)
	}
}

func TestEntryPrivilegedSkipsPaymentCheck(t *testing.T) {
	f := newFixture()
	ec := activeContext()
	ec.PaymentActive = false
	ec.StrategyActive = false
	ec.Role = 301

	record, _ := f.orch.Process(context.Background(), entryAlert(), ec)
	if !record.Success {
		t.Fatalf("privileged account should trade, reason=%s", record.Reason)
	}
}

func TestEntrySymbolDenied(t *testing.T) {
	f := newFixture()
	ec := activeContext()
	ec.DenySymbols = []string{"BTCUSDT"}

	record, _ := f.orch.Process(context.Background(), entryAlert(), ec)
	if record.State != string(StateAborted) {
		t.Errorf("state = %s, want ABORTED", record.State)
	}
	if len(f.conn.placedOrders) != 0 {
		t.Error("denied symbol must not reach the exchange")
	}
}

func TestEntryReplayReportsExistingPosition(t *testing.T) {
	f := newFixture()
	f.cache.SetEntry(context.Background(), model.TradeRecord{
		TradeID: "trade-1", AccountID: "acct-1", Category: model.AlertEntry,
		Success: true, State: string(StateOpenProtected), Size: 0.001, EntryPrice: 50000,
	})
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50010},
	}

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	// 重放不开第二笔单，但要按现有仓位回成功
	if !record.Success {
		t.Fatalf("replayed entry must report success, reason=%s", record.Reason)
	}
	if len(f.conn.placedOrders) != 0 || len(f.conn.placedTriggers) != 0 {
		t.Errorf("replayed entry must not place orders, got %d/%d",
			len(f.conn.placedOrders), len(f.conn.placedTriggers))
	}
	if record.Size != 0.002 {
		t.Errorf("size = %v, want exchange-reported 0.002", record.Size)
	}
	if record.State != string(StateOpenProtected) {
		t.Errorf("state = %s, want resumed OPEN_PROTECTED", record.State)
	}
}

func TestEntryLeverageFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.conn.leverageErr = errors.New("leverage rejected")

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	if record.Success {
		t.Fatal("expected failure")
	}
	if record.State != string(StateAborted) {
		t.Errorf("state = %s, want ABORTED", record.State)
	}
	if len(f.conn.placedOrders) != 0 {
		t.Error("no order may be placed after leverage failure")
	}
}

func TestEntryMinNotionalBump(t *testing.T) {
	f := newFixture()
	// 0.001 * 3000 = 3 < 5 USDT，应该被抬到 5*1.05/3000 -> 0.002
	a := entryAlert()
	a.EntryPrice = 3000
	a.Size = 0.001

	record, _ := f.orch.Process(context.Background(), a, activeContext())
	if !record.Success {
		t.Fatalf("expected success, reason=%s", record.Reason)
	}
	if len(f.conn.placedOrders) != 1 {
		t.Fatal("expected one entry order")
	}
	if got := f.conn.placedOrders[0].Size; got != 0.002 {
		t.Errorf("order size = %v, want bumped 0.002", got)
	}
}

func TestEntryBothProtectionLegsFail(t *testing.T) {
	f := newFixture()
	f.conn.triggerErrs[model.TriggerStopLoss] = errors.New("sl rejected")
	f.conn.triggerErrs[model.TriggerTakeProfit] = errors.New("tp rejected")

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	// 仓位已经开了，记录上还是success，但状态停在裸仓
	if !record.Success {
		t.Fatal("position was opened, record must be success")
	}
	if record.State != string(StateOpenUnprotected) {
		t.Errorf("state = %s, want OPEN_UNPROTECTED", record.State)
	}
	sev := f.notifier.severities()
	if len(sev) != 1 || sev[0] != notify.SeverityCritical {
		t.Errorf("expected one critical notification, got %v", sev)
	}
	// 挂单失败的价位不能落到记录上
	if record.StopLoss != 0 || record.TakeProfit != 0 {
		t.Errorf("record sl/tp = %v/%v, want both zero when legs failed", record.StopLoss, record.TakeProfit)
	}
}

func TestEntryTakeProfitLegFailStaysUnprotected(t *testing.T) {
	f := newFixture()
	f.conn.triggerErrs[model.TriggerTakeProfit] = errors.New("tp rejected")

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	// 只有一条腿在不算受保护
	if record.State != string(StateOpenUnprotected) {
		t.Errorf("state = %s, want OPEN_UNPROTECTED", record.State)
	}
	sev := f.notifier.severities()
	if len(sev) != 1 || sev[0] != notify.SeverityWarning {
		t.Errorf("expected one warning notification, got %v", sev)
	}
	if record.StopLoss != 49000 {
		t.Errorf("record stop loss = %v, want 49000 (leg placed)", record.StopLoss)
	}
	if record.TakeProfit != 0 {
		t.Errorf("record take profit = %v, want zero (leg failed)", record.TakeProfit)
	}
}

func TestEntryPartialTPSplit(t *testing.T) {
	f := newFixture()
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.01, EntryPrice: 50000},
	}
	ec := activeContext()
	ec.PartialTP = true
	a := entryAlert()
	a.BreakevenPrice = 51000

	f.orch.Process(context.Background(), a, ec)

	// 止损整仓一笔 + 止盈两笔：一半在保本价，一半在目标价
	if len(f.conn.placedTriggers) != 3 {
		t.Fatalf("placed %d trigger orders, want 3", len(f.conn.placedTriggers))
	}
	var slSize float64
	tpByPrice := map[float64]float64{}
	for _, trg := range f.conn.placedTriggers {
		switch trg.Kind {
		case model.TriggerStopLoss:
			slSize = trg.Size
		case model.TriggerTakeProfit:
			tpByPrice[trg.TriggerPrice] = trg.Size
		}
	}
	if slSize != 0.01 {
		t.Errorf("stop loss size = %v, want full 0.01", slSize)
	}
	if tpByPrice[51000] != 0.005 || tpByPrice[53000] != 0.005 {
		t.Errorf("take profit legs = %v, want 0.005 at 51000 and 0.005 at 53000", tpByPrice)
	}
}

func TestEntryPartialTPFallbackBelowMin(t *testing.T) {
	f := newFixture()
	// 最小下单数量拆不了半
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.001, EntryPrice: 50000},
	}
	ec := activeContext()
	ec.PartialTP = true
	a := entryAlert()
	a.BreakevenPrice = 51000

	f.orch.Process(context.Background(), a, ec)

	if len(f.conn.placedTriggers) != 2 {
		t.Fatalf("placed %d trigger orders, want unsplit 2", len(f.conn.placedTriggers))
	}
	for _, trg := range f.conn.placedTriggers {
		if trg.Kind == model.TriggerTakeProfit && trg.Size != 0.001 {
			t.Errorf("take profit size = %v, want unsplit 0.001", trg.Size)
		}
	}
}

func TestEntryDuplicateClientOrderIDAdoptsPosition(t *testing.T) {
	f := newFixture()
	f.conn.orderErr = fmt.Errorf("%w: code 40786", exchange.ErrDuplicateClientOrderID)
	// 开仓前查不到仓位，重复单错误后复查才查到
	f.conn.positionsSeq = [][]model.PositionInfo{
		nil,
		{{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.003, EntryPrice: 49990}},
	}

	record, _ := f.orch.Process(context.Background(), entryAlert(), activeContext())
	if !record.Success {
		t.Fatalf("duplicate oid with live position should succeed, reason=%s", record.Reason)
	}
	if record.Size != 0.003 {
		t.Errorf("size = %v, want adopted 0.003", record.Size)
	}
	// 保护单照常要挂
	if len(f.conn.placedTriggers) != 2 {
		t.Errorf("placed %d trigger orders, want 2", len(f.conn.placedTriggers))
	}
}

// ---- BREAKEVEN ----

func breakevenAlert() model.Alert {
	return model.Alert{
		Category:       model.AlertBreakeven,
		Symbol:         "BTCUSDT",
		BreakevenPrice: 50100,
		TradeID:        "trade-1",
		Strategy:       "breakout",
	}
}

func seedEntry(f *fixture) {
	f.store.entries["trade-1:acct-1"] = model.TradeRecord{
		TradeID: "trade-1", AccountID: "acct-1",
		Category: model.AlertEntry, Side: model.SideLong,
		Success: true, Size: 0.002, EntryPrice: 50000, StopLoss: 49000, TakeProfit: 53000,
	}
}

func TestBreakevenNoPriorEntry(t *testing.T) {
	f := newFixture()

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if record.Success {
		t.Fatal("no prior entry must be a no-op")
	}
	if len(f.conn.calls) != 0 {
		t.Errorf("no exchange call expected, got %v", f.conn.calls)
	}
	if record.State != string(StateNoPosition) {
		t.Errorf("state = %s, want NO_POSITION", record.State)
	}
}

func TestBreakevenHappyPath(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if !record.Success {
		t.Fatalf("expected success, reason=%s", record.Reason)
	}
	if record.State != string(StateBreakevenDone) {
		t.Errorf("state = %s, want BREAKEVEN_DONE", record.State)
	}
	// 止损移到交易所回报的开仓均价
	if record.StopLoss != 50000 {
		t.Errorf("migrated stop = %v, want entry price 50000", record.StopLoss)
	}

	// 一半仓位市价平掉锁利润
	if len(f.conn.placedOrders) != 1 {
		t.Fatalf("placed %d orders, want 1 partial close", len(f.conn.placedOrders))
	}
	closeOrder := f.conn.placedOrders[0]
	if !closeOrder.ReduceOnly || closeOrder.Size != 0.001 || closeOrder.Side != model.Sell {
		t.Errorf("partial close = %+v, want reduce-only sell of 0.001", closeOrder)
	}
	if record.Size != 0.001 {
		t.Errorf("record size = %v, want remaining 0.001", record.Size)
	}

	// 新止损按剩余仓位挂出；止盈被平仓带没了，按入场记录的目标价补一笔
	var slTrig, tpTrig *model.TriggerOrderRequest
	for i := range f.conn.placedTriggers {
		switch f.conn.placedTriggers[i].Kind {
		case model.TriggerStopLoss:
			slTrig = &f.conn.placedTriggers[i]
		case model.TriggerTakeProfit:
			tpTrig = &f.conn.placedTriggers[i]
		}
	}
	if slTrig == nil || slTrig.TriggerPrice != 50000 || slTrig.Size != 0.001 {
		t.Errorf("breakeven stop = %+v, want 0.001 at 50000", slTrig)
	}
	if tpTrig == nil || tpTrig.TriggerPrice != 53000 || tpTrig.Size != 0.001 {
		t.Errorf("replenished take profit = %+v, want 0.001 at 53000", tpTrig)
	}

	// 不变式：先撤旧止损，再挂新止损
	cancelIdx, placeIdx := -1, -1
	for i, call := range f.conn.calls {
		if call == "cancel" && cancelIdx == -1 {
			cancelIdx = i
		}
		if call == "trigger:loss_plan" && placeIdx == -1 {
			placeIdx = i
		}
	}
	if cancelIdx == -1 || placeIdx == -1 || cancelIdx > placeIdx {
		t.Errorf("cancel must happen before place, calls=%v", f.conn.calls)
	}
}

func TestBreakevenHalfBelowMinKeepsFullSize(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	// 0.001拆半低于最小下单数量，只移止损不减仓
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.001, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if !record.Success {
		t.Fatalf("expected success, reason=%s", record.Reason)
	}
	if record.State != string(StateBreakevenDone) {
		t.Errorf("state = %s, want BREAKEVEN_DONE", record.State)
	}
	if len(f.conn.placedOrders) != 0 {
		t.Errorf("must not close below min size, placed %+v", f.conn.placedOrders)
	}
	for _, trg := range f.conn.placedTriggers {
		if trg.Kind == model.TriggerStopLoss && trg.Size != 0.001 {
			t.Errorf("stop size = %v, want full 0.001", trg.Size)
		}
	}
}

func TestBreakevenClosedByTriggerDuringClose(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1
	// 查仓和平仓之间止盈触发了，平仓单报没有仓位
	f.conn.orderErr = fmt.Errorf("%w: code 22002", exchange.ErrNoPositionToClose)

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if !record.Success {
		t.Fatal("no position to close is an idempotent no-op, should succeed")
	}
	if record.State != string(StateClosed) {
		t.Errorf("state = %s, want CLOSED", record.State)
	}
	for _, trg := range f.conn.placedTriggers {
		t.Errorf("must not place triggers on a closed position, got %+v", trg)
	}
	// 残留触发单要清掉：撤旧止损一次 + 收尾清理一次
	cancels := 0
	for _, call := range f.conn.calls {
		if call == "cancel" {
			cancels++
		}
	}
	if cancels != 2 {
		t.Errorf("cancel called %d times, want 2 (migrate + cleanup)", cancels)
	}
}

func TestBreakevenPositionAlreadyClosed(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	// 仓位已被止盈/止损平掉

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if !record.Success {
		t.Fatal("closed position is an idempotent no-op, should succeed")
	}
	if record.State != string(StateClosed) {
		t.Errorf("state = %s, want CLOSED", record.State)
	}
	for _, call := range f.conn.calls {
		if call == "cancel" || call == "trigger:loss_plan" {
			t.Errorf("closed position must not touch orders, calls=%v", f.conn.calls)
		}
	}
}

func TestBreakevenCancelFailureKeepsOldStop(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelErr = errors.New("cancel rejected")

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if record.Success {
		t.Fatal("migration aborted, must not be success")
	}
	// 旧止损还在，仓位仍然受保护
	if record.State != string(StateOpenProtected) {
		t.Errorf("state = %s, want OPEN_PROTECTED", record.State)
	}
	for _, call := range f.conn.calls {
		if call == "trigger:loss_plan" {
			t.Error("must not place new stop after cancel failure")
		}
	}
}

func TestBreakevenPlaceFailureRestoresOriginalStop(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1
	f.conn.triggerErrs[model.TriggerStopLoss] = errors.New("place rejected")
	f.conn.failTriggerOnce = true // 第一次(保本价)失败，第二次(恢复原价)成功

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if record.Success {
		t.Fatal("breakeven failed, must not be success")
	}
	if record.State != string(StateOpenProtected) {
		t.Errorf("state = %s, want OPEN_PROTECTED after restore", record.State)
	}
	if len(f.conn.placedTriggers) != 1 || f.conn.placedTriggers[0].TriggerPrice != 49000 {
		t.Errorf("expected restored stop at original 49000, got %+v", f.conn.placedTriggers)
	}
}

func TestBreakevenTotalFailureGoesUnprotected(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1
	f.conn.triggerErrs[model.TriggerStopLoss] = errors.New("place rejected")

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if record.State != string(StateOpenUnprotected) {
		t.Errorf("state = %s, want OPEN_UNPROTECTED", record.State)
	}
	sev := f.notifier.severities()
	if len(sev) == 0 || sev[len(sev)-1] != notify.SeverityCritical {
		t.Errorf("expected critical notification, got %v", sev)
	}
}

func TestBreakevenNoStopOnRecordSkipsRestore(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	// 入场记录没有止损价，恢复兜底不能往交易所发0价触发单
	rec := f.store.entries["trade-1:acct-1"]
	rec.StopLoss = 0
	f.store.entries["trade-1:acct-1"] = rec
	f.conn.positions = []model.PositionInfo{
		{Symbol: "BTCUSDT", Side: model.HoldLong, Size: 0.002, EntryPrice: 50000},
	}
	f.conn.cancelCount = 1
	f.conn.triggerErrs[model.TriggerStopLoss] = errors.New("place rejected")

	record, _ := f.orch.Process(context.Background(), breakevenAlert(), activeContext())
	if record.State != string(StateOpenUnprotected) {
		t.Errorf("state = %s, want OPEN_UNPROTECTED", record.State)
	}
	// 只有保本价那一次尝试，没有恢复尝试
	var slAttempts int
	for _, call := range f.conn.calls {
		if call == "trigger:"+string(model.TriggerStopLoss) {
			slAttempts++
		}
	}
	if slAttempts != 1 {
		t.Errorf("stop loss attempts = %d, want 1 (no restore without a stop price)", slAttempts)
	}
	for _, trg := range f.conn.placedTriggers {
		if trg.TriggerPrice <= 0 {
			t.Errorf("placed trigger at price %v", trg.TriggerPrice)
		}
	}
	sev := f.notifier.severities()
	if len(sev) == 0 || sev[len(sev)-1] != notify.SeverityCritical {
		t.Errorf("expected critical notification, got %v", sev)
	}
}

// ---- INFO ----

func TestInfoAlertOnlyRecords(t *testing.T) {
	f := newFixture()
	seedEntry(f)
	a := model.Alert{Category: model.AlertInfo, Symbol: "BTCUSDT", TradeID: "trade-1"}

	record, _ := f.orch.Process(context.Background(), a, activeContext())
	if !record.Success {
		t.Fatal("info alert should record successfully")
	}
	if len(f.conn.calls) != 0 {
		t.Errorf("info alert must not call the exchange, got %v", f.conn.calls)
	}
	if len(f.store.records) != 1 {
		t.Errorf("persisted %d records, want 1", len(f.store.records))
	}
}

// ---- 状态机 ----

func TestStateTransitions(t *testing.T) {
	valid := [][2]State{
		{StateNoPosition, StateLeverageSet},
		{StateLeverageSet, StateOpening},
		{StateOpening, StateOpenUnprotected},
		{StateOpenUnprotected, StateOpenProtected},
		{StateOpenProtected, StateBreakevenMigrating},
		{StateBreakevenMigrating, StateBreakevenDone},
		{StateBreakevenMigrating, StateOpenUnprotected},
		{StateBreakevenDone, StateClosed},
		{StateOpening, StateAborted},
	}
	for _, pair := range valid {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}

	invalid := [][2]State{
		{StateNoPosition, StateOpenProtected},
		{StateClosed, StateOpening},
		{StateAborted, StateNoPosition},
		{StateBreakevenDone, StateOpening},
	}
	for _, pair := range invalid {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be rejected", pair[0], pair[1])
		}
	}
}
