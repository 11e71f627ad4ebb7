package model

import "testing"

func TestAlertValidate(t *testing.T) {
	valid := Alert{
		Category: AlertEntry, Symbol: "BTCUSDT", Side: SideLong,
		StopLoss: 49000, TakeProfit: 53000, TradeID: "t1",
	}
	if err := valid.Validate(); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		mut  func(*Alert)
	}{
		{"unknown category", func(a *Alert) { a.Category = "FOO" }},
		{"empty symbol", func(a *Alert) { a.Symbol = " " }},
		{"empty trade id", func(a *Alert) { a.TradeID = "" }},
		{"entry without side", func(a *Alert) { a.Side = "" }},
		{"entry without stop loss", func(a *Alert) { a.StopLoss = 0 }},
		{"entry without take profit", func(a *Alert) { a.TakeProfit = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := valid
			tc.mut(&a)
			if err := a.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// 非ENTRY信号不要求止损止盈
	be := Alert{Category: AlertBreakeven, Symbol: "BTCUSDT", TradeID: "t1"}
	if err := be.Validate(); err != nil {
		t.Errorf("breakeven alert should not require protection prices: %v", err)
	}
}

func TestResolveLeverage(t *testing.T) {
	// 账户级 > 策略级 > 系统默认
	ec := ExecutionContext{Leverage: 20, StrategyLeverage: 15}
	if got := ec.ResolveLeverage(10); got != 20 {
		t.Errorf("leverage = %d, want account-level 20", got)
	}
	ec.Leverage = 0
	if got := ec.ResolveLeverage(10); got != 15 {
		t.Errorf("leverage = %d, want strategy-level 15", got)
	}
	ec.StrategyLeverage = 0
	if got := ec.ResolveLeverage(10); got != 10 {
		t.Errorf("leverage = %d, want default 10", got)
	}
}

func TestSymbolAllowed(t *testing.T) {
	ec := ExecutionContext{}
	if !ec.SymbolAllowed("BTCUSDT") {
		t.Error("empty lists should allow everything")
	}

	ec.AllowSymbols = []string{"BTCUSDT", "ETHUSDT"}
	if !ec.SymbolAllowed("btcusdt") {
		t.Error("allow list should be case-insensitive")
	}
	if ec.SymbolAllowed("DOGEUSDT") {
		t.Error("symbol outside allow list must be rejected")
	}

	// deny优先于allow
	ec.DenySymbols = []string{"BTCUSDT"}
	if ec.SymbolAllowed("BTCUSDT") {
		t.Error("deny list must win over allow list")
	}
}

func TestCredentialRedacted(t *testing.T) {
	c := Credential{ApiKey: "bg_1234567890abcdef"}
	r := c.Redacted()
	if r == c.ApiKey {
		t.Error("redacted key must differ from raw key")
	}
	if len(r) == 0 {
		t.Error("redacted key must not be empty")
	}

	short := Credential{ApiKey: "abc"}
	if short.Redacted() != "******" {
		t.Errorf("short key redaction = %s", short.Redacted())
	}
}

func TestHoldSideConversion(t *testing.T) {
	long := Alert{Side: SideLong}
	if long.HoldSide() != HoldLong {
		t.Error("LONG -> long")
	}
	short := Alert{Side: SideShort}
	if short.HoldSide() != HoldShort {
		t.Error("SHORT -> short")
	}

	if HoldLong.OpenSide() != Buy || HoldLong.CloseSide() != Sell {
		t.Error("long open=buy close=sell")
	}
	if HoldShort.OpenSide() != Sell || HoldShort.CloseSide() != Buy {
		t.Error("short open=sell close=buy")
	}
}
