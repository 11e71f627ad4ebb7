package model

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

type OrderType string

const (
	// 市价单
	Market OrderType = "market"
	// 限价单
	Limit OrderType = "limit"
)

// 持仓方向 做多long或者做空short
type HoldSide string

const (
	HoldLong  HoldSide = "long"
	HoldShort HoldSide = "short"
)

// 触发单（计划委托）的类型
type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "loss_plan"
	TriggerTakeProfit TriggerKind = "profit_plan"
)

// OpenSide 开仓时的买卖方向
func (h HoldSide) OpenSide() OrderSide {
	if h == HoldShort {
		return Sell
	}
	return Buy
}

// CloseSide 平仓时的买卖方向
func (h HoldSide) CloseSide() OrderSide {
	if h == HoldShort {
		return Buy
	}
	return Sell
}

// 下单请求
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	HoldSide      HoldSide
	OrderType     OrderType
	Size          float64
	Price         float64 // 市价单为0
	ReduceOnly    bool
	ClientOrderID string
}

// 下单结果
type OrderResponse struct {
	ExchangeOrderID string
	ClientOrderID   string
}

// 触发单请求
type TriggerOrderRequest struct {
	Kind          TriggerKind
	Symbol        string
	HoldSide      HoldSide
	TriggerPrice  float64
	Size          float64
	ClientOrderID string
}

// 交易所侧的触发单
type TriggerOrderInfo struct {
	OrderID       string
	ClientOrderID string
	Kind          TriggerKind
	Symbol        string
	HoldSide      HoldSide
	TriggerPrice  float64
	Size          float64
}

// 交易所返回的真实仓位，开仓之后所有数量计算都以它为准
type PositionInfo struct {
	Symbol     string
	Side       HoldSide
	Size       float64 // 持有数量
	EntryPrice float64 // 开仓均价
}

// ContractSpec 合约规格，按(symbol, productType)缓存
type ContractSpec struct {
	Symbol      string
	MinSize     float64 // 最小下单数量
	SizeStep    float64 // 数量步进
	MinNotional float64 // 最小名义价值（USDT）
	PricePlaces int     // 价格小数位
	SizePlaces  int     // 数量小数位
}
