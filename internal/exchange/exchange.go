package exchange

import (
	"context"
	"errors"

	"smarttrading/internal/model"
)

// Connector 交易所能力集，每个交易所一个实现
// 所有写操作都带调用方生成的clientOrderId，重放同一个id不会产生第二笔订单
type Connector interface {
	Name() string

	// 合约规格，带TTL缓存
	GetContractSpec(ctx context.Context, symbol string) (model.ContractSpec, error)

	// 设置杠杆，任何加仓订单之前必须成功
	SetLeverage(ctx context.Context, symbol string, leverage int, hold model.HoldSide) error

	PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error)

	PlaceTriggerOrder(ctx context.Context, req model.TriggerOrderRequest) (model.OrderResponse, error)

	// kind为空时取消该币种全部触发单，返回取消数量
	CancelTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) (int, error)

	// symbol为空时返回全部仓位
	GetOpenPositions(ctx context.Context, symbol string) ([]model.PositionInfo, error)

	GetPendingTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) ([]model.TriggerOrderInfo, error)
}

// 跨交易所统一的哨兵错误，编排层据此做幂等处理
var (
	// 交易所拒绝重复的clientOrderId，可能上一次其实成功了
	ErrDuplicateClientOrderID = errors.New("duplicate client order id")
	// 平仓单没有对应仓位，说明已被触发单平掉
	ErrNoPositionToClose = errors.New("no position to close")
)

func IsDuplicateClientOrderID(err error) bool {
	return errors.Is(err, ErrDuplicateClientOrderID)
}

func IsNoPositionToClose(err error) bool {
	return errors.Is(err, ErrNoPositionToClose)
}
