package bitget

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smarttrading/internal/audit"
	"smarttrading/internal/model"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// Connector Bitget USDT本位合约的能力集实现
type Connector struct {
	client *Client
	specs  *specCache
}

func NewConnector(cred model.Credential, accountID string, sink audit.Sink, timeout, specTTL time.Duration, baseURL string, simulated bool) *Connector {
	return &Connector{
		client: NewClient(cred, accountID, sink, timeout, baseURL, simulated),
		specs:  newSpecCache(specTTL),
	}
}

func (c *Connector) Name() string { return "bitget" }

// GetContractSpec 查询合约规格，短TTL缓存
func (c *Connector) GetContractSpec(ctx context.Context, symbol string) (model.ContractSpec, error) {
	if spec, ok := c.specs.get(symbol); ok {
		return spec, nil
	}

	query := url.Values{}
	query.Set("productType", productType)
	query.Set("symbol", symbol)
	data, err := c.client.do(ctx, http.MethodGet, "/api/v2/mix/market/contracts", query, nil)
	if err != nil {
		return model.ContractSpec{}, err
	}

	var items []contractItem
	if err := json.Unmarshal(data, &items); err != nil {
		return model.ContractSpec{}, fmt.Errorf("decode contracts: %w", err)
	}
	for _, item := range items {
		if !strings.EqualFold(item.Symbol, symbol) {
			continue
		}
		spec := model.ContractSpec{
			Symbol:      item.Symbol,
			MinSize:     cast.ToFloat64(item.MinTradeNum),
			SizeStep:    cast.ToFloat64(item.SizeMultiple),
			MinNotional: cast.ToFloat64(item.MinTradeUSDT),
			PricePlaces: cast.ToInt(item.PricePlace),
			SizePlaces:  cast.ToInt(item.VolumePlace),
		}
		if spec.SizeStep <= 0 {
			// 步进缺失时退化成按数量小数位
			spec.SizeStep = 1 / pow10(spec.SizePlaces)
		}
		if spec.MinSize <= 0 {
			// 规格字段异常，清掉可能存在的旧缓存，本次结果也不缓存
			c.specs.invalidate(symbol)
			return spec, nil
		}
		c.specs.set(symbol, spec)
		return spec, nil
	}
	return model.ContractSpec{}, fmt.Errorf("contract spec not found for %s", symbol)
}

// SetLeverage 设置杠杆，开仓前必须成功
func (c *Connector) SetLeverage(ctx context.Context, symbol string, leverage int, hold model.HoldSide) error {
	req := setLeverageReq{
		Symbol:      symbol,
		ProductType: productType,
		MarginCoin:  marginCoin,
		Leverage:    strconv.Itoa(leverage),
		HoldSide:    string(hold),
	}
	_, err := c.client.do(ctx, http.MethodPost, "/api/v2/mix/account/set-leverage", nil, req)
	return err
}

// PlaceOrder 下单，数量和价格按合约规格的小数位转成字符串
func (c *Connector) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error) {
	spec, err := c.GetContractSpec(ctx, req.Symbol)
	if err != nil {
		return model.OrderResponse{}, err
	}

	body := placeOrderReq{
		Symbol:      req.Symbol,
		ProductType: productType,
		MarginCoin:  marginCoin,
		MarginMode:  marginMode,
		Side:        string(req.Side),
		TradeSide:   "open",
		OrderType:   string(req.OrderType),
		Size:        formatDecimal(req.Size, spec.SizePlaces),
		ClientOid:   req.ClientOrderID,
	}
	if req.ReduceOnly {
		// 双向持仓下side写持仓方向（平多=buy），开平由tradeSide区分
		// reduceOnly字段只在单向持仓模式生效，这里不发
		body.Side = string(req.HoldSide.OpenSide())
		body.TradeSide = "close"
	}
	if req.OrderType == model.Limit && req.Price > 0 {
		body.Price = formatDecimal(req.Price, spec.PricePlaces)
	}

	data, err := c.client.do(ctx, http.MethodPost, "/api/v2/mix/order/place-order", nil, body)
	if err != nil {
		return model.OrderResponse{}, err
	}
	var od orderData
	if err := json.Unmarshal(data, &od); err != nil {
		return model.OrderResponse{}, fmt.Errorf("decode order: %w", err)
	}
	return model.OrderResponse{ExchangeOrderID: od.OrderId, ClientOrderID: od.ClientOid}, nil
}

// PlaceTriggerOrder 挂止盈/止损触发单
func (c *Connector) PlaceTriggerOrder(ctx context.Context, req model.TriggerOrderRequest) (model.OrderResponse, error) {
	spec, err := c.GetContractSpec(ctx, req.Symbol)
	if err != nil {
		return model.OrderResponse{}, err
	}

	body := placeTpslReq{
		Symbol:       req.Symbol,
		ProductType:  productType,
		MarginCoin:   marginCoin,
		PlanType:     string(req.Kind),
		TriggerPrice: formatDecimal(req.TriggerPrice, spec.PricePlaces),
		TriggerType:  "mark_price",
		HoldSide:     string(req.HoldSide),
		Size:         formatDecimal(req.Size, spec.SizePlaces),
		ClientOid:    req.ClientOrderID,
	}

	data, err := c.client.do(ctx, http.MethodPost, "/api/v2/mix/order/place-tpsl-order", nil, body)
	if err != nil {
		return model.OrderResponse{}, err
	}
	var od orderData
	if err := json.Unmarshal(data, &od); err != nil {
		return model.OrderResponse{}, fmt.Errorf("decode tpsl order: %w", err)
	}
	return model.OrderResponse{ExchangeOrderID: od.OrderId, ClientOrderID: od.ClientOid}, nil
}

// CancelTriggerOrders 取消触发单，kind为空时全部取消
// 先查再批量撤，返回实际撤掉的数量
func (c *Connector) CancelTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) (int, error) {
	pending, err := c.GetPendingTriggerOrders(ctx, symbol, kind)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	body := cancelPlanReq{
		Symbol:      symbol,
		ProductType: productType,
		MarginCoin:  marginCoin,
	}
	if kind != "" {
		body.PlanType = string(kind)
	}
	for _, p := range pending {
		body.OrderIdList = append(body.OrderIdList, struct {
			OrderId string `json:"orderId"`
		}{OrderId: p.OrderID})
	}

	data, err := c.client.do(ctx, http.MethodPost, "/api/v2/mix/order/cancel-plan-order", nil, body)
	if err != nil {
		return 0, err
	}
	var res cancelBatchData
	if err := json.Unmarshal(data, &res); err != nil {
		// 响应格式对不上时按请求数量算
		return len(pending), nil
	}
	return len(res.SuccessList), nil
}

// GetOpenPositions 查询当前仓位，symbol为空时返回全部
func (c *Connector) GetOpenPositions(ctx context.Context, symbol string) ([]model.PositionInfo, error) {
	query := url.Values{}
	query.Set("productType", productType)
	query.Set("marginCoin", marginCoin)
	data, err := c.client.do(ctx, http.MethodGet, "/api/v2/mix/position/all-position", query, nil)
	if err != nil {
		return nil, err
	}

	var items []positionItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	var positions []model.PositionInfo
	for _, item := range items {
		if symbol != "" && !strings.EqualFold(item.Symbol, symbol) {
			continue
		}
		size := cast.ToFloat64(item.Total)
		if size <= 0 {
			// 没有数量的仓位忽略
			continue
		}
		positions = append(positions, model.PositionInfo{
			Symbol:     item.Symbol,
			Side:       model.HoldSide(item.HoldSide),
			Size:       size,
			EntryPrice: cast.ToFloat64(item.OpenPriceAvg),
		})
	}
	return positions, nil
}

// GetPendingTriggerOrders 查询未触发的计划委托
func (c *Connector) GetPendingTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) ([]model.TriggerOrderInfo, error) {
	query := url.Values{}
	query.Set("productType", productType)
	query.Set("planType", "profit_loss")
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	data, err := c.client.do(ctx, http.MethodGet, "/api/v2/mix/order/orders-plan-pending", query, nil)
	if err != nil {
		return nil, err
	}

	var list planOrderList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode plan orders: %w", err)
	}

	var orders []model.TriggerOrderInfo
	for _, item := range list.EntrustedList {
		if kind != "" && item.PlanType != string(kind) {
			continue
		}
		orders = append(orders, model.TriggerOrderInfo{
			OrderID:       item.OrderId,
			ClientOrderID: item.ClientOid,
			Kind:          model.TriggerKind(item.PlanType),
			Symbol:        item.Symbol,
			HoldSide:      model.HoldSide(item.HoldSide),
			TriggerPrice:  cast.ToFloat64(item.TriggerPrice),
			Size:          cast.ToFloat64(item.Size),
		})
	}
	return orders, nil
}

// formatDecimal 按小数位转成交易所要求的十进制字符串
func formatDecimal(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	s := strconv.FormatFloat(v, 'f', places, 64)
	// 去掉多余的尾零，交易所两种格式都接受，短的可读性好
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func pow10(n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}
