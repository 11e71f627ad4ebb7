package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"smarttrading/internal/audit"
	"smarttrading/internal/exchange"
	"smarttrading/internal/model"

	"github.com/goccy/go-json"
	goexv2 "github.com/nntaoli-project/goex/v2"
	goexmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/okx/futures"
	"github.com/nntaoli-project/goex/v2/options"
	"github.com/spf13/cast"
)

// OKX 永续合约的能力集实现，底层走goex
// 触发单（algo order）goex没有封装，直接用DoAuthRequest调v5接口
type Connector struct {
	prv       *futures.PrvApi
	pub       futures.Swap
	audit     audit.Sink
	accountID string
	redacted  string

	mu      sync.Mutex
	specs   map[string]specEntry
	specTTL time.Duration
}

type specEntry struct {
	spec    model.ContractSpec
	expires time.Time
}

// okx v5的业务错误码
const (
	// clOrdId重复
	sCodeDuplicateClOrdId = "51016"
	// 平仓时仓位不存在
	sCodePositionNotExist = "51169"
)

func NewConnector(cred model.Credential, accountID string, sink audit.Sink, specTTL time.Duration) *Connector {
	conf := []options.ApiOption{
		options.WithApiKey(cred.ApiKey),
		options.WithApiSecretKey(cred.SecretKey),
		options.WithPassphrase(cred.Passphrase),
	}
	pub := goexv2.OKx.Swap
	if specTTL <= 0 {
		specTTL = 10 * time.Minute
	}
	return &Connector{
		prv:       pub.NewPrvApi(conf...),
		pub:       *pub,
		audit:     sink,
		accountID: accountID,
		redacted:  cred.Redacted(),
		specs:     make(map[string]specEntry),
		specTTL:   specTTL,
	}
}

func (c *Connector) Name() string { return "okx" }

// symbol 格式转换: "BTCUSDT"/"BTC/USDT" -> goex 需要的 CurrencyPair
func (c *Connector) toCurrencyPair(symbol string) (goexmodel.CurrencyPair, error) {
	base, quote := splitSymbol(symbol)
	if base == "" {
		return goexmodel.CurrencyPair{}, fmt.Errorf("invalid symbol: %s", symbol)
	}
	return c.pub.NewCurrencyPair(base, quote)
}

func splitSymbol(symbol string) (base, quote string) {
	if strings.Contains(symbol, "/") {
		parts := strings.SplitN(symbol, "/", 2)
		return parts[0], parts[1]
	}
	if strings.Contains(symbol, "-") {
		parts := strings.Split(symbol, "-")
		return parts[0], parts[1]
	}
	// BTCUSDT 这种紧凑格式按已知计价币剥后缀
	for _, q := range []string{"USDT", "USDC", "USD"} {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)], q
		}
	}
	return "", ""
}

// GetContractSpec 从GetExchangeInfo的原始响应里解析规格
func (c *Connector) GetContractSpec(ctx context.Context, symbol string) (model.ContractSpec, error) {
	c.mu.Lock()
	if e, ok := c.specs[symbol]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.spec, nil
	}
	c.mu.Unlock()

	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return model.ContractSpec{}, err
	}

	_, data, err := c.pub.GetExchangeInfo()
	c.report(ctx, http.MethodGet, "/api/v5/public/instruments", "", data, err)
	if err != nil {
		return model.ContractSpec{}, err
	}

	// goex解析过的CurrencyPair缺少minSz等字段，从原始JSON取
	var resp struct {
		Data []struct {
			InstId string `json:"instId"`
			MinSz  string `json:"minSz"`
			LotSz  string `json:"lotSz"`
			TickSz string `json:"tickSz"`
			CtVal  string `json:"ctVal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.ContractSpec{}, fmt.Errorf("decode instruments: %w", err)
	}
	for _, item := range resp.Data {
		if item.InstId != pair.Symbol {
			continue
		}
		spec := model.ContractSpec{
			Symbol:      symbol,
			MinSize:     cast.ToFloat64(item.MinSz),
			SizeStep:    cast.ToFloat64(item.LotSz),
			MinNotional: cast.ToFloat64(item.MinSz) * cast.ToFloat64(item.CtVal), // okx用张数表示，最小名义价值≈最小张数*面值
			PricePlaces: decimalPlaces(item.TickSz),
			SizePlaces:  decimalPlaces(item.LotSz),
		}
		c.mu.Lock()
		c.specs[symbol] = specEntry{spec: spec, expires: time.Now().Add(c.specTTL)}
		c.mu.Unlock()
		return spec, nil
	}
	return model.ContractSpec{}, fmt.Errorf("instrument not found for %s", symbol)
}

// SetLeverage 设置杠杆，统一使用全仓模式
func (c *Connector) SetLeverage(ctx context.Context, symbol string, leverage int, hold model.HoldSide) error {
	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return err
	}
	opts := []goexmodel.OptionParameter{
		{Key: "mgnMode", Value: "cross"},
		{Key: "posSide", Value: string(hold)},
	}
	resp, err := c.prv.SetLeverage(pair.Symbol, strconv.Itoa(leverage), opts...)
	c.report(ctx, http.MethodPost, "/api/v5/account/set-leverage", pair.Symbol, resp, err)
	if err != nil {
		return fmt.Errorf("设置杠杆失败: %w", err)
	}
	return nil
}

func (c *Connector) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error) {
	pair, err := c.toCurrencyPair(req.Symbol)
	if err != nil {
		return model.OrderResponse{}, err
	}

	var side goexmodel.OrderSide
	if req.ReduceOnly {
		// 平仓方向
		if req.HoldSide == model.HoldLong {
			side = goexmodel.Futures_CloseBuy
		} else {
			side = goexmodel.Futures_CloseSell
		}
	} else {
		if req.HoldSide == model.HoldLong {
			side = goexmodel.Futures_OpenBuy
		} else {
			side = goexmodel.Futures_OpenSell
		}
	}

	orderType := goexmodel.OrderType_Market
	if req.OrderType == model.Limit {
		orderType = goexmodel.OrderType_Limit
	}

	opts := []goexmodel.OptionParameter{
		{Key: "tdMode", Value: "cross"},
		{Key: "posSide", Value: string(req.HoldSide)},
		{Key: "clOrdId", Value: req.ClientOrderID},
	}

	created, raw, err := c.prv.CreateOrder(pair, req.Size, req.Price, side, orderType, opts...)
	c.report(ctx, http.MethodPost, "/api/v5/trade/order", req.ClientOrderID, raw, err)
	if err != nil {
		return model.OrderResponse{}, wrapOkxError(err, raw)
	}
	return model.OrderResponse{ExchangeOrderID: created.Id, ClientOrderID: req.ClientOrderID}, nil
}

// PlaceTriggerOrder 挂止盈/止损触发单，走v5 algo接口
func (c *Connector) PlaceTriggerOrder(ctx context.Context, req model.TriggerOrderRequest) (model.OrderResponse, error) {
	pair, err := c.toCurrencyPair(req.Symbol)
	if err != nil {
		return model.OrderResponse{}, err
	}

	params := url.Values{}
	params.Set("instId", pair.Symbol)
	params.Set("tdMode", "cross")
	params.Set("posSide", string(req.HoldSide))
	params.Set("side", string(req.HoldSide.CloseSide()))
	params.Set("ordType", "conditional")
	params.Set("sz", strconv.FormatFloat(req.Size, 'f', -1, 64))
	params.Set("algoClOrdId", req.ClientOrderID)

	px := strconv.FormatFloat(req.TriggerPrice, 'f', -1, 64)
	if req.Kind == model.TriggerStopLoss {
		params.Set("slTriggerPx", px)
		params.Set("slOrdPx", "-1") // -1 表示市价
	} else {
		params.Set("tpTriggerPx", px)
		params.Set("tpOrdPx", "-1")
	}

	reqUrl := fmt.Sprintf("%s%s", c.prv.UriOpts.Endpoint, "/api/v5/trade/order-algo")
	_, resp, err := c.prv.DoAuthRequest(http.MethodPost, reqUrl, &params, nil)
	c.report(ctx, http.MethodPost, "/api/v5/trade/order-algo", req.ClientOrderID, resp, err)
	if err != nil {
		return model.OrderResponse{}, wrapOkxError(err, resp)
	}

	var r struct {
		Data []struct {
			AlgoId string `json:"algoId"`
		} `json:"data"`
	}
	_ = json.Unmarshal(resp, &r)
	if len(r.Data) == 0 {
		return model.OrderResponse{}, errors.New("algo empty response")
	}
	return model.OrderResponse{ExchangeOrderID: r.Data[0].AlgoId, ClientOrderID: req.ClientOrderID}, nil
}

// CancelTriggerOrders 先查未触发的algo单再批量撤销
func (c *Connector) CancelTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) (int, error) {
	pending, err := c.GetPendingTriggerOrders(ctx, symbol, kind)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return 0, err
	}

	// v5的cancel-algos一次最多10个
	cancelled := 0
	for _, p := range pending {
		params := url.Values{}
		params.Set("instId", pair.Symbol)
		params.Set("algoId", p.OrderID)
		reqUrl := fmt.Sprintf("%s%s", c.prv.UriOpts.Endpoint, "/api/v5/trade/cancel-algos")
		_, resp, err := c.prv.DoAuthRequest(http.MethodPost, reqUrl, &params, nil)
		c.report(ctx, http.MethodPost, "/api/v5/trade/cancel-algos", p.OrderID, resp, err)
		if err != nil {
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

func (c *Connector) GetOpenPositions(ctx context.Context, symbol string) ([]model.PositionInfo, error) {
	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	res, raw, err := c.prv.GetPositions(pair)
	c.report(ctx, http.MethodGet, "/api/v5/account/positions", pair.Symbol, raw, err)
	if err != nil {
		return nil, err
	}

	var positions []model.PositionInfo
	for _, p := range res {
		if p.Qty == 0 {
			// 没有张数的仓位忽略
			continue
		}
		var hold model.HoldSide
		switch p.PosSide {
		case goexmodel.Futures_OpenBuy, goexmodel.Spot_Buy:
			hold = model.HoldLong
		case goexmodel.Futures_OpenSell, goexmodel.Spot_Sell:
			hold = model.HoldShort
		default:
			continue
		}
		positions = append(positions, model.PositionInfo{
			Symbol:     symbol,
			Side:       hold,
			Size:       p.Qty,
			EntryPrice: p.AvgPx,
		})
	}
	return positions, nil
}

func (c *Connector) GetPendingTriggerOrders(ctx context.Context, symbol string, kind model.TriggerKind) ([]model.TriggerOrderInfo, error) {
	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("ordType", "conditional")
	params.Set("instId", pair.Symbol)

	reqUrl := fmt.Sprintf("%s%s", c.prv.UriOpts.Endpoint, "/api/v5/trade/orders-algo-pending")
	_, resp, err := c.prv.DoAuthRequest(http.MethodGet, reqUrl, &params, nil)
	c.report(ctx, http.MethodGet, "/api/v5/trade/orders-algo-pending", pair.Symbol, resp, err)
	if err != nil {
		return nil, err
	}

	var r struct {
		Data []struct {
			AlgoId      string `json:"algoId"`
			AlgoClOrdId string `json:"algoClOrdId"`
			SlTriggerPx string `json:"slTriggerPx"`
			TpTriggerPx string `json:"tpTriggerPx"`
			Sz          string `json:"sz"`
			PosSide     string `json:"posSide"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &r); err != nil {
		return nil, fmt.Errorf("decode algo pending: %w", err)
	}

	var orders []model.TriggerOrderInfo
	for _, item := range r.Data {
		k := model.TriggerTakeProfit
		price := cast.ToFloat64(item.TpTriggerPx)
		if item.SlTriggerPx != "" {
			k = model.TriggerStopLoss
			price = cast.ToFloat64(item.SlTriggerPx)
		}
		if kind != "" && k != kind {
			continue
		}
		orders = append(orders, model.TriggerOrderInfo{
			OrderID:       item.AlgoId,
			ClientOrderID: item.AlgoClOrdId,
			Kind:          k,
			Symbol:        symbol,
			HoldSide:      model.HoldSide(item.PosSide),
			TriggerPrice:  price,
			Size:          cast.ToFloat64(item.Sz),
		})
	}
	return orders, nil
}

// wrapOkxError 从错误信息/响应体里识别可幂等处理的业务错误
func wrapOkxError(err error, raw []byte) error {
	text := err.Error() + string(raw)
	if strings.Contains(text, sCodeDuplicateClOrdId) {
		return fmt.Errorf("%w: %v", exchange.ErrDuplicateClientOrderID, err)
	}
	if strings.Contains(text, sCodePositionNotExist) {
		return fmt.Errorf("%w: %v", exchange.ErrNoPositionToClose, err)
	}
	return err
}

func (c *Connector) report(ctx context.Context, method, path, payload string, response []byte, callErr error) {
	e := audit.Entry{
		AccountID: c.accountID,
		Exchange:  "okx",
		ApiKey:    c.redacted,
		Method:    method,
		Path:      path,
		Payload:   payload,
		Response:  string(response),
	}
	if callErr != nil {
		e.Err = callErr.Error()
	}
	audit.Report(ctx, c.audit, e)
}

// tickSz/lotSz形如 "0.001"，小数位数即精度
func decimalPlaces(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
