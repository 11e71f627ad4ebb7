package bitget

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	// USDT本位永续
	productType = "USDT-FUTURES"
	marginCoin  = "USDT"
	marginMode  = "crossed"
)

// 成功与否看body里的code，不只看http状态码
const codeSuccess = "00000"

// 需要特殊处理的业务错误码
const (
	// clientOid重复，可能上一次请求其实已经成功
	codeDuplicateClientOid = "40786"
	// 平仓时仓位不存在，已被触发单平掉
	codeNoPositionToClose = "22002"
)

// 通用响应外壳
type apiResponse struct {
	Code        string          `json:"code"`
	Msg         string          `json:"msg"`
	RequestTime int64           `json:"requestTime"`
	Data        json.RawMessage `json:"data"`
}

// APIError 交易所返回的业务错误
type APIError struct {
	Code string
	Msg  string
	Path string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitget api error: code=%s msg=%s path=%s", e.Code, e.Msg, e.Path)
}

// ---- 请求体 ----

type placeOrderReq struct {
	Symbol      string `json:"symbol"`
	ProductType string `json:"productType"`
	MarginCoin  string `json:"marginCoin"`
	MarginMode  string `json:"marginMode"`
	Side        string `json:"side"`      // buy / sell
	TradeSide   string `json:"tradeSide"` // open / close
	OrderType   string `json:"orderType"` // market / limit
	Size        string `json:"size"`
	Price       string `json:"price,omitempty"`
	ClientOid   string `json:"clientOid"`
}

type placeTpslReq struct {
	Symbol       string `json:"symbol"`
	ProductType  string `json:"productType"`
	MarginCoin   string `json:"marginCoin"`
	PlanType     string `json:"planType"` // loss_plan / profit_plan
	TriggerPrice string `json:"triggerPrice"`
	TriggerType  string `json:"triggerType"` // mark_price
	HoldSide     string `json:"holdSide"`    // long / short
	Size         string `json:"size"`
	ClientOid    string `json:"clientOid"`
}

type cancelPlanReq struct {
	Symbol      string `json:"symbol"`
	ProductType string `json:"productType"`
	MarginCoin  string `json:"marginCoin"`
	PlanType    string `json:"planType,omitempty"`
	OrderIdList []struct {
		OrderId string `json:"orderId"`
	} `json:"orderIdList,omitempty"`
}

type setLeverageReq struct {
	Symbol      string `json:"symbol"`
	ProductType string `json:"productType"`
	MarginCoin  string `json:"marginCoin"`
	Leverage    string `json:"leverage"`
	HoldSide    string `json:"holdSide"`
}

// ---- 响应体 ----

type orderData struct {
	OrderId   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
}

type contractItem struct {
	Symbol       string `json:"symbol"`
	MinTradeNum  string `json:"minTradeNum"`  // 最小下单数量
	SizeMultiple string `json:"sizeMultiple"` // 数量步进
	MinTradeUSDT string `json:"minTradeUSDT"` // 最小名义价值
	PricePlace   string `json:"pricePlace"`
	VolumePlace  string `json:"volumePlace"`
}

type positionItem struct {
	Symbol       string `json:"symbol"`
	HoldSide     string `json:"holdSide"`
	Total        string `json:"total"` // 持有数量
	OpenPriceAvg string `json:"openPriceAvg"`
}

type planOrderList struct {
	EntrustedList []planOrderItem `json:"entrustedList"`
}

type planOrderItem struct {
	OrderId      string `json:"orderId"`
	ClientOid    string `json:"clientOid"`
	Symbol       string `json:"symbol"`
	PlanType     string `json:"planType"`
	TriggerPrice string `json:"triggerPrice"`
	Size         string `json:"size"`
	HoldSide     string `json:"holdSide"`
}

type cancelBatchData struct {
	SuccessList []orderData `json:"successList"`
	FailureList []orderData `json:"failureList"`
}
