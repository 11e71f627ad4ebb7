package ecode

// 业务错误码，0表示成功
const (
	Success = 0

	// 通用
	InternalErr    = 10001
	InvalidParams  = 10002
	RequireAuthErr = 10003
	NotFoundErr    = 10004

	// 信号/下单相关
	AlertInvalid       = 20001 // 信号格式非法
	AlertDiscarded     = 20002 // 信号被丢弃（无对应的入场记录等）
	SymbolNotAllowed   = 20003 // 币种不在允许列表
	NoSubscription     = 20004 // 没有有效订阅
	NoCredential       = 20005 // 没有可用的交易所凭证
	LeverageFailed     = 20006 // 设置杠杆失败
	OrderFailed        = 20007 // 下单失败
	ProtectionDegraded = 20008 // 止盈/止损部分挂单失败
)

var messages = map[int]string{
	Success:            "success",
	InternalErr:        "internal error",
	InvalidParams:      "invalid params",
	RequireAuthErr:     "require auth",
	NotFoundErr:        "not found",
	AlertInvalid:       "invalid alert",
	AlertDiscarded:     "alert discarded",
	SymbolNotAllowed:   "symbol not allowed",
	NoSubscription:     "no active subscription",
	NoCredential:       "no exchange credential",
	LeverageFailed:     "set leverage failed",
	OrderFailed:        "place order failed",
	ProtectionDegraded: "protection degraded",
}

// Message 返回错误码的默认提示
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "unknown error"
}
