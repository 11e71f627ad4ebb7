package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId = "request_id"
	UserID    = "user_id"

	// redis key前缀
	EntryTradePrefix     = "Trade_Entry_record:"
	AlertDedupPrefix     = "Alert_Dedup:"
	ContractSpecPrefix   = "Contract_Spec:"
	UserContextPrefix    = "User_Execution_Context:"
	UserSubscriptnPrefix = "User_Subscription_list:"

	// 默认redis过期时间
	RedisExrDefault = time.Hour * 24 * 5
	// 入场记录的关联缓存时长，超过后回源数据库
	EntryTradeExr = time.Hour * 72
)

const (
	Timestamp = "T-Timestamp"
	Signature = "T-Signature"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

// 用户角色，Privileged角色不校验付费订阅
const (
	StandardUser = iota + 1
	PlusMember
	Privileged = 301
)

var RoleToString = map[int]string{
	StandardUser: "Standard", // 标准用户
	PlusMember:   "Plus",     // Plus 订阅用户
	Privileged:   "内部账户",     // 内部/运营账户，不校验付费
}
