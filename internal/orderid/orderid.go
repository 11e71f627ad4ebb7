package orderid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// 客户端订单号生成
// 交易所对clientOid的要求：字母数字下划线，长度上限，账户内唯一
// 号段布局: <kind>_<symbol>_<毫秒时间戳>_<随机后缀>
// 同一笔交易重放时会生成相同前缀不同后缀的id，靠交易所的重复单错误码兜底

const (
	// bitget/okx 的clientOid上限都是不小于40
	maxLength    = 40
	randomLength = 6
	charset      = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Kind 订单用途前缀
type Kind string

const (
	KindEntry     Kind = "en"
	KindStopLoss  Kind = "sl"
	KindTakeProf  Kind = "tp"
	KindBreakeven Kind = "be"
	KindClose     Kind = "cl"
)

// New 生成一个新的客户端订单号
func New(kind Kind, symbol string) string {
	id := fmt.Sprintf("%s_%s_%d_%s", kind, sanitize(symbol), time.Now().UnixMilli(), randomSuffix())
	if len(id) > maxLength {
		id = id[:maxLength]
	}
	return id
}

// sanitize 去掉symbol里交易所不接受的字符，只留字母数字
func sanitize(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	s := b.String()
	// symbol太长会挤占随机后缀的空间
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}

func randomSuffix() string {
	buf := make([]byte, randomLength)
	if _, err := rand.Read(buf); err != nil {
		// 降级到时间戳低位，够用
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	for i := range buf {
		buf[i] = charset[int(buf[i])%len(charset)]
	}
	return string(buf)
}
