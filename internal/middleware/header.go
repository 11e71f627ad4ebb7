package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strconv"
	"time"

	"smarttrading/internal/consts"
	"smarttrading/pkg/response"
	"smarttrading/utils/uuid"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
)

// RequestId 用来设置和透传requestId
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := uuid.GenUUID16()
		c.Header("X-Request-Id", requestId)

		// 设置requestId到context中，便于后面调用链的透传
		c.Set(consts.RequestId, requestId)
		c.Next()
	}
}

// 限制缓存的最大大小为 500，且是并发安全的 LRU 缓存
var reqCache, _ = lru.New(500)
var duplicateThreshold = 1 * time.Second

// AntiDuplicateMiddleware 防止单个客户端IP在阈值内重复请求同一接口
// 使用golang-lru缓存，避免全局锁竞争
func AntiDuplicateMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + c.Request.URL.Path
		if value, ok := reqCache.Get(key); ok {
			lastRequestTime := value.(time.Time)
			if time.Since(lastRequestTime) < duplicateThreshold {
				response.TooManyRequests(c)
				c.Abort()
				return
			}
		}
		reqCache.Add(key, time.Now())
		c.Next()
	}
}

// WebhookAuthMiddleware 信号源推送的签名校验
// 签名串 = HMAC-SHA256(timestamp + body, secret) 的base64
// 时间戳偏差超过1分钟的请求直接拒绝，防重放
func WebhookAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			// 未配置密钥时跳过校验，只建议在本地联调时这样用
			c.Next()
			return
		}

		timestamp := c.GetHeader(consts.Timestamp)
		signature := c.GetHeader(consts.Signature)

		utcTimestamp, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			response.BadRequests(c)
			c.Abort()
			return
		}

		currentUTCTimestamp := time.Now().Unix()
		timeThreshold := int64(60)
		diff := currentUTCTimestamp - utcTimestamp
		if diff > timeThreshold || diff < -timeThreshold {
			response.BadRequests(c)
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequests(c)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		validSignature := computeHMAC(timestamp+string(body), []byte(secret))
		if !hmac.Equal([]byte(signature), []byte(validSignature)) {
			response.BadRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

func computeHMAC(data string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
