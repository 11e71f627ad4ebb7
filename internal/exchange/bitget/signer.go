package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Bitget V2 API 签名
// 预签名串: timestamp + method + requestPath(+?query) + body
type Signer struct {
	accessKey  string
	secretKey  []byte
	passphrase string
}

func NewSigner(accessKey, secretKey, passphrase string) *Signer {
	return &Signer{
		accessKey:  accessKey,
		secretKey:  []byte(secretKey),
		passphrase: passphrase,
	}
}

// Sign 计算签名，query非空时需要调用方拼进path
func (s *Signer) Sign(timestamp, method, path, body string) string {
	payload := timestamp + method + path + body
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers 生成鉴权请求头
func (s *Signer) Headers(timestamp, method, path, body string) map[string]string {
	return map[string]string{
		"ACCESS-KEY":        s.accessKey,
		"ACCESS-SIGN":       s.Sign(timestamp, method, path, body),
		"ACCESS-TIMESTAMP":  timestamp,
		"ACCESS-PASSPHRASE": s.passphrase,
		"Content-Type":      "application/json",
		"locale":            "en-US",
	}
}
