package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"smarttrading/internal/consts"

	"github.com/gin-gonic/gin"
)

const testSecret = "webhook-secret"

func webhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.POST("/webhook/alert", WebhookAuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return g
}

func signedRequest(t *testing.T, body string, ts string, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", bytes.NewBufferString(body))
	req.Header.Set(consts.Timestamp, ts)
	req.Header.Set(consts.Signature, computeHMAC(ts+body, []byte(secret)))
	return req
}

func TestWebhookAuthValidSignature(t *testing.T) {
	g := webhookRouter(testSecret)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	body := `{"trade_id":"t1"}`

	w := httptest.NewRecorder()
	g.ServeHTTP(w, signedRequest(t, body, ts, testSecret))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestWebhookAuthWrongSecret(t *testing.T) {
	g := webhookRouter(testSecret)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, signedRequest(t, `{}`, ts, "other-secret"))
	if w.Code == http.StatusOK {
		t.Error("wrong secret must be rejected")
	}
}

func TestWebhookAuthStaleTimestamp(t *testing.T) {
	g := webhookRouter(testSecret)
	// 5分钟前的时间戳，防重放要拒掉
	ts := strconv.FormatInt(time.Now().Add(-5*time.Minute).Unix(), 10)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, signedRequest(t, `{}`, ts, testSecret))
	if w.Code == http.StatusOK {
		t.Error("stale timestamp must be rejected")
	}
}

func TestWebhookAuthMissingHeaders(t *testing.T) {
	g := webhookRouter(testSecret)
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", bytes.NewBufferString(`{}`))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Error("unsigned request must be rejected")
	}
}

func TestWebhookAuthBodyTamper(t *testing.T) {
	g := webhookRouter(testSecret)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	// 签名对原始body算，篡改后的body要被拒
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", bytes.NewBufferString(`{"size":999}`))
	req.Header.Set(consts.Timestamp, ts)
	req.Header.Set(consts.Signature, computeHMAC(ts+`{"size":1}`, []byte(testSecret)))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Error("tampered body must be rejected")
	}
}

func TestWebhookAuthEmptySecretSkips(t *testing.T) {
	g := webhookRouter("")
	req := httptest.NewRequest(http.MethodPost, "/webhook/alert", bytes.NewBufferString(`{}`))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("empty secret should skip verification, status = %d", w.Code)
	}
}

func TestAntiDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.GET("/api/v1/trades/recent", AntiDuplicateMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/recent", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := do(); code == http.StatusOK {
		t.Error("rapid duplicate request should be throttled")
	}
}
