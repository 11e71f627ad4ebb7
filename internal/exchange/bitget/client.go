package bitget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"smarttrading/internal/audit"
	"smarttrading/internal/exchange"
	"smarttrading/internal/model"

	"github.com/goccy/go-json"
)

const MainnetURL = "https://api.bitget.com"

// Client Bitget签名REST客户端
// 每次调用无论成败都会上报审计日志，审计失败不影响调用结果
type Client struct {
	baseURL   string
	http      *http.Client
	signer    *Signer
	audit     audit.Sink
	accountID string
	redacted  string // 脱敏后的apiKey，审计用
	simulated bool
}

func NewClient(cred model.Credential, accountID string, sink audit.Sink, timeout time.Duration, baseURL string, simulated bool) *Client {
	if baseURL == "" {
		baseURL = MainnetURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
		signer:    NewSigner(cred.ApiKey, cred.SecretKey, cred.Passphrase),
		audit:     sink,
		accountID: accountID,
		redacted:  cred.Redacted(),
		simulated: simulated,
	}
}

// do 发起一次签名请求并解析外层code
// query会拼接进path参与签名，body为nil时签名串不含body
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	fullPath := path
	if len(query) > 0 {
		fullPath = path + "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	ts := fmt.Sprintf("%d", time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+fullPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, v := range c.signer.Headers(ts, method, fullPath, string(payload)) {
		req.Header.Set(k, v)
	}
	if c.simulated {
		// 模拟盘
		req.Header.Set("paptrading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.report(ctx, method, fullPath, payload, nil, 0, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.report(ctx, method, fullPath, payload, nil, resp.StatusCode, err)
		return nil, err
	}

	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		c.report(ctx, method, fullPath, payload, raw, resp.StatusCode, err)
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// 成败看body里的code
	if r.Code != codeSuccess {
		apiErr := &APIError{Code: r.Code, Msg: r.Msg, Path: path}
		c.report(ctx, method, fullPath, payload, raw, resp.StatusCode, apiErr)
		return nil, wrapAPIError(apiErr)
	}

	c.report(ctx, method, fullPath, payload, raw, resp.StatusCode, nil)
	return r.Data, nil
}

// wrapAPIError 把交易所业务错误映射到统一的哨兵错误
func wrapAPIError(e *APIError) error {
	switch e.Code {
	case codeDuplicateClientOid:
		return fmt.Errorf("%w: %v", exchange.ErrDuplicateClientOrderID, e)
	case codeNoPositionToClose:
		return fmt.Errorf("%w: %v", exchange.ErrNoPositionToClose, e)
	}
	return e
}

func (c *Client) report(ctx context.Context, method, path string, payload, response []byte, status int, callErr error) {
	e := audit.Entry{
		AccountID: c.accountID,
		Exchange:  "bitget",
		ApiKey:    c.redacted,
		Method:    method,
		Path:      path,
		Payload:   string(payload),
		Response:  string(response),
		Status:    status,
	}
	if callErr != nil {
		e.Err = callErr.Error()
	}
	audit.Report(ctx, c.audit, e)
}
