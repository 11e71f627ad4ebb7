package alert

import (
	"context"
	"time"

	"smarttrading/internal/account"
	"smarttrading/internal/cache"
	"smarttrading/internal/consts"
	"smarttrading/internal/dao"
	"smarttrading/internal/dispatcher"
	"smarttrading/internal/model"
	"smarttrading/pkg/errors"
	"smarttrading/pkg/errors/ecode"
	"smarttrading/pkg/logger"
	"smarttrading/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// 信号入口。接收端只做轻校验和去重，执行在后台分发，
// 信号源(tradingview之类)的webhook超时都很短，不能同步等所有账户执行完
type Handler struct {
	accounts   *account.Service
	dispatcher *dispatcher.Dispatcher
	tradeCache *cache.TradeCache
	trades     *dao.TradeDao

	// 后台分发的执行时限
	dispatchTimeout time.Duration
}

func NewHandler(accounts *account.Service, d *dispatcher.Dispatcher, tc *cache.TradeCache, trades *dao.TradeDao) *Handler {
	return &Handler{
		accounts:        accounts,
		dispatcher:      d,
		tradeCache:      tc,
		trades:          trades,
		dispatchTimeout: 5 * time.Minute,
	}
}

type acceptedResp struct {
	TradeID  string `json:"trade_id"`
	Accounts int    `json:"accounts"`
}

// HandleAlert POST /webhook/alert
func (h *Handler) HandleAlert() gin.HandlerFunc {
	return func(c *gin.Context) {
		var a model.Alert
		if err := c.ShouldBindJSON(&a); err != nil {
			response.JSON(c, errors.Wrap(err, ecode.AlertInvalid, ""), nil)
			return
		}
		if err := a.Validate(); err != nil {
			response.JSON(c, errors.Wrap(err, ecode.AlertInvalid, err.Error()), nil)
			return
		}
		if a.Timestamp.IsZero() {
			a.Timestamp = time.Now()
		}

		// 同类信号重复推送直接丢弃，at-least-once投递下很常见
		if !h.tradeCache.MarkAlert(c.Request.Context(), a.TradeID, a.Category, consts.RedisExrDefault) {
			response.JSON(c, errors.New(ecode.AlertDiscarded, ""), nil)
			return
		}

		contexts, err := h.accounts.ResolveContexts(c.Request.Context(), a.Strategy)
		if err != nil {
			response.JSON(c, errors.Wrap(err, ecode.InternalErr, "resolve accounts failed"), nil)
			return
		}

		reqId := c.GetString(consts.RequestId)
		go h.dispatch(reqId, a, contexts)

		response.JSON(c, nil, acceptedResp{TradeID: a.TradeID, Accounts: len(contexts)})
	}
}

func (h *Handler) dispatch(reqId string, a model.Alert, contexts []model.ExecutionContext) {
	ctx, cancel := context.WithTimeout(context.Background(), h.dispatchTimeout)
	defer cancel()

	records := h.dispatcher.Dispatch(ctx, a, contexts)
	succeeded := 0
	for _, r := range records {
		if r != nil && r.Success {
			succeeded++
		}
	}
	logger.Info("[Alert Dispatched]",
		logger.Pair(consts.RequestId, reqId),
		logger.Pair("trade", a.TradeID),
		logger.Pair("category", string(a.Category)),
		logger.Pair("symbol", a.Symbol),
		logger.Pair("accounts", len(contexts)),
		logger.Pair("succeeded", succeeded))
}

// ListRecent GET /trades/recent 运营排查接口
func (h *Handler) ListRecent() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Query("account_id")
		limit := cast.ToInt(c.Query("limit"))
		records, err := h.trades.ListRecent(c.Request.Context(), accountID, limit)
		if err != nil {
			response.JSON(c, errors.Wrap(err, ecode.InternalErr, "query trades failed"), nil)
			return
		}
		response.JSON(c, nil, records)
	}
}
