package router

import (
	"smarttrading/conf"
	"smarttrading/internal/handler/alert"
	"smarttrading/internal/handler/ping"
	"smarttrading/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	alertHandler *alert.Handler
}

func NewApiRouter(ah *alert.Handler) *ApiRouter {
	return &ApiRouter{alertHandler: ah}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	g.Use(gin.Recovery())
	g.Use(middleware.RequestId())
	g.Use(middleware.Logger)

	g.GET("/ping", ping.Ping())

	// 信号推送入口，HMAC签名校验
	wh := g.Group("/webhook", middleware.WebhookAuthMiddleware(conf.AppConfig.Webhook.Secret))
	{
		wh.POST("/alert", api.alertHandler.HandleAlert())
	}

	// 运营排查接口
	ops := g.Group("/api/v1", middleware.AntiDuplicateMiddleware())
	{
		ops.GET("/trades/recent", api.alertHandler.ListRecent())
	}
}
