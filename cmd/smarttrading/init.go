package main

import (
	"fmt"

	"smarttrading/conf"
	"smarttrading/internal/account"
	"smarttrading/internal/audit"
	icache "smarttrading/internal/cache"
	"smarttrading/internal/credential"
	"smarttrading/internal/dao"
	"smarttrading/internal/dispatcher"
	"smarttrading/internal/exchange"
	"smarttrading/internal/exchange/bitget"
	"smarttrading/internal/exchange/okx"
	"smarttrading/internal/handler/alert"
	"smarttrading/internal/model"
	"smarttrading/internal/notify"
	"smarttrading/internal/orchestrator"
	"smarttrading/internal/router"
	"smarttrading/pkg/cache"
	"smarttrading/pkg/kafka"
	"smarttrading/pkg/logger"

	"gorm.io/gorm"
)

// InitRouter 组装依赖，按配置决定审计和通知走kafka还是本地兜底
func InitRouter(db *gorm.DB) Router {
	appCfg := conf.AppConfig

	var auditSink audit.Sink
	var notifier notify.Notifier
	var producer kafka.ProducerService
	if appCfg.Kafka.Broker != "" {
		producer = kafka.NewKafkaProducer(appCfg.Kafka.Broker)
		auditSink = audit.NewKafkaSink(producer)
		notifier = notify.NewKafkaNotifier(producer)
	} else {
		// 单机部署：审计写本地JSON文件，通知只打日志
		auditSink = audit.NewFileSink("logs/trade-audit.json")
		notifier = notify.NewLogNotifier()
	}

	factory := newConnectorFactory(appCfg, auditSink)

	tradeDao := dao.NewTradeDao(db)
	accountDao := dao.NewAccountDao(db)
	tradeCache := icache.NewTradeCache(cache.GetRedisClient())

	creds, err := credential.NewStore(
		appCfg.Security.PrivateKey,
		appCfg.Security.Salt,
		appCfg.Security.SharedInfo,
	)
	if err != nil {
		logger.Fatalf("init credential store: %v", err)
	}
	accounts := account.NewService(accountDao, creds)

	orch := orchestrator.New(factory, tradeDao, tradeCache, notifier, orchestrator.Config{
		DefaultLeverage: appCfg.Execution.DefaultLeverage,
		NotionalMargin:  appCfg.Execution.NotionalMargin,
		PartialTP:       appCfg.Execution.PartialTP,
	})
	disp := dispatcher.New(orch, appCfg.Execution.AccountDelay, appCfg.Execution.Workers)

	alertHandler := alert.NewHandler(accounts, disp, tradeCache, tradeDao)
	return router.NewApiRouter(alertHandler)
}

// newConnectorFactory 按账户所属交易所构建连接
func newConnectorFactory(appCfg conf.Config, sink audit.Sink) orchestrator.ConnectorFactory {
	return func(ec model.ExecutionContext) (exchange.Connector, error) {
		switch ec.Exchange {
		case "bitget", "":
			return bitget.NewConnector(
				ec.Credential,
				ec.AccountID,
				sink,
				appCfg.Execution.RequestTimeout,
				appCfg.Execution.SpecCacheTTL,
				appCfg.Bitget.BaseURL,
				appCfg.Bitget.Simulated,
			), nil
		case "okx":
			return okx.NewConnector(ec.Credential, ec.AccountID, sink, appCfg.Execution.SpecCacheTTL), nil
		default:
			return nil, fmt.Errorf("unsupported exchange: %s", ec.Exchange)
		}
	}
}
