package main

import (
	"flag"
	"log"

	"smarttrading/conf"
	"smarttrading/pkg/cache"
	"smarttrading/pkg/db"
	"smarttrading/pkg/logger"
)

// 信号执行服务：接收信号源的webhook推送，分发到订阅账户并在交易所下单

/*
测试

BODY='{"category":"ENTRY","symbol":"BTCUSDT","side":"LONG","entry_price":50000,"stop_loss":49000,"take_profit":53000,"trade_id":"tv-20260828-001","strategy":"tv-breakout-v2"}'
SECRET="ab12cd34ef56abcdef1234567890abcdef1234567890abcdef1234567890"
TS=$(date +%s)
SIGNATURE=$(echo -n "${TS}${BODY}" | openssl dgst -sha256 -hmac $SECRET -binary | base64)

curl -X POST http://localhost:8090/webhook/alert \
  -H "Content-Type: application/json" \
  -H "T-Timestamp: $TS" \
  -H "T-Signature: $SIGNATURE" \
  -d "$BODY"

*/

func main() {
	configPath := flag.String("c", "conf/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置文件
	if err := conf.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig

	logger.Init(logger.Options{
		Level:      appCfg.Log.Level,
		FileName:   appCfg.Log.FileName,
		TimeFormat: appCfg.Log.TimeFormat,
		MaxSize:    appCfg.Log.MaxSize,
		MaxBackups: appCfg.Log.MaxBackups,
		MaxAge:     appCfg.Log.MaxAge,
		Compress:   appCfg.Log.Compress,
		LocalTime:  appCfg.Log.LocalTime,
		Console:    appCfg.Log.Console,
	})
	defer logger.Sync()

	// 初始化数据库
	datasource := db.Init(db.NewConfig(
		appCfg.Db.Username,
		appCfg.Db.Password,
		appCfg.Db.Host,
		appCfg.Db.Port,
		appCfg.Db.DbName,
	))

	// 初始化redis
	cache.InitRedis(cache.Config{
		Addr:         appCfg.Redis.Addr,
		Password:     appCfg.Redis.Password,
		Db:           appCfg.Redis.Db,
		PoolSize:     appCfg.Redis.PoolSize,
		MinIdleConns: appCfg.Redis.MinIdleConns,
		IdleTimeout:  appCfg.Redis.IdleTimeout,
	})

	apiRouter := InitRouter(datasource)

	srv := NewServer(&conf.AppConfig)
	srv.RegisterOnShutdown(func() {
		cache.CloseRedis()
	})
	srv.Run(apiRouter)
}
