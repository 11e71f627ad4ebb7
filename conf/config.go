package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（API密钥等）

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// Bitget 合约交易的凭证，一般由凭证库按账户下发，这里的是系统级兜底账户
type Bitget struct {
	ApiKey     string `yaml:"apiKey"`
	SecretKey  string `yaml:"secretKey"`
	Passphrase string `yaml:"passphrase"`
	BaseURL    string `yaml:"baseURL"`
	Simulated  bool   `yaml:"simulated"`
}

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"`
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ExecutionConfig 信号执行相关的参数
type ExecutionConfig struct {
	DefaultLeverage int           `yaml:"default-leverage"` // 系统级默认杠杆，账户/策略级可覆盖
	AccountDelay    time.Duration `yaml:"account-delay"`    // 串行分发时账户间的间隔，防止触发交易所限频
	Workers         int           `yaml:"workers"`          // >1 时使用有界并发分发
	NotionalMargin  float64       `yaml:"notional-margin"`  // 最小名义价值的放大系数，吸收市价滑点
	PartialTP       bool          `yaml:"partial-tp"`       // 默认是否启用分批止盈
	RequestTimeout  time.Duration `yaml:"request-timeout"`  // 交易所请求超时
	SpecCacheTTL    time.Duration `yaml:"spec-cache-ttl"`   // 合约规格缓存时长
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
}

// SecurityConfig 凭证加解密所需的密钥材料
type SecurityConfig struct {
	PrivateKey string `yaml:"private-key"` // 服务端curve25519私钥 base64
	Salt       string `yaml:"salt"`
	SharedInfo string `yaml:"shared-info"`
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`

	Webhook   WebhookConfig   `yaml:"webhook"`
	Bitget    `yaml:"bitget"`
	Okx       `yaml:"okx"`
	Db        `yaml:"database"`
	Execution ExecutionConfig `yaml:"execution"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Security  SecurityConfig  `yaml:"security"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	applyDefaults(&AppConfig)
	return nil
}

func applyDefaults(c *Config) {
	if c.Execution.DefaultLeverage <= 0 {
		c.Execution.DefaultLeverage = 10
	}
	if c.Execution.AccountDelay <= 0 {
		c.Execution.AccountDelay = 300 * time.Millisecond
	}
	if c.Execution.Workers <= 0 {
		c.Execution.Workers = 1
	}
	if c.Execution.NotionalMargin <= 0 {
		// 5%余量，市价单从报价到成交之间的价格漂移
		c.Execution.NotionalMargin = 1.05
	}
	if c.Execution.RequestTimeout <= 0 {
		c.Execution.RequestTimeout = 10 * time.Second
	}
	if c.Execution.SpecCacheTTL <= 0 {
		c.Execution.SpecCacheTTL = 10 * time.Minute
	}
}
