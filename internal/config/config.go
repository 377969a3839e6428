package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	BalanceEvent string `mapstructure:"balance_event"`
}

// BusinessConfig 业务参数
type BusinessConfig struct {
	StartingBalance          int64 `mapstructure:"starting_balance"`            // 新用户初始余额
	FreeBalanceAmount        int64 `mapstructure:"free_balance_amount"`         // 每次免费发放的余额数量
	FreeBalanceIntervalHours int   `mapstructure:"free_balance_interval_hours"` // 免费发放间隔（小时）
	MaxRetryCount            int   `mapstructure:"max_retry_count"`
	AdminEnabled             bool  `mapstructure:"admin_enabled"` // 是否开放管理接口
}

// CatalogConfig 余额包和优惠券目录（只读，启动时加载）
type CatalogConfig struct {
	BalanceType string         `mapstructure:"balance_type"` // 余额的展示名称，如 Credits
	Currency    CurrencyConfig `mapstructure:"currency"`
	Packs       []PackConfig   `mapstructure:"packs"`
	Coupons     []CouponConfig `mapstructure:"coupons"`
}

type CurrencyConfig struct {
	Unit     string `mapstructure:"unit"`
	Decimals int    `mapstructure:"decimals"`
}

type PackConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Size       int64  `mapstructure:"size"`        // 购买后增加的余额数量
	PriceCents int64  `mapstructure:"price_cents"` // 价格（最小货币单位）
}

type CouponConfig struct {
	Code            string   `mapstructure:"code"`
	DiscountPercent int64    `mapstructure:"discount_percent"`
	ApplicablePacks []string `mapstructure:"applicable_packs"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
