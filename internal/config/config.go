package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Session SessionConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// RedisConfig 供 asynq 背景任務使用
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SessionConfig 控制房間生命週期的各項策略
type SessionConfig struct {
	InactivityThreshold time.Duration // 超過此時間沒有活動的房間會被自動關閉
	SweepInterval       time.Duration // 背景巡查的間隔
	AnonymousRetention  time.Duration // 匿名身分的保留期限
	CodeLength          int           // 房間代碼長度
	CodeMaxAttempts     int           // 產生唯一代碼的重試上限
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./internal/config")

	// 未在設定檔指定時的預設策略
	viper.SetDefault("session.inactivitythreshold", 30*time.Minute)
	viper.SetDefault("session.sweepinterval", time.Minute)
	viper.SetDefault("session.anonymousretention", 7*24*time.Hour)
	viper.SetDefault("session.codelength", 6)
	viper.SetDefault("session.codemaxattempts", 100)
	viper.SetDefault("auth.tokenttl", 240*time.Hour)
	viper.SetDefault("redis.address", "localhost:6379")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
