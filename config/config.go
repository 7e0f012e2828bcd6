package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Port string `mapstructure:"PORT"`
	}

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		}
		Redis struct {
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
		}
		Mongo struct {
			Url string `mapstructure:"URL"`
		}
	}

	ROOM struct {
		HeartbeatTimeoutSec int `mapstructure:"HEARTBEAT_TIMEOUT_SEC"`
		SweepIntervalSec    int `mapstructure:"SWEEP_INTERVAL_SEC"`
		MicTimeLimitSec     int `mapstructure:"MIC_TIME_LIMIT_SEC"`
		TxnMaxRetries       int `mapstructure:"TXN_MAX_RETRIES"`
		AuthRetryDelayMs    int `mapstructure:"AUTH_RETRY_DELAY_MS"`
	}

	GEO struct {
		BaseURL   string `mapstructure:"BASE_URL"`
		TimeoutMs int    `mapstructure:"TIMEOUT_MS"`
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("RONZA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	applyDefaults(&config)

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.ROOM.HeartbeatTimeoutSec == 0 {
		c.ROOM.HeartbeatTimeoutSec = 60
	}
	if c.ROOM.SweepIntervalSec == 0 {
		c.ROOM.SweepIntervalSec = 30
	}
	if c.ROOM.TxnMaxRetries == 0 {
		c.ROOM.TxnMaxRetries = 5
	}
	if c.ROOM.AuthRetryDelayMs == 0 {
		c.ROOM.AuthRetryDelayMs = 250
	}
	if c.GEO.TimeoutMs == 0 {
		c.GEO.TimeoutMs = 2000
	}
}
