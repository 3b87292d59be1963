package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	TelegramBotToken  string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminIDs          string `mapstructure:"ADMIN_IDS"`
	ProviderBaseURL   string `mapstructure:"PROVIDER_BASE_URL"`
	ProviderAPIKey    string `mapstructure:"PROVIDER_API_KEY"`
	QRISAPIURL        string `mapstructure:"QRIS_API_URL"`
	QRISStaticPayload string `mapstructure:"QRIS_STATIC_PAYLOAD"`
	WebhookPort       int    `mapstructure:"WEBHOOK_PORT"`
	DB_URL            string `mapstructure:"DB_URL"`
	CacheTTLSeconds   int    `mapstructure:"CACHE_TTL_SECONDS"`
	SweepAfterMinutes int    `mapstructure:"SWEEP_AFTER_MINUTES"`
}

func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	viper.AddConfigPath(filepath.Dir(absPath))
	viper.SetConfigName(filepath.Base(absPath))
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("WEBHOOK_PORT", 8090)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("SWEEP_AFTER_MINUTES", 30)

	if err := viper.ReadInConfig(); err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// AdminIDList parses the comma-separated ADMIN_IDS value.
func (c Config) AdminIDList() []int64 {
	var ids []int64
	for _, part := range strings.Split(c.AdminIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
