package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host    string
	Port    string
	DataDir string

	APIBaseURL  string
	CallTimeout time.Duration

	APIKey string

	TelegramToken string
	AdminChatIDs  []string
	Timezone      string
}

func Load() (Config, error) {
	cfg := Config{
		Host:    getenv("PRICEOPS_HOST", "127.0.0.1"),
		Port:    getenv("PRICEOPS_PORT", "8090"),
		DataDir: getenv("PRICEOPS_DATA_DIR", ".data"),

		APIBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("PRICEOPS_API_BASE_URL")), "/"),

		APIKey:        strings.TrimSpace(os.Getenv("PRICEOPS_API_KEY")),
		TelegramToken: strings.TrimSpace(os.Getenv("PRICEOPS_TELEGRAM_TOKEN")),
		Timezone:      strings.TrimSpace(os.Getenv("PRICEOPS_TIMEZONE")),
	}
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("PRICEOPS_API_BASE_URL is required")
	}

	for _, id := range strings.Split(os.Getenv("PRICEOPS_ADMIN_CHAT_IDS"), ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			cfg.AdminChatIDs = append(cfg.AdminChatIDs, id)
		}
	}

	timeoutSec := 120
	if raw := strings.TrimSpace(os.Getenv("PRICEOPS_CALL_TIMEOUT_SECONDS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("PRICEOPS_CALL_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
		}
		timeoutSec = v
	}
	cfg.CallTimeout = time.Duration(timeoutSec) * time.Second

	return cfg, nil
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
