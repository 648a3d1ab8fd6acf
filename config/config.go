package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	TelegramToken        string
	OwnerTelegramID      int64
	DatabasePath         string
	Timezone             *time.Location
	DigestTime           string
	NotificationsEnabled bool
}

func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	ownerID, err := strconv.ParseInt(os.Getenv("OWNER_TELEGRAM_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is required and must be a number")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/eventbot.db"
	}

	tz := time.Local
	if tzName := os.Getenv("TIMEZONE"); tzName != "" {
		tz, err = time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
	}

	digestTime := os.Getenv("DIGEST_TIME")
	if digestTime == "" {
		digestTime = "08:00"
	}

	notificationsEnabled := true
	if v := os.Getenv("NOTIFICATIONS_ENABLED"); v != "" {
		notificationsEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFICATIONS_ENABLED: %w", err)
		}
	}

	return &Config{
		TelegramToken:        token,
		OwnerTelegramID:      ownerID,
		DatabasePath:         dbPath,
		Timezone:             tz,
		DigestTime:           digestTime,
		NotificationsEnabled: notificationsEnabled,
	}, nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID
}
