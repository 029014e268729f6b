// Package config loads runtime settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config keeps runtime settings for the reminder service.
type Config struct {
	Timezone string         `koanf:"timezone"`
	Storage  StorageConfig  `koanf:"storage"`
	Telegram TelegramConfig `koanf:"telegram"`
	Notify   NotifyConfig   `koanf:"notify"`
	Twilio   TwilioConfig   `koanf:"twilio"`

	// Location is resolved from Timezone at load time.
	Location *time.Location `koanf:"-"`
}

type StorageConfig struct {
	Mode string `koanf:"mode"` // auto, durable or ephemeral
	DSN  string `koanf:"dsn"`  // sqlite path or postgres DSN
}

type TelegramConfig struct {
	Token  string `koanf:"token"`
	ChatID int64  `koanf:"chat_id"`
}

type NotifyConfig struct {
	// DefaultTime is the wall-clock time applied when the user skips the
	// time step of a reminder.
	DefaultTime string `koanf:"default_time"`
	Digest      bool   `koanf:"digest"`
	DigestTime  string `koanf:"digest_time"`
}

type TwilioConfig struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`
	From       string `koanf:"from"`
	To         string `koanf:"to"`
}

// Enabled reports whether the Twilio sink is configured at all.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != "" && t.To != ""
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"timezone":            "Local",
		"storage.mode":        "auto",
		"storage.dsn":         "payremind.db",
		"notify.default_time": "13:45",
		"notify.digest":       false,
		"notify.digest_time":  "08:00",
	}
}

// Load reads configuration. configPath may be empty; a missing file is fine.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	// PAYREMIND_STORAGE_DSN → storage.dsn etc.; only the first underscore
	// separates section from key, so chat_id style keys survive.
	if err := k.Load(env.Provider("PAYREMIND_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAYREMIND_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	loadEnvOverrides(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("config: invalid timezone %q, defaulting to system local: %v", cfg.Timezone, err)
		location = time.Local
	}
	cfg.Location = location

	return &cfg, nil
}

// loadEnvOverrides maps the unprefixed, well-known environment variables
// (DATABASE_URL, TELEGRAM_TOKEN, ...) onto config keys.
func loadEnvOverrides(k *koanf.Koanf) {
	setString := func(env, key string) {
		if v := os.Getenv(env); v != "" {
			k.Set(key, v)
		}
	}

	setString("TIMEZONE", "timezone")
	setString("STORAGE_MODE", "storage.mode")
	setString("DATABASE_URL", "storage.dsn")
	setString("TELEGRAM_TOKEN", "telegram.token")
	setString("NOTIFY_DEFAULT_TIME", "notify.default_time")
	setString("NOTIFY_DIGEST_TIME", "notify.digest_time")
	setString("TWILIO_ACCOUNT_SID", "twilio.account_sid")
	setString("TWILIO_AUTH_TOKEN", "twilio.auth_token")
	setString("TWILIO_FROM", "twilio.from")
	setString("TWILIO_TO", "twilio.to")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			k.Set("telegram.chat_id", id)
		} else {
			log.Printf("config: unable to parse TELEGRAM_CHAT_ID=%q: %v", v, err)
		}
	}
	if v := os.Getenv("NOTIFY_DIGEST"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			k.Set("notify.digest", enabled)
		} else {
			log.Printf("config: unable to parse NOTIFY_DIGEST=%q: %v", v, err)
		}
	}
}
