// Package config reads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

const (
	SourceHTML = "html"
	SourceCSV  = "csv"
)

type Config struct {
	Addr              string
	Source            string
	BaseURL           string
	ChannelKeys       []string
	CSVURL            string
	Location          *time.Location
	RefreshInterval   time.Duration
	PushInterval      time.Duration
	BootstrapAttempts int
	FetchTimeout      time.Duration
	Parallelism       int
	LogLevel          string

	// webhook notifier
	PGConn         string
	Monitor        bool
	NotifyInterval time.Duration
	WebhookTimeout time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Addr:              getenv("TVFEED_ADDR", ":8080"),
		Source:            strings.ToLower(getenv("TVFEED_SOURCE", SourceHTML)),
		BaseURL:           strings.TrimRight(getenv("TVFEED_BASE_URL", "https://tv-program.sk"), "/"),
		ChannelKeys:       splitList(getenv("TVFEED_CHANNELS", "dajto,prima-sk,markiza-krimi")),
		CSVURL:            getenv("TVFEED_CSV_URL", tvprogram.DefaultCSVURL),
		RefreshInterval:   parseDur(os.Getenv("TVFEED_REFRESH_INTERVAL"), 5*time.Minute),
		PushInterval:      parseDur(os.Getenv("TVFEED_PUSH_INTERVAL"), 5*time.Minute),
		BootstrapAttempts: atoi(os.Getenv("TVFEED_BOOTSTRAP_ATTEMPTS"), 5),
		FetchTimeout:      parseDur(os.Getenv("TVFEED_FETCH_TIMEOUT"), 20*time.Second),
		Parallelism:       atoi(os.Getenv("TVFEED_PARALLELISM"), 4),
		LogLevel:          getenv("TVFEED_LOG_LEVEL", "info"),
		PGConn:            os.ExpandEnv(strings.TrimSpace(os.Getenv("TVFEED_PG_CONN"))),
		Monitor:           parseBool(os.Getenv("TVFEED_MONITOR"), true),
		NotifyInterval:    parseDur(os.Getenv("TVFEED_NOTIFY_INTERVAL"), time.Minute),
		WebhookTimeout:    parseDur(os.Getenv("TVFEED_WEBHOOK_TIMEOUT"), 10*time.Second),
	}

	tz := getenv("TVFEED_TIMEZONE", "Europe/Bratislava")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TVFEED_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if cfg.Source != SourceHTML && cfg.Source != SourceCSV {
		return Config{}, fmt.Errorf("invalid TVFEED_SOURCE %q: want %s or %s", cfg.Source, SourceHTML, SourceCSV)
	}
	if len(cfg.ChannelKeys) == 0 {
		return Config{}, fmt.Errorf("TVFEED_CHANNELS is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return Config{}, fmt.Errorf("invalid TVFEED_BASE_URL: %w", err)
	}
	return cfg, nil
}

// Channels builds the schedule page URL of every configured channel.
func (c Config) Channels() []tvprogram.Channel {
	channels := make([]tvprogram.Channel, 0, len(c.ChannelKeys))
	for _, key := range c.ChannelKeys {
		channels = append(channels, tvprogram.Channel{Key: key, URL: c.BaseURL + "/" + key + "/"})
	}
	return channels
}

// AllowedDomains restricts the scraper to the schedule site.
func (c Config) AllowedDomains() []string {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{u.Hostname()}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	x, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || x <= 0 {
		return def
	}
	return x
}

func parseDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
