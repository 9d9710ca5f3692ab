package config

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultJWTAccessTTL          = "25m"
	defaultRefreshTTL            = "168h"
	defaultRememberMeDays        = "30"
	defaultMaxRotationCount      = "100"
	defaultRateLimitWindow       = "60s"
	defaultMaxRotationsPerWindow = "5"
	defaultCleanupInterval       = "2m"
	defaultMonitorInterval       = "15m"
	defaultIncidentWindow        = "24h"
	defaultCookieSecure          = "false"
	defaultCookieSameSite        = "Strict"
	defaultCookiePath            = "/"
	defaultJWTSecret             = "change-me-jwt-secret"
)

type AuthRuntimeConfig struct {
	AppEnv    string
	JWTSecret string

	JWTAccessTTL   time.Duration
	RefreshTTL     time.Duration
	RememberMeDays int

	MaxRotationCount      int
	RateLimitWindow       time.Duration
	MaxRotationsPerWindow int

	CleanupInterval time.Duration
	MonitorInterval time.Duration
	IncidentWindow  time.Duration

	CookieSecure   bool
	CookieSameSite string
	CookiePath     string
}

func (c *AuthRuntimeConfig) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeDays) * 24 * time.Hour
}

func (c *AuthRuntimeConfig) SameSite() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.CookieSameSite)) {
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteStrictMode
	}
}

func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTTL, err = parseDurationEnv("REFRESH_TTL", defaultRefreshTTL)
	if err != nil {
		return nil, err
	}
	cfg.RememberMeDays, err = parseIntEnv("REMEMBER_ME_TTL_DAYS", defaultRememberMeDays)
	if err != nil {
		return nil, err
	}

	cfg.MaxRotationCount, err = parseIntEnv("MAX_ROTATION_COUNT", defaultMaxRotationCount)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitWindow, err = parseDurationEnv("ROTATION_RATE_WINDOW", defaultRateLimitWindow)
	if err != nil {
		return nil, err
	}
	cfg.MaxRotationsPerWindow, err = parseIntEnv("MAX_ROTATIONS_PER_WINDOW", defaultMaxRotationsPerWindow)
	if err != nil {
		return nil, err
	}

	cfg.CleanupInterval, err = parseDurationEnv("TOKEN_CLEANUP_INTERVAL", defaultCleanupInterval)
	if err != nil {
		return nil, err
	}
	cfg.MonitorInterval, err = parseDurationEnv("SECURITY_MONITOR_INTERVAL", defaultMonitorInterval)
	if err != nil {
		return nil, err
	}
	cfg.IncidentWindow, err = parseDurationEnv("SECURITY_INCIDENT_WINDOW", defaultIncidentWindow)
	if err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(getEnv("COOKIE_PATH", defaultCookiePath))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("auth runtime config: access_ttl=%s refresh_ttl=%s remember_me_days=%d max_rotations=%d",
		cfg.JWTAccessTTL, cfg.RefreshTTL, cfg.RememberMeDays, cfg.MaxRotationCount)

	return cfg, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if cfg.RememberMeDays <= 0 {
		return fmt.Errorf("REMEMBER_ME_TTL_DAYS must be > 0")
	}
	if cfg.MaxRotationCount <= 0 {
		return fmt.Errorf("MAX_ROTATION_COUNT must be > 0")
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("ROTATION_RATE_WINDOW must be > 0")
	}
	if cfg.MaxRotationsPerWindow <= 0 {
		return fmt.Errorf("MAX_ROTATIONS_PER_WINDOW must be > 0")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	sameSite := strings.ToLower(strings.TrimSpace(cfg.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
