package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/eimzo-auth/internal/flagx"
	"github.com/dmitrijs2005/eimzo-auth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept Go
// duration strings ("30s") or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP                string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC                string         `json:"endpoint_addr_grpc"`
	MetricsAddr                     string         `json:"metrics_addr"`
	DatabaseDSN                     string         `json:"database_dsn"`
	RedisAddr                       string         `json:"redis_addr"`
	RedisPassword                   string         `json:"redis_password"`
	RedisDB                         int            `json:"redis_db"`
	SecretKey                       string         `json:"secret_key"`
	SessionValidityDuration         timex.Duration `json:"session_validity_duration"`
	RememberSessionValidityDuration timex.Duration `json:"remember_session_validity_duration"`
	CookieSecure                    bool           `json:"cookie_secure"`
	LogLevel                        string         `json:"log_level"`
	AppEnv                          string         `json:"app_env"`
	EimzoServerURL                  string         `json:"eimzo_server_url"`
	EimzoFrontendURL                string         `json:"eimzo_frontend_url"`
	EimzoTimeout                    timex.Duration `json:"eimzo_timeout"`
	EimzoMobileEnabled              bool           `json:"eimzo_mobile_enabled"`
	EimzoMobileSiteID               string         `json:"eimzo_mobile_site_id"`
	TrustedProxies                  []string       `json:"trusted_proxies"`
}

// parseJson loads the file named by -c/-config (if any) over config.
// Keys that are absent or zero in the file leave config untouched.
// An unreadable or invalid file panics: a half-applied config is worse than
// not starting.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, &c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, &c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, &c.MetricsAddr)
	setString(&config.DatabaseDSN, &c.DatabaseDSN)
	setString(&config.RedisAddr, &c.RedisAddr)
	setString(&config.RedisPassword, &c.RedisPassword)
	setString(&config.SecretKey, &c.SecretKey)
	setString(&config.LogLevel, &c.LogLevel)
	setString(&config.AppEnv, &c.AppEnv)
	setString(&config.EimzoServerURL, &c.EimzoServerURL)
	setString(&config.EimzoFrontendURL, &c.EimzoFrontendURL)
	setString(&config.EimzoMobileSiteID, &c.EimzoMobileSiteID)

	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.RememberSessionValidityDuration.Duration != 0 {
		config.RememberSessionValidityDuration = c.RememberSessionValidityDuration.Duration
	}
	if c.EimzoTimeout.Duration != 0 {
		config.EimzoTimeout = c.EimzoTimeout.Duration
	}
	if c.CookieSecure {
		config.CookieSecure = true
	}
	if c.EimzoMobileEnabled {
		config.EimzoMobileEnabled = true
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}
