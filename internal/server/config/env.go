package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig lists the environment variables understood by the server. Only
// variables that are set override earlier layers. EIMZO_TIMEOUT is in seconds,
// TRUSTED_PROXIES is comma-separated.
type envConfig struct {
	EndpointAddrHTTP   *string  `envconfig:"HTTP_ADDR"`
	EndpointAddrGRPC   *string  `envconfig:"GRPC_ADDR"`
	MetricsAddr        *string  `envconfig:"METRICS_ADDR"`
	DatabaseDSN        *string  `envconfig:"DATABASE_DSN"`
	RedisAddr          *string  `envconfig:"REDIS_ADDR"`
	RedisPassword      *string  `envconfig:"REDIS_PASSWORD"`
	RedisDB            *int     `envconfig:"REDIS_DB"`
	SecretKey          *string  `envconfig:"SECRET_KEY"`
	CookieSecure       *bool    `envconfig:"COOKIE_SECURE"`
	LogLevel           *string  `envconfig:"LOG_LEVEL"`
	AppEnv             *string  `envconfig:"APP_ENV"`
	EimzoServerURL     *string  `envconfig:"EIMZO_SERVER_URL"`
	EimzoFrontendURL   *string  `envconfig:"EIMZO_FRONTEND_URL"`
	EimzoTimeout       *int     `envconfig:"EIMZO_TIMEOUT"`
	EimzoMobileEnabled *bool    `envconfig:"EIMZO_MOBILE_ENABLED"`
	EimzoMobileSiteID  *string  `envconfig:"EIMZO_MOBILE_SITE_ID"`
	TrustedProxies     []string `envconfig:"TRUSTED_PROXIES"`
}

// parseEnv overlays environment variables on config. A malformed value
// panics, matching parseJson.
func parseEnv(config *Config) {
	var e envConfig
	if err := envconfig.Process("", &e); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	setString(&config.MetricsAddr, e.MetricsAddr)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.RedisPassword, e.RedisPassword)
	setString(&config.SecretKey, e.SecretKey)
	setString(&config.LogLevel, e.LogLevel)
	setString(&config.AppEnv, e.AppEnv)
	setString(&config.EimzoServerURL, e.EimzoServerURL)
	setString(&config.EimzoFrontendURL, e.EimzoFrontendURL)
	setString(&config.EimzoMobileSiteID, e.EimzoMobileSiteID)

	// REDIS_ADDR set to "" disables challenge bookkeeping
	if e.RedisAddr != nil {
		config.RedisAddr = *e.RedisAddr
	}
	if e.RedisDB != nil {
		config.RedisDB = *e.RedisDB
	}
	if e.CookieSecure != nil {
		config.CookieSecure = *e.CookieSecure
	}
	if e.EimzoTimeout != nil {
		config.EimzoTimeout = time.Duration(*e.EimzoTimeout) * time.Second
	}
	if e.EimzoMobileEnabled != nil {
		config.EimzoMobileEnabled = *e.EimzoMobileEnabled
	}
	if len(e.TrustedProxies) > 0 {
		config.TrustedProxies = e.TrustedProxies
	}
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}
