package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP API bind address (e.g., ":8000")
//	-g string   gRPC health bind address
//	-m string   metrics bind address
//	-d string   PostgreSQL DSN
//	-r string   Redis address (empty disables challenge bookkeeping)
//	-s string   session token HMAC secret
//	-t int      session validity, minutes
//	-e string   E-IMZO server URL
//	-f string   E-IMZO frontend URL
//	-l string   log level
//
// os.Args is filtered through flagx.FilterArgs first so that -c/-config and
// test runner flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-m", "-d", "-r", "-s", "-t", "-e", "-f", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC health service")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port of the metrics server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.EimzoServerURL, "e", config.EimzoServerURL, "E-IMZO server URL")
	fs.StringVar(&config.EimzoFrontendURL, "f", config.EimzoFrontendURL, "E-IMZO frontend URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t only overrides earlier layers when given
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
		}
	})
}
