// Package httpapi is the JSON HTTP surface of the service, built on gin.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/gin-gonic/gin"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger  logging.Logger
	Metrics HTTPObserver
	// TrustedProxies lists proxies whose forwarding headers are honoured
	// when resolving the client address. Empty means the socket peer.
	TrustedProxies []string
}

// NewRouter builds the gin engine with recovery, logging and metrics
// middleware and mounts h.
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(gin.Recovery())
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	if opts.Metrics != nil {
		r.Use(requestMetrics(opts.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(r)

	return r, nil
}
