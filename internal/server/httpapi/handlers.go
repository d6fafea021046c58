package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/eimzo"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	msgLoggedIn      = "Tizimga muvaffaqiyatli kirdingiz"
	msgLoggedOut     = "Tizimdan muvaffaqiyatli chiqdingiz"
	msgAuthRequired  = "Autentifikatsiya talab qilinadi"
	msgPKCS7Required = "pkcs7 maydoni talab qilinadi"
	msgDocRequired   = "document maydoni talab qilinadi"
	msgBadRequest    = "So'rov formati noto'g'ri"
	msgConflict      = "Foydalanuvchi allaqachon mavjud"
	msgInternal      = "Ichki server xatosi"
)

// Authenticator resolves session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.SessionInfo, error)
}

// AuthAPI is the login flow behind the /eimzo routes.
type AuthAPI interface {
	Authenticator
	IssueChallenge(ctx context.Context) (*eimzo.Challenge, error)
	Login(ctx context.Context, pkcs7 string, ip string, remember bool) (*services.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, userID string) (*models.User, error)
}

// CertificateLookup returns the stored certificate summary for a user.
type CertificateLookup interface {
	CertificateInfo(ctx context.Context, userID string) (*services.CertificateSummary, error)
}

// Signatures exposes the E-IMZO timestamp and verification calls.
type Signatures interface {
	AddTimestamp(ctx context.Context, pkcs7 string, sourceAddress string) (*eimzo.Result, error)
	VerifyAttached(ctx context.Context, pkcs7 string, sourceAddress string) (*eimzo.Result, error)
	VerifyDetached(ctx context.Context, document string, pkcs7 string, sourceAddress string) (*eimzo.Result, error)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler serves the E-IMZO endpoints.
type Handler struct {
	auth         AuthAPI
	certificates CertificateLookup
	signatures   Signatures
	cookie       CookieConfig
	logger       logging.Logger
	now          func() time.Time
}

func NewHandler(a AuthAPI, certs CertificateLookup, sigs Signatures, cookie CookieConfig, logger logging.Logger) *Handler {
	return &Handler{
		auth:         a,
		certificates: certs,
		signatures:   sigs,
		cookie:       cookie,
		logger:       logger,
		now:          time.Now,
	}
}

// RegisterRoutes mounts the /eimzo group on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/eimzo")
	{
		g.GET("/challenge", h.Challenge)
		g.POST("/login", h.Login)
	}

	authed := g.Group("", requireSession(h.auth, h.cookie.Name))
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.GET("/certificate", h.Certificate)
		authed.POST("/timestamp", h.Timestamp)
		authed.POST("/verify/attached", h.VerifyAttached)
		authed.POST("/verify/detached", h.VerifyDetached)
	}
}

// Challenge handles GET /eimzo/challenge
func (h *Handler) Challenge(c *gin.Context) {
	ctx := c.Request.Context()

	ch, err := h.auth.IssueChallenge(ctx)
	if err != nil {
		h.logger.Error(ctx, "Challenge generation failed", "error", err)

		status := http.StatusInternalServerError
		message := msgInternal
		if e, ok := eimzo.AsError(err); ok {
			message = e.Message
			if e.Kind == eimzo.KindUpstream && e.Status >= http.StatusInternalServerError {
				status = e.Status
			}
		}
		respondError(c, status, message)
		return
	}

	respondOK(c, http.StatusOK, challengeData{Challenge: ch.Challenge, TTL: ch.TTLSeconds()})
}

// Login handles POST /eimzo/login
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if !bindPKCS7(c, &req, &req.PKCS7) {
		return
	}

	remember := true
	if req.Remember != nil {
		remember = *req.Remember
	}

	res, err := h.auth.Login(ctx, req.PKCS7, c.ClientIP(), remember)
	if err != nil {
		status, message := loginErrorResponse(err)
		respondError(c, status, message)
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)

	data := loginData{
		Message:     msgLoggedIn,
		User:        toLoginUser(res.User),
		Certificate: res.Certificate,
	}
	// the token is only exposed to clients that send it as a bearer header
	if req.Bearer {
		data.Token = res.Token
		data.ExpiresAt = &res.ExpiresAt
	}

	respondOK(c, http.StatusOK, data)
}

// bindPKCS7 binds the request body into req and requires a non-empty pkcs7.
// It writes the 400 response itself and reports whether to continue.
func bindPKCS7(c *gin.Context, req any, pkcs7 *string) bool {
	if err := c.ShouldBind(req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest)
		return false
	}
	if *pkcs7 == "" {
		respondError(c, http.StatusBadRequest, msgPKCS7Required)
		return false
	}
	return true
}

func loginErrorResponse(err error) (int, string) {
	if e, ok := eimzo.AsError(err); ok {
		return http.StatusUnauthorized, e.Message
	}
	var me *services.MessageError
	if errors.As(err, &me) {
		return http.StatusUnauthorized, me.Message
	}
	if errors.Is(err, common.ErrorConflict) {
		return http.StatusConflict, msgConflict
	}
	return http.StatusInternalServerError, msgInternal
}

// Logout handles POST /eimzo/logout
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	session, _ := SessionFromContext(ctx)

	if err := h.auth.Logout(ctx, session.SessionID); err != nil {
		h.logger.Error(ctx, "logout failed", "error", err, "user_id", session.UserID)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}

	h.clearSessionCookie(c)
	respondOK(c, http.StatusOK, gin.H{"message": msgLoggedOut})
}

// Me handles GET /eimzo/me
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	session, _ := SessionFromContext(ctx)

	user, err := h.auth.Me(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			respondError(c, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		h.logger.Error(ctx, "loading user failed", "error", err, "user_id", session.UserID)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": toMeUser(user)})
}

// Certificate handles GET /eimzo/certificate
func (h *Handler) Certificate(c *gin.Context) {
	ctx := c.Request.Context()
	session, _ := SessionFromContext(ctx)

	info, err := h.certificates.CertificateInfo(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			respondError(c, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		h.logger.Error(ctx, "loading certificate failed", "error", err, "user_id", session.UserID)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"certificate": info})
}

// Timestamp handles POST /eimzo/timestamp
func (h *Handler) Timestamp(c *gin.Context) {
	var req signatureRequest
	if !bindPKCS7(c, &req, &req.PKCS7) {
		return
	}

	res, err := h.signatures.AddTimestamp(c.Request.Context(), req.PKCS7, c.ClientIP())
	h.relay(c, res, err)
}

// VerifyAttached handles POST /eimzo/verify/attached
func (h *Handler) VerifyAttached(c *gin.Context) {
	var req signatureRequest
	if !bindPKCS7(c, &req, &req.PKCS7) {
		return
	}

	res, err := h.signatures.VerifyAttached(c.Request.Context(), req.PKCS7, c.ClientIP())
	h.relay(c, res, err)
}

// VerifyDetached handles POST /eimzo/verify/detached
func (h *Handler) VerifyDetached(c *gin.Context) {
	var req detachedRequest
	if !bindPKCS7(c, &req, &req.PKCS7) {
		return
	}
	if req.Document == "" {
		respondError(c, http.StatusBadRequest, msgDocRequired)
		return
	}

	res, err := h.signatures.VerifyDetached(c.Request.Context(), req.Document, req.PKCS7, c.ClientIP())
	h.relay(c, res, err)
}

// relay writes an upstream verification result. Rejections are 400,
// transport and protocol failures 502.
func (h *Handler) relay(c *gin.Context, res *eimzo.Result, err error) {
	if err == nil {
		respondOK(c, http.StatusOK, res)
		return
	}

	e, ok := eimzo.AsError(err)
	if !ok {
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	if e.Kind == eimzo.KindVerification {
		h.logger.Warn(c.Request.Context(), "signature rejected", "endpoint", string(e.Endpoint), "status", e.Status, "ip", c.ClientIP())
		respondError(c, http.StatusBadRequest, e.Message)
		return
	}
	respondError(c, http.StatusBadGateway, e.Message)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
