// Package eimzo is the client for the E-IMZO signature verification server.
//
// The server does all cryptographic work: it issues challenges, verifies
// PKCS7 signatures and certificate chains and adds timestamps. This package
// only moves bytes, decodes the JSON envelope and turns non-success statuses
// into *Error values with user-facing messages.
package eimzo

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
)

// Config holds the connection settings for the E-IMZO server.
type Config struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// FrontendURL is the public site URL; its host is sent as the Host header.
	FrontendURL string
	// Timeout bounds every request.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS verification (non-production only).
	InsecureSkipVerify bool
}

// ChallengeRecorder keeps a copy of every issued challenge.
type ChallengeRecorder interface {
	Put(ctx context.Context, challenge string, ttl time.Duration) error
}

// Observer receives one call per outbound request.
type Observer interface {
	ObserveUpstream(endpoint string, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}

// Client talks to the E-IMZO server. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	challenges ChallengeRecorder
	observer   Observer
	logger     logging.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for transport failures.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates cfg and builds a Client. challenges may be nil, in
// which case issued challenges are not recorded.
func NewClient(cfg Config, challenges ChallengeRecorder, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid E-IMZO server url %q", cfg.BaseURL)
	}

	var host string
	if cfg.FrontendURL != "" {
		front, err := url.Parse(cfg.FrontendURL)
		if err != nil {
			return nil, fmt.Errorf("invalid E-IMZO frontend url %q: %w", cfg.FrontendURL, err)
		}
		host = front.Hostname()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for dev servers
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:    strings.TrimRight(base.String(), "/"),
		host:       host,
		challenges: challenges,
		observer:   nopObserver{},
		logger:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
	TTL       int    `json:"ttl"`
}

// IssueChallenge asks the server for a new challenge and records it.
func (c *Client) IssueChallenge(ctx context.Context) (*Challenge, error) {
	env, err := c.call(ctx, EndpointChallenge, nil, "")
	if err != nil {
		c.logger.Error(ctx, "E-IMZO challenge error", "error", err)
		return nil, err
	}

	if env.status != StatusOK {
		msg := env.message
		if msg == "" {
			msg = "Challenge generation failed"
		}
		return nil, &Error{Kind: KindProtocol, Endpoint: EndpointChallenge, Status: env.status, Message: msg}
	}

	var body challengeResponse
	if err := json.Unmarshal(env.raw, &body); err != nil || body.Challenge == "" {
		return nil, &Error{Kind: KindProtocol, Endpoint: EndpointChallenge, Message: "Invalid JSON response from E-IMZO server", Err: err}
	}

	ch := &Challenge{Challenge: body.Challenge, TTL: time.Duration(body.TTL) * time.Second}

	if c.challenges != nil {
		if err := c.challenges.Put(ctx, ch.Challenge, ch.TTL); err != nil {
			c.logger.Error(ctx, "challenge store error", "error", err)
			return nil, &Error{Kind: KindUpstream, Endpoint: EndpointChallenge, Message: "Failed to store challenge", Err: err}
		}
	}

	return ch, nil
}

type authResponse struct {
	SubjectCertificateInfo *CertificateInfo `json:"subjectCertificateInfo"`
}

// VerifyAuth forwards a signed challenge and returns the signer's
// certificate attributes.
func (c *Client) VerifyAuth(ctx context.Context, pkcs7 string, sourceAddress string) (*CertificateInfo, error) {
	env, err := c.call(ctx, EndpointAuth, []byte(pkcs7), sourceAddress)
	if err != nil {
		c.logger.Error(ctx, "E-IMZO auth verification error", "error", err, "ip", sourceAddress)
		return nil, err
	}

	if env.status != StatusOK {
		return nil, &Error{Kind: KindAuth, Endpoint: EndpointAuth, Status: env.status, Message: AuthMessage(env.status)}
	}

	var body authResponse
	if err := json.Unmarshal(env.raw, &body); err != nil || body.SubjectCertificateInfo == nil {
		return nil, &Error{Kind: KindProtocol, Endpoint: EndpointAuth, Message: "Invalid JSON response from E-IMZO server", Err: err}
	}

	return body.SubjectCertificateInfo, nil
}

// AddTimestamp asks the server to attach a timestamp token to pkcs7.
func (c *Client) AddTimestamp(ctx context.Context, pkcs7 string, sourceAddress string) (*Result, error) {
	return c.verify(ctx, EndpointTimestamp, []byte(pkcs7), sourceAddress, func(env *envelope) string {
		if env.message != "" {
			return env.message
		}
		return "Failed to add timestamp"
	})
}

// VerifyAttached verifies a PKCS7 that embeds the signed document.
func (c *Client) VerifyAttached(ctx context.Context, pkcs7 string, sourceAddress string) (*Result, error) {
	return c.verify(ctx, EndpointVerifyAttached, []byte(pkcs7), sourceAddress, func(env *envelope) string {
		return VerificationMessage(env.status)
	})
}

// VerifyDetached verifies a detached PKCS7 against the base64 document.
func (c *Client) VerifyDetached(ctx context.Context, document string, pkcs7 string, sourceAddress string) (*Result, error) {
	body := document + "|" + pkcs7
	return c.verify(ctx, EndpointVerifyDetached, []byte(body), sourceAddress, func(env *envelope) string {
		return VerificationMessage(env.status)
	})
}

func (c *Client) verify(ctx context.Context, ep Endpoint, body []byte, sourceAddress string, message func(*envelope) string) (*Result, error) {
	env, err := c.call(ctx, ep, body, sourceAddress)
	if err != nil {
		c.logger.Error(ctx, "E-IMZO verification error", "endpoint", string(ep), "error", err, "ip", sourceAddress)
		return nil, err
	}

	if env.status != StatusOK {
		return nil, &Error{Kind: KindVerification, Endpoint: ep, Status: env.status, Message: message(env)}
	}

	return &Result{Status: env.status, Message: env.message, Payload: env.fields}, nil
}

// envelope is the part of every response this package understands.
type envelope struct {
	status  int
	message string
	fields  map[string]json.RawMessage
	raw     []byte
}

// call POSTs body to ep and decodes the envelope. It returns KindUpstream on
// transport failures and 5xx, KindProtocol on undecodable bodies.
func (c *Client) call(ctx context.Context, ep Endpoint, body []byte, sourceAddress string) (env *envelope, err error) {
	started := time.Now()
	defer func() {
		c.observer.ObserveUpstream(string(ep), outcome(err), time.Since(started))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+string(ep), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Endpoint: ep, Message: ep.TransportMessage(), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}
	req.Header.Set("Accept", "application/json")
	if sourceAddress != "" {
		req.Header.Set("X-Real-IP", sourceAddress)
	}
	if c.host != "" && ep != EndpointChallenge {
		req.Host = c.host
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Endpoint: ep, Message: ep.TransportMessage(), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, &Error{Kind: KindUpstream, Endpoint: ep, Status: res.StatusCode, Message: "E-IMZO server error"}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Endpoint: ep, Message: ep.TransportMessage(), Err: err}
	}

	return decodeEnvelope(ep, raw)
}

func decodeEnvelope(ep Endpoint, raw []byte) (*envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Kind: KindProtocol, Endpoint: ep, Message: "Invalid JSON response from E-IMZO server", Err: err}
	}

	statusRaw, ok := fields["status"]
	if !ok {
		return nil, &Error{Kind: KindProtocol, Endpoint: ep, Message: "Invalid JSON response from E-IMZO server", Err: fmt.Errorf("status field missing")}
	}

	env := &envelope{fields: fields, raw: raw}
	if err := json.Unmarshal(statusRaw, &env.status); err != nil {
		return nil, &Error{Kind: KindProtocol, Endpoint: ep, Message: "Invalid JSON response from E-IMZO server", Err: fmt.Errorf("status field: %w", err)}
	}
	if msgRaw, ok := fields["message"]; ok {
		_ = json.Unmarshal(msgRaw, &env.message)
	}

	return env, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := AsError(err); ok {
		return e.Kind.String()
	}
	return "error"
}
