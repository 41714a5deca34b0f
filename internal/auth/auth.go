// Package auth drives the short-code OAuth flow for the interactive service:
// short code, exchange code, token, refresh, and token verification.
//
// The controller is single-threaded: every method must be called on the
// consumer tick, and every HTTP callback is marshaled back onto it through
// the injected runner.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/interactive-go/internal/config"
	"github.com/streamspace-dev/interactive-go/internal/errs"
	"github.com/streamspace-dev/interactive-go/internal/rest"
	"github.com/streamspace-dev/interactive-go/internal/timers"
	"github.com/streamspace-dev/interactive-go/internal/tokenstore"
)

// State is the auth controller lifecycle phase.
type State int

const (
	StateNoCredentials State = iota
	StateShortCodeOutstanding
	StateExchanging
	StateHaveTokens
	StateVerifying
	StateRefreshing
	StateFailed
)

// String returns the log-friendly name of the state.
func (s State) String() string {
	switch s {
	case StateNoCredentials:
		return "no_credentials"
	case StateShortCodeOutstanding:
		return "short_code_outstanding"
	case StateExchanging:
		return "exchanging"
	case StateHaveTokens:
		return "have_tokens"
	case StateVerifying:
		return "verifying"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	defaultPollInterval = 500 * time.Millisecond

	// Retry period when the short-code endpoint itself is unreachable.
	shortCodeRetryInterval = 5 * time.Second
)

// Config holds the auth controller settings.
type Config struct {
	// APIBase is the REST base URL, e.g. config.DefaultAPIBase.
	APIBase string

	// ClientID is the OAuth client id (the application id).
	ClientID string

	// ProjectVersionID is sent in the verify request headers.
	ProjectVersionID string

	// PollInterval is the short-code poll period. Default 500 ms.
	PollInterval time.Duration
}

// Callbacks surface auth progress to the owner. All callbacks run on the
// consumer tick.
type Callbacks struct {
	// OnShortCode fires when a short code must be shown to the broadcaster.
	OnShortCode func(code string, expiresIn int)

	// OnTokens fires when a fresh exchange produced tokens; the connection
	// may open without a verify round-trip.
	OnTokens func(auth string)

	// OnVerified fires when a cached or refreshed token passed verification.
	OnVerified func(auth string)

	// OnError reports recoverable failures.
	OnError func(kind errs.Kind, message string)

	// OnFatal reports unrecoverable verify outcomes; the controller stops.
	OnFatal func(message string)
}

// Controller is the short-code OAuth state machine.
type Controller struct {
	cfg    Config
	http   rest.Client
	store  tokenstore.Store
	timers *timers.Service
	run    func(func())
	cb     Callbacks
	log    zerolog.Logger

	state     State
	auth      string // "Bearer <access_token>"
	refresh   string
	shortCode string
	handle    string

	verifyURL      string
	verifyInFlight bool
	pollInFlight   bool
}

// New creates an auth controller. run marshals work onto the consumer tick.
func New(cfg Config, httpClient rest.Client, store tokenstore.Store, ts *timers.Service, run func(func()), cb Callbacks, log zerolog.Logger) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Controller{
		cfg:    cfg,
		http:   httpClient,
		store:  store,
		timers: ts,
		run:    run,
		cb:     cb,
		log:    log,
		state:  StateNoCredentials,
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State { return c.state }

// Auth returns the Authorization header value, or "" before tokens exist.
func (c *Controller) Auth() string { return c.auth }

// ShortCode returns the code the broadcaster must enter, or "".
func (c *Controller) ShortCode() string { return c.shortCode }

// Bootstrap starts the flow: verify cached tokens if the store has any,
// otherwise request a short code.
func (c *Controller) Bootstrap() {
	if t, ok := c.store.Load(c.cfg.ClientID, c.cfg.ProjectVersionID); ok && t.Auth != "" {
		c.log.Info().Msg("Found cached tokens, verifying")
		c.auth = t.Auth
		c.refresh = t.Refresh
		c.setState(StateVerifying)
		c.maybeVerify()
		return
	}
	c.requestShortCode()
}

// SetVerifyURL provides the websocket URL from discovery. Verification that
// was waiting on it runs immediately.
func (c *Controller) SetVerifyURL(wsURL string) {
	c.verifyURL = verifyEndpoint(wsURL)
	c.maybeVerify()
}

// VerifyToken re-checks the current tokens, e.g. after a connection outage.
// Credentials may have expired while the socket was down.
func (c *Controller) VerifyToken() {
	if c.auth == "" {
		c.log.Debug().Msg("VerifyToken without tokens, restarting short-code flow")
		c.requestShortCode()
		return
	}
	c.setState(StateVerifying)
	c.maybeVerify()
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("Auth state changed")
	c.state = s
}

// --- short code ---

type shortCodeRequest struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

type shortCodeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"`
	Handle    string `json:"handle"`
}

func (c *Controller) requestShortCode() {
	c.setState(StateNoCredentials)

	body, _ := json.Marshal(shortCodeRequest{
		ClientID: c.cfg.ClientID,
		Scope:    config.OAuthScope,
	})

	c.post("/oauth/shortcode", body, func(resp rest.Response) {
		if resp.Err != nil || resp.Status < 200 || resp.Status >= 300 {
			c.reportHTTPFailure("short code request", resp)
			// Try again shortly; nothing else can make progress without one.
			c.timers.Start(timers.RefreshShortCode, shortCodeRetryInterval, c.requestShortCode)
			return
		}

		var sc shortCodeResponse
		if err := json.Unmarshal(resp.Body, &sc); err != nil {
			c.reportError(errs.KindAuthFailure, fmt.Sprintf("malformed short code response: %v", err))
			c.timers.Start(timers.RefreshShortCode, shortCodeRetryInterval, c.requestShortCode)
			return
		}

		c.shortCode = sc.Code
		c.handle = sc.Handle
		c.setState(StateShortCodeOutstanding)

		c.log.Info().Str("code", sc.Code).Int("expiresIn", sc.ExpiresIn).Msg("Short code issued")
		if c.cb.OnShortCode != nil {
			c.cb.OnShortCode(sc.Code, sc.ExpiresIn)
		}

		c.timers.Start(timers.RefreshShortCode, time.Duration(sc.ExpiresIn)*time.Second, c.requestShortCode)
		c.timers.Start(timers.CheckAuthStatus, c.cfg.PollInterval, c.checkAuthStatus)
	})
}

type checkResponse struct {
	Code string `json:"code"`
}

// checkAuthStatus is the check_auth_status timer callback.
func (c *Controller) checkAuthStatus() {
	if c.state != StateShortCodeOutstanding || c.pollInFlight {
		return
	}
	c.pollInFlight = true

	c.get("/oauth/shortcode/check/"+c.handle, nil, func(resp rest.Response) {
		c.pollInFlight = false

		if resp.Err != nil {
			c.log.Warn().Err(resp.Err).Msg("Short code poll failed")
			return
		}

		switch resp.Status {
		case http.StatusOK:
			var check checkResponse
			if err := json.Unmarshal(resp.Body, &check); err != nil {
				c.reportError(errs.KindAuthFailure, fmt.Sprintf("malformed short code check response: %v", err))
				return
			}
			c.timers.Stop(timers.CheckAuthStatus)
			c.timers.Stop(timers.RefreshShortCode)
			c.setState(StateExchanging)
			c.exchange(check.Code)

		case http.StatusNoContent, http.StatusNotFound:
			// Broadcaster has not entered the code yet

		default:
			c.log.Warn().Int("status", resp.Status).Msg("Unexpected short code poll status")
		}
	})
}

// --- token exchange & refresh ---

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	GrantType    string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *Controller) exchange(code string) {
	body, _ := json.Marshal(tokenRequest{
		ClientID:  c.cfg.ClientID,
		Code:      code,
		GrantType: "authorization_code",
	})

	c.post("/oauth/token", body, func(resp rest.Response) {
		tokens, ok := c.parseTokenResponse("exchange", resp)
		if !ok {
			c.requestShortCode()
			return
		}

		c.adoptTokens(tokens)
		c.setState(StateHaveTokens)
		if c.cb.OnTokens != nil {
			c.cb.OnTokens(c.auth)
		}
	})
}

func (c *Controller) refreshTokens() {
	if c.refresh == "" {
		c.log.Info().Msg("No refresh token, restarting short-code flow")
		c.clearTokens()
		c.requestShortCode()
		return
	}

	c.setState(StateRefreshing)

	body, _ := json.Marshal(tokenRequest{
		ClientID:     c.cfg.ClientID,
		RefreshToken: c.refresh,
		GrantType:    "refresh_token",
	})

	c.post("/oauth/token", body, func(resp rest.Response) {
		tokens, ok := c.parseTokenResponse("refresh", resp)
		if !ok {
			c.clearTokens()
			c.requestShortCode()
			return
		}

		c.adoptTokens(tokens)
		c.setState(StateVerifying)
		c.maybeVerify()
	})
}

func (c *Controller) parseTokenResponse(op string, resp rest.Response) (tokenResponse, bool) {
	if resp.Err != nil || resp.Status < 200 || resp.Status >= 300 {
		c.reportHTTPFailure("token "+op, resp)
		return tokenResponse{}, false
	}

	var tokens tokenResponse
	if err := json.Unmarshal(resp.Body, &tokens); err != nil || tokens.AccessToken == "" {
		c.reportError(errs.KindAuthFailure, fmt.Sprintf("malformed token %s response", op))
		return tokenResponse{}, false
	}
	return tokens, true
}

func (c *Controller) adoptTokens(tokens tokenResponse) {
	c.auth = "Bearer " + tokens.AccessToken
	c.refresh = tokens.RefreshToken
	c.shortCode = ""
	c.store.Save(c.cfg.ClientID, c.cfg.ProjectVersionID, tokenstore.Tokens{
		Auth:    c.auth,
		Refresh: c.refresh,
	})
	c.log.Info().Msg("Tokens acquired and persisted")
}

func (c *Controller) clearTokens() {
	c.auth = ""
	c.refresh = ""
}

// --- verification ---

func (c *Controller) maybeVerify() {
	if c.state != StateVerifying || c.verifyURL == "" || c.verifyInFlight {
		return
	}

	// An access token that is already past its exp claim cannot pass the
	// verify round-trip; go straight to refresh.
	if tokenExpired(c.auth) {
		c.log.Info().Msg("Access token expired locally, refreshing")
		c.refreshTokens()
		return
	}

	c.verifyInFlight = true
	headers := map[string]string{
		"Authorization":         c.auth,
		"X-Interactive-Version": c.cfg.ProjectVersionID,
		"X-Protocol-Version":    config.ProtocolVersion,
	}

	req := rest.Request{
		ID:      rest.NewID(),
		Method:  http.MethodGet,
		URL:     c.verifyURL,
		Headers: headers,
	}
	c.http.Do(req, func(resp rest.Response) {
		c.run(func() { c.handleVerify(resp) })
	})
}

func (c *Controller) handleVerify(resp rest.Response) {
	c.verifyInFlight = false

	if resp.Err != nil {
		// The service may just be unreachable. No retry is scheduled here;
		// while the reconnect timer is armed, its next tick verifies again.
		c.reportError(errs.KindAuthFailure, fmt.Sprintf("token verify failed: %v", resp.Err))
		return
	}

	switch resp.Status {
	case http.StatusOK, http.StatusBadRequest:
		// 400 arises from the HTTP upgrade attempt against the socket
		// endpoint; the token itself was accepted.
		c.setState(StateHaveTokens)
		c.log.Info().Msg("Token verified")
		if c.cb.OnVerified != nil {
			c.cb.OnVerified(c.auth)
		}

	case http.StatusUnauthorized:
		c.reportError(errs.KindTokenInvalid, "token rejected, refreshing")
		c.refreshTokens()

	default:
		msg := fmt.Sprintf("token verify returned unexpected status %d", resp.Status)
		c.log.Error().Int("status", resp.Status).Msg("Token verify failed fatally")
		c.setState(StateFailed)
		if c.cb.OnFatal != nil {
			c.cb.OnFatal(msg)
		}
	}
}

// tokenExpired peeks at the access token's exp claim without validating the
// signature. Opaque (non-JWT) tokens are never considered expired here.
func tokenExpired(auth string) bool {
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// verifyEndpoint converts the websocket URL to its HTTPS equivalent.
func verifyEndpoint(wsURL string) string {
	if strings.HasPrefix(wsURL, "wss") {
		return "https" + wsURL[3:]
	}
	if strings.HasPrefix(wsURL, "ws") {
		return "http" + wsURL[2:]
	}
	return wsURL
}

// --- plumbing ---

func (c *Controller) post(path string, body []byte, handle func(rest.Response)) {
	req := rest.Request{
		ID:     rest.NewID(),
		Method: http.MethodPost,
		URL:    c.cfg.APIBase + path,
		Body:   body,
	}
	c.http.Do(req, func(resp rest.Response) {
		c.run(func() { handle(resp) })
	})
}

func (c *Controller) get(path string, headers map[string]string, handle func(rest.Response)) {
	req := rest.Request{
		ID:      rest.NewID(),
		Method:  http.MethodGet,
		URL:     c.cfg.APIBase + path,
		Headers: headers,
	}
	c.http.Do(req, func(resp rest.Response) {
		c.run(func() { handle(resp) })
	})
}

func (c *Controller) reportHTTPFailure(op string, resp rest.Response) {
	if resp.Err != nil {
		c.reportError(errs.KindAuthFailure, fmt.Sprintf("%s failed: %v", op, resp.Err))
		return
	}
	c.reportError(errs.KindAuthFailure, fmt.Sprintf("%s failed with status %d", op, resp.Status))
}

func (c *Controller) reportError(kind errs.Kind, msg string) {
	c.log.Warn().Str("kind", kind.String()).Msg(msg)
	if c.cb.OnError != nil {
		c.cb.OnError(kind, msg)
	}
}
