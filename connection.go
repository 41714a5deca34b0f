package interactive

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streamspace-dev/interactive-go/internal/config"
	"github.com/streamspace-dev/interactive-go/internal/errs"
	"github.com/streamspace-dev/interactive-go/internal/rest"
	"github.com/streamspace-dev/interactive-go/internal/timers"
)

// connState is the connection controller phase.
type connState int

const (
	connIdle connState = iota
	connDiscovering
	connAuthenticating
	connConnecting
	connOpen
	connClosing
	connBackoff
)

// String returns the log-friendly name of the state.
func (s connState) String() string {
	switch s {
	case connDiscovering:
		return "discovering"
	case connAuthenticating:
		return "authenticating"
	case connConnecting:
		return "connecting"
	case connOpen:
		return "open"
	case connClosing:
		return "closing"
	case connBackoff:
		return "backoff"
	default:
		return "idle"
	}
}

// Reserved close codes from the service.
const (
	closeProjectNotAccessible = 4019
	closeVersionNotFound      = 4020
	closeDuplicateSession     = 4021
)

const reconnectInterval = 500 * time.Millisecond

// startConnection kicks off endpoint discovery and, once an address is
// known, the auth flow.
func (c *Client) startConnection() {
	c.connState = connDiscovering
	c.log.Info().Msg("Discovering interactive hosts")

	req := rest.Request{
		ID:     rest.NewID(),
		Method: http.MethodGet,
		URL:    c.settings.APIBase + "/interactive/hosts",
	}
	c.http.Do(req, func(resp rest.Response) {
		c.enqueue(func() { c.handleDiscovery(resp) })
	})
}

// hostEntry is one element of the discovery response.
type hostEntry struct {
	Address string `json:"address"`
}

func (c *Client) handleDiscovery(resp rest.Response) {
	if resp.Err != nil || resp.Status < 200 || resp.Status >= 300 {
		// Not fatal: a cached address from an earlier discovery may still
		// work on a later reconnect.
		msg := "interactive host discovery failed"
		if resp.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, resp.Err)
		} else {
			msg = fmt.Sprintf("%s with status %d", msg, resp.Status)
		}
		c.log.Warn().Msg(msg)
		c.queueError(ErrorEvent{Kind: errs.KindDiscoveryFailure, Code: errs.DefaultCode, Message: msg})

		if c.wsURL == "" {
			c.connState = connBackoff
			c.timers.Start(timers.Reconnect, reconnectInterval, c.reconnectTick)
			return
		}
	} else {
		var hosts []hostEntry
		if err := json.Unmarshal(resp.Body, &hosts); err != nil || len(hosts) == 0 || hosts[0].Address == "" {
			msg := "interactive host discovery returned no usable address"
			c.log.Warn().Msg(msg)
			c.queueError(ErrorEvent{Kind: errs.KindDiscoveryFailure, Code: errs.DefaultCode, Message: msg})
			if c.wsURL == "" {
				c.connState = connBackoff
				c.timers.Start(timers.Reconnect, reconnectInterval, c.reconnectTick)
				return
			}
		} else {
			c.wsURL = hosts[0].Address
			c.log.Info().Str("address", c.wsURL).Msg("Interactive host discovered")
		}
	}

	c.connState = connAuthenticating
	c.authc.SetVerifyURL(c.wsURL)
	if !c.bootstrapped {
		c.bootstrapped = true
		c.authc.Bootstrap()
	}
}

// connectSocket opens the websocket once credentials are in hand.
// pendingConnect gates parallel opens; connected gates idempotent re-entry.
func (c *Client) connectSocket(authHeader string) {
	c.authHeader = authHeader

	if c.connected || c.pendingConnect {
		return
	}
	if c.wsURL == "" {
		c.log.Warn().Msg("No websocket address yet, waiting for discovery")
		return
	}

	c.pendingConnect = true
	c.connState = connConnecting

	headers := http.Header{}
	headers.Set("Authorization", authHeader)
	headers.Set("X-Interactive-Version", c.settings.ProjectVersionID)
	headers.Set("X-Protocol-Version", config.ProtocolVersion)
	if c.settings.ShareCode != "" {
		headers.Set("X-Interactive-Sharecode", c.settings.ShareCode)
	}

	c.log.Info().Str("url", c.wsURL).Msg("Opening interactive socket")
	if err := c.socket.Open(c.wsURL, headers); err != nil {
		c.pendingConnect = false
		c.log.Warn().Err(err).Msg("Socket open refused")
	}
}

// handleSocketOpen runs when the websocket handshake completes. Per
// protocol, the client stays quiet until the server's hello push.
func (c *Client) handleSocketOpen() {
	c.pendingConnect = false
	c.connected = true
	c.connState = connOpen
	c.timers.Stop(timers.Reconnect)
	c.log.Info().Msg("Interactive socket open, awaiting hello")
}

// handleSocketError covers dial failures and mid-stream transport errors.
func (c *Client) handleSocketError(msg string) {
	c.pendingConnect = false
	c.log.Warn().Str("error", msg).Msg("Transport error")
	c.queueError(ErrorEvent{Kind: errs.KindTransportBroken, Code: errs.DefaultCode, Message: msg})

	if !c.connected {
		c.connState = connBackoff
		c.timers.Start(timers.Reconnect, reconnectInterval, c.reconnectTick)
	}
}

// handleSocketClose maps the close code to either a fatal user error or a
// reconnect cycle.
func (c *Client) handleSocketClose(code int, reason string) {
	c.pendingConnect = false
	c.connected = false

	switch code {
	case closeProjectNotAccessible:
		c.connState = connIdle
		msg := fmt.Sprintf("connection closed: project is not accessible (code %d)", code)
		c.log.Error().Int("code", code).Str("reason", reason).Msg(msg)
		c.queueError(ErrorEvent{Kind: errs.KindProjectInaccessible, Code: code, Message: msg})
		c.setInteractivityState(InteractivityDisabled)

	case closeVersionNotFound:
		c.connState = connIdle
		msg := fmt.Sprintf("connection closed: interactive version not found or access denied (code %d)", code)
		c.log.Error().Int("code", code).Str("reason", reason).Msg(msg)
		c.queueError(ErrorEvent{Kind: errs.KindProjectInaccessible, Code: code, Message: msg})
		c.setInteractivityState(InteractivityDisabled)

	case closeDuplicateSession:
		c.connState = connIdle
		msg := fmt.Sprintf("connection closed: another session is already connected (code %d)", code)
		c.log.Error().Int("code", code).Str("reason", reason).Msg(msg)
		c.queueError(ErrorEvent{Kind: errs.KindDuplicateSession, Code: code, Message: msg})
		c.setInteractivityState(InteractivityDisabled)

	default:
		c.connState = connBackoff
		msg := fmt.Sprintf("connection closed (code %d): %s", code, reason)
		c.log.Warn().Int("code", code).Str("reason", reason).Msg("Connection lost, scheduling reconnect")
		c.queueError(ErrorEvent{Kind: errs.KindTransportBroken, Code: code, Message: msg})
		c.setInteractivityState(InteractivityDisabled)
		c.resetSessionState()
		c.timers.Start(timers.Reconnect, reconnectInterval, c.reconnectTick)
	}
}

// reconnectTick re-checks credentials rather than blindly re-opening; the
// token may have expired during the outage. A successful verify re-opens
// the socket through the auth callbacks.
func (c *Client) reconnectTick() {
	if c.connected || c.pendingConnect || c.disposed {
		return
	}

	if c.wsURL == "" {
		c.startConnection()
		return
	}
	c.connState = connAuthenticating
	c.authc.VerifyToken()
}

// resetSessionState drops per-connection protocol state so a fresh hello
// re-populates the model.
func (c *Client) resetSessionState() {
	c.outstanding = make(map[uint32]string)
	c.initializedGroups = false
	c.initializedScenes = false
}
