package interactive

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/streamspace-dev/interactive-go/internal/auth"
	"github.com/streamspace-dev/interactive-go/internal/config"
	"github.com/streamspace-dev/interactive-go/internal/errs"
	"github.com/streamspace-dev/interactive-go/internal/logger"
	"github.com/streamspace-dev/interactive-go/internal/rest"
	"github.com/streamspace-dev/interactive-go/internal/timers"
	"github.com/streamspace-dev/interactive-go/internal/tokenstore"
	"github.com/streamspace-dev/interactive-go/internal/transport"
)

// Tokens is a persisted credential pair.
type Tokens = tokenstore.Tokens

// TokenStore lets hosts supply their own credential persistence. The
// default is a JSON file under the user config directory.
type TokenStore = tokenstore.Store

// Config is the host-supplied client configuration.
type Config struct {
	// AppID is the OAuth client id issued for the game. If empty, the host
	// config file is consulted.
	AppID string

	// ProjectVersionID identifies the interactive project version. If
	// empty, the host config file is consulted.
	ProjectVersionID string

	// ShareCode optionally grants access to an unpublished project.
	ShareCode string

	// APIBase overrides the REST base URL (testing, staging).
	APIBase string

	// ConfigFile overrides the host config file location.
	ConfigFile string

	// ShouldStartInteractive sends ready(true) automatically once the model
	// is initialized.
	ShouldStartInteractive bool

	// ShortCodePollInterval overrides the short-code poll period.
	ShortCodePollInterval time.Duration

	// TokenStore overrides credential persistence.
	TokenStore TokenStore

	// TokenFile is the path for the default file-backed token store.
	TokenFile string

	// Logger overrides the SDK logger.
	Logger *zerolog.Logger
}

// Client is the interactive session facade. It owns the connection, the
// model mirror, and the input aggregator.
//
// The client is single-threaded at its boundary: the host calls DoWork once
// per frame from one goroutine, and all getters, setters, and event
// delegates run on that same goroutine. Network and timer callbacks only
// enqueue work; they never touch observable state directly.
type Client struct {
	pub      Config
	settings config.Settings
	log      zerolog.Logger

	// work is the cross-thread boundary: I/O goroutines enqueue closures
	// that DoWork drains on the consumer tick.
	work chan func()

	// queuedEvents are host delegate invocations accumulated during the
	// drain and dispatched at the end of the tick, in FIFO order.
	queuedEvents []func()

	socket transport.Socket
	http   rest.Client
	timers *timers.Service
	store  tokenstore.Store
	authc  *auth.Controller

	// newSocket builds the transport; replaceable for tests.
	newSocket func(transport.Handlers) transport.Socket

	// connection controller
	connState      connState
	wsURL          string
	authHeader     string
	pendingConnect bool
	connected      bool
	bootstrapped   bool

	// protocol engine
	nextMessageID     uint32
	outstanding       map[uint32]string
	initializedGroups bool
	initializedScenes bool

	state InteractivityState
	model mirror
	input inputAggregator

	initialized bool
	disposed    bool

	// Event delegates, invoked during DoWork.
	OnError                      func(ErrorEvent)
	OnInteractivityStateChanged  func(StateChangedEvent)
	OnParticipantStateChanged    func(ParticipantStateChangedEvent)
	OnButtonEvent                func(ButtonEvent)
	OnJoystickEvent              func(JoystickEvent)
	OnMessageEvent               func(MessageEvent)
}

// New creates an uninitialized client. Call Initialize before DoWork.
func New(cfg Config) *Client {
	return &Client{
		pub:         cfg,
		work:        make(chan func(), 1024),
		outstanding: make(map[uint32]string),
		input:       newInputAggregator(),
		state:       InteractivityNotInitialized,
	}
}

// Initialize validates configuration, builds the I/O stack, and starts the
// connection lifecycle. Missing AppID/ProjectVersionID after the host
// config file has been consulted is the only hard failure.
func (c *Client) Initialize() error {
	if c.disposed {
		return errs.ErrDisposed
	}
	if c.initialized {
		return nil
	}

	c.settings = config.Settings{
		AppID:                  c.pub.AppID,
		ProjectVersionID:       c.pub.ProjectVersionID,
		ShareCode:              c.pub.ShareCode,
		APIBase:                c.pub.APIBase,
		ConfigFile:             c.pub.ConfigFile,
		ShouldStartInteractive: c.pub.ShouldStartInteractive,
	}

	if c.pub.Logger != nil {
		c.log = *c.pub.Logger
	} else {
		c.log = logger.Log
	}

	if c.settings.AppID == "" || c.settings.ProjectVersionID == "" {
		path := c.settings.ConfigFile
		if path == "" {
			path = config.DefaultConfigFile
		}
		if err := c.settings.LoadFile(path); err != nil {
			c.log.Warn().Str("path", path).Err(err).Msg("Host config file not loaded")
		}
	}

	if err := c.settings.Validate(); err != nil {
		return err
	}

	c.store = c.pub.TokenStore
	if c.store == nil {
		path := c.pub.TokenFile
		if path == "" {
			path = tokenstore.DefaultPath()
		}
		c.store = tokenstore.NewFileStore(path, logger.TokenStore())
	}

	if c.http == nil {
		c.http = rest.NewHTTPClient(logger.REST())
	}

	c.timers = timers.NewService(c.enqueue, logger.Timers())

	if c.newSocket == nil {
		c.newSocket = func(h transport.Handlers) transport.Socket {
			return transport.NewWebSocket(h, logger.Transport())
		}
	}
	c.socket = c.newSocket(transport.Handlers{
		OnOpen: func() {
			c.enqueue(c.handleSocketOpen)
		},
		OnMessage: func(text string) {
			c.enqueue(func() { c.handleFrame(text) })
		},
		OnError: func(msg string) {
			c.enqueue(func() { c.handleSocketError(msg) })
		},
		OnClose: func(code int, reason string) {
			c.enqueue(func() { c.handleSocketClose(code, reason) })
		},
	})

	c.authc = auth.New(
		auth.Config{
			APIBase:          c.settings.APIBase,
			ClientID:         c.settings.AppID,
			ProjectVersionID: c.settings.ProjectVersionID,
			PollInterval:     c.pub.ShortCodePollInterval,
		},
		c.http,
		c.store,
		c.timers,
		c.enqueue,
		auth.Callbacks{
			OnShortCode: c.handleShortCode,
			OnTokens:    c.handleAuthTokens,
			OnVerified:  c.handleAuthVerified,
			OnError:     c.handleAuthError,
			OnFatal:     c.handleAuthFatal,
		},
		logger.Auth(),
	)

	c.initialized = true
	c.setInteractivityState(InteractivityInitializing)
	c.startConnection()
	return nil
}

// DoWork pumps the client for one frame: it drains marshaled I/O work,
// rolls the input edge buffers, and dispatches queued host events.
func (c *Client) DoWork() {
	if !c.initialized || c.disposed {
		return
	}

drain:
	for {
		select {
		case fn := <-c.work:
			fn()
		default:
			break drain
		}
	}

	if c.state == InteractivityEnabled {
		c.input.shift()
	}

	events := c.queuedEvents
	c.queuedEvents = nil
	for _, fn := range events {
		fn()
	}
}

// Dispose stops all timers, tears down the socket, and clears internal
// state. The client cannot be reused afterwards.
func (c *Client) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true

	if c.timers != nil {
		c.timers.Shutdown()
	}
	if c.socket != nil {
		c.socket.Close()
	}

	c.resetInternalState()
	c.log.Info().Msg("Interactive client disposed")
}

func (c *Client) resetInternalState() {
	c.model.reset()
	c.input.reset()
	c.outstanding = make(map[uint32]string)
	c.initializedGroups = false
	c.initializedScenes = false
	c.connected = false
	c.pendingConnect = false
	c.queuedEvents = nil
	c.state = InteractivityNotInitialized
}

// enqueue marshals work onto the consumer tick. Disposal drops late
// callbacks from I/O goroutines.
func (c *Client) enqueue(fn func()) {
	if c.disposed {
		return
	}
	c.work <- fn
}

// --- auth callbacks (already on the consumer tick) ---

func (c *Client) handleShortCode(code string, expiresIn int) {
	c.log.Info().Str("code", code).Int("expiresIn", expiresIn).Msg("Short code ready for broadcaster")
	c.setInteractivityState(InteractivityShortCodeRequired)
}

func (c *Client) handleAuthTokens(authHeader string) {
	if c.state == InteractivityShortCodeRequired {
		c.setInteractivityState(InteractivityInitializing)
	}
	c.connectSocket(authHeader)
}

func (c *Client) handleAuthVerified(authHeader string) {
	if c.state == InteractivityShortCodeRequired {
		c.setInteractivityState(InteractivityInitializing)
	}
	c.connectSocket(authHeader)
}

func (c *Client) handleAuthError(kind errs.Kind, msg string) {
	c.queueError(ErrorEvent{Kind: kind, Code: errs.DefaultCode, Message: msg})
}

func (c *Client) handleAuthFatal(msg string) {
	c.queueError(ErrorEvent{Kind: errs.KindAuthFailure, Code: errs.DefaultCode, Message: msg})
	c.timers.Stop(timers.Reconnect)
	c.connState = connIdle
	c.setInteractivityState(InteractivityDisabled)
}

// --- event queue ---

func (c *Client) queueHostEvent(fn func()) {
	c.queuedEvents = append(c.queuedEvents, fn)
}

func (c *Client) queueError(ev ErrorEvent) {
	c.queueHostEvent(func() {
		if c.OnError != nil {
			c.OnError(ev)
		}
	})
}

func (c *Client) queueParticipantChange(p Participant, state ParticipantState) {
	ev := ParticipantStateChangedEvent{Participant: p, State: state}
	c.queueHostEvent(func() {
		if c.OnParticipantStateChanged != nil {
			c.OnParticipantStateChanged(ev)
		}
	})
}

// setInteractivityState transitions the facade state and queues the
// state-change event. Every transition is observable.
func (c *Client) setInteractivityState(s InteractivityState) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	c.log.Info().Str("from", prev.String()).Str("to", s.String()).Msg("Interactivity state changed")

	ev := StateChangedEvent{Previous: prev, State: s}
	c.queueHostEvent(func() {
		if c.OnInteractivityStateChanged != nil {
			c.OnInteractivityStateChanged(ev)
		}
	})
}
