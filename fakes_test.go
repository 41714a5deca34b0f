package interactive

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/interactive-go/internal/errs"
	"github.com/streamspace-dev/interactive-go/internal/rest"
	"github.com/streamspace-dev/interactive-go/internal/tokenstore"
	"github.com/streamspace-dev/interactive-go/internal/transport"
	"github.com/streamspace-dev/interactive-go/internal/wire"
)

// --- fake socket ---

type fakeOpen struct {
	url     string
	headers http.Header
}

// fakeSocket is an in-memory transport.Socket. With autoOpen set it fires
// OnOpen synchronously from Open, mimicking an instant handshake.
type fakeSocket struct {
	mu       sync.Mutex
	handlers transport.Handlers
	opens    []fakeOpen
	sent     []string
	isOpen   bool
	autoOpen bool
	openErr  error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{autoOpen: true}
}

func (s *fakeSocket) Open(url string, headers http.Header) error {
	s.mu.Lock()
	if s.openErr != nil {
		err := s.openErr
		s.mu.Unlock()
		return err
	}
	s.opens = append(s.opens, fakeOpen{url: url, headers: headers})
	s.isOpen = true
	auto := s.autoOpen
	h := s.handlers
	s.mu.Unlock()

	if auto && h.OnOpen != nil {
		h.OnOpen()
	}
	return nil
}

func (s *fakeSocket) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return errs.ErrSocketNotOpen
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
	return nil
}

// receive delivers a server frame through the handlers.
func (s *fakeSocket) receive(text string) {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()
	h.OnMessage(text)
}

// closeFromServer simulates a server-initiated close.
func (s *fakeSocket) closeFromServer(code int, reason string) {
	s.mu.Lock()
	s.isOpen = false
	h := s.handlers
	s.mu.Unlock()
	h.OnClose(code, reason)
}

func (s *fakeSocket) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opens)
}

func (s *fakeSocket) lastOpen() fakeOpen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[len(s.opens)-1]
}

func (s *fakeSocket) sentFrames(t *testing.T) []*wire.Frame {
	t.Helper()
	s.mu.Lock()
	raw := append([]string(nil), s.sent...)
	s.mu.Unlock()

	frames := make([]*wire.Frame, 0, len(raw))
	for _, text := range raw {
		f, err := wire.Parse([]byte(text))
		require.NoError(t, err)
		frames = append(frames, f)
	}
	return frames
}

// framesByMethod filters the sent frames by method name.
func (s *fakeSocket) framesByMethod(t *testing.T, method string) []*wire.Frame {
	t.Helper()
	var out []*wire.Frame
	for _, f := range s.sentFrames(t) {
		if f.Method == method {
			out = append(out, f)
		}
	}
	return out
}

// --- fake rest client ---

type fakeRoute struct {
	method string
	substr string
	handle func(rest.Request) rest.Response
}

// fakeRest serves scripted responses. Callbacks run synchronously on the
// calling goroutine, which the client marshals through its work queue
// exactly like real responses.
type fakeRest struct {
	mu       sync.Mutex
	routes   []fakeRoute
	requests []rest.Request
}

func newFakeRest() *fakeRest { return &fakeRest{} }

func (f *fakeRest) on(method, substr string, handle func(rest.Request) rest.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, fakeRoute{method: method, substr: substr, handle: handle})
}

// reply registers a fixed JSON response for every matching request.
func (f *fakeRest) reply(method, substr string, status int, body string) {
	f.on(method, substr, func(rest.Request) rest.Response {
		return rest.Response{Status: status, Body: []byte(body)}
	})
}

func (f *fakeRest) Do(req rest.Request, cb func(rest.Response)) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var handle func(rest.Request) rest.Response
	for _, route := range f.routes {
		if route.method == req.Method && strings.Contains(req.URL, route.substr) {
			handle = route.handle
			break
		}
	}
	f.mu.Unlock()

	if handle == nil {
		cb(rest.Response{ID: req.ID, Err: fmt.Errorf("no scripted route for %s %s", req.Method, req.URL)})
		return
	}
	resp := handle(req)
	resp.ID = req.ID
	cb(resp)
}

func (f *fakeRest) requestCount(method, substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if req.Method == method && strings.Contains(req.URL, substr) {
			n++
		}
	}
	return n
}

// --- in-memory token store ---

type memTokenStore struct {
	mu sync.Mutex
	m  map[string]tokenstore.Tokens
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{m: make(map[string]tokenstore.Tokens)}
}

func (s *memTokenStore) Load(appID, versionID string) (tokenstore.Tokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[tokenstore.Key(appID, versionID)]
	return t, ok
}

func (s *memTokenStore) Save(appID, versionID string, t tokenstore.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[tokenstore.Key(appID, versionID)] = t
}

// --- event recorder ---

type eventLog struct {
	states       []InteractivityState
	errors       []ErrorEvent
	participants []ParticipantStateChangedEvent
	buttons      []ButtonEvent
	joysticks    []JoystickEvent
	messages     []MessageEvent
}

func (e *eventLog) attach(c *Client) {
	c.OnInteractivityStateChanged = func(ev StateChangedEvent) {
		e.states = append(e.states, ev.State)
	}
	c.OnError = func(ev ErrorEvent) {
		e.errors = append(e.errors, ev)
	}
	c.OnParticipantStateChanged = func(ev ParticipantStateChangedEvent) {
		e.participants = append(e.participants, ev)
	}
	c.OnButtonEvent = func(ev ButtonEvent) {
		e.buttons = append(e.buttons, ev)
	}
	c.OnJoystickEvent = func(ev JoystickEvent) {
		e.joysticks = append(e.joysticks, ev)
	}
	c.OnMessageEvent = func(ev MessageEvent) {
		e.messages = append(e.messages, ev)
	}
}

func (e *eventLog) hasState(s InteractivityState) bool {
	for _, st := range e.states {
		if st == s {
			return true
		}
	}
	return false
}

// --- harness ---

type testEnv struct {
	client *Client
	rest   *fakeRest
	socket *fakeSocket
	store  *memTokenStore
	events *eventLog
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := &testEnv{
		rest:   newFakeRest(),
		socket: newFakeSocket(),
		store:  newMemTokenStore(),
		events: &eventLog{},
	}

	nop := zerolog.Nop()
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.test/v1"
	}
	if cfg.AppID == "" {
		cfg.AppID = "A"
	}
	if cfg.ProjectVersionID == "" {
		cfg.ProjectVersionID = "V"
	}
	if cfg.ShortCodePollInterval == 0 {
		cfg.ShortCodePollInterval = 10 * time.Millisecond
	}
	cfg.TokenStore = env.store
	cfg.Logger = &nop

	env.client = New(cfg)
	env.client.http = env.rest
	env.client.newSocket = func(h transport.Handlers) transport.Socket {
		env.socket.mu.Lock()
		env.socket.handlers = h
		env.socket.mu.Unlock()
		return env.socket
	}
	env.events.attach(env.client)

	t.Cleanup(env.client.Dispose)
	return env
}

// pump drives DoWork until cond holds or the deadline passes.
func (env *testEnv) pump(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		env.client.DoWork()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// scriptColdStart wires the standard happy-path auth endpoints.
func (env *testEnv) scriptColdStart() {
	env.rest.reply(http.MethodGet, "/interactive/hosts", 200,
		`[{"address":"wss://ws.test/gameplay"}]`)
	env.rest.reply(http.MethodPost, "/oauth/shortcode", 200,
		`{"code":"ABC123","expires_in":120,"handle":"h1"}`)
	env.rest.reply(http.MethodGet, "/oauth/shortcode/check/h1", 200,
		`{"code":"EX"}`)
	env.rest.reply(http.MethodPost, "/oauth/token", 200,
		`{"access_token":"T","refresh_token":"R"}`)
	env.rest.reply(http.MethodGet, "https://ws.test/gameplay", 400, "")
}

const testScenesResult = `{
	"scenes": [
		{
			"sceneID": "default",
			"etag": "s1",
			"controls": [
				{"controlID": "b", "kind": "button", "cost": 5, "etag": "c1"},
				{"controlID": "j", "kind": "joystick", "etag": "c2"}
			]
		}
	]
}`

const testGroupsResult = `{"groups":[{"groupID":"default","sceneID":"default","etag":"g1"}]}`

// finishHandshake replies to the getGroups/getScenes the hello triggered.
// Counting is relative so the helper also covers re-handshakes after a
// reconnect.
func (env *testEnv) finishHandshake(t *testing.T) {
	t.Helper()

	baseGroups := len(env.socket.framesByMethod(t, rpcGetGroups))
	baseScenes := len(env.socket.framesByMethod(t, rpcGetScenes))

	env.socket.receive(`{"type":"method","method":"hello","params":{}}`)
	env.pump(t, func() bool {
		return len(env.socket.framesByMethod(t, rpcGetGroups)) == baseGroups+1 &&
			len(env.socket.framesByMethod(t, rpcGetScenes)) == baseScenes+1
	})

	groups := env.socket.framesByMethod(t, rpcGetGroups)
	scenes := env.socket.framesByMethod(t, rpcGetScenes)
	groupsID := groups[len(groups)-1].ID
	scenesID := scenes[len(scenes)-1].ID

	env.socket.receive(fmt.Sprintf(`{"type":"reply","id":%d,"result":%s}`, groupsID, testGroupsResult))
	env.socket.receive(fmt.Sprintf(`{"type":"reply","id":%d,"result":%s}`, scenesID, testScenesResult))

	// With ShouldStartInteractive set the state moves straight through
	// Initialized to InteractivityPending in the same tick.
	env.pump(t, func() bool {
		switch env.client.State() {
		case InteractivityInitialized, InteractivityPending, InteractivityEnabled:
			return true
		}
		return false
	})
}

// bootstrapInitialized takes a fresh env all the way to Initialized.
func (env *testEnv) bootstrapInitialized(t *testing.T) {
	t.Helper()
	env.scriptColdStart()
	require.NoError(t, env.client.Initialize())
	env.pump(t, func() bool { return env.socket.openCount() == 1 })
	env.finishHandshake(t)
}

// joinParticipant pushes a participant join and waits for it to land.
func (env *testEnv) joinParticipant(t *testing.T, userID uint32, sessionID, username string) {
	t.Helper()
	env.socket.receive(fmt.Sprintf(
		`{"type":"method","method":"onParticipantJoin","params":{"participants":[{"sessionID":%q,"userID":%d,"username":%q,"groupID":"default","etag":"p1"}]}}`,
		sessionID, userID, username))
	env.pump(t, func() bool { return env.client.model.participantByUser(userID) != nil })
}

// enableInteractivity pushes onReady(true).
func (env *testEnv) enableInteractivity(t *testing.T) {
	t.Helper()
	env.socket.receive(`{"type":"method","method":"onReady","params":{"isReady":true}}`)
	env.pump(t, func() bool { return env.client.State() == InteractivityEnabled })
}
