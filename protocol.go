package interactive

import (
	"fmt"
	"time"

	"github.com/streamspace-dev/interactive-go/internal/errs"
	"github.com/streamspace-dev/interactive-go/internal/wire"
)

// Server push methods.
const (
	methodHello               = "hello"
	methodOnParticipantJoin   = "onParticipantJoin"
	methodOnParticipantLeave  = "onParticipantLeave"
	methodOnParticipantUpdate = "onParticipantUpdate"
	methodOnGroupCreate       = "onGroupCreate"
	methodOnGroupUpdate       = "onGroupUpdate"
	methodOnSceneCreate       = "onSceneCreate"
	methodOnControlUpdate     = "onControlUpdate"
	methodOnReady             = "onReady"
	methodGiveInput           = "giveInput"
)

// Client-issued RPC methods.
const (
	rpcGetGroups                  = "getGroups"
	rpcGetScenes                  = "getScenes"
	rpcGetAllParticipants         = "getAllParticipants"
	rpcSetCurrentScene            = "setCurrentScene"
	rpcUpdateGroups               = "updateGroups"
	rpcUpdateScenes               = "updateScenes"
	rpcUpdateControls             = "updateControls"
	rpcUpdateParticipants         = "updateParticipants"
	rpcReady                      = "ready"
	rpcCapture                    = "capture"
	rpcCreateGroups               = "createGroups"
	rpcSetCompression             = "setCompression"
	rpcSetJoystickCoordinates     = "setJoystickCoordinates"
	rpcSetButtonControlProperties = "setButtonControlProperties"
)

// Input event tags carried in giveInput frames.
const (
	inputEventMouseDown = "mousedown"
	inputEventMouseUp   = "mouseup"
	inputEventMove      = "move"
)

// handleFrame processes one raw server frame on the consumer tick.
func (c *Client) handleFrame(text string) {
	frame, err := wire.Parse([]byte(text))
	if err != nil {
		c.log.Warn().Err(err).Msg("Malformed server frame")
		c.queueError(ErrorEvent{
			Kind:    errs.KindProtocolError,
			Code:    errs.DefaultCode,
			Message: fmt.Sprintf("malformed server frame: %v", err),
		})
		return
	}

	switch {
	case frame.IsMethod():
		c.handleServerMethod(frame)
	case frame.IsReply():
		c.handleReply(frame)
	default:
		c.log.Debug().Str("type", frame.Type).Msg("Frame with unknown type ignored")
	}
}

// handleServerMethod dispatches a server push by method name.
func (c *Client) handleServerMethod(frame *wire.Frame) {
	params, err := parseLoose(frame.Params)
	if err != nil && len(frame.Params) > 0 {
		c.log.Warn().Str("method", frame.Method).Err(err).Msg("Unreadable method params")
		c.queueError(ErrorEvent{
			Kind:    errs.KindProtocolError,
			Code:    errs.DefaultCode,
			Message: fmt.Sprintf("unreadable params for %s: %v", frame.Method, err),
		})
		return
	}

	switch frame.Method {
	case methodHello:
		c.handleHello()

	case methodOnParticipantJoin:
		c.reconcileParticipants(params)

	case methodOnParticipantLeave:
		c.handleParticipantLeave(params)

	case methodOnParticipantUpdate:
		c.reconcileParticipants(params)

	case methodOnGroupCreate, methodOnGroupUpdate:
		for _, raw := range params.list("groups") {
			g, err := decodeGroup(raw)
			if err != nil || g.GroupID == "" {
				continue
			}
			c.model.upsertGroup(g)
		}

	case methodOnSceneCreate:
		for _, raw := range params.list("scenes") {
			s, err := decodeScene(raw)
			if err != nil || s.SceneID == "" {
				continue
			}
			c.model.appendScene(s)
		}

	case methodOnControlUpdate:
		sceneID := params.str("sceneID", "scene_id")
		var controls []Control
		for _, raw := range params.list("controls") {
			ctrl, err := decodeControl(raw, sceneID)
			if err != nil || ctrl.ControlID == "" {
				continue
			}
			controls = append(controls, ctrl)
		}
		c.model.updateControls(sceneID, controls)

	case methodOnReady:
		if params.boolean("isReady", "is_ready") {
			c.setInteractivityState(InteractivityEnabled)
		} else {
			c.setInteractivityState(InteractivityDisabled)
		}

	case methodGiveInput:
		c.handleGiveInput(params)

	default:
		c.log.Debug().Str("method", frame.Method).Msg("Unknown server method")
		method := frame.Method
		raw := string(frame.Params)
		c.queueHostEvent(func() {
			if c.OnMessageEvent != nil {
				c.OnMessageEvent(MessageEvent{Method: method, Raw: raw})
			}
		})
	}
}

func (c *Client) handleHello() {
	c.log.Info().Msg("Server hello received, fetching model")
	c.sendRPC(rpcGetGroups, nil)
	c.sendRPC(rpcGetScenes, nil)
}

// reconcileParticipants upserts every participant in the payload and queues
// one state-change event each, in document order.
func (c *Client) reconcileParticipants(params looseObject) {
	for _, p := range c.decodeParticipants(params) {
		c.model.upsertParticipant(p)
		c.queueParticipantChange(p, p.State)
	}
}

func (c *Client) handleParticipantLeave(params looseObject) {
	for _, p := range c.decodeParticipants(params) {
		changed := c.model.markLeft(p.UserID)
		if len(changed) == 0 {
			// Never seen; record it as already departed
			p.State = ParticipantLeft
			c.model.upsertParticipant(p)
			changed = []Participant{p}
		}
		for _, cp := range changed {
			c.queueParticipantChange(cp, ParticipantLeft)
		}
	}
}

// decodeParticipants accepts both the list form ({"participants": [...]})
// and a bare single participant object.
func (c *Client) decodeParticipants(params looseObject) []Participant {
	var out []Participant

	items := params.list("participants")
	if items == nil {
		if p, err := decodeParticipant(mustMarshalLoose(params)); err == nil && (p.UserID != 0 || p.SessionID != "") {
			out = append(out, p)
		}
		return out
	}

	for _, raw := range items {
		p, err := decodeParticipant(raw)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// handleGiveInput routes one input object to the aggregator by
// participantID -> session -> user.
func (c *Client) handleGiveInput(params looseObject) {
	sessionID := params.str("participantID", "participant_id")
	transactionID := params.str("transactionID", "transaction_id")

	inputRaw, ok := params.raw("input")
	if !ok {
		c.log.Debug().Msg("giveInput without input object")
		return
	}
	input, err := parseLoose(inputRaw)
	if err != nil {
		c.log.Debug().Err(err).Msg("Unreadable input object")
		return
	}

	participant := c.model.participantBySession(sessionID)
	if participant == nil {
		c.log.Debug().Str("sessionID", sessionID).Msg("Input from unknown participant dropped")
		return
	}
	userID := participant.UserID
	c.model.touchInput(userID, time.Now())

	controlID := input.str("controlID", "control_id")
	event := input.str("event")
	if transactionID == "" {
		transactionID = input.str("transactionID", "transaction_id")
	}

	switch event {
	case inputEventMouseDown, inputEventMouseUp:
		pressed := event == inputEventMouseDown
		c.input.recordButton(userID, controlID, pressed)

		var cost uint32
		if b := c.model.buttonByID(controlID); b != nil {
			cost = b.Cost
		}
		ev := ButtonEvent{
			ControlID:     controlID,
			Participant:   *participant,
			TransactionID: transactionID,
			Pressed:       pressed,
			Cost:          cost,
		}
		c.queueHostEvent(func() {
			if c.OnButtonEvent != nil {
				c.OnButtonEvent(ev)
			}
		})

	case inputEventMove:
		x := input.f64("x")
		y := input.f64("y")
		c.input.recordJoystick(userID, controlID, x, y)

		ev := JoystickEvent{
			ControlID:   controlID,
			Participant: *participant,
			X:           x,
			Y:           y,
		}
		c.queueHostEvent(func() {
			if c.OnJoystickEvent != nil {
				c.OnJoystickEvent(ev)
			}
		})

	default:
		c.log.Debug().Str("event", event).Msg("Unknown input event kind")
	}
}

// handleReply correlates a reply with its outstanding call.
func (c *Client) handleReply(frame *wire.Frame) {
	method, ok := c.outstanding[frame.ID]
	if !ok {
		c.log.Debug().Uint32("id", frame.ID).Msg("Reply without outstanding call")
		return
	}
	delete(c.outstanding, frame.ID)

	if frame.Error != nil {
		code := frame.Error.Code
		if code == 0 {
			code = errs.DefaultCode
		}
		msg := frame.Error.Message
		if frame.Error.Path != "" {
			msg = fmt.Sprintf("%s (at %s)", msg, frame.Error.Path)
		}
		c.log.Warn().Str("method", method).Int("code", code).Msg(msg)
		c.queueError(ErrorEvent{
			Kind:    errs.KindReplyError,
			Code:    code,
			Message: fmt.Sprintf("%s failed: %s", method, msg),
			Path:    frame.Error.Path,
		})
		return
	}

	switch method {
	case rpcGetGroups:
		c.populateGroups(frame.Result)
		c.initializedGroups = true
		c.maybeFinishInitialization()

	case rpcGetScenes:
		c.populateScenes(frame.Result)
		c.initializedScenes = true
		c.maybeFinishInitialization()

	case rpcGetAllParticipants:
		result, err := parseLoose(frame.Result)
		if err == nil {
			c.reconcileParticipants(result)
		}

	default:
		// Mutation acknowledged; nothing to reconcile.
		c.log.Debug().Str("method", method).Uint32("id", frame.ID).Msg("Reply processed")
	}
}

func (c *Client) populateGroups(result []byte) {
	params, err := parseLoose(result)
	if err != nil {
		c.log.Warn().Err(err).Msg("Unreadable getGroups result")
		return
	}
	for _, raw := range params.list("groups") {
		g, err := decodeGroup(raw)
		if err != nil || g.GroupID == "" {
			continue
		}
		c.model.upsertGroup(g)
	}
}

func (c *Client) populateScenes(result []byte) {
	params, err := parseLoose(result)
	if err != nil {
		c.log.Warn().Err(err).Msg("Unreadable getScenes result")
		return
	}
	var scenes []Scene
	for _, raw := range params.list("scenes") {
		s, err := decodeScene(raw)
		if err != nil || s.SceneID == "" {
			continue
		}
		scenes = append(scenes, s)
	}
	c.model.replaceScenes(scenes)
}

// maybeFinishInitialization advances to Initialized once both groups and
// scenes have been fetched, auto-readying if requested.
func (c *Client) maybeFinishInitialization() {
	if !c.initializedGroups || !c.initializedScenes {
		return
	}
	switch c.state {
	case InteractivityInitializing, InteractivityShortCodeRequired, InteractivityDisabled:
		// Disabled covers the reconnect path: a fresh hello re-initializes.
	default:
		return
	}

	c.setInteractivityState(InteractivityInitialized)

	if c.settings.ShouldStartInteractive {
		c.sendReady(true)
		c.setInteractivityState(InteractivityPending)
	}
}

// sendRPC writes one method frame. The outstanding entry is recorded before
// the frame enters the transport and cleared when the reply arrives.
func (c *Client) sendRPC(method string, params interface{}) error {
	id := c.nextMessageID
	c.nextMessageID++
	c.outstanding[id] = method

	data, err := wire.EncodeMethod(id, method, params)
	if err != nil {
		delete(c.outstanding, id)
		return err
	}

	if err := c.socket.Send(string(data)); err != nil {
		delete(c.outstanding, id)
		c.log.Warn().Str("method", method).Err(err).Msg("Socket not open, frame dropped")
		return err
	}

	c.log.Debug().Str("method", method).Uint32("id", id).Msg("Frame sent")
	return nil
}

func (c *Client) sendReady(isReady bool) error {
	return c.sendRPC(rpcReady, map[string]bool{"isReady": isReady})
}

// mustMarshalLoose re-encodes a loose object; used when a payload carries a
// bare entity instead of the usual list wrapper.
func mustMarshalLoose(o looseObject) []byte {
	data, err := marshalLoose(o)
	if err != nil {
		return []byte("{}")
	}
	return data
}
