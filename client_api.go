package interactive

import (
	"fmt"
	"time"

	"github.com/streamspace-dev/interactive-go/internal/errs"
)

// Sentinel errors returned by the public API.
var (
	ErrDisposed           = errs.ErrDisposed
	ErrNotInitialized     = errs.ErrNotInitialized
	ErrUnknownControl     = errs.ErrUnknownControl
	ErrUnknownParticipant = errs.ErrUnknownParticipant
)

// State returns the current interactivity lifecycle phase.
func (c *Client) State() InteractivityState { return c.state }

// Connected reports whether the websocket session is open.
func (c *Client) Connected() bool { return c.connected }

// ShortCode returns the code the broadcaster must enter to authorize the
// session, or "" when none is outstanding.
func (c *Client) ShortCode() string {
	if c.authc == nil {
		return ""
	}
	return c.authc.ShortCode()
}

// --- model snapshots ---

// Scenes returns a copy of the known scenes.
func (c *Client) Scenes() []Scene { return c.model.snapshotScenes() }

// Groups returns a copy of the known groups.
func (c *Client) Groups() []Group { return c.model.snapshotGroups() }

// Participants returns a copy of the known participants, including ones
// that have left (State == ParticipantLeft).
func (c *Client) Participants() []Participant { return c.model.snapshotParticipants() }

// Buttons returns a copy of the button controls.
func (c *Client) Buttons() []Control { return c.model.snapshotButtons() }

// Joysticks returns a copy of the joystick controls.
func (c *Client) Joysticks() []Control { return c.model.snapshotJoysticks() }

// GetCurrentScene resolves the scene the given group is bound to. The
// well-known default group and scene are synthesized when the server has
// not acknowledged them yet; the call never fails.
func (c *Client) GetCurrentScene(groupID string) Scene {
	return c.model.currentScene(groupID)
}

// --- input queries ---

// GetButtonDown reports whether the button saw a down edge from the given
// participant on this tick.
func (c *Client) GetButtonDown(controlID string, userID uint32) bool {
	return c.input.buttonDown(controlID, userID)
}

// GetButtonPressed reports whether the button was held by the given
// participant on this tick.
func (c *Client) GetButtonPressed(controlID string, userID uint32) bool {
	return c.input.buttonPressed(controlID, userID)
}

// GetButtonUp reports whether the button saw an up edge from the given
// participant on this tick.
func (c *Client) GetButtonUp(controlID string, userID uint32) bool {
	return c.input.buttonUp(controlID, userID)
}

// GetCountOfButtonDowns returns this tick's down-edge count.
func (c *Client) GetCountOfButtonDowns(controlID string, userID uint32) uint32 {
	return c.input.countOfDowns(controlID, userID)
}

// GetCountOfButtonPresses returns this tick's press count.
func (c *Client) GetCountOfButtonPresses(controlID string, userID uint32) uint32 {
	return c.input.countOfPresses(controlID, userID)
}

// GetCountOfButtonUps returns this tick's up-edge count.
func (c *Client) GetCountOfButtonUps(controlID string, userID uint32) uint32 {
	return c.input.countOfUps(controlID, userID)
}

// GetAnyButtonDown reports a down edge from any participant.
func (c *Client) GetAnyButtonDown(controlID string) bool {
	return c.input.anyButtonDown(controlID)
}

// GetAnyButtonPressed reports a held button from any participant.
func (c *Client) GetAnyButtonPressed(controlID string) bool {
	return c.input.anyButtonPressed(controlID)
}

// GetAnyButtonUp reports an up edge from any participant.
func (c *Client) GetAnyButtonUp(controlID string) bool {
	return c.input.anyButtonUp(controlID)
}

// GetJoystickX returns the smoothed X coordinate for one participant.
func (c *Client) GetJoystickX(controlID string, userID uint32) float64 {
	return c.input.joystickX(controlID, userID)
}

// GetJoystickY returns the smoothed Y coordinate for one participant.
func (c *Client) GetJoystickY(controlID string, userID uint32) float64 {
	return c.input.joystickY(controlID, userID)
}

// GetAnyJoystickX returns the smoothed X coordinate across participants.
func (c *Client) GetAnyJoystickX(controlID string) float64 {
	return c.input.anyJoystickX(controlID)
}

// GetAnyJoystickY returns the smoothed Y coordinate across participants.
func (c *Client) GetAnyJoystickY(controlID string) float64 {
	return c.input.anyJoystickY(controlID)
}

// --- mutators ---

func (c *Client) guard() error {
	if c.disposed {
		return errs.ErrDisposed
	}
	if !c.initialized {
		return errs.ErrNotInitialized
	}
	return nil
}

// StartInteractive asks the server to enable interactivity. Calling it
// before initialization completes is a misuse and surfaces an error event.
func (c *Client) StartInteractive() error {
	if err := c.guard(); err != nil {
		return err
	}

	if c.state != InteractivityInitialized && c.state != InteractivityDisabled {
		msg := fmt.Sprintf("StartInteractive called in state %s", c.state)
		c.queueError(ErrorEvent{Kind: errs.KindMisuseError, Code: errs.DefaultCode, Message: msg})
		return errs.ErrNotInitialized
	}

	if err := c.sendReady(true); err != nil {
		return err
	}
	c.setInteractivityState(InteractivityPending)
	return nil
}

// StopInteractive asks the server to disable interactivity. The state
// flips when the server acknowledges with onReady.
func (c *Client) StopInteractive() error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.sendReady(false)
}

// TriggerCooldown puts a button on cooldown for cooldownMS milliseconds,
// locally and on the server.
func (c *Client) TriggerCooldown(controlID string, cooldownMS int64) error {
	if err := c.guard(); err != nil {
		return err
	}

	b := c.model.buttonByID(controlID)
	if b == nil {
		return errs.ErrUnknownControl
	}

	if cooldownMS < 1000 {
		c.log.Info().Int64("cooldownMS", cooldownMS).Msg("Cooldown under one second; value is milliseconds, not seconds")
	}

	expiresAt := time.Now().UnixMilli() + cooldownMS
	c.model.setCooldown(controlID, expiresAt)

	return c.sendRPC(rpcUpdateControls, map[string]interface{}{
		"sceneID": b.SceneID,
		"controls": []map[string]interface{}{
			{"controlID": controlID, "cooldown": expiresAt},
		},
	})
}

// SetCurrentScene rebinds a group to a scene. An empty groupID targets the
// default group.
func (c *Client) SetCurrentScene(sceneID string, groupID string) error {
	if err := c.guard(); err != nil {
		return err
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return c.sendRPC(rpcSetCurrentScene, map[string]string{
		"sceneID": sceneID,
		"groupID": groupID,
	})
}

// SendMessage sends an arbitrary method frame; the params round-trip
// through the codec unchanged.
func (c *Client) SendMessage(method string, params interface{}) error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.sendRPC(method, params)
}

// CaptureTransaction captures a spark transaction tied to a button press.
func (c *Client) CaptureTransaction(transactionID string) error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.sendRPC(rpcCapture, map[string]string{"transactionID": transactionID})
}

// SetControlDisabled toggles a control's disabled flag.
func (c *Client) SetControlDisabled(controlID string, disabled bool) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctrl := c.model.controlByID(controlID)
	if ctrl == nil {
		return errs.ErrUnknownControl
	}

	return c.sendRPC(rpcUpdateControls, map[string]interface{}{
		"sceneID": ctrl.SceneID,
		"controls": []map[string]interface{}{
			{"controlID": controlID, "disabled": disabled},
		},
	})
}

// SetControlHelpText updates a control's help text.
func (c *Client) SetControlHelpText(controlID string, helpText string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctrl := c.model.controlByID(controlID)
	if ctrl == nil {
		return errs.ErrUnknownControl
	}

	return c.sendRPC(rpcUpdateControls, map[string]interface{}{
		"sceneID": ctrl.SceneID,
		"controls": []map[string]interface{}{
			{"controlID": controlID, "helpText": helpText},
		},
	})
}

// setButtonProperty sends a single-field setButtonControlProperties frame.
func (c *Client) setButtonProperty(controlID string, field string, value interface{}) error {
	if err := c.guard(); err != nil {
		return err
	}

	b := c.model.buttonByID(controlID)
	if b == nil {
		return errs.ErrUnknownControl
	}

	return c.sendRPC(rpcSetButtonControlProperties, map[string]interface{}{
		"sceneID":   b.SceneID,
		"controlID": controlID,
		field:       value,
	})
}

// SetButtonCost updates the spark cost of a button.
func (c *Client) SetButtonCost(controlID string, cost uint32) error {
	return c.setButtonProperty(controlID, "cost", cost)
}

// SetButtonText updates the label of a button.
func (c *Client) SetButtonText(controlID string, text string) error {
	return c.setButtonProperty(controlID, "text", text)
}

// SetButtonProgress updates the progress bar of a button, 0..1.
func (c *Client) SetButtonProgress(controlID string, progress float64) error {
	return c.setButtonProperty(controlID, "progress", progress)
}

// SetJoystickCoordinates moves a joystick's resting position.
func (c *Client) SetJoystickCoordinates(controlID string, x, y float64) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctrl := c.model.controlByID(controlID)
	if ctrl == nil || ctrl.Kind != ControlJoystick {
		return errs.ErrUnknownControl
	}

	return c.sendRPC(rpcSetJoystickCoordinates, map[string]interface{}{
		"sceneID":   ctrl.SceneID,
		"controlID": controlID,
		"x":         x,
		"y":         y,
	})
}

// SetParticipantGroup moves a participant into another group.
func (c *Client) SetParticipantGroup(userID uint32, groupID string) error {
	if err := c.guard(); err != nil {
		return err
	}

	p := c.model.participantByUser(userID)
	if p == nil {
		return errs.ErrUnknownParticipant
	}

	return c.sendRPC(rpcUpdateParticipants, map[string]interface{}{
		"participants": []map[string]interface{}{
			{"sessionID": p.SessionID, "userID": userID, "groupID": groupID},
		},
	})
}

// CreateGroup creates a server-side group bound to a scene.
func (c *Client) CreateGroup(groupID string, sceneID string) error {
	if err := c.guard(); err != nil {
		return err
	}
	if sceneID == "" {
		sceneID = DefaultSceneID
	}
	return c.sendRPC(rpcCreateGroups, map[string]interface{}{
		"groups": []map[string]string{
			{"groupID": groupID, "sceneID": sceneID},
		},
	})
}

// RequestAllParticipants asks the server for the full participant roster;
// the reply bulk-populates the local mirror.
func (c *Client) RequestAllParticipants() error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.sendRPC(rpcGetAllParticipants, nil)
}

// SetCompression advertises the compression schemes this client accepts.
// This only advertises; the transport always sends plain text frames.
func (c *Client) SetCompression(schemes ...string) error {
	if err := c.guard(); err != nil {
		return err
	}
	if len(schemes) == 0 {
		schemes = []string{"none"}
	}
	return c.sendRPC(rpcSetCompression, map[string]interface{}{"scheme": schemes})
}
