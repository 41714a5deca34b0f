package interactive

import (
	"encoding/json"
	"time"
)

// looseObject is a partially-decoded JSON object. The server's payload key
// casing has drifted over protocol revisions, so every accessor takes a list
// of accepted aliases; unknown members are ignored.
type looseObject map[string]json.RawMessage

func parseLoose(raw json.RawMessage) (looseObject, error) {
	var obj looseObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (o looseObject) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && len(v) > 0 && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func (o looseObject) str(keys ...string) string {
	raw, ok := o.raw(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (o looseObject) u32(keys ...string) uint32 {
	raw, ok := o.raw(keys...)
	if !ok {
		return 0
	}
	var n uint32
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (o looseObject) i64(keys ...string) int64 {
	raw, ok := o.raw(keys...)
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (o looseObject) f64(keys ...string) float64 {
	raw, ok := o.raw(keys...)
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (o looseObject) boolean(keys ...string) bool {
	raw, ok := o.raw(keys...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func (o looseObject) list(keys ...string) []json.RawMessage {
	raw, ok := o.raw(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func marshalLoose(o looseObject) ([]byte, error) {
	return json.Marshal(o)
}

// decodeParticipant parses one participant payload object.
func decodeParticipant(raw json.RawMessage) (Participant, error) {
	obj, err := parseLoose(raw)
	if err != nil {
		return Participant{}, err
	}

	p := Participant{
		SessionID:     obj.str("sessionID", "session_id"),
		UserID:        obj.u32("userID", "user_id"),
		Username:      obj.str("username"),
		Level:         obj.u32("level"),
		GroupID:       obj.str("groupID", "group_id"),
		InputDisabled: obj.boolean("disabled", "input_disabled"),
		ETag:          obj.str("etag"),
	}
	if ms := obj.i64("connectedAt", "connected_at"); ms > 0 {
		p.ConnectedAt = time.UnixMilli(ms)
	}
	if ms := obj.i64("lastInputAt", "last_input_at"); ms > 0 {
		p.LastInputAt = time.UnixMilli(ms)
	}
	if p.GroupID == "" {
		p.GroupID = DefaultGroupID
	}
	p.State = ParticipantJoined
	if p.InputDisabled {
		p.State = ParticipantInputDisabled
	}
	return p, nil
}

// decodeControl parses one control payload object. sceneID is the owning
// scene when the payload does not carry one itself.
func decodeControl(raw json.RawMessage, sceneID string) (Control, error) {
	obj, err := parseLoose(raw)
	if err != nil {
		return Control{}, err
	}

	c := Control{
		Kind:      controlKindFromWire(obj.str("kind")),
		ControlID: obj.str("controlID", "control_id"),
		SceneID:   obj.str("sceneID", "scene_id"),
		Disabled:  obj.boolean("disabled"),
		HelpText:  obj.str("helpText", "help_text"),
		ETag:      obj.str("etag"),
		Cost:      obj.u32("cost"),
		Progress:  obj.f64("progress"),
		Text:      obj.str("text"),
	}
	c.CooldownExpirationMS = obj.i64("cooldown", "cooldown_expiration_ms")
	if c.SceneID == "" {
		c.SceneID = sceneID
	}
	return c, nil
}

// decodeGroup parses one group payload object.
func decodeGroup(raw json.RawMessage) (Group, error) {
	obj, err := parseLoose(raw)
	if err != nil {
		return Group{}, err
	}

	g := Group{
		GroupID: obj.str("groupID", "group_id"),
		SceneID: obj.str("sceneID", "scene_id"),
		ETag:    obj.str("etag"),
	}
	if g.SceneID == "" {
		g.SceneID = DefaultSceneID
	}
	return g, nil
}

// decodeScene parses one scene payload object including its controls.
func decodeScene(raw json.RawMessage) (Scene, error) {
	obj, err := parseLoose(raw)
	if err != nil {
		return Scene{}, err
	}

	s := Scene{
		SceneID: obj.str("sceneID", "scene_id"),
		ETag:    obj.str("etag"),
	}
	for _, item := range obj.list("controls") {
		c, err := decodeControl(item, s.SceneID)
		if err != nil {
			continue
		}
		s.Controls = append(s.Controls, c)
	}
	return s, nil
}
