package interactive

import "time"

// mirror is the in-memory copy of the server's scene/group/control/
// participant model. Reconciliation is etag-driven: an incoming object
// replaces the local copy wholesale, field diffing is never attempted.
//
// All access happens on the consumer tick.
type mirror struct {
	scenes       []Scene
	groups       []Group
	participants []Participant

	// controls is the source of truth; buttons and joysticks are derived
	// projections rebuilt on every reconcile.
	controls  []Control
	buttons   []Control
	joysticks []Control
}

func (m *mirror) reset() {
	m.scenes = nil
	m.groups = nil
	m.participants = nil
	m.controls = nil
	m.buttons = nil
	m.joysticks = nil
}

// --- participants ---

// upsertParticipant reconciles one participant by UserID. Re-joins update in
// place; a participant exists in exactly one bucket.
func (m *mirror) upsertParticipant(p Participant) {
	for i := range m.participants {
		if m.participants[i].UserID == p.UserID {
			m.participants[i] = p
			return
		}
	}
	m.participants = append(m.participants, p)
}

// markLeft flips every participant with the given UserID to Left and returns
// the affected entries. Entries are never removed; a later join revives them.
func (m *mirror) markLeft(userID uint32) []Participant {
	var changed []Participant
	for i := range m.participants {
		if m.participants[i].UserID == userID {
			m.participants[i].State = ParticipantLeft
			changed = append(changed, m.participants[i])
		}
	}
	return changed
}

func (m *mirror) participantByUser(userID uint32) *Participant {
	for i := range m.participants {
		if m.participants[i].UserID == userID {
			return &m.participants[i]
		}
	}
	return nil
}

func (m *mirror) participantBySession(sessionID string) *Participant {
	for i := range m.participants {
		if m.participants[i].SessionID == sessionID {
			return &m.participants[i]
		}
	}
	return nil
}

func (m *mirror) touchInput(userID uint32, at time.Time) {
	if p := m.participantByUser(userID); p != nil {
		p.LastInputAt = at
	}
}

// --- groups ---

// upsertGroup reconciles one group by GroupID.
func (m *mirror) upsertGroup(g Group) {
	for i := range m.groups {
		if m.groups[i].GroupID == g.GroupID {
			m.groups[i] = g
			return
		}
	}
	m.groups = append(m.groups, g)
}

func (m *mirror) groupByID(groupID string) *Group {
	for i := range m.groups {
		if m.groups[i].GroupID == groupID {
			return &m.groups[i]
		}
	}
	return nil
}

// currentGroup returns the named group, synthesizing an ephemeral default
// group when the server has not acknowledged it yet.
func (m *mirror) currentGroup(groupID string) Group {
	if groupID == "" {
		groupID = DefaultGroupID
	}
	if g := m.groupByID(groupID); g != nil {
		return *g
	}
	if groupID == DefaultGroupID {
		return Group{GroupID: DefaultGroupID, SceneID: DefaultSceneID}
	}
	return Group{GroupID: groupID, SceneID: DefaultSceneID}
}

// currentScene resolves the scene the given group is bound to, synthesizing
// an empty default scene when necessary.
func (m *mirror) currentScene(groupID string) Scene {
	g := m.currentGroup(groupID)
	if s := m.sceneByID(g.SceneID); s != nil {
		return *s
	}
	return Scene{SceneID: g.SceneID}
}

// --- scenes ---

func (m *mirror) sceneByID(sceneID string) *Scene {
	for i := range m.scenes {
		if m.scenes[i].SceneID == sceneID {
			return &m.scenes[i]
		}
	}
	return nil
}

// appendScene adds a server-created scene and registers its controls.
func (m *mirror) appendScene(s Scene) {
	if existing := m.sceneByID(s.SceneID); existing != nil {
		*existing = s
	} else {
		m.scenes = append(m.scenes, s)
	}
	for _, c := range s.Controls {
		m.upsertControlGlobal(c)
	}
	m.rebuildProjections()
}

// replaceScenes swaps the full scene list, as delivered by getScenes.
func (m *mirror) replaceScenes(scenes []Scene) {
	m.scenes = scenes
	m.controls = nil
	for i := range m.scenes {
		for _, c := range m.scenes[i].Controls {
			m.upsertControlGlobal(c)
		}
	}
	m.rebuildProjections()
}

// --- controls ---

func (m *mirror) controlByID(controlID string) *Control {
	for i := range m.controls {
		if m.controls[i].ControlID == controlID {
			return &m.controls[i]
		}
	}
	return nil
}

func (m *mirror) buttonByID(controlID string) *Control {
	c := m.controlByID(controlID)
	if c == nil || c.Kind != ControlButton {
		return nil
	}
	return c
}

// upsertControlGlobal replaces the control in the global list by ControlID.
func (m *mirror) upsertControlGlobal(c Control) {
	for i := range m.controls {
		if m.controls[i].ControlID == c.ControlID {
			m.controls[i] = c
			return
		}
	}
	m.controls = append(m.controls, c)
}

// updateControls reconciles a batch of controls under a scene. Both the
// global list and the owning scene's control set are updated so the two
// views agree.
func (m *mirror) updateControls(sceneID string, controls []Control) {
	for _, c := range controls {
		if c.SceneID == "" {
			c.SceneID = sceneID
		}
		m.upsertControlGlobal(c)
		m.upsertSceneControl(c)
	}
	m.rebuildProjections()
}

func (m *mirror) upsertSceneControl(c Control) {
	s := m.sceneByID(c.SceneID)
	if s == nil {
		m.scenes = append(m.scenes, Scene{SceneID: c.SceneID})
		s = &m.scenes[len(m.scenes)-1]
	}
	for i := range s.Controls {
		if s.Controls[i].ControlID == c.ControlID {
			s.Controls[i] = c
			return
		}
	}
	s.Controls = append(s.Controls, c)
}

// setCooldown records a cooldown expiration on the local button copy, in
// both the global list and the scene view.
func (m *mirror) setCooldown(controlID string, expiresAtMS int64) bool {
	c := m.buttonByID(controlID)
	if c == nil {
		return false
	}
	c.CooldownExpirationMS = expiresAtMS
	if s := m.sceneByID(c.SceneID); s != nil {
		for i := range s.Controls {
			if s.Controls[i].ControlID == controlID {
				s.Controls[i].CooldownExpirationMS = expiresAtMS
			}
		}
	}
	m.rebuildProjections()
	return true
}

// rebuildProjections refreshes the typed button/joystick views from the
// global control list.
func (m *mirror) rebuildProjections() {
	m.buttons = m.buttons[:0]
	m.joysticks = m.joysticks[:0]
	for _, c := range m.controls {
		switch c.Kind {
		case ControlButton:
			m.buttons = append(m.buttons, c)
		case ControlJoystick:
			m.joysticks = append(m.joysticks, c)
		}
	}
}

// --- snapshots ---

func (m *mirror) snapshotScenes() []Scene {
	out := make([]Scene, len(m.scenes))
	for i, s := range m.scenes {
		out[i] = s
		out[i].Controls = append([]Control(nil), s.Controls...)
	}
	return out
}

func (m *mirror) snapshotGroups() []Group {
	return append([]Group(nil), m.groups...)
}

func (m *mirror) snapshotParticipants() []Participant {
	return append([]Participant(nil), m.participants...)
}

func (m *mirror) snapshotButtons() []Control {
	return append([]Control(nil), m.buttons...)
}

func (m *mirror) snapshotJoysticks() []Control {
	return append([]Control(nil), m.joysticks...)
}
