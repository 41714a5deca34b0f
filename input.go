package interactive

// triple is a triple-buffered event counter. At the start of every tick the
// buffers shift: previous := current; current := next; next := 0. Queries
// read current, so an edge is visible for exactly one tick.
type triple struct {
	previous uint32
	current  uint32
	next     uint32
}

func (t *triple) shift() {
	t.previous = t.current
	t.current = t.next
	t.next = 0
}

// buttonState tracks one button for one participant (or the per-control
// aggregate).
type buttonState struct {
	isDown    bool
	isPressed bool
	isUp      bool

	down    triple
	pressed triple
	up      triple
}

// joystickState holds the cumulative-mean smoothed coordinates.
type joystickState struct {
	x float64
	y float64

	countOfUniqueInputs uint32
}

// inputKey addresses per-participant input state.
type inputKey struct {
	userID    uint32
	controlID string
}

// inputAggregator converts the stream of giveInput events into per-tick
// edge counters, per participant and aggregated per control.
type inputAggregator struct {
	buttons   map[inputKey]*buttonState
	joysticks map[inputKey]*joystickState

	globalButtons   map[string]*buttonState
	globalJoysticks map[string]*joystickState
}

func newInputAggregator() inputAggregator {
	return inputAggregator{
		buttons:         make(map[inputKey]*buttonState),
		joysticks:       make(map[inputKey]*joystickState),
		globalButtons:   make(map[string]*buttonState),
		globalJoysticks: make(map[string]*joystickState),
	}
}

func (a *inputAggregator) reset() {
	*a = newInputAggregator()
}

func (a *inputAggregator) buttonFor(userID uint32, controlID string) *buttonState {
	key := inputKey{userID: userID, controlID: controlID}
	st, ok := a.buttons[key]
	if !ok {
		st = &buttonState{}
		a.buttons[key] = st
	}
	return st
}

func (a *inputAggregator) globalButtonFor(controlID string) *buttonState {
	st, ok := a.globalButtons[controlID]
	if !ok {
		st = &buttonState{}
		a.globalButtons[controlID] = st
	}
	return st
}

func (a *inputAggregator) joystickFor(userID uint32, controlID string) *joystickState {
	key := inputKey{userID: userID, controlID: controlID}
	st, ok := a.joysticks[key]
	if !ok {
		st = &joystickState{}
		a.joysticks[key] = st
	}
	return st
}

func (a *inputAggregator) globalJoystickFor(controlID string) *joystickState {
	st, ok := a.globalJoysticks[controlID]
	if !ok {
		st = &joystickState{}
		a.globalJoysticks[controlID] = st
	}
	return st
}

// recordButton applies one button sample for a participant. The same edge
// classification is applied to the per-control aggregate counter.
func (a *inputAggregator) recordButton(userID uint32, controlID string, pressed bool) {
	st := a.buttonFor(userID, controlID)
	wasPreviouslyPressed := st.pressed.next > 0
	applyButton(st, pressed, wasPreviouslyPressed)
	applyButton(a.globalButtonFor(controlID), pressed, wasPreviouslyPressed)
}

func applyButton(st *buttonState, pressed, wasPreviouslyPressed bool) {
	switch {
	case pressed && !wasPreviouslyPressed:
		st.isDown = true
		st.isPressed = true
		st.isUp = false
		st.down.next++
		st.pressed.next++

	case pressed && wasPreviouslyPressed:
		st.isDown = false
		st.isPressed = true
		st.isUp = false
		st.pressed.next++

	default:
		st.isDown = false
		st.isPressed = false
		st.isUp = true
		st.up.next++
	}
}

// recordJoystick folds one coordinate sample into the cumulative mean, per
// participant and per control.
func (a *inputAggregator) recordJoystick(userID uint32, controlID string, x, y float64) {
	applyJoystick(a.joystickFor(userID, controlID), x, y)
	applyJoystick(a.globalJoystickFor(controlID), x, y)
}

func applyJoystick(st *joystickState, x, y float64) {
	st.countOfUniqueInputs++
	n := float64(st.countOfUniqueInputs)
	st.x = st.x*(n-1)/n + x/n
	st.y = st.y*(n-1)/n + y/n
}

// shift rolls every triple buffer at the tick boundary.
func (a *inputAggregator) shift() {
	for _, st := range a.buttons {
		st.down.shift()
		st.pressed.shift()
		st.up.shift()
	}
	for _, st := range a.globalButtons {
		st.down.shift()
		st.pressed.shift()
		st.up.shift()
	}
}

// --- queries ---

func (a *inputAggregator) buttonDown(controlID string, userID uint32) bool {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	return ok && st.down.current > 0
}

func (a *inputAggregator) buttonPressed(controlID string, userID uint32) bool {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	return ok && st.pressed.current > 0
}

func (a *inputAggregator) buttonUp(controlID string, userID uint32) bool {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	return ok && st.up.current > 0
}

func (a *inputAggregator) countOfDowns(controlID string, userID uint32) uint32 {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	if !ok {
		return 0
	}
	return st.down.current
}

func (a *inputAggregator) countOfPresses(controlID string, userID uint32) uint32 {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	if !ok {
		return 0
	}
	return st.pressed.current
}

func (a *inputAggregator) countOfUps(controlID string, userID uint32) uint32 {
	st, ok := a.buttons[inputKey{userID: userID, controlID: controlID}]
	if !ok {
		return 0
	}
	return st.up.current
}

func (a *inputAggregator) anyButtonDown(controlID string) bool {
	st, ok := a.globalButtons[controlID]
	return ok && st.down.current > 0
}

func (a *inputAggregator) anyButtonPressed(controlID string) bool {
	st, ok := a.globalButtons[controlID]
	return ok && st.pressed.current > 0
}

func (a *inputAggregator) anyButtonUp(controlID string) bool {
	st, ok := a.globalButtons[controlID]
	return ok && st.up.current > 0
}

func (a *inputAggregator) joystickX(controlID string, userID uint32) float64 {
	st, ok := a.joysticks[inputKey{userID: userID, controlID: controlID}]
	if !ok {
		return 0
	}
	return st.x
}

func (a *inputAggregator) joystickY(controlID string, userID uint32) float64 {
	st, ok := a.joysticks[inputKey{userID: userID, controlID: controlID}]
	if !ok {
		return 0
	}
	return st.y
}

func (a *inputAggregator) anyJoystickX(controlID string) float64 {
	st, ok := a.globalJoysticks[controlID]
	if !ok {
		return 0
	}
	return st.x
}

func (a *inputAggregator) anyJoystickY(controlID string) float64 {
	st, ok := a.globalJoysticks[controlID]
	if !ok {
		return 0
	}
	return st.y
}
